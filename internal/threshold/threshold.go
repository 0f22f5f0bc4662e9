// Package threshold derives the per-timestamp entry band of the spread
// strategy, optionally adapting it to a market volatility index.
package threshold

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sawpanic/hedgehub/internal/series"
)

// DefaultFallbackLevel is the volatility level assumed when no index data is available
const DefaultFallbackLevel = 15.0

// baseEntryZ is the entry z-score the default band table is calibrated to
const baseEntryZ = 2.0

// Regime labels the volatility band a timestamp falls into
type Regime int

const (
	Calm Regime = iota
	Elevated
	Stressed
	Crisis
)

func (r Regime) String() string {
	switch r {
	case Calm:
		return "calm"
	case Elevated:
		return "elevated"
	case Stressed:
		return "stressed"
	case Crisis:
		return "crisis"
	default:
		return "unknown"
	}
}

// MarshalText encodes the regime by name
func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Band maps index levels strictly below Below to Multiplier. The last band of
// a table should use +Inf so every level is covered.
type Band struct {
	Below      float64 `yaml:"below" json:"below"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

// DefaultBands is the VIX step table: <20 → 2.0, [20,25) → 2.25, [25,30) → 2.5, ≥30 → 3.0
func DefaultBands() []Band {
	return []Band{
		{Below: 20, Multiplier: 2.0},
		{Below: 25, Multiplier: 2.25},
		{Below: 30, Multiplier: 2.5},
		{Below: math.Inf(1), Multiplier: 3.0},
	}
}

// ValidateBands checks that the table is non-empty, strictly increasing and
// has positive multipliers
func ValidateBands(bands []Band) error {
	if len(bands) == 0 {
		return fmt.Errorf("band table is empty")
	}
	for i, b := range bands {
		if b.Multiplier <= 0 || math.IsNaN(b.Multiplier) {
			return fmt.Errorf("band %d: multiplier must be positive, got %v", i, b.Multiplier)
		}
		if i > 0 && !(b.Below > bands[i-1].Below) {
			return fmt.Errorf("band %d: upper bound %v not above %v", i, b.Below, bands[i-1].Below)
		}
	}
	return nil
}

// Lookup returns the band index and multiplier for an index level. Levels at
// or above the last bound use the last band.
func Lookup(bands []Band, level float64) (int, float64) {
	for i, b := range bands {
		if level < b.Below {
			return i, b.Multiplier
		}
	}
	last := len(bands) - 1
	return last, bands[last].Multiplier
}

// Series is one entry-band value per price timestamp, plus the regime and
// volatility level that produced it when the adaptive scheme is used
type Series struct {
	Values   []float64 `json:"values"`
	Levels   []float64 `json:"levels,omitempty"`
	Regimes  []Regime  `json:"regimes,omitempty"`
	Adaptive bool      `json:"adaptive"`
	Fallback bool      `json:"fallback"` // no volatility data, every level is the fallback
}

// At returns the entry band at index i, NaN when out of range
func (s Series) At(i int) float64 {
	if i < 0 || i >= len(s.Values) {
		return math.NaN()
	}
	return s.Values[i]
}

// Constant returns n copies of entryZ
func Constant(n int, entryZ float64) Series {
	out := make([]float64, n)
	for i := range out {
		out[i] = entryZ
	}
	return Series{Values: out}
}

// Adaptive maps the volatility index onto the price timeline, fills gaps
// forward then backward, and scales each band multiplier by entryZ/2 so the
// caller's base entry level still sets the overall aggressiveness
func Adaptive(times []time.Time, vol []series.Observation, entryZ float64, bands []Band, fallbackLevel float64) Series {
	if len(bands) == 0 {
		bands = DefaultBands()
	}
	if fallbackLevel <= 0 || math.IsNaN(fallbackLevel) {
		fallbackLevel = DefaultFallbackLevel
	}

	levels, found := alignLevels(times, vol)
	out := Series{
		Values:   make([]float64, len(times)),
		Levels:   levels,
		Regimes:  make([]Regime, len(times)),
		Adaptive: true,
		Fallback: !found,
	}

	scale := entryZ / baseEntryZ
	for i := range times {
		if !found {
			levels[i] = fallbackLevel
		}
		idx, mult := Lookup(bands, levels[i])
		out.Values[i] = mult * scale
		out.Regimes[i] = regimeFor(idx, len(bands))
	}
	return out
}

// alignLevels samples the index at each timestamp: the latest reading at or
// before t, otherwise the earliest reading after t. found is false when the
// index has no usable readings at all.
func alignLevels(times []time.Time, vol []series.Observation) ([]float64, bool) {
	clean := make([]series.Observation, 0, len(vol))
	for _, o := range vol {
		if o.Time.IsZero() || math.IsNaN(o.Price) || math.IsInf(o.Price, 0) || o.Price < 0 {
			continue
		}
		clean = append(clean, o)
	}
	levels := make([]float64, len(times))
	if len(clean) == 0 {
		return levels, false
	}
	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Time.Before(clean[j].Time) })

	j := -1
	for i, t := range times {
		for j+1 < len(clean) && !clean[j+1].Time.After(t) {
			j++
		}
		if j >= 0 {
			levels[i] = clean[j].Price
		} else {
			levels[i] = clean[0].Price
		}
	}
	return levels, true
}

// regimeFor spreads band indexes over the four named regimes; custom tables
// with more bands saturate at Crisis
func regimeFor(idx, n int) Regime {
	if idx >= n-1 && n > 1 {
		return Crisis
	}
	if idx > int(Crisis) {
		return Crisis
	}
	return Regime(idx)
}

type bandJSON struct {
	Below      *float64 `json:"below"` // null for the open-ended top band
	Multiplier float64  `json:"multiplier"`
}

// MarshalJSON writes an infinite upper bound as null
func (b Band) MarshalJSON() ([]byte, error) {
	out := bandJSON{Multiplier: b.Multiplier}
	if !math.IsInf(b.Below, 1) {
		below := b.Below
		out.Below = &below
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null or missing upper bound as +Inf
func (b *Band) UnmarshalJSON(data []byte) error {
	var in bandJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.Multiplier = in.Multiplier
	b.Below = math.Inf(1)
	if in.Below != nil {
		b.Below = *in.Below
	}
	return nil
}
