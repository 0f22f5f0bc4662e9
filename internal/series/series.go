// Package series holds the aligned two-leg price history consumed by the analysis core.
package series

import (
	"math"
	"sort"
	"time"

	"github.com/sawpanic/hedgehub/internal/errs"
)

// MinObservations is the smallest aligned history Align accepts
const MinObservations = 2

// Observation is one adjusted close for a single ticker
type Observation struct {
	Time  time.Time `json:"date"`
	Price float64   `json:"close"`
}

// PricePoint is one aligned row of the pair
type PricePoint struct {
	Time   time.Time `json:"time"`
	PriceA float64   `json:"price_a"`
	PriceB float64   `json:"price_b"`
}

// Aligned is the intersection of two price histories on common timestamps.
// It is immutable once built; accessors hand out copies.
type Aligned struct {
	tickerA string
	tickerB string
	points  []PricePoint
}

// Align intersects two raw histories on identical timestamps and discards rows
// where either leg is missing, non-finite or non-positive
func Align(tickerA string, a []Observation, tickerB string, b []Observation) (*Aligned, error) {
	legA := index(a)
	legB := index(b)

	points := make([]PricePoint, 0, len(legA))
	for ts, pa := range legA {
		pb, ok := legB[ts]
		if !ok {
			continue
		}
		points = append(points, PricePoint{Time: time.Unix(0, ts).UTC(), PriceA: pa, PriceB: pb})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})

	if len(points) < MinObservations {
		return nil, errs.Insufficient("align", MinObservations, len(points))
	}

	return &Aligned{tickerA: tickerA, tickerB: tickerB, points: points}, nil
}

// FromPoints builds an Aligned series from rows that are already paired,
// applying the same validity filter as Align
func FromPoints(tickerA, tickerB string, rows []PricePoint) (*Aligned, error) {
	a := make([]Observation, 0, len(rows))
	b := make([]Observation, 0, len(rows))
	for _, r := range rows {
		a = append(a, Observation{Time: r.Time, Price: r.PriceA})
		b = append(b, Observation{Time: r.Time, Price: r.PriceB})
	}
	return Align(tickerA, a, tickerB, b)
}

// index keys valid observations by UnixNano; a later duplicate timestamp wins
func index(obs []Observation) map[int64]float64 {
	out := make(map[int64]float64, len(obs))
	for _, o := range obs {
		if !valid(o.Price) || o.Time.IsZero() {
			continue
		}
		out[o.Time.UTC().UnixNano()] = o.Price
	}
	return out
}

func valid(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

// TickerA returns the first leg's symbol
func (s *Aligned) TickerA() string { return s.tickerA }

// TickerB returns the second leg's symbol
func (s *Aligned) TickerB() string { return s.tickerB }

// Len returns the number of aligned rows
func (s *Aligned) Len() int { return len(s.points) }

// At returns row i
func (s *Aligned) At(i int) PricePoint { return s.points[i] }

// Last returns the final row
func (s *Aligned) Last() PricePoint { return s.points[len(s.points)-1] }

// Points returns a copy of all rows
func (s *Aligned) Points() []PricePoint {
	out := make([]PricePoint, len(s.points))
	copy(out, s.points)
	return out
}

// Times returns the timestamps in order
func (s *Aligned) Times() []time.Time {
	out := make([]time.Time, len(s.points))
	for i, p := range s.points {
		out[i] = p.Time
	}
	return out
}

// PricesA returns the first leg's prices
func (s *Aligned) PricesA() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.PriceA
	}
	return out
}

// PricesB returns the second leg's prices
func (s *Aligned) PricesB() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.PriceB
	}
	return out
}

// Returns computes simple day-over-day returns for both legs; the slices have
// Len()-1 entries
func (s *Aligned) Returns() (ra, rb []float64) {
	if len(s.points) < 2 {
		return nil, nil
	}
	ra = make([]float64, len(s.points)-1)
	rb = make([]float64, len(s.points)-1)
	for i := 1; i < len(s.points); i++ {
		ra[i-1] = s.points[i].PriceA/s.points[i-1].PriceA - 1
		rb[i-1] = s.points[i].PriceB/s.points[i-1].PriceB - 1
	}
	return ra, rb
}
