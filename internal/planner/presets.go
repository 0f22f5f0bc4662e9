// Package planner turns a risk preference and the latest spread snapshot into
// a directional recommendation with position sizing.
package planner

import (
	"fmt"
	"strings"
)

// RiskLevel is the caller's appetite
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// ParseRiskLevel is case-insensitive; blank or unknown input maps to Medium
// and reports ok=false for unknown values
func ParseRiskLevel(s string) (RiskLevel, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOW":
		return RiskLow, true
	case "", "MEDIUM":
		return RiskMedium, true
	case "HIGH":
		return RiskHigh, true
	default:
		return RiskMedium, false
	}
}

// Preset is the fixed band/allocation set for a risk level
type Preset struct {
	EntryZ     float64 `yaml:"entry_z" json:"entry_z"`
	ExitZ      float64 `yaml:"exit_z" json:"exit_z"`
	Allocation float64 `yaml:"allocation" json:"allocation"` // fraction of the investable amount
}

// Validate checks the preset bands and allocation
func (p Preset) Validate() error {
	if p.EntryZ <= 0 {
		return fmt.Errorf("entry_z must be positive, got %v", p.EntryZ)
	}
	if p.ExitZ <= 0 || p.ExitZ >= p.EntryZ {
		return fmt.Errorf("exit_z must be in (0, entry_z), got %v", p.ExitZ)
	}
	if p.Allocation <= 0 || p.Allocation > 1 {
		return fmt.Errorf("allocation must be in (0, 1], got %v", p.Allocation)
	}
	return nil
}

// Presets maps each risk level to its preset
type Presets map[RiskLevel]Preset

// DefaultPresets: Low is the widest band and smallest allocation
func DefaultPresets() Presets {
	return Presets{
		RiskLow:    {EntryZ: 2.5, ExitZ: 0.75, Allocation: 0.35},
		RiskMedium: {EntryZ: 2.0, ExitZ: 0.5, Allocation: 0.5},
		RiskHigh:   {EntryZ: 1.5, ExitZ: 0.35, Allocation: 0.65},
	}
}

// For returns the preset for level, falling back to the default table
func (p Presets) For(level RiskLevel) Preset {
	if preset, ok := p[level]; ok {
		return preset
	}
	if preset, ok := DefaultPresets()[level]; ok {
		return preset
	}
	return DefaultPresets()[RiskMedium]
}

// Validate checks every configured preset
func (p Presets) Validate() error {
	for level, preset := range p {
		if _, ok := ParseRiskLevel(string(level)); !ok {
			return fmt.Errorf("unknown risk level %q", level)
		}
		if err := preset.Validate(); err != nil {
			return fmt.Errorf("risk preset %s: %w", level, err)
		}
	}
	return nil
}
