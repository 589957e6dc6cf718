package model

import (
	"fmt"
	"strings"
)

// ClimateUsage is the cabin heating/cooling intensity used by the EPA model.
type ClimateUsage string

const (
	ClimateLow    ClimateUsage = "Low"
	ClimateMedium ClimateUsage = "Medium"
	ClimateHigh   ClimateUsage = "High"
)

// TerrainType is the dominant road profile used by the EPA model.
type TerrainType string

const (
	TerrainFlat     TerrainType = "Flat"
	TerrainHilly    TerrainType = "Hilly"
	TerrainMountain TerrainType = "Mountain"
)

// ParseClimateUsage accepts any casing of Low, Medium or High.
func ParseClimateUsage(s string) (ClimateUsage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return ClimateLow, nil
	case "medium":
		return ClimateMedium, nil
	case "high":
		return ClimateHigh, nil
	default:
		return "", fmt.Errorf("unknown climate usage %q", s)
	}
}

// ParseTerrainType accepts any casing of Flat, Hilly or Mountain.
func ParseTerrainType(s string) (TerrainType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat":
		return TerrainFlat, nil
	case "hilly":
		return TerrainHilly, nil
	case "mountain":
		return TerrainMountain, nil
	default:
		return "", fmt.Errorf("unknown terrain type %q", s)
	}
}

// Severity classifies how strongly a factor reduces range.
type Severity int

const (
	SeverityNominal Severity = iota
	SeverityCaution
	SeverityCritical
)

// String returns a human-readable representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityNominal:
		return "nominal"
	case SeverityCaution:
		return "caution"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalText encodes the severity by name.
func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText decodes a severity name.
func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "nominal":
		*s = SeverityNominal
	case "caution":
		*s = SeverityCaution
	case "critical":
		*s = SeverityCritical
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}
