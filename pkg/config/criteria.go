package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Criteria holds the externally supplied scoring weights and thresholds.
// The pipeline is a pure consumer: it never mutates these.
type Criteria struct {
	Commute  CommuteCriteria    `yaml:"commute"`
	Budget   BudgetCriteria     `yaml:"budget"`
	Bedrooms int                `yaml:"bedrooms"`
	Parking  bool               `yaml:"parking"`
	Nature   NatureCriteria     `yaml:"nature"`
	Safety   SafetyCriteria     `yaml:"safety"`
	Weights  map[string]float64 `yaml:"scoring"`
}

// CommuteCriteria holds the commute hard filter and scoring thresholds.
type CommuteCriteria struct {
	// MaxMinutes is the hard filter: commutes at or beyond it score zero.
	MaxMinutes int `yaml:"max_minutes"`
	// IdealMinutes scores full marks at or below it.
	IdealMinutes int `yaml:"ideal_minutes"`
}

// BudgetCriteria holds rent limits, consumed in the listings phase.
type BudgetCriteria struct {
	MonthlyMax int `yaml:"monthly_max"`
}

// NatureCriteria holds green-space scoring parameters.
type NatureCriteria struct {
	// PointsPerPark is each named park's contribution, capped at 100.
	PointsPerPark float64 `yaml:"points_per_park"`
	// CountrysideBonus is added when a reserve/forest is within radius.
	CountrysideBonus float64 `yaml:"countryside_bonus"`
}

// SafetyCriteria maps incident counts to a safety rating.
// Serious incidents count double relative to property and antisocial ones.
type SafetyCriteria struct {
	SeriousWeight    float64 `yaml:"serious_weight"`
	PropertyWeight   float64 `yaml:"property_weight"`
	AntisocialWeight float64 `yaml:"antisocial_weight"`

	// Monthly weighted-incident thresholds per rating band.
	Excellent  float64 `yaml:"excellent"`
	Good       float64 `yaml:"good"`
	Acceptable float64 `yaml:"acceptable"`
}

// DefaultCriteria returns the default scoring criteria.
func DefaultCriteria() *Criteria {
	return &Criteria{
		Commute: CommuteCriteria{
			MaxMinutes:   60,
			IdealMinutes: 30,
		},
		Budget: BudgetCriteria{
			MonthlyMax: 2200,
		},
		Bedrooms: 2,
		Parking:  true,
		Nature: NatureCriteria{
			PointsPerPark:    15,
			CountrysideBonus: 30,
		},
		Safety: SafetyCriteria{
			SeriousWeight:    0.5,
			PropertyWeight:   0.25,
			AntisocialWeight: 0.25,
			Excellent:        50,
			Good:             100,
			Acceptable:       200,
		},
		Weights: map[string]float64{
			"commute":   30,
			"nature":    20,
			"amenities": 10,
			"safety":    20,
			"price":     15,
			"vibe":      5,
		},
	}
}

// LoadCriteria loads criteria from the given path, creating defaults when
// the file is missing.
func LoadCriteria(path string) (*Criteria, error) {
	crit := DefaultCriteria()

	if _, err := os.Stat(path); err != nil {
		data, err := yaml.Marshal(crit)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal criteria: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write criteria file: %w", err)
		}
		return crit, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read criteria file: %w", err)
	}
	if err := yaml.Unmarshal(data, crit); err != nil {
		return nil, fmt.Errorf("failed to parse criteria file: %w", err)
	}
	return crit, nil
}
