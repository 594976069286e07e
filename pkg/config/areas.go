package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedArea is one candidate area from the areas seed file.
type SeedArea struct {
	Name     string  `yaml:"name"`
	Postcode string  `yaml:"postcode,omitempty"`
	Lat      float64 `yaml:"lat,omitempty"`
	Lon      float64 `yaml:"lon,omitempty"`
}

// Identifier returns the stable key for the area: the normalized name,
// falling back to the normalized postcode.
func (s SeedArea) Identifier() string {
	if s.Name != "" {
		return NormalizeIdentifier(s.Name)
	}
	return NormalizeIdentifier(s.Postcode)
}

// SeedAreas is the ordered area list consumed at startup. File order is
// queue order; Priority names jump the queue.
type SeedAreas struct {
	Areas    []SeedArea `yaml:"areas"`
	Priority []string   `yaml:"priority_areas,omitempty"`
}

// NormalizeIdentifier lowercases and underscores a place name or postcode
// into a stable identifier.
func NormalizeIdentifier(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.ReplaceAll(s, " ", "_")
}

// LoadAreas loads the seed area list. A missing file yields an empty list,
// not an error: discovery may not have run yet.
func LoadAreas(path string) (*SeedAreas, error) {
	seeds := &SeedAreas{}

	if _, err := os.Stat(path); err != nil {
		return seeds, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read areas file: %w", err)
	}
	if err := yaml.Unmarshal(data, seeds); err != nil {
		return nil, fmt.Errorf("failed to parse areas file: %w", err)
	}
	return seeds, nil
}

// SaveAreas writes the seed area list back to the path (used by discovery).
func SaveAreas(path string, seeds *SeedAreas) error {
	data, err := yaml.Marshal(seeds)
	if err != nil {
		return fmt.Errorf("failed to marshal areas: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write areas file: %w", err)
	}
	return nil
}
