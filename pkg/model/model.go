package model

import (
	"time"
)

// Coordinate is a latitude/longitude pair. Immutable once an Area is geocoded.
type Coordinate struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// IsZero reports whether the coordinate has not been resolved yet.
func (c Coordinate) IsZero() bool {
	return c.Lat == 0 && c.Lon == 0
}

// Area represents one candidate residential location under evaluation.
type Area struct {
	Identifier string     `json:"identifier"` // Primary Key (normalized name or postcode)
	Name       string     `json:"name"`
	Postcode   string     `json:"postcode,omitempty"`
	Coordinate Coordinate `json:"coordinate"`

	// Enrichment records, filled stage by stage. nil = stage not yet run.
	Commute   *CommuteResult `json:"commute,omitempty"`
	Amenities *AmenityReport `json:"amenities,omitempty"`
	Nature    *NatureReport  `json:"nature,omitempty"`
	Crime     *CrimeReport   `json:"crime,omitempty"`
	Score     *ScoreResult   `json:"score,omitempty"`

	Status        Status    `json:"status"`
	ErrorDetail   string    `json:"error_detail,omitempty"` // set only when Status == StatusFailed
	LastAttemptAt time.Time `json:"last_attempt_at,omitempty"`
	ExploredAt    time.Time `json:"explored_at,omitempty"`

	// Position preserves configuration insertion order for queue selection.
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// DisplayName returns the best available name for the area.
func (a *Area) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return a.Identifier
}

// CommuteResult holds transit time to the destination plus the walking buffer.
type CommuteResult struct {
	TransitMinutes int    `json:"transit_minutes"`
	WalkMinutes    int    `json:"walk_minutes"`
	TotalMinutes   int    `json:"total_minutes"`
	Station        string `json:"station,omitempty"` // nearest rail station, if known
}

// Place is a named point of interest with its distance from the area centre.
type Place struct {
	Name      string  `json:"name"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	DistanceM int     `json:"distance_m"`
}

// AmenityReport groups everyday amenities found around an area.
// Empty lists are a valid result, not an error.
type AmenityReport struct {
	Supermarkets []Place `json:"supermarkets"`
	Pharmacies   []Place `json:"pharmacies"`
}

// NatureReport groups green space found around an area.
type NatureReport struct {
	Parks             []Place `json:"parks"`
	Reserves          []Place `json:"reserves"`
	CountrysideAccess bool    `json:"countryside_access"`
}

// ParksCount returns the number of named parks in the report.
func (n *NatureReport) ParksCount() int {
	return len(n.Parks)
}

// CrimeReport aggregates one month of incident statistics around an area.
type CrimeReport struct {
	Serious    int            `json:"serious_count"`
	Property   int            `json:"property_count"`
	Antisocial int            `json:"antisocial_count"`
	Total      int            `json:"total_count"`
	ByCategory map[string]int `json:"by_category,omitempty"`
	Month      string         `json:"month"` // e.g. "2025-05"
}

// ScoreResult is the deterministic output of the scorer: a 0-100 total
// plus the sub-score breakdown it was combined from.
type ScoreResult struct {
	Total     float64            `json:"total"`
	Breakdown map[string]float64 `json:"breakdown"`
	Safety    string             `json:"safety"` // excellent, good, acceptable, poor
}

// ExplorationResult is handed to external collaborators (notifier, dashboard)
// after one pipeline run.
type ExplorationResult struct {
	RunID          string       `json:"run_id"`
	AreaIdentifier string       `json:"area_identifier"`
	AreaName       string       `json:"area_name"`
	Status         Status       `json:"status"`
	Score          *ScoreResult `json:"score,omitempty"`
	ErrorDetail    string       `json:"error_detail,omitempty"`
}

// Failed reports whether the run ended with the area in a failed state.
func (r *ExplorationResult) Failed() bool {
	return r.Status == StatusFailed
}
