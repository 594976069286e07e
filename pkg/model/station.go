package model

// Station is a rail station usable for commute estimation.
type Station struct {
	Name     string  `json:"name"`
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Town     string  `json:"town,omitempty"`
	Operator string  `json:"operator,omitempty"`
	Network  string  `json:"network,omitempty"`

	// DistanceKm is filled by nearest-station lookups, not persisted.
	DistanceKm float64 `json:"distance_km,omitempty"`
}
