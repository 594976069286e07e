package store

import (
	"context"

	"homescout/pkg/model"
)

// AreaStore handles durable per-area records. It is the single substrate
// the pipeline reads and writes through; the dashboard reads it only.
type AreaStore interface {
	GetArea(ctx context.Context, identifier string) (*model.Area, error)
	SaveArea(ctx context.Context, area *model.Area) error
	ListAreas(ctx context.Context) ([]*model.Area, error)
	// NextPending returns the first area whose status is not complete,
	// in insertion (position) order with failed areas last. The queue is
	// derived from records, never persisted separately. Returns nil when
	// all are complete.
	NextPending(ctx context.Context) (*model.Area, error)
	CountByStatus(ctx context.Context) (map[model.Status]int, error)
}

// StationStore handles the rail station database used for walk estimates.
type StationStore interface {
	SaveStations(ctx context.Context, stations []model.Station) error
	ListStations(ctx context.Context) ([]model.Station, error)
}

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// Store composes all sub-interfaces for full store access.
// Consumers should depend on specific sub-interfaces when possible.
type Store interface {
	AreaStore
	StationStore
	StateStore

	// Close closes the store connection.
	Close() error
}
