package tracker

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Tracker tracks usage statistics per provider (geocoder, overpass, police...).
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds metrics for a specific provider.
// Fields are accessed atomically.
type ProviderStats struct {
	CacheHits     int64
	CacheMisses   int64
	APISuccess    int64
	APIFailures   int64
	APIZeroResult int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
}

func (t *Tracker) TrackAPISuccess(provider string) {
	atomic.AddInt64(&t.getStats(provider).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

func (t *Tracker) TrackAPIZero(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIZeroResult, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats)
	for k, v := range t.stats {
		result[k] = ProviderStats{
			CacheHits:     atomic.LoadInt64(&v.CacheHits),
			CacheMisses:   atomic.LoadInt64(&v.CacheMisses),
			APISuccess:    atomic.LoadInt64(&v.APISuccess),
			APIFailures:   atomic.LoadInt64(&v.APIFailures),
			APIZeroResult: atomic.LoadInt64(&v.APIZeroResult),
		}
	}
	return result
}

// stateKey is where provider totals live in the persistent state table.
const stateKey = "provider_stats"

// StateStore is the durable key-value state used to carry provider
// telemetry across processes: the pipeline writes at the end of a run,
// the dashboard reads.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
}

// Merge adds the counters in add onto totals and returns totals,
// allocating it when nil.
func Merge(totals, add map[string]ProviderStats) map[string]ProviderStats {
	if totals == nil {
		totals = make(map[string]ProviderStats, len(add))
	}
	for provider, s := range add {
		agg := totals[provider]
		agg.CacheHits += s.CacheHits
		agg.CacheMisses += s.CacheMisses
		agg.APISuccess += s.APISuccess
		agg.APIFailures += s.APIFailures
		agg.APIZeroResult += s.APIZeroResult
		totals[provider] = agg
	}
	return totals
}

// Persist folds the live snapshot into the stored totals, so counters
// accumulate across runs.
func (t *Tracker) Persist(ctx context.Context, st StateStore) error {
	totals, _ := Load(ctx, st)
	totals = Merge(totals, t.Snapshot())
	data, err := json.Marshal(totals)
	if err != nil {
		return err
	}
	return st.SetState(ctx, stateKey, string(data))
}

// Load returns the persisted provider totals, or false when none exist
// or the stored payload is unreadable.
func Load(ctx context.Context, st StateStore) (map[string]ProviderStats, bool) {
	raw, ok := st.GetState(ctx, stateKey)
	if !ok {
		return nil, false
	}
	var totals map[string]ProviderStats
	if err := json.Unmarshal([]byte(raw), &totals); err != nil {
		return nil, false
	}
	return totals, true
}
