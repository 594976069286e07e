// Package commute computes transit time from an area to the fixed
// destination, plus a walking buffer for station egress and destination
// ingress.
package commute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"homescout/pkg/config"
	"homescout/pkg/geo"
	"homescout/pkg/model"
	"homescout/pkg/request"
)

// ErrCommuteUnavailable indicates no transit route exists within the
// bounded search window, or no routing provider could answer. Fatal for
// the area's exploration this run; eligible for retry on the next.
var ErrCommuteUnavailable = errors.New("commute unavailable")

// errNoRoute is a provider saying "no route" as a valid answer. It is not
// retried against the same provider, but the next provider is still tried.
var errNoRoute = errors.New("no route found")

// StationFinder locates the nearest rail station for walk estimation.
type StationFinder interface {
	Nearest(ctx context.Context, coord model.Coordinate) (*model.Station, error)
}

// Finder computes commute times via TravelTime with Google Directions as
// fallback, each under the shared retry policy.
type Finder struct {
	request  *request.Client
	policy   request.Policy
	cfg      config.CommuteConfig
	dest     config.DestinationConfig
	stations StationFinder // optional
}

// NewFinder creates a commute Finder. stations may be nil; the configured
// walking buffer is used instead.
func NewFinder(r *request.Client, policy request.Policy, cfg config.CommuteConfig, dest config.DestinationConfig, stations StationFinder) *Finder {
	return &Finder{request: r, policy: policy, cfg: cfg, dest: dest, stations: stations}
}

// Compute returns the commute from coord to the destination.
func (f *Finder) Compute(ctx context.Context, coord model.Coordinate) (*model.CommuteResult, error) {
	walkMinutes := f.cfg.WalkBufferMin
	stationName := ""
	if f.stations != nil {
		station, err := f.stations.Nearest(ctx, coord)
		if err != nil {
			slog.Warn("Nearest station lookup failed, using default walk buffer", "error", err)
		} else if station != nil {
			stationName = station.Name
			walkMinutes = geo.WalkingMinutes(station.DistanceKm * 1000)
		}
	}

	type provider struct {
		name string
		fn   func(ctx context.Context) (int, error)
	}
	var providers []provider
	if f.cfg.TravelTimeURL != "" && f.cfg.TravelTimeAppID != "" && f.cfg.TravelTimeKey != "" {
		providers = append(providers, provider{"traveltime", func(ctx context.Context) (int, error) {
			return f.queryTravelTime(ctx, coord)
		}})
	}
	if f.cfg.GoogleURL != "" && f.cfg.GoogleKey != "" {
		providers = append(providers, provider{"google", func(ctx context.Context) (int, error) {
			return f.queryGoogle(ctx, coord)
		}})
	}
	if len(providers) == 0 {
		return nil, fmt.Errorf("%w: no routing provider configured", ErrCommuteUnavailable)
	}

	var lastErr error
	for _, p := range providers {
		var transit int
		err := f.policy.Do(ctx, func(ctx context.Context) error {
			var err error
			transit, err = p.fn(ctx)
			return err
		})
		if err == nil {
			result := &model.CommuteResult{
				TransitMinutes: transit,
				WalkMinutes:    walkMinutes,
				TotalMinutes:   transit + walkMinutes,
				Station:        stationName,
			}
			slog.Info("Commute computed", "provider", p.name,
				"transit_min", transit, "walk_min", walkMinutes, "total_min", result.TotalMinutes)
			return result, nil
		}
		lastErr = err
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		slog.Warn("Commute provider failed, falling back", "provider", p.name, "error", err)
	}
	return nil, fmt.Errorf("%w: %v", ErrCommuteUnavailable, lastErr)
}

func (f *Finder) queryTravelTime(ctx context.Context, coord model.Coordinate) (int, error) {
	payload := map[string]any{
		"locations": []map[string]any{
			{"id": "origin", "coords": map[string]float64{"lat": coord.Lat, "lng": coord.Lon}},
			{"id": "destination", "coords": map[string]float64{"lat": f.dest.Lat, "lng": f.dest.Lon}},
		},
		"departure_searches": []map[string]any{{
			"id":                    "commute",
			"departure_location_id": "origin",
			"arrival_location_ids":  []string{"destination"},
			"departure_time":        nextWeekdayMorning().Format(time.RFC3339),
			"travel_time":           f.cfg.SearchWindowMin * 60,
			"properties":            []string{"travel_time"},
			"transportation":        map[string]string{"type": "public_transport"},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	headers := map[string]string{
		"X-Application-Id": f.cfg.TravelTimeAppID,
		"X-Api-Key":        f.cfg.TravelTimeKey,
	}
	respBody, err := f.request.PostJSON(ctx, f.cfg.TravelTimeURL, body, headers)
	if err != nil {
		return 0, err
	}

	var resp struct {
		Results []struct {
			Locations []struct {
				Properties struct {
					TravelTime int `json:"travel_time"`
				} `json:"properties"`
			} `json:"locations"`
		} `json:"results"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode traveltime response: %w", err)
	}
	if len(resp.Results) == 0 || len(resp.Results[0].Locations) == 0 ||
		resp.Results[0].Locations[0].Properties.TravelTime == 0 {
		return 0, request.Permanent(errNoRoute)
	}
	return resp.Results[0].Locations[0].Properties.TravelTime / 60, nil
}

func (f *Finder) queryGoogle(ctx context.Context, coord model.Coordinate) (int, error) {
	q := url.Values{}
	q.Set("origin", fmt.Sprintf("%f,%f", coord.Lat, coord.Lon))
	q.Set("destination", fmt.Sprintf("%f,%f", f.dest.Lat, f.dest.Lon))
	q.Set("mode", "transit")
	q.Set("transit_mode", "rail")
	q.Set("departure_time", fmt.Sprintf("%d", nextWeekdayMorning().Unix()))
	q.Set("key", f.cfg.GoogleKey)

	respBody, err := f.request.Get(ctx, f.cfg.GoogleURL+"?"+q.Encode(), "")
	if err != nil {
		return 0, err
	}

	var resp struct {
		Routes []struct {
			Legs []struct {
				Duration struct {
					Value int `json:"value"` // seconds
				} `json:"duration"`
			} `json:"legs"`
		} `json:"routes"`
	}
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode directions response: %w", err)
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return 0, request.Permanent(errNoRoute)
	}
	return resp.Routes[0].Legs[0].Duration.Value / 60, nil
}

// nextWeekdayMorning returns the next weekday at 08:00 UTC, the reference
// departure time for all commute queries.
func nextWeekdayMorning() time.Time {
	now := time.Now().UTC()
	target := time.Date(now.Year(), now.Month(), now.Day(), 8, 0, 0, 0, time.UTC)
	if !now.Before(target) {
		target = target.AddDate(0, 0, 1)
	}
	for target.Weekday() == time.Saturday || target.Weekday() == time.Sunday {
		target = target.AddDate(0, 0, 1)
	}
	return target
}
