// Package stations maintains the UK rail station database used for
// walking-buffer estimates and area discovery.
package stations

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"homescout/pkg/geo"
	"homescout/pkg/model"
	"homescout/pkg/request"
	"homescout/pkg/store"
)

// overpassQuery selects National Rail (and friends) stations in Great Britain.
const overpassQuery = `
[out:json][timeout:120];
area["ISO3166-1"="GB"]->.uk;
(
  node["railway"="station"]["network"~"National Rail|Transport for Wales|ScotRail|Northern|Southeastern|Southern|Thameslink|Great Western|CrossCountry|LNER|TransPennine|Avanti"](area.uk);
);
out body;
`

// Database provides station lookups backed by the durable store.
type Database struct {
	store     store.StationStore
	request   *request.Client
	policy    request.Policy
	endpoints []string
}

// NewDatabase creates a station database.
func NewDatabase(st store.StationStore, r *request.Client, policy request.Policy, endpoints []string) *Database {
	return &Database{store: st, request: r, policy: policy, endpoints: endpoints}
}

// Refresh fetches the station list from OpenStreetMap and persists it.
// Returns the number of stations stored.
func (d *Database) Refresh(ctx context.Context) (int, error) {
	var body []byte
	err := d.policy.DoWithEndpoints(ctx, d.endpoints, func(ctx context.Context, endpoint string) error {
		form := url.Values{}
		form.Set("data", overpassQuery)
		var err error
		body, err = d.request.PostForm(ctx, endpoint, form, "")
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to fetch stations: %w", err)
	}

	var resp struct {
		Elements []struct {
			Type string            `json:"type"`
			Lat  float64           `json:"lat"`
			Lon  float64           `json:"lon"`
			Tags map[string]string `json:"tags"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("failed to decode stations response: %w", err)
	}

	var result []model.Station
	for _, el := range resp.Elements {
		if el.Type != "node" {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		town := el.Tags["addr:city"]
		if town == "" {
			town = el.Tags["addr:town"]
		}
		result = append(result, model.Station{
			Name:     name,
			Lat:      el.Lat,
			Lon:      el.Lon,
			Town:     town,
			Operator: el.Tags["operator"],
			Network:  el.Tags["network"],
		})
	}

	if err := d.store.SaveStations(ctx, result); err != nil {
		return 0, fmt.Errorf("failed to save stations: %w", err)
	}
	slog.Info("Station database refreshed", "stations", len(result))
	return len(result), nil
}

// Nearest returns the station closest to the coordinate, with DistanceKm
// filled in. Returns nil when no station data is loaded.
func (d *Database) Nearest(ctx context.Context, coord model.Coordinate) (*model.Station, error) {
	all, err := d.store.ListStations(ctx)
	if err != nil {
		return nil, err
	}

	var nearest *model.Station
	minDist := -1.0
	for i := range all {
		dist := geo.DistanceKm(coord, model.Coordinate{Lat: all[i].Lat, Lon: all[i].Lon})
		if minDist < 0 || dist < minDist {
			minDist = dist
			nearest = &all[i]
		}
	}
	if nearest == nil {
		return nil, nil
	}
	st := *nearest
	st.DistanceKm = minDist
	return &st, nil
}

// Near returns all stations within radiusKm of center, nearest first.
func (d *Database) Near(ctx context.Context, center model.Coordinate, radiusKm float64) ([]model.Station, error) {
	all, err := d.store.ListStations(ctx)
	if err != nil {
		return nil, err
	}

	var nearby []model.Station
	for _, st := range all {
		dist := geo.DistanceKm(center, model.Coordinate{Lat: st.Lat, Lon: st.Lon})
		if dist <= radiusKm {
			st.DistanceKm = dist
			nearby = append(nearby, st)
		}
	}
	sort.Slice(nearby, func(i, j int) bool { return nearby[i].DistanceKm < nearby[j].DistanceKm })
	return nearby, nil
}
