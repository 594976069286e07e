package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"homescout/pkg/config"
	"homescout/pkg/geo"
	"homescout/pkg/model"
	"homescout/pkg/request"
)

// ErrEnrichmentUnavailable indicates every configured endpoint for a stage
// was exhausted. Empty results are NOT this error: finding nothing is a
// valid answer.
var ErrEnrichmentUnavailable = errors.New("enrichment unavailable")

// Enricher queries POI and incident-statistics sources around a coordinate.
type Enricher struct {
	request *request.Client
	policy  request.Policy
	cfg     config.EnrichConfig
}

// New creates an Enricher.
func New(r *request.Client, policy request.Policy, cfg config.EnrichConfig) *Enricher {
	return &Enricher{request: r, policy: policy, cfg: cfg}
}

type overpassElement struct {
	Type   string            `json:"type"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

// coordinate returns the element position: direct for nodes, center for ways
// and relations. ok is false when neither is present.
func (el *overpassElement) coordinate() (model.Coordinate, bool) {
	if el.Center != nil {
		return model.Coordinate{Lat: el.Center.Lat, Lon: el.Center.Lon}, true
	}
	if el.Lat != 0 || el.Lon != 0 {
		return model.Coordinate{Lat: el.Lat, Lon: el.Lon}, true
	}
	return model.Coordinate{}, false
}

// queryOverpass posts the query to the configured endpoints with fallback:
// each endpoint gets its own retry budget before the next one is tried.
func (e *Enricher) queryOverpass(ctx context.Context, query string) ([]overpassElement, error) {
	var body []byte
	var answered string
	err := e.policy.DoWithEndpoints(ctx, e.cfg.OverpassEndpoints, func(ctx context.Context, endpoint string) error {
		form := url.Values{}
		form.Set("data", query)
		var err error
		body, err = e.request.PostForm(ctx, endpoint, form, "")
		if err == nil {
			answered = endpoint
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}

	var resp struct {
		Elements []overpassElement `json:"elements"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode overpass response: %w", err)
	}
	if len(resp.Elements) == 0 {
		e.request.ZeroResult(answered)
	}
	return resp.Elements, nil
}

// collectPlaces converts elements to named places with distances, dropping
// unnamed entries and duplicates, sorted nearest first.
func collectPlaces(center model.Coordinate, elements []overpassElement, keep func(tags map[string]string) bool) []model.Place {
	seen := make(map[string]bool)
	var places []model.Place
	for i := range elements {
		el := &elements[i]
		if !keep(el.Tags) {
			continue
		}
		name := el.Tags["name"]
		if name == "" {
			name = el.Tags["brand"]
		}
		if name == "" || seen[name] {
			continue
		}
		coord, ok := el.coordinate()
		if !ok {
			continue
		}
		seen[name] = true
		places = append(places, model.Place{
			Name:      name,
			Lat:       coord.Lat,
			Lon:       coord.Lon,
			DistanceM: int(geo.Distance(center, coord)),
		})
	}
	sort.Slice(places, func(i, j int) bool { return places[i].DistanceM < places[j].DistanceM })
	return places
}

func limitPlaces(places []model.Place, n int) []model.Place {
	if len(places) > n {
		return places[:n]
	}
	return places
}
