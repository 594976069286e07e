package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"homescout/pkg/model"
)

// Incident categories that affect safety perception most.
var seriousCategories = map[string]bool{
	"violent-crime":                true,
	"violence-and-sexual-offences": true,
	"robbery":                      true,
	"possession-of-weapons":        true,
	"public-order":                 true,
}

var propertyCategories = map[string]bool{
	"burglary":              true,
	"theft-from-the-person": true,
	"vehicle-crime":         true,
	"bicycle-theft":         true,
	"shoplifting":           true,
	"other-theft":           true,
}

const antisocialCategory = "anti-social-behaviour"

// Crime gathers one month of street-level incident statistics around the
// coordinate from the UK Police Data API (1-mile radius, most recent
// available month), aggregated by category.
func (e *Enricher) Crime(ctx context.Context, coord model.Coordinate) (*model.CrimeReport, error) {
	q := url.Values{}
	q.Set("lat", fmt.Sprintf("%f", coord.Lat))
	q.Set("lng", fmt.Sprintf("%f", coord.Lon))
	u := fmt.Sprintf("%s/crimes-street/all-crime?%s", e.cfg.PoliceURL, q.Encode())

	var body []byte
	err := e.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		body, err = e.request.Get(ctx, u, "")
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}

	var incidents []struct {
		Category string `json:"category"`
		Month    string `json:"month"`
	}
	if err := json.Unmarshal(body, &incidents); err != nil {
		return nil, fmt.Errorf("failed to decode crime response: %w", err)
	}
	if len(incidents) == 0 {
		e.request.ZeroResult(u)
	}

	report := &model.CrimeReport{
		Total:      len(incidents),
		ByCategory: make(map[string]int),
	}
	for _, inc := range incidents {
		category := inc.Category
		if category == "" {
			category = "other-crime"
		}
		report.ByCategory[category]++
		if report.Month == "" && inc.Month != "" {
			report.Month = inc.Month
		}

		switch {
		case seriousCategories[category]:
			report.Serious++
		case propertyCategories[category]:
			report.Property++
		case category == antisocialCategory:
			report.Antisocial++
		}
	}

	slog.Info("Crime data gathered",
		"month", report.Month,
		"total", report.Total,
		"serious", report.Serious,
		"property", report.Property,
		"antisocial", report.Antisocial)
	return report, nil
}

// LastUpdated returns the month the incident data set was last refreshed,
// in YYYY-MM form. Doubles as the reachability check for the source.
func (e *Enricher) LastUpdated(ctx context.Context) (string, error) {
	body, err := e.request.Get(ctx, e.cfg.PoliceURL+"/crime-last-updated", "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEnrichmentUnavailable, err)
	}

	var resp struct {
		Date string `json:"date"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("failed to decode last-updated response: %w", err)
	}
	if len(resp.Date) < 7 {
		return "", fmt.Errorf("%w: malformed last-updated date %q", ErrEnrichmentUnavailable, resp.Date)
	}
	return resp.Date[:7], nil
}
