// Package scorer computes the composite desirability score for a fully
// enriched area. Scoring is a pure function of the area's collected data
// and the criteria: same inputs give the same score, always.
package scorer

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"homescout/pkg/config"
	"homescout/pkg/model"
)

// ErrIncompleteAreaData indicates a score was requested for an area that
// is missing one of the enrichment records.
var ErrIncompleteAreaData = errors.New("incomplete area data")

// Scorer derives desirability scores from enrichment data.
type Scorer struct {
	criteria *config.Criteria
}

// New creates a Scorer for the given criteria.
func New(criteria *config.Criteria) *Scorer {
	return &Scorer{criteria: criteria}
}

// Score computes the weighted total and per-dimension breakdown for area.
// The area must have commute, amenity, nature and crime records.
func (s *Scorer) Score(area *model.Area) (*model.ScoreResult, error) {
	if area.Commute == nil || area.Amenities == nil || area.Nature == nil || area.Crime == nil {
		return nil, fmt.Errorf("%w: %s", ErrIncompleteAreaData, area.Identifier)
	}

	safety := s.SafetyRating(area.Crime)
	breakdown := map[string]float64{
		"commute":   s.commuteScore(area.Commute),
		"nature":    s.natureScore(area.Nature),
		"amenities": s.amenityScore(area.Amenities),
		"safety":    safetyScore(safety),
		// Price and vibe need data sources this pipeline does not
		// collect yet; neutral placeholders keep the weights honest.
		"price": 70,
		"vibe":  70,
	}

	// Sorted iteration keeps float accumulation order, and therefore the
	// rounded total, stable across runs.
	dimensions := make([]string, 0, len(s.criteria.Weights))
	for dimension := range s.criteria.Weights {
		dimensions = append(dimensions, dimension)
	}
	sort.Strings(dimensions)

	var total, weightSum float64
	for _, dimension := range dimensions {
		sub, ok := breakdown[dimension]
		if !ok {
			continue
		}
		weight := s.criteria.Weights[dimension]
		total += sub * weight
		weightSum += weight
	}
	if weightSum > 0 {
		total /= weightSum
	}

	return &model.ScoreResult{
		Total:     math.Round(total*10) / 10,
		Breakdown: breakdown,
		Safety:    safety,
	}, nil
}

// commuteScore maps total door-to-door minutes onto 0-100: full marks at
// or under the ideal, zero at or over the maximum, linear in between.
func (s *Scorer) commuteScore(c *model.CommuteResult) float64 {
	ideal := float64(s.criteria.Commute.IdealMinutes)
	max := float64(s.criteria.Commute.MaxMinutes)
	total := float64(c.TotalMinutes)
	switch {
	case total <= ideal:
		return 100
	case total >= max:
		return 0
	default:
		return 100 * (max - total) / (max - ideal)
	}
}

func (s *Scorer) natureScore(n *model.NatureReport) float64 {
	score := float64(len(n.Parks)) * s.criteria.Nature.PointsPerPark
	if score > 100 {
		score = 100
	}
	if n.CountrysideAccess {
		score += s.criteria.Nature.CountrysideBonus
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (s *Scorer) amenityScore(a *model.AmenityReport) float64 {
	n := len(a.Supermarkets)
	switch {
	case n >= 3:
		return 100
	case n >= 1:
		return 60 + float64(n-1)*20
	default:
		return 20
	}
}

// SafetyRating maps a crime report onto a coarse rating band using the
// weighted monthly incident count. Serious crime counts double relative
// to property and antisocial incidents.
func (s *Scorer) SafetyRating(c *model.CrimeReport) string {
	sc := s.criteria.Safety
	weighted := float64(c.Serious)*sc.SeriousWeight +
		float64(c.Property)*sc.PropertyWeight +
		float64(c.Antisocial)*sc.AntisocialWeight
	switch {
	case weighted <= sc.Excellent:
		return "excellent"
	case weighted <= sc.Good:
		return "good"
	case weighted <= sc.Acceptable:
		return "acceptable"
	default:
		return "poor"
	}
}

func safetyScore(rating string) float64 {
	switch rating {
	case "excellent":
		return 100
	case "good":
		return 70
	case "acceptable":
		return 40
	default:
		return 10
	}
}
