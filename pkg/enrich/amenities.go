package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"homescout/pkg/model"
)

// Amenities gathers supermarkets and pharmacies within radiusM of the
// coordinate. Zero results in a category is a legitimate signal, not an
// error; the stage only fails when every endpoint is unreachable.
func (e *Enricher) Amenities(ctx context.Context, coord model.Coordinate, radiusM int) (*model.AmenityReport, error) {
	if radiusM <= 0 {
		radiusM = e.cfg.AmenityRadiusM
	}
	query := fmt.Sprintf(`
[out:json][timeout:45];
(
  node["shop"="supermarket"](around:%[1]d,%[2]f,%[3]f);
  way["shop"="supermarket"](around:%[1]d,%[2]f,%[3]f);
  node["shop"="convenience"](around:%[1]d,%[2]f,%[3]f);
  node["amenity"="pharmacy"](around:%[1]d,%[2]f,%[3]f);
  way["amenity"="pharmacy"](around:%[1]d,%[2]f,%[3]f);
);
out center body;
`, radiusM, coord.Lat, coord.Lon)

	elements, err := e.queryOverpass(ctx, query)
	if err != nil {
		return nil, err
	}

	report := &model.AmenityReport{
		Supermarkets: collectPlaces(coord, elements, func(tags map[string]string) bool {
			return tags["shop"] == "supermarket" || tags["shop"] == "convenience"
		}),
		Pharmacies: collectPlaces(coord, elements, func(tags map[string]string) bool {
			return tags["amenity"] == "pharmacy"
		}),
	}

	slog.Info("Amenities gathered",
		"supermarkets", len(report.Supermarkets),
		"pharmacies", len(report.Pharmacies),
		"radius_m", radiusM)
	if len(report.Supermarkets) == 0 {
		slog.Warn("No supermarkets found, data may be sparse for this area", "radius_m", radiusM)
	}
	return report, nil
}
