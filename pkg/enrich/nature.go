package enrich

import (
	"context"
	"fmt"
	"log/slog"

	"homescout/pkg/model"
)

// Nature gathers parks, nature reserves and woodland within radiusM of the
// coordinate. Reserves or forests within radius grant countryside access.
func (e *Enricher) Nature(ctx context.Context, coord model.Coordinate, radiusM int) (*model.NatureReport, error) {
	if radiusM <= 0 {
		radiusM = e.cfg.NatureRadiusM
	}
	query := fmt.Sprintf(`
[out:json][timeout:45];
(
  way["leisure"="park"](around:%[1]d,%[2]f,%[3]f);
  relation["leisure"="park"](around:%[1]d,%[2]f,%[3]f);
  way["leisure"="garden"](around:%[1]d,%[2]f,%[3]f);
  way["leisure"="nature_reserve"](around:%[1]d,%[2]f,%[3]f);
  relation["leisure"="nature_reserve"](around:%[1]d,%[2]f,%[3]f);
  way["landuse"="forest"](around:%[1]d,%[2]f,%[3]f);
  way["natural"="wood"](around:%[1]d,%[2]f,%[3]f);
);
out center body;
`, radiusM, coord.Lat, coord.Lon)

	elements, err := e.queryOverpass(ctx, query)
	if err != nil {
		return nil, err
	}

	parks := collectPlaces(coord, elements, func(tags map[string]string) bool {
		return tags["leisure"] == "park" || tags["leisure"] == "garden"
	})
	reserves := collectPlaces(coord, elements, func(tags map[string]string) bool {
		return tags["leisure"] == "nature_reserve" || tags["landuse"] == "forest" || tags["natural"] == "wood"
	})

	report := &model.NatureReport{
		Parks:             limitPlaces(parks, 10),
		Reserves:          limitPlaces(reserves, 5),
		CountrysideAccess: len(reserves) > 0,
	}

	slog.Info("Nature data gathered",
		"parks", len(report.Parks),
		"reserves", len(report.Reserves),
		"countryside_access", report.CountrysideAccess,
		"radius_m", radiusM)
	return report, nil
}
