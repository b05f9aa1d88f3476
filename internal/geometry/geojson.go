package geometry

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FromGeoJSONFile loads the outer ring of the feature identified by field_id
// from a GeoJSON feature collection. The ring goes through the same validation
// as a polygon supplied directly.
func FromGeoJSONFile(path, fieldID string) (*FieldPolygon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read geojson file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson: %w", err)
	}

	for _, feature := range fc.Features {
		id, ok := feature.Properties["field_id"].(string)
		if !ok || id != fieldID {
			continue
		}

		var ring orb.Ring
		switch geom := feature.Geometry.(type) {
		case orb.Polygon:
			if len(geom) == 0 {
				return nil, &Error{Reason: "polygon feature has no rings"}
			}
			ring = geom[0]
		case orb.MultiPolygon:
			if len(geom) == 0 || len(geom[0]) == 0 {
				return nil, &Error{Reason: "multipolygon feature has no rings"}
			}
			ring = geom[0][0]
		default:
			return nil, &Error{Reason: fmt.Sprintf("feature %s is not a polygon", fieldID)}
		}

		coords := make([][]float64, len(ring))
		for i, pt := range ring {
			coords[i] = []float64{pt.Lon(), pt.Lat()}
		}
		return NewFieldPolygon(coords)
	}

	return nil, fmt.Errorf("field %q not found in %s", fieldID, path)
}
