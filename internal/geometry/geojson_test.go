package geometry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFeatureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"field_id": "field-1", "crop": "rice"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[0, 0], [0.001, 0], [0.001, 0.001], [0, 0.001], [0, 0]]]
      }
    },
    {
      "type": "Feature",
      "properties": {"field_id": "field-2"},
      "geometry": {
        "type": "Point",
        "coordinates": [0, 0]
      }
    }
  ]
}`

func writeGeoJSON(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fields.geojson")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFromGeoJSONFile(t *testing.T) {
	path := writeGeoJSON(t, testFeatureCollection)

	polygon, err := FromGeoJSONFile(path, "field-1")
	require.NoError(t, err)
	assert.InDelta(t, 1.239, polygon.AreaHectares(), 0.01)
}

func TestFromGeoJSONFileUnknownField(t *testing.T) {
	path := writeGeoJSON(t, testFeatureCollection)

	_, err := FromGeoJSONFile(path, "field-99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestFromGeoJSONFileNonPolygonFeature(t *testing.T) {
	path := writeGeoJSON(t, testFeatureCollection)

	_, err := FromGeoJSONFile(path, "field-2")

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Contains(t, gerr.Reason, "not a polygon")
}

func TestFromGeoJSONFileMissingFile(t *testing.T) {
	_, err := FromGeoJSONFile(filepath.Join(t.TempDir(), "nope.geojson"), "field-1")
	require.Error(t, err)
}
