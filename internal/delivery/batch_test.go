package delivery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchFeatureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"field_id": "field-1"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[0, 0.99], [0.01, 0.99], [0.01, 1], [0, 1], [0, 0.99]]]
      }
    }
  ]
}`

func TestRunBatch(t *testing.T) {
	fetcher := &stubFetcher{
		current:  uniformScene(t, 0.4, 0.6),
		baseline: uniformScene(t, 0.1, 0.7),
	}
	svc, _, _ := newTestService(t, fetcher)

	dir := t.TempDir()
	geojsonPath := filepath.Join(dir, "fields.geojson")
	require.NoError(t, os.WriteFile(geojsonPath, []byte(batchFeatureCollection), 0o644))

	input := filepath.Join(dir, "batch.csv")
	csv := fmt.Sprintf(
		"farmer_id,crop,geojson,field_id,event_date,insured_amount\n"+
			"farmer-1,rice,%s,field-1,2026-07-15,500000\n"+
			"farmer-2,rice,%s,field-99,,0\n",
		geojsonPath, geojsonPath,
	)
	require.NoError(t, os.WriteFile(input, []byte(csv), 0o644))
	output := filepath.Join(dir, "results.csv")

	require.NoError(t, svc.RunBatch(context.Background(), input, output, 2))

	file, err := os.Open(output)
	require.NoError(t, err)
	defer file.Close()

	var results []BatchResult
	require.NoError(t, gocsv.UnmarshalFile(file, &results))
	require.Len(t, results, 2)

	assert.Equal(t, "farmer-1", results[0].FarmerID)
	assert.Empty(t, results[0].Error)
	assert.InDelta(t, 100.0, results[0].DamagePercent, 1e-9)
	assert.Greater(t, results[0].EstimatedClaim, 0.0)

	// The missing field fails its own row without aborting the batch.
	assert.Equal(t, "farmer-2", results[1].FarmerID)
	assert.NotEmpty(t, results[1].Error)
}

func TestRunBatchEmptyInput(t *testing.T) {
	svc, _, _ := newTestService(t, &stubFetcher{})

	input := filepath.Join(t.TempDir(), "batch.csv")
	require.NoError(t, os.WriteFile(input, []byte("farmer_id,crop,geojson,field_id,event_date,insured_amount\n"), 0o644))

	err := svc.RunBatch(context.Background(), input, filepath.Join(t.TempDir(), "out.csv"), 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty csv")
}

func TestRunBatchInvalidEventDate(t *testing.T) {
	svc, _, _ := newTestService(t, &stubFetcher{})

	result := svc.analyzeRow(context.Background(), BatchRow{
		FarmerID:  "farmer-1",
		EventDate: "15/07/2026",
	})
	assert.Contains(t, result.Error, "invalid event_date")
}
