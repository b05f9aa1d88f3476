package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/farmview/farmview-api/internal/geometry"
	"github.com/gammazero/workerpool"
	"github.com/gocarina/gocsv"
	"github.com/schollz/progressbar/v3"
)

// BatchRow is one field in the batch input CSV. The boundary is referenced by
// geojson file and field_id rather than inlined coordinates.
type BatchRow struct {
	FarmerID      string  `csv:"farmer_id"`
	Crop          string  `csv:"crop"`
	GeoJSONPath   string  `csv:"geojson"`
	FieldID       string  `csv:"field_id"`
	EventDate     string  `csv:"event_date"` // YYYY-MM-DD, empty for "now"
	InsuredAmount float64 `csv:"insured_amount"`
}

// BatchResult is one output row. Error is empty on success; a failed field
// never aborts the rest of the batch.
type BatchResult struct {
	FarmerID       string  `csv:"farmer_id"`
	DamagePercent  float64 `csv:"damage_percent"`
	RiskScore      float64 `csv:"risk_score"`
	TotalAreaHa    float64 `csv:"total_area_ha"`
	DamagedAreaHa  float64 `csv:"damaged_area_ha"`
	EstimatedClaim float64 `csv:"estimated_claim"`
	Error          string  `csv:"error"`
}

// RunBatch assesses every field of the input CSV, each as an isolated
// invocation on the worker pool, and writes the results CSV.
func (s *Service) RunBatch(ctx context.Context, inputPath, outputPath string, workers int) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open batch input: %w", err)
	}
	var rows []BatchRow
	err = gocsv.UnmarshalFile(file, &rows)
	file.Close()
	if err != nil {
		return fmt.Errorf("failed to parse batch input: %w", err)
	}
	if len(rows) == 0 {
		return errors.New("empty csv file given")
	}
	if workers < 1 {
		workers = 1
	}

	progressBar := progressbar.Default(int64(len(rows)), "Analyzing fields")

	var mu sync.Mutex
	results := make([]BatchResult, len(rows))

	wp := workerpool.New(workers)
	for i, row := range rows {
		i, row := i, row
		wp.Submit(func() {
			result := s.analyzeRow(ctx, row)
			mu.Lock()
			results[i] = result
			progressBar.Add(1)
			mu.Unlock()
		})
	}
	wp.StopWait()

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create batch output: %w", err)
	}
	defer out.Close()
	if err := gocsv.MarshalFile(&results, out); err != nil {
		return fmt.Errorf("failed to write batch output: %w", err)
	}
	return nil
}

func (s *Service) analyzeRow(ctx context.Context, row BatchRow) BatchResult {
	result := BatchResult{FarmerID: row.FarmerID}

	var eventDate time.Time
	if row.EventDate != "" {
		var err error
		eventDate, err = time.Parse("2006-01-02", row.EventDate)
		if err != nil {
			result.Error = fmt.Sprintf("invalid event_date %q", row.EventDate)
			return result
		}
	}

	polygon, err := geometry.FromGeoJSONFile(row.GeoJSONPath, row.FieldID)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	report, err := s.AnalyzeField(ctx, FieldRequest{
		FarmerID:      row.FarmerID,
		Crop:          row.Crop,
		Coordinates:   polygon.Coordinates(),
		EventDate:     eventDate,
		InsuredAmount: row.InsuredAmount,
	})
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.DamagePercent = report.Damage.DamagePercent
	result.RiskScore = report.Damage.RiskScore
	result.TotalAreaHa = report.Area.TotalAreaHa
	result.DamagedAreaHa = report.Area.DamagedAreaHa
	if report.EstimatedClaim != nil {
		result.EstimatedClaim = *report.EstimatedClaim
	}
	return result
}
