package pipeline

import (
	"errors"
	"fmt"

	"github.com/farmview/farmview-api/internal/calibration"
	"github.com/farmview/farmview-api/internal/claim"
	"github.com/farmview/farmview-api/internal/damage"
	"github.com/farmview/farmview-api/internal/geometry"
	"github.com/farmview/farmview-api/internal/raster"
)

// Pipeline runs the damage assessment stages over an aligned scene pair:
// alignment check, NDVI for both scenes, field mask and area, damage
// classification and the optional claim estimate. It holds only immutable
// calibration, so one Pipeline serves concurrent invocations.
type Pipeline struct {
	thresholds damage.Thresholds
	profiles   *calibration.Table
}

// New validates the default thresholds once. profiles may be nil when no
// crop-specific calibration is configured.
func New(thresholds damage.Thresholds, profiles *calibration.Table) (*Pipeline, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid default thresholds: %w", err)
	}
	return &Pipeline{thresholds: thresholds, profiles: profiles}, nil
}

// Request carries everything one analysis needs. The pipeline never fetches
// or persists anything itself. InsuredAmount of zero means no coverage was
// supplied and no claim is estimated.
type Request struct {
	Current       *raster.Scene
	Baseline      *raster.Scene
	Polygon       *geometry.FieldPolygon
	Crop          string
	InsuredAmount float64
}

// AreaStatistics is the field area record handed to collaborators.
type AreaStatistics struct {
	TotalAreaHa   float64 `json:"total_area_ha" bson:"total_area_ha"`
	DamagedAreaHa float64 `json:"damaged_area_ha" bson:"damaged_area_ha"`
}

// Result is the immutable outcome of one analysis. Severity is the full
// per-pixel grid for the heatmap renderer, not just the aggregates.
type Result struct {
	Damage           damage.Statistics
	Area             AreaStatistics
	Claim            *claim.Estimate
	Severity         [][]damage.Severity
	CurrentMeanNDVI  float64
	BaselineMeanNDVI float64
}

// Run executes the stages in order. Every failure is terminal and typed; the
// caller decides retry and presentation policy.
func (p *Pipeline) Run(req Request) (*Result, error) {
	if req.Current == nil || req.Baseline == nil {
		return nil, errors.New("both current and baseline scenes are required")
	}
	if req.Polygon == nil {
		return nil, errors.New("a field polygon is required")
	}

	if err := raster.VerifyAlignment(req.Current, req.Baseline); err != nil {
		return nil, fmt.Errorf("alignment check: %w", err)
	}

	currentNDVI, err := raster.ComputeNDVI(req.Current)
	if err != nil {
		return nil, fmt.Errorf("current scene: %w", err)
	}
	baselineNDVI, err := raster.ComputeNDVI(req.Baseline)
	if err != nil {
		return nil, fmt.Errorf("baseline scene: %w", err)
	}

	mask, err := req.Polygon.RasterizeMask(req.Current.Grid)
	if err != nil {
		return nil, fmt.Errorf("field mask: %w", err)
	}

	stats, severity, err := damage.Classify(currentNDVI, baselineNDVI, mask, p.thresholdsFor(req.Crop))
	if err != nil {
		return nil, fmt.Errorf("damage classification: %w", err)
	}

	totalHa := req.Polygon.AreaHectares()
	result := &Result{
		Damage: stats,
		Area: AreaStatistics{
			TotalAreaHa:   totalHa,
			DamagedAreaHa: totalHa * stats.DamagePercent / 100,
		},
		Severity:         severity,
		CurrentMeanNDVI:  raster.MeanValid(currentNDVI.Values),
		BaselineMeanNDVI: raster.MeanValid(baselineNDVI.Values),
	}

	if req.InsuredAmount > 0 {
		estimate, err := claim.EstimateClaim(req.InsuredAmount, stats.DamagePercent)
		if err != nil {
			return nil, fmt.Errorf("claim estimate: %w", err)
		}
		result.Claim = &estimate
	}

	return result, nil
}

func (p *Pipeline) thresholdsFor(crop string) damage.Thresholds {
	if p.profiles != nil && crop != "" {
		if t, ok := p.profiles.ThresholdsFor(crop); ok {
			return t
		}
	}
	return p.thresholds
}
