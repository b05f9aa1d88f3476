package delivery

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/farmview/farmview-api/internal/damage"
	"github.com/farmview/farmview-api/internal/geometry"
	"github.com/farmview/farmview-api/internal/notification"
	"github.com/farmview/farmview-api/internal/pipeline"
	"github.com/farmview/farmview-api/internal/properties"
	"github.com/farmview/farmview-api/internal/raster"
	"github.com/farmview/farmview-api/internal/render"
	"github.com/farmview/farmview-api/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SceneFetcher acquires the current/baseline scene pair for a field.
type SceneFetcher interface {
	FetchScenePair(ctx context.Context, polygon *geometry.FieldPolygon, eventDate time.Time) (*raster.Scene, *raster.Scene, error)
}

// AnalysisStore persists completed assessments and resolves registered
// fields by farmer.
type AnalysisStore interface {
	CreateAnalysis(ctx context.Context, rec store.AnalysisRecord) (string, error)
	FieldByFarmer(ctx context.Context, farmerID string) (*store.FieldRecord, error)
}

// ClaimNotifier forwards claim reports to the insurance partner.
type ClaimNotifier interface {
	SendClaimReport(ctx context.Context, report notification.ClaimReport) error
}

// Service wires the pure pipeline to its collaborators. Store and Notifier
// are optional; without them the analysis still runs and only the side
// effects are skipped.
type Service struct {
	Pipeline *pipeline.Pipeline
	Fetcher  SceneFetcher
	Store    AnalysisStore
	Notifier ClaimNotifier
	Log      *logrus.Logger
}

// FieldRequest describes one field to assess.
type FieldRequest struct {
	FarmerID      string
	Crop          string
	Coordinates   [][]float64
	EventDate     time.Time
	InsuredAmount float64
}

// FieldReport is the request-level outcome returned to the caller.
type FieldReport struct {
	AnalysisID       string
	Damage           damage.Statistics
	Area             pipeline.AreaStatistics
	EstimatedClaim   *float64
	HeatmapPath      string
	CurrentMeanNDVI  float64
	BaselineMeanNDVI float64
}

// AnalyzeField runs one full assessment: polygon validation, imagery fetch,
// the core pipeline, heatmap rendering, persistence and the insurance
// notification. Each invocation works on its own data only.
func (s *Service) AnalyzeField(ctx context.Context, req FieldRequest) (*FieldReport, error) {
	polygon, err := geometry.NewFieldPolygon(req.Coordinates)
	if err != nil {
		return nil, fmt.Errorf("field boundary: %w", err)
	}

	// An explicit insured amount wins; otherwise fall back to the coverage
	// registered with the farmer's field.
	if req.InsuredAmount == 0 && s.Store != nil {
		field, err := s.Store.FieldByFarmer(ctx, req.FarmerID)
		if err != nil {
			return nil, fmt.Errorf("field lookup: %w", err)
		}
		if field != nil {
			req.InsuredAmount = field.InsuredAmount
			if req.Crop == "" {
				req.Crop = field.Crop
			}
		}
	}

	s.Log.WithFields(logrus.Fields{"farmer_id": req.FarmerID, "crop": req.Crop}).Info("fetching satellite imagery")
	current, baseline, err := s.Fetcher.FetchScenePair(ctx, polygon, req.EventDate)
	if err != nil {
		return nil, fmt.Errorf("imagery acquisition: %w", err)
	}

	result, err := s.Pipeline.Run(pipeline.Request{
		Current:       current,
		Baseline:      baseline,
		Polygon:       polygon,
		Crop:          req.Crop,
		InsuredAmount: req.InsuredAmount,
	})
	if err != nil {
		return nil, err
	}

	report := &FieldReport{
		Damage:           result.Damage,
		Area:             result.Area,
		CurrentMeanNDVI:  result.CurrentMeanNDVI,
		BaselineMeanNDVI: result.BaselineMeanNDVI,
	}
	if result.Claim != nil {
		amount := result.Claim.Amount
		report.EstimatedClaim = &amount
	}

	heatmapPath := filepath.Join(properties.StaticDir(), fmt.Sprintf("damage_%s_%s.png", req.FarmerID, uuid.NewString()))
	if err := render.WriteDamageHeatmap(result.Severity, heatmapPath); err != nil {
		// The aggregates are still valid without the visualization.
		s.Log.WithError(err).Warn("failed to render damage heatmap")
	} else {
		report.HeatmapPath = heatmapPath
	}

	if s.Store != nil {
		record := store.AnalysisRecord{
			FarmerID:         req.FarmerID,
			Crop:             req.Crop,
			DamageStatistics: result.Damage,
			AreaStatistics:   result.Area,
			CurrentMeanNDVI:  result.CurrentMeanNDVI,
			BaselineMeanNDVI: result.BaselineMeanNDVI,
			EstimatedClaim:   report.EstimatedClaim,
			HeatmapPath:      report.HeatmapPath,
		}
		report.AnalysisID, err = s.Store.CreateAnalysis(ctx, record)
		if err != nil {
			return nil, fmt.Errorf("persisting analysis: %w", err)
		}
	}

	if s.Notifier != nil && report.EstimatedClaim != nil && *report.EstimatedClaim > 0 {
		err := s.Notifier.SendClaimReport(ctx, notification.ClaimReport{
			FarmerID:       req.FarmerID,
			AnalysisID:     report.AnalysisID,
			DamagePercent:  result.Damage.DamagePercent,
			EstimatedClaim: *report.EstimatedClaim,
			ReportURL:      report.HeatmapPath,
		})
		if err != nil {
			return nil, fmt.Errorf("insurance notification: %w", err)
		}
	}

	s.Log.WithFields(logrus.Fields{
		"farmer_id":      req.FarmerID,
		"damage_percent": result.Damage.DamagePercent,
		"risk_score":     result.Damage.RiskScore,
	}).Info("analysis complete")

	return report, nil
}
