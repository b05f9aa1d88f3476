package damage

import (
	"errors"
	"fmt"
	"math"

	"github.com/farmview/farmview-api/internal/geometry"
	"github.com/farmview/farmview-api/internal/raster"
)

// Severity is the per-pixel damage tier. Invalid marks pixels that are outside
// the field mask or had no usable NDVI in either scene.
type Severity uint8

const (
	SeverityInvalid Severity = iota
	SeverityNone
	SeverityDamaged
	SeveritySevere
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityDamaged:
		return "damaged"
	case SeveritySevere:
		return "severe"
	default:
		return "invalid"
	}
}

// Thresholds are the calibrated NDVI-drop cutoffs. Both are negative: a pixel
// counts as damaged once its NDVI fell below baseline by more than the
// threshold magnitude.
type Thresholds struct {
	Damage float64
	Severe float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{Damage: -0.2, Severe: -0.4}
}

func (t Thresholds) Validate() error {
	if t.Damage >= 0 || t.Severe >= 0 {
		return errors.New("damage thresholds must be negative NDVI drops")
	}
	if t.Severe >= t.Damage {
		return errors.New("severe threshold must be below the damage threshold")
	}
	return nil
}

// Statistics is the aggregate damage record handed to persistence and
// reporting. Field names are part of the collaborator contract.
type Statistics struct {
	DamagePercent     float64            `json:"damage_percent" bson:"damage_percent"`
	SeverityBreakdown map[string]float64 `json:"severity_breakdown" bson:"severity_breakdown"`
	RiskScore         float64            `json:"risk_score" bson:"risk_score"`
}

// InsufficientDataError means zero valid masked pixels survived: the field
// polygon covers no usable imagery. Distinct from zero damage.
type InsufficientDataError struct{}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: no valid masked pixels to assess"
}

// Risk score calibration. Severe pixels weigh extra on top of the overall
// damage fraction; the score saturates at 10.
const (
	riskDamageWeight = 0.7
	riskSevereWeight = 0.3
)

// RiskScore maps damage percent and the severe-tier fraction to [0, 10].
// Non-decreasing in both arguments.
func RiskScore(damagePercent, severeFraction float64) float64 {
	score := 10 * (riskDamageWeight*damagePercent/100 + riskSevereWeight*severeFraction)
	return math.Min(10, math.Max(0, score))
}

// Classify computes the per-pixel NDVI delta over the field mask and
// aggregates it into Statistics plus the full severity grid.
//
// Boundary pixels classify into the less severe tier: delta exactly at the
// damage threshold is none, exactly at the severe threshold is damaged.
func Classify(current, baseline *raster.NDVI, mask *geometry.Mask, t Thresholds) (Statistics, [][]Severity, error) {
	rows := len(current.Values)
	if rows == 0 || rows != len(baseline.Values) || rows != len(mask.Cells) {
		return Statistics{}, nil, fmt.Errorf("ndvi rasters and mask have mismatched shapes")
	}

	grid := make([][]Severity, rows)
	var none, damaged, severe int
	for y := 0; y < rows; y++ {
		cols := len(current.Values[y])
		if cols != len(baseline.Values[y]) || cols != len(mask.Cells[y]) {
			return Statistics{}, nil, fmt.Errorf("ndvi rasters and mask have mismatched shapes at row %d", y)
		}
		grid[y] = make([]Severity, cols)
		for x := 0; x < cols; x++ {
			if !mask.Cells[y][x] {
				continue
			}
			cur := current.Values[y][x]
			base := baseline.Values[y][x]
			if math.IsNaN(cur) || math.IsNaN(base) {
				continue
			}
			delta := cur - base
			switch {
			case delta >= t.Damage:
				grid[y][x] = SeverityNone
				none++
			case delta >= t.Severe:
				grid[y][x] = SeverityDamaged
				damaged++
			default:
				grid[y][x] = SeveritySevere
				severe++
			}
		}
	}

	valid := none + damaged + severe
	if valid == 0 {
		return Statistics{}, nil, &InsufficientDataError{}
	}

	total := float64(valid)
	severeFraction := float64(severe) / total
	stats := Statistics{
		DamagePercent: 100 * float64(damaged+severe) / total,
		SeverityBreakdown: map[string]float64{
			SeverityNone.String():    float64(none) / total,
			SeverityDamaged.String(): float64(damaged) / total,
			SeveritySevere.String():  severeFraction,
		},
	}
	stats.RiskScore = RiskScore(stats.DamagePercent, severeFraction)
	return stats, grid, nil
}
