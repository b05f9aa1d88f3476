package calibration

import (
	"fmt"
	"os"
	"strings"

	"github.com/farmview/farmview-api/internal/damage"
	"github.com/gocarina/gocsv"
)

// CropProfile is one row of the crop threshold calibration CSV. Thresholds are
// NDVI drops relative to baseline, so both columns are negative.
type CropProfile struct {
	Crop            string  `csv:"crop"`
	DamageThreshold float64 `csv:"damage_threshold"`
	SevereThreshold float64 `csv:"severe_threshold"`
}

// Table holds per-crop thresholds, loaded once at startup and read-only
// afterwards.
type Table struct {
	profiles map[string]damage.Thresholds
}

// LoadTable reads and validates the calibration CSV. Crop names match
// case-insensitively.
func LoadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open crop threshold file: %w", err)
	}
	defer file.Close()

	var rows []CropProfile
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse crop threshold file: %w", err)
	}

	profiles := make(map[string]damage.Thresholds, len(rows))
	for _, row := range rows {
		t := damage.Thresholds{Damage: row.DamageThreshold, Severe: row.SevereThreshold}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("crop %q: %w", row.Crop, err)
		}
		profiles[strings.ToLower(strings.TrimSpace(row.Crop))] = t
	}

	return &Table{profiles: profiles}, nil
}

// ThresholdsFor returns the calibrated thresholds for a crop, or false when
// the crop has no profile and the caller should fall back to the defaults.
func (t *Table) ThresholdsFor(crop string) (damage.Thresholds, bool) {
	thresholds, ok := t.profiles[strings.ToLower(strings.TrimSpace(crop))]
	return thresholds, ok
}

// Crops lists the crops that carry a calibrated profile.
func (t *Table) Crops() []string {
	crops := make([]string, 0, len(t.profiles))
	for crop := range t.profiles {
		crops = append(crops, crop)
	}
	return crops
}
