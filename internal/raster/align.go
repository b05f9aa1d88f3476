package raster

import (
	"fmt"
	"math"
)

// Tolerance in degrees when comparing pixel sizes and origins, roughly a
// centimeter at the equator. Sentinel tiles requested over the same geometry
// land well inside this.
const alignTolerance = 1e-7

// AlignmentError reports a scene pair that cannot be compared elementwise.
// Attribute names the mismatched property: shape, pixel size or extent.
type AlignmentError struct {
	Attribute string
	Detail    string
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("rasters are not aligned: %s mismatch (%s)", e.Attribute, e.Detail)
}

// VerifyAlignment checks that two scenes share grid shape, pixel size and
// extent. It must pass before any cross-scene arithmetic: subtracting
// unaligned grids corrupts results silently instead of failing.
func VerifyAlignment(current, baseline *Scene) error {
	cg, bg := current.Grid, baseline.Grid
	if cg.Width != bg.Width || cg.Height != bg.Height {
		return &AlignmentError{
			Attribute: "shape",
			Detail:    fmt.Sprintf("current %dx%d, baseline %dx%d", cg.Width, cg.Height, bg.Width, bg.Height),
		}
	}
	for _, i := range []int{1, 2, 4, 5} {
		if math.Abs(cg.Transform[i]-bg.Transform[i]) > alignTolerance {
			return &AlignmentError{
				Attribute: "pixel size",
				Detail:    fmt.Sprintf("geotransform term %d: current %g, baseline %g", i, cg.Transform[i], bg.Transform[i]),
			}
		}
	}
	for _, i := range []int{0, 3} {
		if math.Abs(cg.Transform[i]-bg.Transform[i]) > alignTolerance {
			return &AlignmentError{
				Attribute: "extent",
				Detail:    fmt.Sprintf("origin term %d: current %g, baseline %g", i, cg.Transform[i], bg.Transform[i]),
			}
		}
	}
	return nil
}
