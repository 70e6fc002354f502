package grid

import (
	iface "RouteGrader/interface"
	"fmt"
	"math"
)

const (
	Rows  = 18
	Cols  = 11
	Cells = Rows * Cols
)

// LargeHoldArea is the mapped footprint, in grid cells, above which a hold is
// reported as large.
const LargeHoldArea = 1.0

// Grid is the logical wall. Row 0 is the top band, column 0 the left band.
type Grid [Rows][Cols]int

// Map projects box centers onto the wall grid and counts the holds whose
// mapped footprint exceeds LargeHoldArea. Coordinates are scaled so that the
// image edges land on the first and last row/column; centers outside the image
// are clamped to the nearest edge cell.
func Map(boxes []iface.Box, extent iface.ImageExtent) (Grid, int, error) {
	var g Grid
	if !validSide(extent.Width) || !validSide(extent.Height) {
		return g, 0, fmt.Errorf("%w: %vx%v", iface.ErrInvalidExtent, extent.Width, extent.Height)
	}
	largeHolds := 0
	for _, box := range boxes {
		col := clamp(math.Round(scale(box.X, Cols, extent.Width)), Cols)
		row := clamp(math.Round(scale(box.Y, Rows, extent.Height)), Rows)
		w := scale(box.Width, Cols, extent.Width)
		h := scale(box.Height, Rows, extent.Height)
		if w*h > LargeHoldArea {
			largeHolds++
		}
		g[row][col] = 1
	}
	return g, largeHolds, nil
}

// scale maps v from [0, extent] onto [0, n-1]. Multiplying before dividing
// keeps half-cell positions exact for even extents.
func scale(v float64, n int, extent float64) float64 {
	return v * float64(n-1) / extent
}

func clamp(v float64, n int) int {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > float64(n-1) {
		return n - 1
	}
	return int(v)
}

func validSide(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Count returns the number of set cells.
func (g Grid) Count() int {
	n := 0
	for i := range g {
		for j := range g[i] {
			n += g[i][j]
		}
	}
	return n
}
