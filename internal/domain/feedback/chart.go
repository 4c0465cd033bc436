package feedback

import (
	"fmt"
	"math"
)

// Chart colours for the two answer groups.
const (
	ColorWantApp     = "#22c55e"
	ColorDontWantApp = "#f59e0b"
)

// Slice is one wedge of the response distribution chart.
type Slice struct {
	Name    string
	Value   int
	Color   string
	Percent int    // share of the chart total, rounded
	Path    string // SVG path data; empty when the slice has no share
	Full    bool   // slice covers the whole circle and is drawn as a <circle>
}

// PieChart is a precomputed SVG pie for the template to draw.
type PieChart struct {
	CX, CY, R float64
	Slices    []Slice
	Empty     bool
}

// ChartSlices returns the want/don't-want slices in display order.
func ChartSlices(s Stats) []Slice {
	return []Slice{
		{Name: "Want App", Value: s.WantApp, Color: ColorWantApp},
		{Name: "Don't Want App", Value: s.DontWantApp, Color: ColorDontWantApp},
	}
}

// NewPieChart lays out the slices clockwise from twelve o'clock inside a
// circle of radius r centred on (cx, cy).
// POST: Empty is true when no slice has a positive value
func NewPieChart(slices []Slice, cx, cy, r float64) PieChart {
	total := 0
	for _, sl := range slices {
		if sl.Value > 0 {
			total += sl.Value
		}
	}
	chart := PieChart{CX: cx, CY: cy, R: r, Slices: make([]Slice, len(slices))}
	if total == 0 {
		copy(chart.Slices, slices)
		chart.Empty = true
		return chart
	}

	angle := -math.Pi / 2
	for i, sl := range slices {
		if sl.Value <= 0 {
			sl.Value = 0
			chart.Slices[i] = sl
			continue
		}
		frac := float64(sl.Value) / float64(total)
		sl.Percent = int(math.Round(frac * 100))
		if sl.Value == total {
			sl.Full = true
			chart.Slices[i] = sl
			continue
		}
		end := angle + frac*2*math.Pi
		sl.Path = arcPath(cx, cy, r, angle, end)
		angle = end
		chart.Slices[i] = sl
	}
	return chart
}

func arcPath(cx, cy, r, start, end float64) string {
	x1, y1 := cx+r*math.Cos(start), cy+r*math.Sin(start)
	x2, y2 := cx+r*math.Cos(end), cy+r*math.Sin(end)
	large := 0
	if end-start > math.Pi {
		large = 1
	}
	return fmt.Sprintf("M %.2f %.2f L %.2f %.2f A %.2f %.2f 0 %d 1 %.2f %.2f Z",
		cx, cy, x1, y1, r, r, large, x2, y2)
}
