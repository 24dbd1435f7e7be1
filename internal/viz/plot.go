package viz

import (
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/epistrains/internal/dynamo"
)

const (
	DefaultPlotWidth  = 80
	DefaultPlotHeight = 12
)

var seriesColors = []asciigraph.AnsiColor{
	asciigraph.Cyan, asciigraph.Magenta, asciigraph.Yellow, asciigraph.Green,
	asciigraph.Red, asciigraph.Blue, asciigraph.White,
}

// Downsample keeps at most width evenly spaced points, always including the
// last one.
func Downsample(values []float64, width int) []float64 {
	if width <= 0 || len(values) <= width {
		return values
	}
	if width == 1 {
		return values[len(values)-1:]
	}
	out := make([]float64, width)
	for i := range out {
		out[i] = values[i*(len(values)-1)/(width-1)]
	}
	return out
}

// Plot draws a single series.
func Plot(values []float64, caption string, width, height int) string {
	if len(values) == 0 {
		return ""
	}
	return asciigraph.Plot(Downsample(values, width),
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}

// PlotCompartments overlays the given slots of a trajectory on one plot,
// coloured and labelled per compartment. Nil slots plots everything.
func PlotCompartments(tr *dynamo.Trajectory, slots []int, width, height int) (string, error) {
	if tr.Len() == 0 {
		return "", &dynamo.PreconditionError{Op: "plot"}
	}
	if slots == nil {
		for i := range tr.States[0] {
			slots = append(slots, i)
		}
	}

	data := make([][]float64, 0, len(slots))
	legends := make([]string, 0, len(slots))
	colors := make([]asciigraph.AnsiColor, 0, len(slots))
	for i, slot := range slots {
		values, err := tr.Series(slot)
		if err != nil {
			return "", err
		}
		data = append(data, Downsample(values, width))
		if slot < len(tr.Labels) {
			legends = append(legends, tr.Labels[slot])
		} else {
			legends = append(legends, "")
		}
		colors = append(colors, seriesColors[i%len(seriesColors)])
	}

	return asciigraph.PlotMany(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.SeriesColors(colors...),
		asciigraph.SeriesLegends(legends...),
		asciigraph.Caption("compartments"),
	), nil
}
