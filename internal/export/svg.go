package export

import (
	"fmt"
	"html"
	"math"
	"strings"

	"github.com/san-kum/epistrains/internal/analysis"
	"github.com/san-kum/epistrains/internal/dynamo"
)

// Palette cycles through series colours in order.
var Palette = []string{
	"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800",
	"#0088ff", "#ff4444", "#88ff88", "#ff9ff3", "#feca57",
}

// Series is one named line of a chart.
type Series struct {
	Name   string
	Values []float64
}

const margin = 40.0

// LineChart draws every series against times on shared axes, with a legend
// in the top-right corner.
func LineChart(times []float64, series []Series, width, height int, title string) (string, error) {
	if len(times) < 2 {
		return "", &dynamo.PreconditionError{Op: "line chart"}
	}
	for _, s := range series {
		if len(s.Values) != len(times) {
			return "", fmt.Errorf("export: series %q has %d values for %d times", s.Name, len(s.Values), len(times))
		}
	}

	minX, maxX := times[0], times[len(times)-1]
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.Values {
			minY = math.Min(minY, v)
			maxY = math.Max(maxY, v)
		}
	}
	if math.IsInf(minY, 0) {
		minY, maxY = 0, 1
	}
	if minY > 0 {
		minY = 0
	}
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}

	plotW := float64(width) - 2*margin
	plotH := float64(height) - 2*margin
	px := func(x float64) float64 { return margin + (x-minX)/rangeX*plotW }
	py := func(y float64) float64 { return margin + plotH - (y-minY)/rangeY*plotH }

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	fmt.Fprintf(&sb, `<g stroke="#444466" stroke-width="1">
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f"/>
</g>
`, margin, py(minY), margin+plotW, py(minY), margin, margin, margin, margin+plotH)

	fmt.Fprintf(&sb, `<g fill="#888899" font-family="monospace" font-size="10">
<text x="%.1f" y="%.1f">%s</text>
<text x="%.1f" y="%.1f" text-anchor="end">%s</text>
<text x="%.1f" y="%.1f" text-anchor="end">%s</text>
<text x="%.1f" y="%.1f" text-anchor="end">%s</text>
</g>
`,
		margin, margin+plotH+14, formatTick(minX),
		margin+plotW, margin+plotH+14, formatTick(maxX),
		margin-4, py(minY)+3, formatTick(minY),
		margin-4, py(maxY)+3, formatTick(maxY))

	if title != "" {
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" fill="#ffffff" font-family="monospace" font-size="12">%s</text>
`, margin, margin/2, html.EscapeString(title))
	}

	for i, s := range series {
		color := Palette[i%len(Palette)]
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color)
		for k, v := range s.Values {
			if k == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", px(times[k]), py(v))
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", px(times[k]), py(v))
			}
		}
		sb.WriteString("\"/>\n")

		ly := margin + 14*float64(i)
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" fill="%s" font-family="monospace" font-size="10" text-anchor="end">%s</text>
`, margin+plotW, ly, color, html.EscapeString(s.Name))
	}

	sb.WriteString("</svg>")
	return sb.String(), nil
}

func formatTick(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}

// CompartmentsSVG charts every compartment of a trajectory, named by its
// labels.
func CompartmentsSVG(tr *dynamo.Trajectory, width, height int) (string, error) {
	if tr.Len() == 0 {
		return "", &dynamo.PreconditionError{Op: "compartments chart"}
	}
	series := make([]Series, len(tr.States[0]))
	for slot := range series {
		values, err := tr.Series(slot)
		if err != nil {
			return "", err
		}
		name := fmt.Sprintf("x%d", slot)
		if slot < len(tr.Labels) {
			name = tr.Labels[slot]
		}
		series[slot] = Series{Name: name, Values: values}
	}
	return LineChart(tr.Times, series, width, height, "compartments")
}

// DeathsSVG charts per-sample and cumulative disease deaths.
func DeathsSVG(d *analysis.DeathSeries, width, height int) (string, error) {
	if d == nil {
		return "", &dynamo.PreconditionError{Op: "deaths chart"}
	}
	return LineChart(d.Times, []Series{
		{Name: "deaths", Values: d.PerSample},
		{Name: "cumulative", Values: d.Cumulative},
	}, width, height, "deaths")
}
