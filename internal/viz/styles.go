package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/san-kum/epistrains/internal/analysis"
)

var (
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(1, 2)

	Selected = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff00ff")).
			Background(lipgloss.Color("#1a001a"))

	Muted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	Running = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	Value   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff"))
	Label   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))
	Hint    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#666688"))

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ffffff")).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(lipgloss.Color("#444466"))

	// levels[0] is the quietest: low, mid and high share of a range.
	levels = []lipgloss.Style{
		lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#ffcc00")),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#00ff88")),
	}
)

func level(frac, mid, high float64) lipgloss.Style {
	switch {
	case frac > high:
		return levels[2]
	case frac > mid:
		return levels[1]
	}
	return levels[0]
}

// GradientText colors each rune of text along a Lab blend from start to
// end. Colors that are not #rrggbb leave the text unstyled.
func GradientText(text string, start, end lipgloss.Color) string {
	from, err := colorful.Hex(string(start))
	if err != nil {
		return text
	}
	to, err := colorful.Hex(string(end))
	if err != nil {
		return text
	}

	runes := []rune(text)
	var b strings.Builder
	for i, r := range runes {
		t := 0.0
		if len(runes) > 1 {
			t = float64(i) / float64(len(runes)-1)
		}
		c := from.BlendLab(to, t).Clamped()
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(c.Hex())).Render(string(r)))
	}
	return b.String()
}

// ProgressBar draws a bar width cells wide filled to frac (0..1).
func ProgressBar(frac float64, width int) string {
	filled := min(max(int(frac*float64(width)), 0), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return level(frac, 0.4, 0.8).Render(bar)
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// SparklineChart draws values as one row of block characters scaled to
// their own range, downsampled to width.
func SparklineChart(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	values = Downsample(values, width)

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	var b strings.Builder
	for _, v := range values {
		frac := (v - lo) / span
		idx := min(max(int(frac*float64(len(sparks)-1)), 0), len(sparks)-1)
		b.WriteString(level(frac, 0.3, 0.7).Render(string(sparks[idx])))
	}
	return b.String()
}

func Separator(width int) string {
	half := max(width/2-3, 0)
	return Muted.Render(strings.Repeat("─", half) + " ◆ " + strings.Repeat("─", max(width-width/2-3, 0)))
}

// SummaryTable lays out a run summary as aligned label/value rows.
func SummaryTable(s *analysis.Summary) string {
	if s == nil {
		return ""
	}
	rows := [][2]string{
		{"peak prevalence", fmt.Sprintf("%.2f", s.PeakPrevalence)},
		{"peak time", fmt.Sprintf("%.2f", s.PeakTime)},
		{"total deaths", fmt.Sprintf("%.2f", s.TotalDeaths)},
		{"final susceptible", fmt.Sprintf("%.1f%%", 100*s.FinalSusceptible)},
		{"final immune", fmt.Sprintf("%.1f%%", 100*s.FinalImmune)},
		{"final population", fmt.Sprintf("%.2f", s.FinalPopulation)},
	}
	if s.WavePeriod > 0 {
		rows = append(rows, [2]string{"wave period", fmt.Sprintf("%.2f", s.WavePeriod)})
	}
	for i, p := range s.StrainPeaks {
		rows = append(rows, [2]string{fmt.Sprintf("peak strain %d", i), fmt.Sprintf("%.2f", p)})
	}

	labels := make([]string, len(rows))
	values := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = Label.Render(r[0])
		values[i] = Value.Render(r[1])
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().PaddingRight(2).Render(strings.Join(labels, "\n")),
		lipgloss.NewStyle().Align(lipgloss.Right).Render(strings.Join(values, "\n")),
	)
	return Panel.Render(body)
}
