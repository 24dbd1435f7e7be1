package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/epistrains/internal/analysis"
	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/viz"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
)

type view int

const (
	viewCompartments view = iota
	viewDeaths
)

// Browser is a bubbletea model for stepping through a stored run: pick a
// compartment, move a time cursor along its curve, flip to the deaths view.
type Browser struct {
	name    string
	tr      *dynamo.Trajectory
	deaths  *analysis.DeathSeries
	summary *analysis.Summary

	view   view
	cursor int
	sample int
	theme  int

	width  int
	height int
}

func NewBrowser(name string, tr *dynamo.Trajectory, deaths *analysis.DeathSeries, summary *analysis.Summary) Browser {
	return Browser{
		name:    name,
		tr:      tr,
		deaths:  deaths,
		summary: summary,
		width:   80,
		height:  24,
	}
}

// WithTheme starts the browser on the named theme.
func (m Browser) WithTheme(name string) Browser {
	m.theme = viz.ThemeIndex(name)
	return m
}

func (m Browser) Init() tea.Cmd { return nil }

func (m Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

func (m Browser) handleKey(msg tea.KeyMsg) (Browser, tea.Cmd) {
	last := m.tr.Len() - 1
	step := max(1, m.tr.Len()/50)

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.tr.Labels)-1 {
			m.cursor++
		}
	case "left", "h":
		m.sample = max(0, m.sample-1)
	case "right", "l":
		m.sample = min(last, m.sample+1)
	case "shift+left", "H":
		m.sample = max(0, m.sample-step)
	case "shift+right", "L":
		m.sample = min(last, m.sample+step)
	case "home", "g":
		m.sample = 0
	case "end", "G":
		m.sample = max(0, last)
	case "d":
		if m.view == viewDeaths || m.deaths == nil {
			m.view = viewCompartments
		} else {
			m.view = viewDeaths
		}
	case "t":
		m.theme = (m.theme + 1) % len(viz.Themes)
	}
	return m, nil
}

// Selected returns the highlighted compartment slot and sample index.
func (m Browser) Selected() (slot, sample int) { return m.cursor, m.sample }

func (m Browser) View() string {
	if m.tr.Len() == 0 {
		return "\n   " + dim.Render("empty run") + "\n"
	}
	theme := viz.Themes[m.theme]

	var b strings.Builder
	b.WriteString("\n   " + viz.GradientText(m.name, theme.Primary, theme.Secondary))
	b.WriteString("  " + dim.Render(fmt.Sprintf("t=%.2f  (%d/%d)", m.tr.Times[m.sample], m.sample+1, m.tr.Len())) + "\n")
	b.WriteString(dimmer.Render("   "+strings.Repeat("─", max(10, m.width-6))) + "\n\n")

	cw := max(20, m.width-34)
	ch := max(6, m.height-12)

	var (
		values  []float64
		caption string
	)
	if m.view == viewDeaths && m.deaths != nil {
		values, caption = m.deaths.Cumulative, "cumulative deaths"
	} else {
		values, _ = m.tr.Series(m.cursor)
		caption = m.tr.Labels[m.cursor]
	}
	plot := m.plot(values, cw, ch)

	list := m.list(ch + 1)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, "  ", plot))
	b.WriteString("\n   " + lipgloss.NewStyle().Foreground(theme.Accent).Render(caption))
	b.WriteString("  " + magenta.Render(fmt.Sprintf("%.3f", values[m.sample])) + "\n\n")

	if m.summary != nil && m.view == viewDeaths {
		b.WriteString(viz.SummaryTable(m.summary) + "\n")
	}
	b.WriteString(viz.Hint.Render("   ↑↓ compartment  ←→ time  HL jump  d deaths  t theme  q quit") + "\n")
	return b.String()
}

func (m Browser) list(rows int) string {
	var b strings.Builder
	first := 0
	if m.cursor >= rows {
		first = m.cursor - rows + 1
	}
	for i := first; i < len(m.tr.Labels) && i < first+rows; i++ {
		label := fmt.Sprintf("%-18.18s", m.tr.Labels[i])
		value := fmt.Sprintf("%10.2f", m.tr.States[m.sample][i])
		if i == m.cursor && m.view == viewCompartments {
			b.WriteString(cyan.Render("▸ ") + viz.Selected.Render(label) + white.Render(value) + "\n")
		} else {
			b.WriteString("  " + dim.Render(label) + dimmer.Render(value) + "\n")
		}
	}
	return b.String()
}

func (m Browser) plot(values []float64, w, h int) string {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	c := viz.NewCanvas(w, h)
	c.Polyline(values, lo, hi)

	// mark the time cursor with a vertical rule
	x := 0
	if len(values) > 1 {
		x = m.sample * (w*2 - 1) / (len(values) - 1)
	}
	c.DrawLine(x, 0, x, h*4-1)

	style := lipgloss.NewStyle().Foreground(viz.Themes[m.theme].Secondary)
	return style.Render(strings.TrimRight(c.String(), "\n"))
}
