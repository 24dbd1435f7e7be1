package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/viz"
)

const (
	clearLine  = "\r\033[K"
	hideCursor = "\033[?25l"
	showCursor = "\033[?25h"
)

// LiveRenderer is a solver observer that redraws one status line with the
// progress through the run and the current infected total.
type LiveRenderer struct {
	w         io.Writer
	duration  float64
	infected  []int
	frameRate int
	lastFrame time.Time
	history   []float64
}

func NewLiveRenderer(w io.Writer, duration float64, infected []int, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 30
	}
	return &LiveRenderer{
		w:         w,
		duration:  duration,
		infected:  append([]int(nil), infected...),
		frameRate: frameRate,
		history:   make([]float64, 0, 64),
	}
}

func (r *LiveRenderer) OnSample(t float64, x dynamo.State) {
	total := 0.0
	for _, slot := range r.infected {
		total += x[slot]
	}
	r.history = append(r.history, total)
	if len(r.history) > 64 {
		r.history = r.history[1:]
	}

	done := r.duration > 0 && t >= r.duration
	if !done && time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()
	r.render(t, total)
}

func (r *LiveRenderer) render(t, infected float64) {
	progress := 1.0
	if r.duration > 0 {
		progress = t / r.duration
	}
	var b strings.Builder
	b.WriteString(clearLine)
	fmt.Fprintf(&b, "  %s %s  t=%.2f  infected=%s  %s",
		viz.Running.Render("●"),
		viz.ProgressBar(progress, 24),
		t,
		viz.Value.Render(fmt.Sprintf("%.2f", infected)),
		viz.SparklineChart(r.history, 32))
	fmt.Fprint(r.w, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.w, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.w, "\n"+showCursor) }
