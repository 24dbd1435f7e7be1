package export

import (
	"errors"
	"strings"
	"testing"

	"github.com/san-kum/epistrains/internal/analysis"
	"github.com/san-kum/epistrains/internal/dynamo"
)

func TestCompartmentsSVG(t *testing.T) {
	tr := &dynamo.Trajectory{
		Times:  []float64{0, 1, 2},
		States: []dynamo.State{{90, 10, 0}, {70, 20, 10}, {50, 15, 35}},
		Labels: []string{"S", "I_1", "R"},
	}
	svg, err := CompartmentsSVG(tr, 400, 300)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Error("expected a complete SVG document")
	}
	if got := strings.Count(svg, "<path"); got != 3 {
		t.Errorf("expected 3 paths, got %d", got)
	}
	for _, label := range tr.Labels {
		if !strings.Contains(svg, ">"+label+"<") {
			t.Errorf("legend is missing %q", label)
		}
	}
}

func TestLabelsAreEscaped(t *testing.T) {
	svg, err := LineChart([]float64{0, 1}, []Series{{Name: "I_{0} w/ <1>", Values: []float64{1, 2}}}, 200, 100, "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(svg, "<1>") {
		t.Error("expected the label to be escaped")
	}
}

func TestLineChartErrors(t *testing.T) {
	if _, err := LineChart([]float64{0}, nil, 100, 100, ""); !errors.Is(err, dynamo.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}
	if _, err := LineChart([]float64{0, 1}, []Series{{Name: "x", Values: []float64{1}}}, 100, 100, ""); err == nil {
		t.Error("expected a length mismatch error")
	}
	if _, err := CompartmentsSVG(nil, 100, 100); !errors.Is(err, dynamo.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}
	if _, err := DeathsSVG(nil, 100, 100); !errors.Is(err, dynamo.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}
}

func TestDeathsSVG(t *testing.T) {
	d := &analysis.DeathSeries{
		Times:      []float64{0, 1, 2},
		PerSample:  []float64{0, 1, 2},
		Cumulative: []float64{0, 1, 3},
	}
	svg, err := DeathsSVG(d, 300, 200)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(svg, "<path"); got != 2 {
		t.Errorf("expected 2 paths, got %d", got)
	}
}
