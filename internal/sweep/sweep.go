// Package sweep runs a scenario over a grid of parameter values and
// tabulates each point's summary, for sensitivity studies.
package sweep

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/san-kum/epistrains/internal/analysis"
	"github.com/san-kum/epistrains/internal/config"
	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/experiment"
)

// Grid is a cartesian product of parameter values. Parameters are named by
// their scenario path: "strains[0].r0", "strains[1].cfr",
// "population.waning", ...
type Grid struct {
	Params []string
	Values [][]float64
}

func NewGrid(params []string, values [][]float64) (*Grid, error) {
	if len(params) == 0 || len(params) != len(values) {
		return nil, dynamo.Configf("sweep", "need one value list per parameter, got %d names and %d lists", len(params), len(values))
	}
	for i, v := range values {
		if len(v) == 0 {
			return nil, dynamo.Configf(params[i], "no values to sweep")
		}
	}
	return &Grid{Params: params, Values: values}, nil
}

// Points expands the grid with the last parameter varying fastest.
func (g *Grid) Points() []map[string]float64 {
	var out []map[string]float64
	g.expand(0, map[string]float64{}, &out)
	return out
}

func (g *Grid) expand(depth int, current map[string]float64, out *[]map[string]float64) {
	if depth == len(g.Params) {
		*out = append(*out, current)
		return
	}
	for _, val := range g.Values[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[g.Params[depth]] = val
		g.expand(depth+1, next, out)
	}
}

// Row is the outcome of one grid point.
type Row struct {
	Params  map[string]float64
	Summary *analysis.Summary
}

// Run solves base at every grid point through ens. Points are independent;
// rows come back in Points order.
func Run(ctx context.Context, base *config.Config, g *Grid, reg *experiment.Registry, ens *experiment.Ensemble) ([]Row, error) {
	points := g.Points()
	exps := make([]*experiment.Experiment, len(points))
	for i, p := range points {
		cfg := base.Clone()
		for name, v := range p {
			if err := Apply(cfg, name, v); err != nil {
				return nil, err
			}
		}
		cfg.Name = label(base.Name, g.Params, p)
		exp, err := reg.Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("point %s: %w", cfg.Name, err)
		}
		exps[i] = exp
	}

	results, err := ens.Run(ctx, exps)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(results))
	for i, res := range results {
		rows[i] = Row{Params: points[i], Summary: res.Summary}
	}
	return rows, nil
}

func label(base string, params []string, p map[string]float64) string {
	parts := make([]string, 0, len(params)+1)
	if base != "" {
		parts = append(parts, base)
	}
	for _, name := range params {
		parts = append(parts, name+"="+strconv.FormatFloat(p[name], 'g', -1, 64))
	}
	return strings.Join(parts, " ")
}

// Apply sets one named parameter on cfg.
func Apply(cfg *config.Config, name string, v float64) error {
	if rest, ok := strings.CutPrefix(name, "population."); ok {
		switch rest {
		case "size":
			cfg.Population.Size = v
		case "death_rate":
			cfg.Population.DeathRate = v
		case "waning":
			cfg.Population.Waning = v
		case "immune_fraction":
			cfg.Population.ImmuneFraction = v
		default:
			return &dynamo.NotFoundError{Key: "parameter " + name}
		}
		return nil
	}

	idx, field, err := strainParam(name)
	if err != nil {
		return err
	}
	if idx >= len(cfg.Strains) {
		return &dynamo.NotFoundError{Key: "parameter " + name}
	}
	s := &cfg.Strains[idx]
	clinical := field == "recovery_time" || field == "cfr" || field == "r0"
	if clinical && !s.Clinical() {
		return dynamo.Configf(name, "strain %d is described by rates, not clinically", idx)
	}
	switch field {
	case "recovery_time":
		s.RecoveryTime = v
	case "cfr":
		s.CFR = v
	case "r0":
		s.R0 = v
	case "recovery_rate":
		s.Recovery = v
	case "death_rate":
		s.Death = v
	case "transmission_rate":
		s.Transmission = v
	case "infected":
		s.Infected = v
	case "death_delay":
		s.DeathDelay = v
	default:
		return &dynamo.NotFoundError{Key: "parameter " + name}
	}
	return nil
}

func strainParam(name string) (int, string, error) {
	rest, ok := strings.CutPrefix(name, "strains[")
	if !ok {
		return 0, "", &dynamo.NotFoundError{Key: "parameter " + name}
	}
	num, field, ok := strings.Cut(rest, "].")
	if !ok {
		return 0, "", &dynamo.NotFoundError{Key: "parameter " + name}
	}
	idx, err := strconv.Atoi(num)
	if err != nil || idx < 0 {
		return 0, "", &dynamo.NotFoundError{Key: "parameter " + name}
	}
	return idx, field, nil
}

// Metric extracts a named summary value: peak_prevalence, peak_time,
// total_deaths, final_susceptible or final_immune.
func Metric(s *analysis.Summary, name string) (float64, error) {
	switch name {
	case "peak_prevalence":
		return s.PeakPrevalence, nil
	case "peak_time":
		return s.PeakTime, nil
	case "total_deaths":
		return s.TotalDeaths, nil
	case "final_susceptible":
		return s.FinalSusceptible, nil
	case "final_immune":
		return s.FinalImmune, nil
	case "final_population":
		return s.FinalPopulation, nil
	case "wave_period":
		return s.WavePeriod, nil
	}
	return 0, &dynamo.NotFoundError{Key: "metric " + name}
}

// Best returns the row minimizing the named metric.
func Best(rows []Row, metric string) (Row, float64, error) {
	best := math.Inf(1)
	var bestRow Row
	for _, r := range rows {
		v, err := Metric(r.Summary, metric)
		if err != nil {
			return Row{}, 0, err
		}
		if v < best {
			best, bestRow = v, r
		}
	}
	if bestRow.Summary == nil {
		return Row{}, 0, &dynamo.PreconditionError{Op: "best of sweep"}
	}
	return bestRow, best, nil
}

// ParseValues parses "1,1.5,2" or an inclusive range "start:stop:step".
func ParseValues(s string) ([]float64, error) {
	if parts := strings.Split(s, ":"); len(parts) == 3 {
		var bounds [3]float64
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, dynamo.Configf("values", "bad range %q: %v", s, err)
			}
			bounds[i] = v
		}
		start, stop, step := bounds[0], bounds[1], bounds[2]
		if !(step > 0) || stop < start {
			return nil, dynamo.Configf("values", "bad range %q", s)
		}
		n := int(math.Floor((stop-start)/step+1e-9)) + 1
		out := make([]float64, n)
		for i := range out {
			out[i] = start + float64(i)*step
		}
		return out, nil
	}

	var out []float64
	for _, p := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, dynamo.Configf("values", "bad value %q: %v", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}
