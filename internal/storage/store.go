package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/epistrains/internal/analysis"
	"github.com/san-kum/epistrains/internal/config"
	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/experiment"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
	deathsFile   = "deaths.csv"
)

// Store keeps one directory per run under baseDir.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Timestamp  time.Time         `json:"timestamp"`
	Layout     string            `json:"layout"`
	Method     string            `json:"method"`
	Duration   float64           `json:"duration"`
	Resolution float64           `json:"resolution"`
	Strains    int               `json:"strains"`
	Labels     []string          `json:"labels"`
	Stats      dynamo.Stats      `json:"stats"`
	Elapsed    time.Duration     `json:"elapsed_ns"`
	Summary    *analysis.Summary `json:"summary"`
	Config     *config.Config    `json:"config,omitempty"`
}

func newMetadata(id string, res *experiment.Result, cfg *config.Config) RunMetadata {
	run := res.Run
	return RunMetadata{
		ID:         id,
		Name:       res.Name,
		Timestamp:  time.Now().UTC(),
		Layout:     run.Space.Layout().String(),
		Method:     methodOf(cfg),
		Duration:   run.Duration,
		Resolution: run.Resolution,
		Strains:    len(run.Strains),
		Labels:     run.Space.Labels(),
		Stats:      run.Trajectory.Stats,
		Elapsed:    res.Elapsed,
		Summary:    res.Summary,
		Config:     cfg,
	}
}

func methodOf(cfg *config.Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.Solver.Method
}

// Save writes a finished run and returns its id. cfg is recorded so the run
// can be reproduced and may be nil.
func (s *Store) Save(res *experiment.Result, cfg *config.Config) (string, error) {
	if res == nil || res.Run == nil || res.Run.Trajectory.Len() == 0 {
		return "", &dynamo.PreconditionError{Op: "save run"}
	}
	runID := uuid.NewString()
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), newMetadata(runID, res, cfg)); err != nil {
		return "", err
	}

	tr := res.Run.Trajectory
	header := append([]string{"time"}, tr.Labels...)
	rows := make([][]float64, tr.Len())
	for k, x := range tr.States {
		rows[k] = append([]float64{tr.Times[k]}, x...)
	}
	if err := writeCSV(filepath.Join(runDir, statesFile), header, rows); err != nil {
		return "", err
	}

	if d := res.Deaths; d != nil {
		rows := make([][]float64, len(d.Times))
		for k := range d.Times {
			rows[k] = []float64{d.Times[k], d.PerSample[k], d.Cumulative[k]}
		}
		if err := writeCSV(filepath.Join(runDir, deathsFile), []string{"time", "deaths", "cumulative"}, rows); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, header []string, rows [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	record := make([]string, len(header))
	for _, row := range rows {
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record[:len(row)]); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// Resolve expands a unique id prefix to a full run id.
func (s *Store) Resolve(prefix string) (string, error) {
	if prefix == "" {
		return "", &dynamo.NotFoundError{Key: "run \"\""}
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	var matches []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			if entry.Name() == prefix {
				return prefix, nil
			}
			matches = append(matches, entry.Name())
		}
	}
	switch len(matches) {
	case 0:
		return "", &dynamo.NotFoundError{Key: "run " + prefix}
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("run prefix %q is ambiguous: %d matches", prefix, len(matches))
}

func (s *Store) open(runID, name string) (*os.File, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &dynamo.NotFoundError{Key: "run " + runID + " " + name}
	}
	return f, err
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	f, err := s.open(runID, metadataFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var meta RunMetadata
	if err := json.NewDecoder(f).Decode(&meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadStates reads a run's compartments back into a trajectory labelled
// from the CSV header.
func (s *Store) LoadStates(runID string) (*dynamo.Trajectory, error) {
	header, rows, err := s.readCSV(runID, statesFile)
	if err != nil {
		return nil, err
	}
	tr := &dynamo.Trajectory{Labels: header[1:]}
	for _, row := range rows {
		tr.Times = append(tr.Times, row[0])
		tr.States = append(tr.States, dynamo.State(row[1:]))
	}
	return tr, nil
}

func (s *Store) LoadDeaths(runID string) (*analysis.DeathSeries, error) {
	_, rows, err := s.readCSV(runID, deathsFile)
	if err != nil {
		return nil, err
	}
	d := &analysis.DeathSeries{}
	for _, row := range rows {
		if len(row) < 3 {
			return nil, fmt.Errorf("run %s: short row in %s", runID, deathsFile)
		}
		d.Times = append(d.Times, row[0])
		d.PerSample = append(d.PerSample, row[1])
		d.Cumulative = append(d.Cumulative, row[2])
	}
	return d, nil
}

func (s *Store) readCSV(runID, name string) ([]string, [][]float64, error) {
	f, err := s.open(runID, name)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("run %s: %w", runID, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("run %s: %s has no header", runID, name)
	}

	rows := make([][]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		row := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("run %s: %s line %d: %w", runID, name, i+2, err)
			}
			row[j] = v
		}
		rows = append(rows, row)
	}
	return records[0], rows, nil
}

// ExportData is the self-contained JSON form of a run.
type ExportData struct {
	Name       string            `json:"name"`
	Layout     string            `json:"layout"`
	Duration   float64           `json:"duration"`
	Resolution float64           `json:"resolution"`
	Labels     []string          `json:"labels"`
	Times      []float64         `json:"times"`
	States     [][]float64       `json:"states"`
	Deaths     []float64         `json:"deaths,omitempty"`
	Cumulative []float64         `json:"cumulative_deaths,omitempty"`
	Stats      dynamo.Stats      `json:"stats"`
	Summary    *analysis.Summary `json:"summary,omitempty"`
}

func NewExportData(meta *RunMetadata, tr *dynamo.Trajectory, deaths *analysis.DeathSeries) ExportData {
	data := ExportData{
		Name:       meta.Name,
		Layout:     meta.Layout,
		Duration:   meta.Duration,
		Resolution: meta.Resolution,
		Labels:     tr.Labels,
		Times:      tr.Times,
		States:     make([][]float64, len(tr.States)),
		Stats:      meta.Stats,
		Summary:    meta.Summary,
	}
	for i, x := range tr.States {
		data.States[i] = x
	}
	if deaths != nil {
		data.Deaths = deaths.PerSample
		data.Cumulative = deaths.Cumulative
	}
	return data
}

// ExportJSON writes a stored run as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	tr, err := s.LoadStates(runID)
	if err != nil {
		return err
	}
	deaths, err := s.LoadDeaths(runID)
	var nf *dynamo.NotFoundError
	if err != nil && !errors.As(err, &nf) {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewExportData(meta, tr, deaths))
}
