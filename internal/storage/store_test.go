package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/epistrains/internal/config"
	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/experiment"
)

func solved(t *testing.T, preset string) (*experiment.Result, *config.Config) {
	t.Helper()
	cfg := config.GetPreset(preset)
	exp, err := experiment.NewRegistry().Build(cfg)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	res, err := exp.Run(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	return res, cfg
}

func TestStoreSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	res, cfg := solved(t, "balanced")
	runID, err := st.Save(res, cfg)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Error("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Name != "balanced" {
		t.Errorf("expected name 'balanced', got '%s'", meta.Name)
	}
	if meta.Layout != "full" || meta.Method != "rk45" {
		t.Errorf("unexpected layout/method %s/%s", meta.Layout, meta.Method)
	}
	if meta.Summary == nil || meta.Summary.PeakPrevalence != res.Summary.PeakPrevalence {
		t.Error("summary not preserved")
	}
	if meta.Config == nil || meta.Config.Strains[0].Transmission != 16.5 {
		t.Error("config not preserved")
	}

	tr, err := st.LoadStates(runID)
	if err != nil {
		t.Fatalf("load states failed: %v", err)
	}
	want := res.Run.Trajectory
	if tr.Len() != want.Len() {
		t.Fatalf("expected %d samples, got %d", want.Len(), tr.Len())
	}
	if len(tr.Labels) != 3 || tr.Labels[0] != "S" {
		t.Errorf("unexpected labels %v", tr.Labels)
	}
	for k := range want.States {
		for j := range want.States[k] {
			if tr.States[k][j] != want.States[k][j] {
				t.Fatalf("sample %d slot %d: got %v, want %v", k, j, tr.States[k][j], want.States[k][j])
			}
		}
	}

	deaths, err := st.LoadDeaths(runID)
	if err != nil {
		t.Fatalf("load deaths failed: %v", err)
	}
	if deaths.Total() != res.Deaths.Total() {
		t.Errorf("expected total deaths %v, got %v", res.Deaths.Total(), deaths.Total())
	}
}

func TestStoreSaveRejectsEmptyRun(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Save(&experiment.Result{}, nil); !errors.Is(err, dynamo.ErrPrecondition) {
		t.Errorf("expected precondition error, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list of missing dir failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}
	res, cfg := solved(t, "single")
	for i := 0; i < 2; i++ {
		if _, err := st.Save(res, cfg); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID == runs[1].ID {
		t.Error("expected distinct run ids")
	}
}

func TestStoreResolve(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	res, cfg := solved(t, "single")
	runID, err := st.Save(res, cfg)
	if err != nil {
		t.Fatal(err)
	}

	got, err := st.Resolve(runID[:8])
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if got != runID {
		t.Errorf("expected %s, got %s", runID, got)
	}

	if _, err := st.Resolve("zzzz"); !errors.Is(err, dynamo.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := st.Load("zzzz"); !errors.Is(err, dynamo.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	res, cfg := solved(t, "example")
	runID, err := st.Save(res, cfg)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, runID); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.Name != "example" {
		t.Errorf("expected name example, got %s", data.Name)
	}
	if len(data.Labels) != 8 {
		t.Errorf("expected 8 compartments for two strains, got %d", len(data.Labels))
	}
	if len(data.Times) != len(data.States) || len(data.Deaths) != len(data.Times) {
		t.Error("series lengths differ")
	}
}
