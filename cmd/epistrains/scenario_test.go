package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/epistrains/internal/config"
	"github.com/san-kum/epistrains/internal/dynamo"
)

func parseScenario(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	var f scenarioFlags
	cmd := &cobra.Command{Use: "test"}
	f.register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return f.scenario(cmd)
}

func TestParseStrain(t *testing.T) {
	s, err := parseStrain("name=flu, recovery_time=5,cfr=0.01,r0=2.5,infected=10,death_delay=2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := config.StrainConfig{Name: "flu", RecoveryTime: 5, CFR: 0.01, R0: 2.5, Infected: 10, DeathDelay: 2}
	if s != want {
		t.Errorf("got %+v, want %+v", s, want)
	}

	s, err = parseStrain("nu=0.2,alpha=0.01,beta=0.3,infected=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Recovery != 0.2 || s.Death != 0.01 || s.Transmission != 0.3 || s.Clinical() {
		t.Errorf("rate aliases not applied: %+v", s)
	}
}

func TestParseStrainErrors(t *testing.T) {
	tests := []struct {
		def string
		want error
	}{
		{"r0", dynamo.ErrConfiguration},
		{"r0=abc", dynamo.ErrConfiguration},
		{"virulence=3", dynamo.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			_, err := parseStrain(tt.def)
			if !errors.Is(err, tt.want) {
				t.Errorf("parseStrain(%q) = %v, want %v", tt.def, err, tt.want)
			}
		})
	}
}

func TestScenarioPresetAndFlags(t *testing.T) {
	cfg, err := parseScenario(t, "--preset", "example", "--time", "50", "--layout", "collapsed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Duration != 50 || cfg.Layout != "collapsed" {
		t.Errorf("flags not applied: duration %g layout %s", cfg.Duration, cfg.Layout)
	}
	if cfg.Population.Size != 10000 || len(cfg.Strains) != 2 {
		t.Errorf("preset values lost: size %g strains %d", cfg.Population.Size, len(cfg.Strains))
	}
	// unchanged flags keep the preset's resolution
	if cfg.Resolution != config.GetPreset("example").Resolution {
		t.Errorf("resolution = %g", cfg.Resolution)
	}
}

func TestScenarioStrainFlagsReplacePreset(t *testing.T) {
	cfg, err := parseScenario(t, "--preset", "example",
		"--strain", "recovery_time=5,cfr=0.1,r0=2,infected=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.Strains) != 1 || cfg.Strains[0].R0 != 2 {
		t.Errorf("strains = %+v", cfg.Strains)
	}
	if len(config.Presets["example"].Config.Strains) != 2 {
		t.Error("preset was mutated")
	}
}

func TestScenarioFileThenFlags(t *testing.T) {
	cfg := config.GetPreset("balanced")
	cfg.Name = "from-file"
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := config.Save(path, cfg); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := parseScenario(t, "--preset", "example", "--config", path, "--size", "250")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "from-file" {
		t.Errorf("name = %q, want from-file", got.Name)
	}
	if got.Population.Size != 250 {
		t.Errorf("size = %g, want 250", got.Population.Size)
	}
}

func TestScenarioErrors(t *testing.T) {
	if _, err := parseScenario(t, "--preset", "nope"); err == nil {
		t.Error("expected an unknown preset error")
	}
	if _, err := parseScenario(t, "--config", filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a missing file error, got %v", err)
	}
}

func TestScenarioDefaultName(t *testing.T) {
	cfg, err := parseScenario(t, "--size", "100", "--strain", "r0=2,recovery_time=4,infected=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Name != "custom" {
		t.Errorf("name = %q, want custom", cfg.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected a valid scenario, got %v", err)
	}
}
