package automation

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/epistrains/internal/config"
	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/experiment"
)

// Batch is a list of scenarios solved together as one ensemble.
type Batch struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Scenarios   []BatchEntry `yaml:"scenarios"`
}

// BatchEntry names a base scenario, either a preset or a YAML file relative
// to the batch file, and optional overrides applied on top of it.
type BatchEntry struct {
	Name       string   `yaml:"name"`
	Preset     string   `yaml:"preset"`
	File       string   `yaml:"file"`
	Duration   *float64 `yaml:"duration"`
	Resolution *float64 `yaml:"resolution"`
	Layout     *string  `yaml:"layout"`
	Method     *string  `yaml:"method"`
}

// LoadBatch loads a batch from a YAML file
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var batch Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return nil, fmt.Errorf("batch %s: %w", path, err)
	}
	if len(batch.Scenarios) == 0 {
		return nil, dynamo.Configf("scenarios", "batch %s lists no scenarios", path)
	}
	return &batch, nil
}

// Configs resolves every entry into a scenario. File entries are relative to
// dir.
func (b *Batch) Configs(dir string) ([]*config.Config, error) {
	out := make([]*config.Config, 0, len(b.Scenarios))
	for i, e := range b.Scenarios {
		cfg, err := e.resolve(dir)
		if err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i+1, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (e BatchEntry) resolve(dir string) (*config.Config, error) {
	var cfg *config.Config
	switch {
	case e.Preset != "" && e.File != "":
		return nil, dynamo.Configf("scenario", "set either preset or file, not both")
	case e.Preset != "":
		cfg = config.GetPreset(e.Preset)
		if cfg == nil {
			return nil, &dynamo.NotFoundError{Key: "preset " + e.Preset}
		}
	case e.File != "":
		path := e.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	default:
		return nil, dynamo.Configf("scenario", "needs a preset or a file")
	}

	if e.Name != "" {
		cfg.Name = e.Name
	}
	if e.Duration != nil {
		cfg.Duration = *e.Duration
	}
	if e.Resolution != nil {
		cfg.Resolution = *e.Resolution
	}
	if e.Layout != nil {
		cfg.Layout = *e.Layout
	}
	if e.Method != nil {
		cfg.Solver.Method = *e.Method
	}
	return cfg, nil
}

// RunBatch builds every scenario before solving any, then solves them all
// through ens.
func RunBatch(ctx context.Context, configs []*config.Config, registry *experiment.Registry, ens *experiment.Ensemble) ([]*experiment.Result, error) {
	exps := make([]*experiment.Experiment, len(configs))
	for i, cfg := range configs {
		exp, err := registry.Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("scenario %d (%s): %w", i+1, cfg.Name, err)
		}
		exps[i] = exp
	}
	return ens.Run(ctx, exps)
}
