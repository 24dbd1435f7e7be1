package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/epistrains/internal/config"
	"github.com/san-kum/epistrains/internal/dynamo"
)

// scenarioFlags are the flags shared by every command that builds a
// scenario. Flags override the config file, which overrides the preset.
type scenarioFlags struct {
	configFile string
	preset     string

	duration        float64
	resolution      float64
	layout          string
	method          string
	rtol            float64
	atol            float64
	rawTransmission bool
	maxStrains      int

	size           float64
	deathRate      float64
	waning         float64
	immuneFraction float64
	birthKind      string
	birthRate      float64
	birthA         float64
	birthK         float64

	strains []string
}

func (f *scenarioFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.configFile, "config", "", "scenario file path (yaml)")
	fl.StringVar(&f.preset, "preset", "", "start from a preset scenario")

	fl.Float64Var(&f.duration, "time", config.DefaultDuration, "duration")
	fl.Float64Var(&f.resolution, "resolution", config.DefaultResolution, "samples per unit time")
	fl.StringVar(&f.layout, "layout", config.DefaultLayout, "compartment layout (full, collapsed)")
	fl.StringVar(&f.method, "method", config.DefaultMethod, "integration method (rk45, rk4)")
	fl.Float64Var(&f.rtol, "rtol", config.DefaultRelTol, "relative tolerance")
	fl.Float64Var(&f.atol, "atol", config.DefaultAbsTol, "absolute tolerance")
	fl.BoolVar(&f.rawTransmission, "raw-beta", false, "use transmission rates unscaled by the initial susceptibles")
	fl.IntVar(&f.maxStrains, "max-strains", config.DefaultMaxStrains, "largest strain count accepted")

	fl.Float64Var(&f.size, "size", 0, "initial population size")
	fl.Float64Var(&f.deathRate, "death-rate", 0, "background per-capita death rate")
	fl.Float64Var(&f.waning, "waning", 0, "rate at which immunity is lost")
	fl.Float64Var(&f.immuneFraction, "immune-fraction", 0, "initially immune fraction of the population")
	fl.StringVar(&f.birthKind, "birth", "per_capita", "birth rate kind (constant, per_capita, exponential)")
	fl.Float64Var(&f.birthRate, "birth-rate", 0, "birth rate for constant and per_capita births")
	fl.Float64Var(&f.birthA, "birth-a", 0, "a in N·a·exp(-k·N)")
	fl.Float64Var(&f.birthK, "birth-k", 0, "k in N·a·exp(-k·N)")

	fl.StringArrayVar(&f.strains, "strain", nil,
		`strain as key=value pairs, repeatable; e.g. "recovery_time=5,cfr=0.01,r0=2.5,infected=10"`)
}

// scenario resolves the preset, config file and flags into one config.
func (f *scenarioFlags) scenario(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if f.preset != "" {
		cfg = config.GetPreset(f.preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", f.preset, config.ListPresets())
		}
	}
	if f.configFile != "" {
		loaded, err := config.Load(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("time") {
		cfg.Duration = f.duration
	}
	if changed("resolution") {
		cfg.Resolution = f.resolution
	}
	if changed("layout") {
		cfg.Layout = f.layout
	}
	if changed("method") {
		cfg.Solver.Method = f.method
	}
	if changed("rtol") {
		cfg.Solver.RelTol = f.rtol
	}
	if changed("atol") {
		cfg.Solver.AbsTol = f.atol
	}
	if changed("raw-beta") {
		cfg.RawTransmission = f.rawTransmission
	}
	if changed("max-strains") {
		cfg.MaxStrains = f.maxStrains
	}
	if changed("size") {
		cfg.Population.Size = f.size
	}
	if changed("death-rate") {
		cfg.Population.DeathRate = f.deathRate
	}
	if changed("waning") {
		cfg.Population.Waning = f.waning
	}
	if changed("immune-fraction") {
		cfg.Population.ImmuneFraction = f.immuneFraction
	}
	if changed("birth") {
		cfg.Population.Birth.Kind = f.birthKind
	}
	if changed("birth-rate") {
		cfg.Population.Birth.Rate = f.birthRate
	}
	if changed("birth-a") {
		cfg.Population.Birth.A = f.birthA
	}
	if changed("birth-k") {
		cfg.Population.Birth.K = f.birthK
	}
	if len(f.strains) > 0 {
		cfg.Strains = cfg.Strains[:0:0]
		for i, def := range f.strains {
			s, err := parseStrain(def)
			if err != nil {
				return nil, fmt.Errorf("--strain %d: %w", i+1, err)
			}
			cfg.Strains = append(cfg.Strains, s)
		}
	}
	if cfg.Name == "" {
		cfg.Name = "custom"
	}
	return cfg, nil
}

// parseStrain reads "key=value,key=value" using the scenario file's keys.
func parseStrain(def string) (config.StrainConfig, error) {
	var s config.StrainConfig
	for _, pair := range strings.Split(def, ",") {
		key, raw, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok {
			return s, dynamo.Configf("strain", "expected key=value, got %q", pair)
		}
		if key == "name" {
			s.Name = raw
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return s, dynamo.Configf(key, "not a number: %q", raw)
		}
		switch key {
		case "recovery_time":
			s.RecoveryTime = v
		case "cfr":
			s.CFR = v
		case "r0":
			s.R0 = v
		case "recovery_rate", "nu":
			s.Recovery = v
		case "death_rate", "alpha":
			s.Death = v
		case "transmission_rate", "beta":
			s.Transmission = v
		case "infected":
			s.Infected = v
		case "death_delay":
			s.DeathDelay = v
		default:
			return s, &dynamo.NotFoundError{Key: "strain key " + key}
		}
	}
	return s, nil
}
