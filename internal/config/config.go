package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/epistrains/internal/dynamo"
)

const (
	DefaultDuration   = 180.0
	DefaultResolution = 10.0
	DefaultLayout     = "full"
	DefaultMethod     = "rk45"
	DefaultMaxStrains = 10
	DefaultRelTol     = 1e-3
	DefaultAbsTol     = 1e-6
	DefaultSubsteps   = 10
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

// Config is one scenario: a population, its strains and how to integrate
// them.
type Config struct {
	Name            string           `yaml:"name,omitempty"`
	Duration        float64          `yaml:"duration" validate:"gt=0"`
	Resolution      float64          `yaml:"resolution" validate:"gt=0"`
	Layout          string           `yaml:"layout" validate:"oneof=full powerset collapsed sir simple"`
	RawTransmission bool             `yaml:"raw_transmission"`
	MaxStrains      int              `yaml:"max_strains" validate:"gte=1,lte=31"`
	Solver          SolverConfig     `yaml:"solver"`
	Population      PopulationConfig `yaml:"population"`
	Strains         []StrainConfig   `yaml:"strains" validate:"required,min=1,dive"`
}

type SolverConfig struct {
	Method   string  `yaml:"method" validate:"oneof=rk45 rk4"`
	RelTol   float64 `yaml:"rtol" validate:"gt=0"`
	AbsTol   float64 `yaml:"atol" validate:"gt=0"`
	MaxSteps int     `yaml:"max_steps" validate:"gte=0"`
	Substeps int     `yaml:"substeps" validate:"gte=0"`
}

type PopulationConfig struct {
	Size           float64     `yaml:"size" validate:"gt=0"`
	DeathRate      float64     `yaml:"death_rate" validate:"gte=0"`
	Waning         float64     `yaml:"waning" validate:"gte=0"`
	ImmuneFraction float64     `yaml:"immune_fraction" validate:"gte=0,lte=1"`
	Birth          BirthConfig `yaml:"birth"`
}

// BirthConfig names a birth-rate strategy and its parameters. Rate is used
// by "constant" and "per_capita"; A and K by "exponential".
type BirthConfig struct {
	Kind string  `yaml:"kind" validate:"required"`
	Rate float64 `yaml:"rate,omitempty" validate:"gte=0"`
	A    float64 `yaml:"a,omitempty" validate:"gte=0"`
	K    float64 `yaml:"k,omitempty" validate:"gte=0"`
}

// StrainConfig describes a strain either clinically (recovery_time, cfr,
// r0) or by its raw rates. The clinical form wins when recovery_time is set.
type StrainConfig struct {
	Name         string  `yaml:"name,omitempty"`
	RecoveryTime float64 `yaml:"recovery_time,omitempty" validate:"gte=0"`
	CFR          float64 `yaml:"cfr,omitempty" validate:"gte=0,lte=1"`
	R0           float64 `yaml:"r0,omitempty" validate:"gte=0"`
	Recovery     float64 `yaml:"recovery_rate,omitempty" validate:"gte=0"`
	Death        float64 `yaml:"death_rate,omitempty" validate:"gte=0"`
	Transmission float64 `yaml:"transmission_rate,omitempty" validate:"gte=0"`
	Infected     float64 `yaml:"infected" validate:"gte=0"`
	DeathDelay   float64 `yaml:"death_delay,omitempty" validate:"gte=0"`
}

func (s StrainConfig) Clinical() bool { return s.RecoveryTime > 0 }

func DefaultConfig() *Config {
	return &Config{
		Duration:   DefaultDuration,
		Resolution: DefaultResolution,
		Layout:     DefaultLayout,
		MaxStrains: DefaultMaxStrains,
		Solver: SolverConfig{
			Method:   DefaultMethod,
			RelTol:   DefaultRelTol,
			AbsTol:   DefaultAbsTol,
			Substeps: DefaultSubsteps,
		},
		Population: PopulationConfig{
			Birth: BirthConfig{Kind: "per_capita"},
		},
	}
}

// Validate checks field constraints and reports the first violation as a
// *dynamo.ConfigurationError named by its YAML path.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return c.validateStrains()
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	reason := fmt.Sprintf("fails %q", fe.Tag())
	if fe.Param() != "" {
		reason = fmt.Sprintf("fails %q (%s), got %v", fe.Tag(), fe.Param(), fe.Value())
	}
	return &dynamo.ConfigurationError{Field: field, Reason: reason}
}

func (c *Config) validateStrains() error {
	for i, s := range c.Strains {
		if !s.Clinical() && s.Recovery <= 0 {
			return dynamo.Configf(fmt.Sprintf("strains[%d]", i), "needs recovery_time or recovery_rate")
		}
	}
	return nil
}

// Load reads a YAML scenario on top of DefaultConfig. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be modified safely.
func (c *Config) Clone() *Config {
	out := *c
	out.Strains = append([]StrainConfig(nil), c.Strains...)
	return &out
}
