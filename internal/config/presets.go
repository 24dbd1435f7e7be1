package config

import "sort"

type Preset struct {
	Description string
	Config      *Config
}

func preset(name string, duration float64, pop PopulationConfig, strains ...StrainConfig) *Config {
	cfg := DefaultConfig()
	cfg.Name = name
	cfg.Duration = duration
	cfg.Population = pop
	cfg.Strains = strains
	return cfg
}

var Presets = map[string]Preset{
	"example": {
		Description: "two strains in a population of 10,000 with logistic-style exponential births",
		Config: preset("example", 100,
			PopulationConfig{Size: 10000, DeathRate: 0.00005, Birth: BirthConfig{Kind: "exponential", A: 1.0, K: 0.001}},
			StrainConfig{Name: "I1", Recovery: 0.05, Death: 0, Transmission: 0.005, Infected: 3},
			StrainConfig{Name: "I2", Recovery: 0.04, Death: 0.005, Transmission: 0.007, Infected: 8},
		),
	},
	"single": {
		Description: "one lethal strain with R0 = 3 in a population of 100 doubling through births",
		Config: preset("single", 1,
			PopulationConfig{Size: 100, DeathRate: 0.5, Birth: BirthConfig{Kind: "exponential", A: 2, K: 0}},
			StrainConfig{Name: "I", Recovery: 5, Death: 0.5, Transmission: 16.5, Infected: 10},
		),
	},
	"balanced": {
		Description: "one strain with R0 = 3; births replace background deaths",
		Config: preset("balanced", 1,
			PopulationConfig{Size: 100, DeathRate: 0.5, Birth: BirthConfig{Kind: "per_capita", Rate: 0.5}},
			StrainConfig{Name: "I", Recovery: 5, Death: 0.5, Transmission: 16.5, Infected: 10},
		),
	},
	"competing": {
		Description: "three clinically described strains with waning immunity",
		Config: preset("competing", 365,
			PopulationConfig{Size: 100000, DeathRate: 1.0 / (70 * 365), Waning: 1.0 / 180,
				Birth: BirthConfig{Kind: "per_capita", Rate: 1.0 / (70 * 365)}},
			StrainConfig{Name: "flu-a", RecoveryTime: 7, CFR: 0.001, R0: 1.8, Infected: 20, DeathDelay: 14},
			StrainConfig{Name: "flu-b", RecoveryTime: 6, CFR: 0.0005, R0: 1.4, Infected: 10, DeathDelay: 14},
			StrainConfig{Name: "novel", RecoveryTime: 10, CFR: 0.01, R0: 2.5, Infected: 1, DeathDelay: 21},
		),
	},
	"vaccinated": {
		Description: "two strains in a population where a fifth is immune to both",
		Config: preset("vaccinated", 200,
			PopulationConfig{Size: 50000, DeathRate: 0.0001, ImmuneFraction: 0.2,
				Birth: BirthConfig{Kind: "per_capita", Rate: 0.0001}},
			StrainConfig{Name: "wild", RecoveryTime: 10, CFR: 0.02, R0: 3, Infected: 5, DeathDelay: 12},
			StrainConfig{Name: "variant", RecoveryTime: 8, CFR: 0.01, R0: 4, Infected: 1, DeathDelay: 12},
		),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	return p.Config.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
