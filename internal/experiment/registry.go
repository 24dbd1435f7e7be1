package experiment

import (
	"sort"

	"github.com/san-kum/epistrains/internal/config"
	"github.com/san-kum/epistrains/internal/dynamo"
	"github.com/san-kum/epistrains/internal/epidemic"
	"github.com/san-kum/epistrains/internal/integrators"
)

// Registry maps the names used in scenario files to birth-rate strategies
// and integration methods.
type Registry struct {
	births  map[string]func(config.BirthConfig) epidemic.BirthRate
	methods map[string]struct{}
}

func NewRegistry() *Registry {
	r := &Registry{
		births:  make(map[string]func(config.BirthConfig) epidemic.BirthRate),
		methods: make(map[string]struct{}),
	}

	r.births["constant"] = func(b config.BirthConfig) epidemic.BirthRate { return epidemic.ConstantBirths(b.Rate) }
	r.births["per_capita"] = func(b config.BirthConfig) epidemic.BirthRate { return epidemic.PerCapitaBirths(b.Rate) }
	r.births["exponential"] = func(b config.BirthConfig) epidemic.BirthRate { return epidemic.ExponentialBirths(b.A, b.K) }

	r.methods[integrators.MethodRK45] = struct{}{}
	r.methods[integrators.MethodRK4] = struct{}{}

	return r
}

// RegisterBirth adds or replaces a birth-rate strategy.
func (r *Registry) RegisterBirth(kind string, fn func(config.BirthConfig) epidemic.BirthRate) {
	r.births[kind] = fn
}

func (r *Registry) GetBirth(b config.BirthConfig) (epidemic.BirthRate, error) {
	fn, ok := r.births[b.Kind]
	if !ok {
		return nil, dynamo.Configf("population.birth.kind", "unknown birth rate %q", b.Kind)
	}
	return fn(b), nil
}

func (r *Registry) HasMethod(name string) bool {
	_, ok := r.methods[name]
	return ok
}

func (r *Registry) ListBirths() []string {
	return sortedKeys(r.births)
}

func (r *Registry) ListMethods() []string {
	return sortedKeys(r.methods)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
