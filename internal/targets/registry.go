package targets

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/inferloop/mcmc/pkg/errors"
	"github.com/inferloop/mcmc/pkg/interfaces"
)

// Names of the built-in targets
const (
	NameMixture   = "mixture"
	NameNormal    = "normal"
	NameBivariate = "bivariate"
	NameInterval  = "interval"
	NamePoint     = "point"
)

// Params carries optional numeric parameters for a target constructor
type Params map[string]float64

// Get returns p[key] or def when key is absent
func (p Params) Get(key string, def float64) float64 {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// CreateFunc builds a density from params
type CreateFunc func(params Params) (interfaces.Density, error)

// Info describes a registered target
type Info struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Dimension   int                `json:"dimension"`
	Defaults    map[string]float64 `json:"defaults,omitempty"`
}

type entry struct {
	info   Info
	create CreateFunc
}

// Registry maps target names to constructors
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

// NewRegistry returns a registry holding the built-in targets
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[string]entry)}
	r.registerDefaults()
	return r
}

// Register adds or replaces a target
func (r *Registry) Register(info Info, create CreateFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[info.Name] = entry{info: info, create: create}
}

// Create builds the named target
func (r *Registry) Create(name string, params Params) (interfaces.Density, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, errors.WrapError(errors.ErrTargetNotFound, errors.ErrorTypeConfiguration,
			errors.CodeUnknownTarget, fmt.Sprintf("target '%s' is not registered", name))
	}
	return e.create(params)
}

// List returns the registered targets sorted by name
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, e.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (r *Registry) registerDefaults() {
	r.Register(Info{
		Name:        NameMixture,
		Description: "0.3·N(-2, 0.8) + 0.7·N(3, 1.5)",
		Dimension:   1,
	}, func(Params) (interfaces.Density, error) {
		return CourseMixture(), nil
	})

	r.Register(Info{
		Name:        NameNormal,
		Description: "univariate normal N(mu, sigma²)",
		Dimension:   1,
		Defaults:    map[string]float64{"mu": 0, "sigma": 1},
	}, func(p Params) (interfaces.Density, error) {
		return NewNormal(p.Get("mu", 0), p.Get("sigma", 1))
	})

	r.Register(Info{
		Name:        NameBivariate,
		Description: "standard bivariate normal with correlation rho",
		Dimension:   2,
		Defaults:    map[string]float64{"rho": 0.8},
	}, func(p Params) (interfaces.Density, error) {
		return NewBivariateNormal(p.Get("rho", 0.8))
	})

	r.Register(Info{
		Name:        NameInterval,
		Description: "uniform on [low, high], zero elsewhere",
		Dimension:   1,
		Defaults:    map[string]float64{"low": 2, "high": 3},
	}, func(p Params) (interfaces.Density, error) {
		return NewInterval(p.Get("low", 2), p.Get("high", 3))
	})

	r.Register(Info{
		Name:        NamePoint,
		Description: "positive at a single value, zero elsewhere",
		Dimension:   1,
		Defaults:    map[string]float64{"at": 0},
	}, func(p Params) (interfaces.Density, error) {
		return &Point{At: p.Get("at", 0)}, nil
	})
}

// MixtureOf is a convenience constructor for two-parameter normal components.
func MixtureOf(weights []float64, mus []float64, sigmas []float64) (*Mixture, error) {
	if len(mus) != len(sigmas) {
		return nil, errors.NewConfigurationError(errors.CodeInvalidInput, "mus and sigmas must have equal length")
	}
	comps := make([]distuv.Normal, len(mus))
	for i := range mus {
		comps[i] = distuv.Normal{Mu: mus[i], Sigma: sigmas[i]}
	}
	return NewMixture(weights, comps)
}
