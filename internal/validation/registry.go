package validation

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/banshee-data/onset.picker/internal/picks"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

// ErrMissingTestFunction is returned when a configured test name has no
// registered implementation.
var ErrMissingTestFunction = errors.New("missing test function")

// TestFunc evaluates one pick. seg is a private copy the test may modify;
// rec is the current iteration's record; params are the test's positional
// parameters from the configuration.
type TestFunc func(seg *waveform.Trace, rec picks.Record, params []float64) (picks.TestResult, error)

// Definition describes a registered test.
type Definition struct {
	Name        string
	Description string
	// Params names the positional parameters. The first Required entries
	// are mandatory, the rest optional.
	Params   []string
	Required int
	Run      TestFunc
}

// Info is a summary of a registered test.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
	Required    int      `json:"required"`
}

// Registry maps test names to definitions.
type Registry struct {
	mu    sync.RWMutex
	tests map[string]*Definition
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tests: make(map[string]*Definition)}
}

// Register adds def, replacing any test with the same name.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tests[def.Name] = def
}

// Get returns the definition registered under name.
func (r *Registry) Get(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tests[name]
	return def, ok
}

// List returns every registered test sorted by name.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.tests))
	for _, def := range r.tests {
		infos = append(infos, Info{
			Name:        def.Name,
			Description: def.Description,
			Params:      def.Params,
			Required:    def.Required,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// checkArity validates the number of parameters given to def.
func (def *Definition) checkArity(params []float64) error {
	if len(params) < def.Required || len(params) > len(def.Params) {
		return fmt.Errorf("%w: %s expects %d to %d parameters %v, got %d",
			waveform.ErrBadInput, def.Name, def.Required, len(def.Params), def.Params, len(params))
	}
	return nil
}

// DefaultRegistry returns a registry holding the built-in tests and their
// legacy aliases.
func DefaultRegistry() *Registry {
	reg := NewRegistry()

	amplitude := &Definition{
		Name: "AmplitudeTest",
		Description: "Rejects the pick when the characteristic function never rises above " +
			"min_amp within window seconds after the pick.",
		Params:   []string{"window", "min_amp"},
		Required: 2,
		Run:      AmplitudeTest,
	}
	sustain := &Definition{
		Name: "SustainTest",
		Description: "Rejects the pick when any of n_windows consecutive post-pick windows " +
			"has a mean characteristic function at most min_ratio times the pre-pick noise mean.",
		Params:   []string{"window", "n_windows", "min_ratio"},
		Required: 3,
		Run:      SustainTest,
	}
	trend := &Definition{
		Name: "TrendTest",
		Description: "Rejects the pick when the first differences after it are uniformly " +
			"signed for at least the confidence fraction, the signature of a filter ramp.",
		Params:   []string{"window", "confidence"},
		Required: 1,
		Run:      TrendTest,
	}

	for _, def := range []*Definition{amplitude, sustain, trend} {
		reg.Register(def)
	}

	for alias, def := range map[string]*Definition{
		"SignalAmp":     amplitude,
		"SignalSustain": sustain,
		"LowFreqTrend":  trend,
	} {
		aliased := *def
		aliased.Name = alias
		aliased.Description = "Alias of " + def.Name + ". " + def.Description
		reg.Register(&aliased)
	}

	return reg
}
