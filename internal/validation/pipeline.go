package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/onset.picker/internal/picks"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

type step struct {
	name   string
	def    *Definition
	params []float64
}

// Pipeline is an ordered, fully resolved set of tests.
type Pipeline struct {
	steps []step
}

// NewPipeline resolves every test name in tests against reg. It fails with
// ErrMissingTestFunction if any name is unknown and with
// waveform.ErrBadInput if a parameter list has the wrong length.
func NewPipeline(reg *Registry, tests map[string][]float64) (*Pipeline, error) {
	names := make([]string, 0, len(tests))
	for name := range tests {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		li, lj := strings.ToLower(names[i]), strings.ToLower(names[j])
		if li != lj {
			return li < lj
		}
		return names[i] < names[j]
	})

	var missing []string
	p := &Pipeline{steps: make([]step, 0, len(names))}
	for _, name := range names {
		var def *Definition
		ok := false
		if reg != nil {
			def, ok = reg.Get(name)
		}
		if !ok || def.Run == nil {
			missing = append(missing, name)
			continue
		}
		params := append([]float64(nil), tests[name]...)
		if err := def.checkArity(params); err != nil {
			return nil, fmt.Errorf("test %s: %w", name, err)
		}
		p.steps = append(p.steps, step{name: name, def: def, params: params})
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingTestFunction, strings.Join(missing, ", "))
	}
	return p, nil
}

// Names returns the test names in execution order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.steps))
	for i, s := range p.steps {
		out[i] = s.name
	}
	return out
}

// Len returns the number of configured tests.
func (p *Pipeline) Len() int { return len(p.steps) }

// Evaluate runs every test against its own copy of seg. The pick is
// accepted when all tests pass; with no tests it is always accepted. Every
// test runs even after a failure so that all details are recorded.
func (p *Pipeline) Evaluate(rec picks.Record, seg *waveform.Trace) (bool, map[string]picks.TestResult, error) {
	details := make(map[string]picks.TestResult, len(p.steps))
	if err := seg.Validate(); err != nil {
		return false, details, err
	}
	if !rec.HasPrimary() {
		return false, details, fmt.Errorf("%w: iteration %d has no primary pick to validate",
			waveform.ErrBadInput, rec.Iteration)
	}

	accepted := true
	for _, s := range p.steps {
		res, err := s.def.Run(seg.Copy(), rec.Clone(), append([]float64(nil), s.params...))
		if err != nil {
			return false, details, fmt.Errorf("test %s: %w", s.name, err)
		}
		details[s.name] = res
		accepted = accepted && res.Passed
	}
	return accepted, details, nil
}
