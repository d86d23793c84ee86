package picker

import (
	"fmt"
	"strings"

	"github.com/banshee-data/onset.picker/internal/detector"
	"github.com/banshee-data/onset.picker/internal/refine"
	"github.com/banshee-data/onset.picker/internal/waveform"
)

// Config drives one picker run.
type Config struct {
	// Channel is a glob selecting one trace of the processed variant,
	// for example "*Z".
	Channel       string
	MaxIterations int

	// Main is used for the first round over the whole trace, Aux for the
	// following rounds over the remaining tail.
	Main detector.Profile
	Aux  detector.Profile

	// Tests maps validation test names to their positional parameters.
	Tests map[string][]float64

	Refine     bool
	Refinement refine.Config
}

// Validate checks the configuration without resolving test names.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Channel) == "" {
		return fmt.Errorf("%w: channel selector is empty", waveform.ErrBadInput)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be at least 1, got %d", waveform.ErrBadInput, c.MaxIterations)
	}
	if err := c.Main.Validate(); err != nil {
		return fmt.Errorf("main profile: %w", err)
	}
	if err := c.Aux.Validate(); err != nil {
		return fmt.Errorf("aux profile: %w", err)
	}
	if c.Refine {
		if err := c.Refinement.Validate(); err != nil {
			return fmt.Errorf("refinement: %w", err)
		}
	}
	return nil
}
