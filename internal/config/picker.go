// Package config loads picker configuration files. Every field is optional:
// omitted values fall back to the defaults returned by the Get* accessors,
// so partial files are safe.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/banshee-data/onset.picker/internal/detector"
	"github.com/banshee-data/onset.picker/internal/picker"
	"github.com/banshee-data/onset.picker/internal/refine"
)

// DefaultConfigPath is the canonical defaults file, relative to the
// repository root.
const DefaultConfigPath = "config/picker.defaults.json"

const maxFileSize = 1 * 1024 * 1024 // 1MB

// ProfileConfig holds detector parameters in seconds.
type ProfileConfig struct {
	PreEventWindow     *float64 `json:"pre_event_window,omitempty" yaml:"pre_event_window,omitempty" toml:"pre_event_window,omitempty"`
	EventWindow        *float64 `json:"event_window,omitempty" yaml:"event_window,omitempty" toml:"event_window,omitempty"`
	AmplitudeThreshold *float64 `json:"amplitude_threshold,omitempty" yaml:"amplitude_threshold,omitempty" toml:"amplitude_threshold,omitempty"`
	UpdateThreshold    *float64 `json:"update_threshold,omitempty" yaml:"update_threshold,omitempty" toml:"update_threshold,omitempty"`
	PresetWindow       *float64 `json:"preset_window,omitempty" yaml:"preset_window,omitempty" toml:"preset_window,omitempty"`
	PostEventDuration  *float64 `json:"post_event_duration,omitempty" yaml:"post_event_duration,omitempty" toml:"post_event_duration,omitempty"`
}

// RefinementConfig controls AIC refinement of accepted picks.
type RefinementConfig struct {
	Enabled             *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	UseRawVariant       *bool    `json:"use_raw_variant,omitempty" yaml:"use_raw_variant,omitempty" toml:"use_raw_variant,omitempty"`
	NoiseWindowSeconds  *float64 `json:"noise_window_seconds,omitempty" yaml:"noise_window_seconds,omitempty" toml:"noise_window_seconds,omitempty"`
	SignalWindowSeconds *float64 `json:"signal_window_seconds,omitempty" yaml:"signal_window_seconds,omitempty" toml:"signal_window_seconds,omitempty"`
}

// PickerConfig is the root of a configuration file.
type PickerConfig struct {
	Channel       *string        `json:"channel,omitempty" yaml:"channel,omitempty" toml:"channel,omitempty"`
	MaxIterations *int           `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty" toml:"max_iterations,omitempty"`
	Main          *ProfileConfig `json:"main,omitempty" yaml:"main,omitempty" toml:"main,omitempty"`
	Aux           *ProfileConfig `json:"aux,omitempty" yaml:"aux,omitempty" toml:"aux,omitempty"`

	// Tests maps validation test names to positional parameters. A
	// missing map selects the default tests; an empty one disables
	// validation.
	Tests map[string][]float64 `json:"tests" yaml:"tests,omitempty" toml:"tests,omitempty"`

	Refinement *RefinementConfig `json:"refinement,omitempty" yaml:"refinement,omitempty" toml:"refinement,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

var (
	defaultMain = detector.Profile{
		PreEventWindow:     0.1,
		EventWindow:        0.5,
		AmplitudeThreshold: 6,
		UpdateThreshold:    10,
		PresetWindow:       1,
		PostEventDuration:  1,
	}
	defaultAux = detector.Profile{
		PreEventWindow:     0.1,
		EventWindow:        0.25,
		AmplitudeThreshold: 6,
		UpdateThreshold:    10,
		PresetWindow:       0.5,
		PostEventDuration:  1,
	}
	defaultTests = map[string][]float64{
		"AmplitudeTest": {0.5, 0.05},
		"SustainTest":   {0.2, 5, 1.2},
		"TrendTest":     {0.2, 0.8},
	}
)

// EmptyPickerConfig returns a config with every field unset.
func EmptyPickerConfig() *PickerConfig {
	return &PickerConfig{}
}

// DefaultPickerConfig returns a config with every field set to its
// default.
func DefaultPickerConfig() *PickerConfig {
	return &PickerConfig{
		Channel:       ptrString("*Z"),
		MaxIterations: ptrInt(5),
		Main:          profileConfig(defaultMain),
		Aux:           profileConfig(defaultAux),
		Tests:         copyTests(defaultTests),
		Refinement: &RefinementConfig{
			Enabled:             ptrBool(true),
			UseRawVariant:       ptrBool(false),
			NoiseWindowSeconds:  ptrFloat64(1),
			SignalWindowSeconds: ptrFloat64(0.5),
		},
	}
}

func profileConfig(p detector.Profile) *ProfileConfig {
	return &ProfileConfig{
		PreEventWindow:     ptrFloat64(p.PreEventWindow),
		EventWindow:        ptrFloat64(p.EventWindow),
		AmplitudeThreshold: ptrFloat64(p.AmplitudeThreshold),
		UpdateThreshold:    ptrFloat64(p.UpdateThreshold),
		PresetWindow:       ptrFloat64(p.PresetWindow),
		PostEventDuration:  ptrFloat64(p.PostEventDuration),
	}
}

func copyTests(in map[string][]float64) map[string][]float64 {
	out := make(map[string][]float64, len(in))
	for k, v := range in {
		out[k] = append([]float64(nil), v...)
	}
	return out
}

// LoadPickerConfig loads a configuration file. The format follows the
// extension: .json, .yaml, .yml or .toml. Unknown keys are rejected.
func LoadPickerConfig(path string) (*PickerConfig, error) {
	cleanPath := filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(cleanPath))
	switch ext {
	case ".json", ".yaml", ".yml", ".toml":
	default:
		return nil, fmt.Errorf("config file must have .json, .yaml, .yml or .toml extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data, ext)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Parse decodes data in the format named by ext (with or without the
// leading dot). It does not validate.
func Parse(data []byte, ext string) (*PickerConfig, error) {
	cfg := EmptyPickerConfig()
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	case "toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config TOML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching upwards from
// the working directory. It panics if the file cannot be loaded and is
// meant for tests.
func MustLoadDefaultConfig() *PickerConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadPickerConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks every field that is set.
func (c *PickerConfig) Validate() error {
	if c.Channel != nil && strings.TrimSpace(*c.Channel) == "" {
		return fmt.Errorf("channel must not be empty")
	}
	if c.MaxIterations != nil && *c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1, got %d", *c.MaxIterations)
	}
	if err := c.GetMain().Validate(); err != nil {
		return fmt.Errorf("main: %w", err)
	}
	if err := c.GetAux().Validate(); err != nil {
		return fmt.Errorf("aux: %w", err)
	}
	for name, params := range c.Tests {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("tests: empty test name")
		}
		for i, p := range params {
			if math.IsNaN(p) {
				return fmt.Errorf("tests: %s parameter %d is NaN", name, i)
			}
		}
	}
	if c.GetRefinementEnabled() {
		if err := c.GetRefinement().Validate(); err != nil {
			return fmt.Errorf("refinement: %w", err)
		}
	}
	return nil
}

// GetChannel returns the channel selector or "*Z".
func (c *PickerConfig) GetChannel() string {
	if c.Channel == nil {
		return "*Z"
	}
	return *c.Channel
}

// GetMaxIterations returns the round limit or 5.
func (c *PickerConfig) GetMaxIterations() int {
	if c.MaxIterations == nil {
		return 5
	}
	return *c.MaxIterations
}

// GetMain returns the first-round profile, filling unset fields from the
// defaults.
func (c *PickerConfig) GetMain() detector.Profile {
	return c.Main.merge(defaultMain)
}

// GetAux returns the profile for later rounds.
func (c *PickerConfig) GetAux() detector.Profile {
	return c.Aux.merge(defaultAux)
}

func (p *ProfileConfig) merge(def detector.Profile) detector.Profile {
	if p == nil {
		return def
	}
	out := def
	setFloat(&out.PreEventWindow, p.PreEventWindow)
	setFloat(&out.EventWindow, p.EventWindow)
	setFloat(&out.AmplitudeThreshold, p.AmplitudeThreshold)
	setFloat(&out.UpdateThreshold, p.UpdateThreshold)
	setFloat(&out.PresetWindow, p.PresetWindow)
	setFloat(&out.PostEventDuration, p.PostEventDuration)
	return out
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// GetTests returns a copy of the configured tests, or the defaults when
// the file has no tests section.
func (c *PickerConfig) GetTests() map[string][]float64 {
	if c.Tests == nil {
		return copyTests(defaultTests)
	}
	return copyTests(c.Tests)
}

// GetRefinementEnabled reports whether accepted picks are refined.
func (c *PickerConfig) GetRefinementEnabled() bool {
	if c.Refinement == nil || c.Refinement.Enabled == nil {
		return true
	}
	return *c.Refinement.Enabled
}

// GetRefinement returns the refinement windows and variant choice.
func (c *PickerConfig) GetRefinement() refine.Config {
	out := refine.Config{NoiseWindow: 1, SignalWindow: 0.5}
	if r := c.Refinement; r != nil {
		if r.UseRawVariant != nil {
			out.UseRaw = *r.UseRawVariant
		}
		setFloat(&out.NoiseWindow, r.NoiseWindowSeconds)
		setFloat(&out.SignalWindow, r.SignalWindowSeconds)
	}
	return out
}

// ToPickerConfig resolves every default into a picker.Config.
func (c *PickerConfig) ToPickerConfig() picker.Config {
	return picker.Config{
		Channel:       c.GetChannel(),
		MaxIterations: c.GetMaxIterations(),
		Main:          c.GetMain(),
		Aux:           c.GetAux(),
		Tests:         c.GetTests(),
		Refine:        c.GetRefinementEnabled(),
		Refinement:    c.GetRefinement(),
	}
}
