package waveform

import (
	"fmt"
	"path"
	"sort"
)

// Variant names understood by the picker.
const (
	Processed = "processed"
	Raw       = "raw"
)

// Stream is a set of traces, typically one per channel of a station.
type Stream []*Trace

// Select returns the single trace whose channel code matches pattern.
// Patterns use shell globbing, so "*Z" selects the vertical component.
func (s Stream) Select(pattern string) (*Trace, error) {
	var found *Trace
	for _, tr := range s {
		if tr == nil {
			continue
		}
		ok, err := path.Match(pattern, tr.Channel)
		if err != nil {
			return nil, fmt.Errorf("%w: channel pattern %q: %v", ErrBadInput, pattern, err)
		}
		if !ok {
			continue
		}
		if found != nil {
			return nil, fmt.Errorf("%w: channel pattern %q matches both %s and %s",
				ErrBadInput, pattern, found.ID(), tr.ID())
		}
		found = tr
	}
	if found == nil {
		return nil, fmt.Errorf("%w: no trace matches channel %q", ErrBadInput, pattern)
	}
	return found, nil
}

// Variants maps a variant name (Processed, Raw, ...) to its stream.
type Variants struct {
	streams map[string]Stream
}

// NewVariants creates a set holding the processed stream.
func NewVariants(processed Stream) *Variants {
	v := &Variants{streams: make(map[string]Stream)}
	if processed != nil {
		v.streams[Processed] = processed
	}
	return v
}

// Add registers or replaces a named variant.
func (v *Variants) Add(name string, s Stream) *Variants {
	v.streams[name] = s
	return v
}

// Has reports whether a variant with at least one trace is present.
func (v *Variants) Has(name string) bool {
	if v == nil {
		return false
	}
	return len(v.streams[name]) > 0
}

// Names returns the registered variant names in sorted order.
func (v *Variants) Names() []string {
	names := make([]string, 0, len(v.streams))
	for name := range v.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trace returns a fresh copy of the trace matching channel in the named
// variant. Callers own the returned trace.
func (v *Variants) Trace(variant, channel string) (*Trace, error) {
	if v == nil {
		return nil, fmt.Errorf("%w: no waveform variants", ErrBadInput)
	}
	s, ok := v.streams[variant]
	if !ok {
		return nil, fmt.Errorf("%w: unknown waveform variant %q", ErrBadInput, variant)
	}
	tr, err := s.Select(channel)
	if err != nil {
		return nil, err
	}
	if err := tr.Validate(); err != nil {
		return nil, err
	}
	return tr.Copy(), nil
}
