// Package query extracts accepted picks from a finished run, ranked by
// either their primary or refined onset time.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/banshee-data/onset.picker/internal/waveform"
)

// ErrUnsupportedSource reports a time source other than primary or refined.
var ErrUnsupportedSource = errors.New("unsupported source")

// Source names which onset time a rank refers to.
type Source string

const (
	Primary Source = "primary"
	Refined Source = "refined"
)

// ParseSource resolves a case-insensitive source name.
func ParseSource(name string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(name))) {
	case Primary:
		return Primary, nil
	case Refined:
		return Refined, nil
	}
	return "", fmt.Errorf("%w: %q (want primary or refined)", ErrUnsupportedSource, name)
}

// ParseSources resolves every name, failing on the first unknown one.
func ParseSources(names ...string) ([]Source, error) {
	out := make([]Source, 0, len(names))
	for _, n := range names {
		s, err := ParseSource(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Format selects the shape of extracted items.
const (
	Compact = "compact"
	Verbose = "verbose"
)

// Selector picks zero-based ranks out of the sorted accepted picks.
type Selector struct {
	all   bool
	ranks []int
}

// Rank selects a single rank.
func Rank(i int) Selector { return Selector{ranks: []int{i}} }

// Ranks selects several ranks in the given order. Duplicates are kept.
func Ranks(i ...int) Selector {
	return Selector{ranks: append([]int(nil), i...)}
}

// AllPicks selects every accepted pick.
func AllPicks() Selector { return Selector{all: true} }

// IsAll reports whether s selects every accepted pick.
func (s Selector) IsAll() bool { return s.all }

// String renders s in the form ParseSelector accepts.
func (s Selector) String() string {
	if s.all {
		return "all"
	}
	parts := make([]string, len(s.ranks))
	for i, r := range s.ranks {
		parts[i] = strconv.Itoa(r)
	}
	return strings.Join(parts, ",")
}

// ParseSelector parses "all", a single rank such as "2", or a comma
// separated list such as "0,3".
func ParseSelector(text string) (Selector, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, "all") {
		return AllPicks(), nil
	}
	if text == "" {
		return Ranks(), nil
	}
	var ranks []int
	for _, part := range strings.Split(text, ",") {
		r, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Selector{}, fmt.Errorf("%w: rank %q is not an integer", waveform.ErrBadInput, part)
		}
		if r < 0 {
			return Selector{}, fmt.Errorf("%w: rank %d is negative", waveform.ErrBadInput, r)
		}
		ranks = append(ranks, r)
	}
	return Ranks(ranks...), nil
}

func (s Selector) validate() error {
	for _, r := range s.ranks {
		if r < 0 {
			return fmt.Errorf("%w: rank %d is negative", waveform.ErrBadInput, r)
		}
	}
	return nil
}

// expand returns the concrete ranks for n accepted picks.
func (s Selector) expand(n int) []int {
	if !s.all {
		return s.ranks
	}
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
