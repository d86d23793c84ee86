package query

import (
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/onset.picker/internal/picks"
)

// RecordSource supplies the records of a run in iteration order.
type RecordSource interface {
	All() []picks.Record
}

// Records adapts a plain slice to RecordSource.
type Records []picks.Record

// All returns the records unchanged.
func (r Records) All() []picks.Record { return r }

// Item is one extracted pick. Record is set only for non-compact formats.
type Item struct {
	Time   time.Time     `json:"time"`
	Tag    string        `json:"tag"`
	Source Source        `json:"source"`
	Record *picks.Record `json:"record,omitempty"`
}

// Engine answers rank queries over the accepted records of a run.
type Engine struct {
	src RecordSource
}

// New returns an Engine reading from src.
func New(src RecordSource) *Engine {
	return &Engine{src: src}
}

// Extract returns the picks at the selected ranks. Each rank uses the
// source at the same position in sources, repeating sources cyclically
// when there are fewer sources than ranks. Ranks past the number of
// accepted picks with a time for that source are dropped. The result is
// never nil.
func (e *Engine) Extract(sel Selector, sources []Source, format string) ([]Item, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no source given", ErrUnsupportedSource)
	}
	for _, s := range sources {
		if _, err := ParseSource(string(s)); err != nil {
			return nil, err
		}
	}
	if err := sel.validate(); err != nil {
		return nil, err
	}

	var accepted []picks.Record
	if e != nil && e.src != nil {
		for _, rec := range e.src.All() {
			if rec.IsAccepted() {
				accepted = append(accepted, rec)
			}
		}
	}

	sorted := make(map[Source][]picks.Record, 2)
	out := make([]Item, 0)
	for i, rank := range sel.expand(len(accepted)) {
		src, _ := ParseSource(string(sources[i%len(sources)]))
		list, ok := sorted[src]
		if !ok {
			list = sortBy(accepted, src)
			sorted[src] = list
		}
		if rank >= len(list) {
			continue
		}
		rec := list[rank]
		item := Item{Time: *timeOf(rec, src), Tag: rec.PrimaryTag, Source: src}
		if format != Compact {
			c := rec.Clone()
			item.Record = &c
		}
		out = append(out, item)
	}
	return out, nil
}

// ExtractNames is Extract with source names given as strings.
func (e *Engine) ExtractNames(sel Selector, sources []string, format string) ([]Item, error) {
	srcs, err := ParseSources(sources...)
	if err != nil {
		return nil, err
	}
	return e.Extract(sel, srcs, format)
}

// First returns the rank-0 accepted pick for src.
func (e *Engine) First(src Source) (Item, bool) {
	items, err := e.Extract(Rank(0), []Source{src}, Verbose)
	if err != nil || len(items) == 0 {
		return Item{}, false
	}
	return items[0], true
}

// sortBy returns the records with a time for src, ascending by that time.
func sortBy(recs []picks.Record, src Source) []picks.Record {
	out := make([]picks.Record, 0, len(recs))
	for _, r := range recs {
		if timeOf(r, src) != nil {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := *timeOf(out[i], src), *timeOf(out[j], src)
		if ti.Equal(tj) {
			return out[i].Iteration < out[j].Iteration
		}
		return ti.Before(tj)
	})
	return out
}

func timeOf(r picks.Record, src Source) *time.Time {
	if src == Refined {
		return r.RefinedTime
	}
	return r.PrimaryTime
}
