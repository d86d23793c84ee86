// Package picks holds the per-iteration pick records produced by one
// picker run and enforces the registry invariants: iteration keys are
// exactly 1..k without gaps, k never exceeds the configured capacity, and
// no record follows a round that produced no primary candidate.
package picks

import (
	"time"
)

// Field names of the record schema, as accepted by Registry.Store.
const (
	FieldIteration       = "iteration"
	FieldPrimaryTime     = "primary_time"
	FieldPrimaryTag      = "primary_tag"
	FieldAccepted        = "accepted"
	FieldTestResults     = "test_results"
	FieldRefinedTime     = "refined_time"
	FieldRefinementCurve = "refinement_curve"
)

// Schema lists every field name Store accepts.
var Schema = []string{
	FieldIteration,
	FieldPrimaryTime,
	FieldPrimaryTag,
	FieldAccepted,
	FieldTestResults,
	FieldRefinedTime,
	FieldRefinementCurve,
}

// TestResult is the verdict and diagnostic values of one validation test.
type TestResult struct {
	Passed bool      `json:"passed"`
	Values []float64 `json:"values,omitempty"`
}

// Record is the outcome of one picker iteration. Nil pointers mean the
// stage did not run (no candidate, not yet validated, not refined).
type Record struct {
	Iteration       int                   `json:"iteration"`
	PrimaryTime     *time.Time            `json:"primary_time,omitempty"`
	PrimaryTag      string                `json:"primary_tag,omitempty"`
	Accepted        *bool                 `json:"accepted,omitempty"`
	TestResults     map[string]TestResult `json:"test_results"`
	RefinedTime     *time.Time            `json:"refined_time,omitempty"`
	RefinementCurve []float64             `json:"refinement_curve,omitempty"`
}

// HasPrimary reports whether the detector produced a candidate this round.
func (r Record) HasPrimary() bool { return r.PrimaryTime != nil }

// IsAccepted reports whether the candidate passed validation.
func (r Record) IsAccepted() bool { return r.Accepted != nil && *r.Accepted }

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	out := r
	if r.PrimaryTime != nil {
		t := *r.PrimaryTime
		out.PrimaryTime = &t
	}
	if r.Accepted != nil {
		a := *r.Accepted
		out.Accepted = &a
	}
	if r.RefinedTime != nil {
		t := *r.RefinedTime
		out.RefinedTime = &t
	}
	out.TestResults = make(map[string]TestResult, len(r.TestResults))
	for name, res := range r.TestResults {
		res.Values = append([]float64(nil), res.Values...)
		out.TestResults[name] = res
	}
	if r.RefinementCurve != nil {
		out.RefinementCurve = append([]float64(nil), r.RefinementCurve...)
	}
	return out
}
