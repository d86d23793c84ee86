package picks

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/banshee-data/onset.picker/internal/waveform"
)

// ErrUnknownField is returned by Store for a field name outside Schema.
var ErrUnknownField = errors.New("unknown field")

// Fields maps schema field names to new values for Store. A nil value
// clears the field.
type Fields map[string]any

// Registry stores the records of a single run keyed by iteration.
type Registry struct {
	capacity int
	records  []Record // records[i].Iteration == i+1
}

// New creates a registry accepting at most capacity iterations.
// A non-positive capacity means unbounded.
func New(capacity int) *Registry {
	return &Registry{capacity: capacity}
}

// Reset discards every record.
func (r *Registry) Reset() {
	r.records = nil
}

// Capacity returns the maximum number of iterations.
func (r *Registry) Capacity() int { return r.capacity }

// Len returns the number of stored iterations.
func (r *Registry) Len() int { return len(r.records) }

// Store creates or updates the record for iteration. All field names are
// checked before anything is written, so a failed Store leaves the
// registry unchanged.
func (r *Registry) Store(iteration int, fields Fields) error {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !isSchemaField(name) {
			return fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
	}

	var rec Record
	create := false
	switch {
	case iteration >= 1 && iteration <= len(r.records):
		rec = r.records[iteration-1].Clone()
	case iteration == len(r.records)+1:
		if err := r.checkCreate(iteration); err != nil {
			return err
		}
		rec = Record{Iteration: iteration, TestResults: map[string]TestResult{}}
		create = true
	default:
		return fmt.Errorf("%w: iteration %d would leave a gap after %d records",
			waveform.ErrBadInput, iteration, len(r.records))
	}

	for _, name := range names {
		if err := assign(&rec, name, fields[name]); err != nil {
			return err
		}
	}

	if create {
		r.records = append(r.records, rec)
	} else {
		r.records[iteration-1] = rec
	}
	return nil
}

func (r *Registry) checkCreate(iteration int) error {
	if r.capacity > 0 && iteration > r.capacity {
		return fmt.Errorf("%w: iteration %d exceeds capacity %d", waveform.ErrBadInput, iteration, r.capacity)
	}
	if n := len(r.records); n > 0 && !r.records[n-1].HasPrimary() {
		return fmt.Errorf("%w: iteration %d follows iteration %d which had no candidate",
			waveform.ErrBadInput, iteration, n)
	}
	return nil
}

// Get returns a copy of the record for iteration.
func (r *Registry) Get(iteration int) (Record, bool) {
	if iteration < 1 || iteration > len(r.records) {
		return Record{}, false
	}
	return r.records[iteration-1].Clone(), true
}

// All returns copies of every record in ascending iteration order. The
// result is never nil.
func (r *Registry) All() []Record {
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	return out
}

// Accepted returns copies of the accepted records in iteration order.
func (r *Registry) Accepted() []Record {
	out := make([]Record, 0, len(r.records))
	for _, rec := range r.records {
		if rec.IsAccepted() {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func isSchemaField(name string) bool {
	for _, f := range Schema {
		if f == name {
			return true
		}
	}
	return false
}

func assign(rec *Record, name string, value any) error {
	switch name {
	case FieldIteration:
		v, ok := value.(int)
		if !ok || v != rec.Iteration {
			return fmt.Errorf("%w: iteration field %v does not match key %d", waveform.ErrBadInput, value, rec.Iteration)
		}
	case FieldPrimaryTime:
		t, err := timeValue(name, value)
		if err != nil {
			return err
		}
		rec.PrimaryTime = t
	case FieldRefinedTime:
		t, err := timeValue(name, value)
		if err != nil {
			return err
		}
		rec.RefinedTime = t
	case FieldPrimaryTag:
		switch v := value.(type) {
		case nil:
			rec.PrimaryTag = ""
		case string:
			rec.PrimaryTag = v
		default:
			return typeError(name, value)
		}
	case FieldAccepted:
		switch v := value.(type) {
		case nil:
			rec.Accepted = nil
		case bool:
			rec.Accepted = &v
		case *bool:
			if v == nil {
				rec.Accepted = nil
			} else {
				b := *v
				rec.Accepted = &b
			}
		default:
			return typeError(name, value)
		}
	case FieldTestResults:
		switch v := value.(type) {
		case nil:
			rec.TestResults = map[string]TestResult{}
		case map[string]TestResult:
			rec.TestResults = make(map[string]TestResult, len(v))
			for k, res := range v {
				res.Values = append([]float64(nil), res.Values...)
				rec.TestResults[k] = res
			}
		default:
			return typeError(name, value)
		}
	case FieldRefinementCurve:
		switch v := value.(type) {
		case nil:
			rec.RefinementCurve = nil
		case []float64:
			rec.RefinementCurve = append([]float64(nil), v...)
		default:
			return typeError(name, value)
		}
	}
	return nil
}

func timeValue(name string, value any) (*time.Time, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &v, nil
	case *time.Time:
		if v == nil {
			return nil, nil
		}
		t := *v
		return &t, nil
	default:
		return nil, typeError(name, value)
	}
}

func typeError(name string, value any) error {
	return fmt.Errorf("%w: field %s cannot hold %T", waveform.ErrBadInput, name, value)
}
