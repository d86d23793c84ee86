package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/onset.picker/internal/picks"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrRunNotFound is returned when no run has the requested ID.
var ErrRunNotFound = errors.New("run not found")

// Run is the summary row of one picker run.
type Run struct {
	RunID         string
	Channel       string
	TraceID       string
	StartedAt     time.Time
	Elapsed       time.Duration
	MaxIterations int
	AcceptedCount int
	ConfigJSON    json.RawMessage
	Version       string
}

// RunStore reads and writes picker runs.
type RunStore struct {
	db *DB
}

// NewRunStore returns a store backed by db, which must be migrated.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Insert writes run and its records in one transaction. A run without an
// ID is assigned a new UUID. The ID is returned.
func (s *RunStore) Insert(run *Run, records []picks.Record) (string, error) {
	if run.RunID == "" {
		run.RunID = uuid.New().String()
	}

	type pickRow struct {
		rec     picks.Record
		results string
		curve   sql.NullString
	}
	rows := make([]pickRow, 0, len(records))
	for _, rec := range records {
		results, err := json.Marshal(nonNilResults(rec.TestResults))
		if err != nil {
			return "", fmt.Errorf("marshal test results of iteration %d: %w", rec.Iteration, err)
		}
		row := pickRow{rec: rec, results: string(results)}
		if rec.RefinementCurve != nil {
			curve, err := json.Marshal(rec.RefinementCurve)
			if err != nil {
				return "", fmt.Errorf("marshal refinement curve of iteration %d: %w", rec.Iteration, err)
			}
			row.curve = sql.NullString{String: string(curve), Valid: true}
		}
		rows = append(rows, row)
	}

	err := s.db.retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`
			INSERT INTO picker_runs (
				run_id, channel, trace_id, started_at, elapsed_ns,
				max_iterations, accepted_count, config_json, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.RunID, run.Channel, run.TraceID, run.StartedAt.UTC().Format(timeLayout),
			int64(run.Elapsed), run.MaxIterations, run.AcceptedCount,
			nullJSON(run.ConfigJSON), nullStr(run.Version),
		); err != nil {
			return err
		}

		for _, r := range rows {
			if _, err := tx.Exec(`
				INSERT INTO picker_picks (
					run_id, iteration, primary_time_ns, primary_tag, accepted,
					test_results_json, refined_time_ns, refinement_curve_json
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				run.RunID, r.rec.Iteration, nullTime(r.rec.PrimaryTime), nullStr(r.rec.PrimaryTag),
				nullBool(r.rec.Accepted), r.results, nullTime(r.rec.RefinedTime), r.curve,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return "", fmt.Errorf("inserting run %s: %w", run.RunID, err)
	}
	return run.RunID, nil
}

const runColumns = `run_id, channel, trace_id, started_at, elapsed_ns,
	max_iterations, accepted_count, config_json, version`

// Get returns the run with the given ID.
func (s *RunStore) Get(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM picker_runs WHERE run_id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, nil
}

// List returns up to limit runs, most recent first. A limit <= 0 returns
// every run.
func (s *RunStore) List(limit int) ([]*Run, error) {
	q := `SELECT ` + runColumns + ` FROM picker_runs ORDER BY started_at DESC, run_id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

// Records rebuilds the pick records of a run. They are replayed through a
// picks.Registry so a corrupted table cannot produce records that break
// the registry invariants.
func (s *RunStore) Records(runID string) ([]picks.Record, error) {
	run, err := s.Get(runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`
		SELECT iteration, primary_time_ns, primary_tag, accepted,
		       test_results_json, refined_time_ns, refinement_curve_json
		FROM picker_picks
		WHERE run_id = ?
		ORDER BY iteration`, runID)
	if err != nil {
		return nil, fmt.Errorf("query picks of %s: %w", runID, err)
	}
	var scanned []picks.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan pick of %s: %w", runID, err)
		}
		scanned = append(scanned, rec)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	reg := picks.New(run.MaxIterations)
	for _, rec := range scanned {
		fields := picks.Fields{
			picks.FieldPrimaryTime:     rec.PrimaryTime,
			picks.FieldPrimaryTag:      rec.PrimaryTag,
			picks.FieldAccepted:        rec.Accepted,
			picks.FieldTestResults:     rec.TestResults,
			picks.FieldRefinedTime:     rec.RefinedTime,
			picks.FieldRefinementCurve: rec.RefinementCurve,
		}
		if err := reg.Store(rec.Iteration, fields); err != nil {
			return nil, fmt.Errorf("run %s iteration %d: %w", runID, rec.Iteration, err)
		}
	}
	return reg.All(), nil
}

// Delete removes a run and its picks.
func (s *RunStore) Delete(runID string) error {
	return s.db.retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM picker_runs WHERE run_id = ?`, runID)
		if err != nil {
			return fmt.Errorf("delete run: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var startedAt string
	var elapsed int64
	var configStr, version sql.NullString
	if err := row.Scan(&r.RunID, &r.Channel, &r.TraceID, &startedAt, &elapsed,
		&r.MaxIterations, &r.AcceptedCount, &configStr, &version); err != nil {
		return nil, err
	}
	t, err := time.Parse(timeLayout, startedAt)
	if err != nil {
		return nil, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	r.StartedAt = t
	r.Elapsed = time.Duration(elapsed)
	if configStr.Valid {
		r.ConfigJSON = json.RawMessage(configStr.String)
	}
	r.Version = version.String
	return &r, nil
}

func scanRecord(row scanner) (picks.Record, error) {
	var rec picks.Record
	var primaryNs, refinedNs, accepted sql.NullInt64
	var tag, curveStr sql.NullString
	var resultsStr string
	if err := row.Scan(&rec.Iteration, &primaryNs, &tag, &accepted,
		&resultsStr, &refinedNs, &curveStr); err != nil {
		return rec, err
	}
	rec.PrimaryTime = timeFromNs(primaryNs)
	rec.RefinedTime = timeFromNs(refinedNs)
	rec.PrimaryTag = tag.String
	if accepted.Valid {
		a := accepted.Int64 != 0
		rec.Accepted = &a
	}
	rec.TestResults = map[string]picks.TestResult{}
	if err := json.Unmarshal([]byte(resultsStr), &rec.TestResults); err != nil {
		return rec, fmt.Errorf("parse test results: %w", err)
	}
	if curveStr.Valid {
		if err := json.Unmarshal([]byte(curveStr.String), &rec.RefinementCurve); err != nil {
			return rec, fmt.Errorf("parse refinement curve: %w", err)
		}
	}
	return rec, nil
}

func nonNilResults(m map[string]picks.TestResult) map[string]picks.TestResult {
	if m == nil {
		return map[string]picks.TestResult{}
	}
	return m
}

func timeFromNs(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(0, v.Int64).UTC()
	return &t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}

func nullBool(b *bool) any {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullJSON(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
