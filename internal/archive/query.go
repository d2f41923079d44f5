package archive

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RunSummary is one archived run.
type RunSummary struct {
	RunToken   string     `json:"run_token"`
	Experiment string     `json:"experiment_name"`
	RunNumber  int        `json:"run_number"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	EntryCount int        `json:"entry_count"`
	SourcePath string     `json:"source_path,omitempty"`
	ErrorCount int        `json:"error_count"`
}

// ListRuns returns all archived runs, newest first.
func (a *Archive) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT r.run_token, r.experiment_name, r.run_number, r.started_at,
		       r.finished_at, r.entry_count, r.source_path,
		       (SELECT COUNT(*) FROM entries e
		        WHERE e.run_token = r.run_token AND e.event = 'error')
		FROM runs r
		ORDER BY r.started_at DESC, r.run_token
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run      RunSummary
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(
			&run.RunToken, &run.Experiment, &run.RunNumber, &started,
			&finished, &run.EntryCount, &run.SourcePath, &run.ErrorCount,
		); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		run.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("list runs: bad started_at %q: %w", started, err)
		}
		if finished.Valid {
			t, err := time.Parse(time.RFC3339Nano, finished.String)
			if err != nil {
				return nil, fmt.Errorf("list runs: bad finished_at %q: %w", finished.String, err)
			}
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// PartPath returns the sequence of at_part names of one archived run, in
// trace order.
func (a *Archive) PartPath(ctx context.Context, runToken string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT part_name FROM entries
		WHERE run_token = ? AND event = 'at_part'
		ORDER BY idx
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("part path: %w", err)
	}
	defer rows.Close()

	var path []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("part path: %w", err)
		}
		path = append(path, name)
	}
	return path, rows.Err()
}

// Errors returns the error messages recorded in one archived run, in
// trace order, as raw entry JSON.
func (a *Archive) Errors(ctx context.Context, runToken string) ([]string, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT entry FROM entries
		WHERE run_token = ? AND event = 'error'
		ORDER BY idx
	`, runToken)
	if err != nil {
		return nil, fmt.Errorf("run errors: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("run errors: %w", err)
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}
