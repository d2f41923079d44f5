package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/crucible/internal/trace"
)

// Ingest stores a loaded trace in the archive. The run token keys the
// run: ingesting the same trace twice is a no-op, reported by the added
// return. Traces without an experiment_begin entry cannot be archived.
func (a *Archive) Ingest(ctx context.Context, tr *trace.Trace, sourcePath string) (added bool, err error) {
	begin, ok := findBegin(tr)
	if !ok {
		return false, errors.New("trace has no experiment_begin entry")
	}
	if begin.RunToken == "" {
		return false, errors.New("trace run has no run token")
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("ingest: %w", err)
	}
	defer tx.Rollback()

	var finished any
	if end, ok := findEnd(tr); ok {
		finished = end.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_token, experiment_name, run_number, started_at, finished_at, entry_count, source_path)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_token) DO NOTHING
	`,
		begin.RunToken,
		begin.Experiment,
		begin.RunNumber,
		begin.Timestamp.UTC().Format(time.RFC3339Nano),
		finished,
		len(tr.Entries),
		sourcePath,
	)
	if err != nil {
		return false, fmt.Errorf("ingest run: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ingest run: %w", err)
	}
	if inserted == 0 {
		// already archived
		return false, nil
	}

	for idx, entry := range tr.Entries {
		raw, err := trace.Marshal(entry)
		if err != nil {
			return false, fmt.Errorf("ingest entry %d: %w", idx, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO entries (run_token, idx, event, timestamp, part_name, entry)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`,
			begin.RunToken,
			idx,
			entry.Event(),
			entry.When().UTC().Format(time.RFC3339Nano),
			entryPart(entry),
			string(raw),
		)
		if err != nil {
			return false, fmt.Errorf("ingest entry %d: %w", idx, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("ingest: %w", err)
	}
	return true, nil
}

func findBegin(tr *trace.Trace) (trace.ExperimentBegin, bool) {
	for _, entry := range tr.Entries {
		if begin, ok := entry.(trace.ExperimentBegin); ok {
			return begin, true
		}
	}
	return trace.ExperimentBegin{}, false
}

func findEnd(tr *trace.Trace) (trace.ExperimentEnd, bool) {
	for _, entry := range tr.Entries {
		if end, ok := entry.(trace.ExperimentEnd); ok {
			return end, true
		}
	}
	return trace.ExperimentEnd{}, false
}

// entryPart extracts the part name an entry is about, "" for run-level
// entries.
func entryPart(entry trace.Entry) string {
	switch e := entry.(type) {
	case trace.AtPart:
		return e.Part
	case trace.Error:
		return e.Part
	case trace.ResearcherDecision:
		return e.NextPart
	case trace.Step:
		return e.Part
	case trace.Decision:
		return e.Part
	case trace.FlowBegin:
		return e.Flow
	case trace.FlowEnd:
		return e.Flow
	case trace.PartAdded:
		return e.Part
	case trace.PartRemoved:
		return e.Part
	default:
		return ""
	}
}
