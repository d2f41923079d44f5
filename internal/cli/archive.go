package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/crucible/internal/archive"
	"github.com/roach88/crucible/internal/trace"
)

// ArchiveOptions holds flags for the archive command.
type ArchiveOptions struct {
	*RootOptions
	Database string
	List     bool
}

// IngestResult is the JSON payload after archiving a trace.
type IngestResult struct {
	RunToken string `json:"run_token"`
	Added    bool   `json:"added"`
}

// NewArchiveCommand creates the archive command.
func NewArchiveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ArchiveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "archive [trace.json]",
		Short: "Archive run traces in a SQLite database",
		Long: `Archive finalized run traces in a SQLite database, or list what is
already archived.

Ingest is idempotent: archiving the same run twice is a no-op, keyed by
the run token.

Example:
  crucible archive out/demo/run_1/trace.json --db runs.db
  crucible archive --db runs.db --list`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArchive(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the archive database (required)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list archived runs instead of ingesting")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runArchive(opts *ArchiveOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.List == (len(args) == 1) {
		return NewExitError(ExitCommandError, "need either a trace file or --list")
	}

	db, err := archive.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open archive", err)
	}
	defer db.Close()

	if opts.List {
		return listRuns(formatter, db, cmd)
	}
	return ingestTrace(formatter, db, args[0], cmd)
}

func ingestTrace(formatter *OutputFormatter, db *archive.Archive, path string, cmd *cobra.Command) error {
	tr, err := trace.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load trace", err)
	}
	added, err := db.Ingest(cmd.Context(), tr, path)
	if err != nil {
		return WrapExitError(ExitFailure, "archive trace", err)
	}

	token := ""
	for _, entry := range tr.Entries {
		if begin, ok := entry.(trace.ExperimentBegin); ok {
			token = begin.RunToken
			break
		}
	}
	if formatter.Format == "json" {
		return formatter.Success(IngestResult{RunToken: token, Added: added})
	}
	if added {
		fmt.Fprintf(formatter.Writer, "Archived run %s (%d entries)\n", token, len(tr.Entries))
	} else {
		fmt.Fprintf(formatter.Writer, "Run %s already archived\n", token)
	}
	return nil
}

func listRuns(formatter *OutputFormatter, db *archive.Archive, cmd *cobra.Command) error {
	runs, err := db.ListRuns(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "list runs", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No archived runs")
		return nil
	}
	for _, run := range runs {
		state := "unfinished"
		if run.FinishedAt != nil {
			state = run.FinishedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(formatter.Writer, "%s  %s run %d  started %s  finished %s  %d entries, %d error(s)\n",
			run.RunToken, run.Experiment, run.RunNumber,
			run.StartedAt.Format(time.RFC3339), state, run.EntryCount, run.ErrorCount)
	}
	return nil
}
