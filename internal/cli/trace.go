package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/crucible/internal/trace"
	"github.com/roach88/crucible/internal/value"
)

// TraceResult is the JSON payload of the trace command.
type TraceResult struct {
	Version  int              `json:"version"`
	Entries  []TraceEntryInfo `json:"entries"`
	PartPath []PathStepInfo   `json:"part_path"`
}

// TraceEntryInfo is one timeline row.
type TraceEntryInfo struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Event     string    `json:"event"`
	Detail    string    `json:"detail,omitempty"`
}

// PathStepInfo is one step of the derived part path.
type PathStepInfo struct {
	Part string      `json:"part"`
	Data value.Value `json:"part_data,omitempty"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <trace.json>",
		Short: "Print a run trace",
		Long: `Print the timeline and derived part path of a trace file.

The part path is the at_part sequence the engine followed, the same view
used to rerun or continue the run.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runTrace(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	tr, err := trace.LoadFile(path)
	if err != nil {
		_ = formatter.Error("E_TRACE", err.Error(), nil)
		return WrapExitError(ExitCommandError, "load trace", err)
	}

	result := TraceResult{Version: tr.Version}
	for i, entry := range tr.Entries {
		result.Entries = append(result.Entries, TraceEntryInfo{
			Index:     i,
			Timestamp: entry.When(),
			Event:     entry.Event(),
			Detail:    entryDetail(entry),
		})
	}
	for _, step := range tr.PartPath() {
		result.PartPath = append(result.PartPath, PathStepInfo{Part: step.Part, Data: step.Data})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "Trace %s (version %d, %d entries)\n\n", path, tr.Version, len(tr.Entries))
	for _, row := range result.Entries {
		fmt.Fprintf(formatter.Writer, "%4d  %s  %-19s %s\n",
			row.Index, row.Timestamp.Format(time.RFC3339), row.Event, row.Detail)
	}
	fmt.Fprintln(formatter.Writer, "\nPart path:")
	for _, step := range result.PartPath {
		name := step.Part
		if name == "" {
			name = "(researcher decision)"
		}
		if step.Data != nil {
			fmt.Fprintf(formatter.Writer, "  %s  [data: %s]\n", name, value.Render(step.Data))
		} else {
			fmt.Fprintf(formatter.Writer, "  %s\n", name)
		}
	}
	return nil
}

func entryDetail(entry trace.Entry) string {
	switch e := entry.(type) {
	case trace.ExperimentBegin:
		return fmt.Sprintf("%s run %d", e.Experiment, e.RunNumber)
	case trace.ExperimentEnd:
		return fmt.Sprintf("%s run %d", e.Experiment, e.RunNumber)
	case trace.AtPart:
		if e.Part == "" {
			return "(researcher decision)"
		}
		return e.Part
	case trace.Error:
		return fmt.Sprintf("%s: %s", e.Part, e.Message)
	case trace.ResearcherDecision:
		return e.NextPart
	case trace.Step:
		return e.Part
	case trace.Decision:
		if e.NextPart == "" {
			return e.Part + " -> (undecided)"
		}
		return fmt.Sprintf("%s -> %s", e.Part, e.NextPart)
	case trace.FlowBegin:
		if e.FirstPart == "" {
			return e.Flow
		}
		return fmt.Sprintf("%s -> %s", e.Flow, e.FirstPart)
	case trace.FlowEnd:
		return e.Flow
	case trace.PartAdded:
		return fmt.Sprintf("%s (%s)", e.Part, e.TypeName)
	case trace.PartRemoved:
		return e.Part
	case trace.Custom:
		return e.Name
	default:
		return ""
	}
}
