package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/crucible/internal/config"
	"github.com/roach88/crucible/internal/engine"
	"github.com/roach88/crucible/internal/part"
	"github.com/roach88/crucible/internal/parts"
	"github.com/roach88/crucible/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	RerunFile    string
	ContinueFile string
	OutDir       string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run an experiment",
		Long: `Run an experiment from a config file.

Each run gets its own directory under the experiment's output directory,
holding a copy of the config and the run's trace file. With --rerun the
engine replays an old trace end to end; with --continue it replays the old
trace and hands control back to the researcher where the old run quit.

Example:
  crucible run experiment.yaml
  crucible run experiment.yaml --continue out/demo/run_1/trace.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RerunFile, "rerun", "", "path to an old trace file to rerun")
	cmd.Flags().StringVar(&opts.ContinueFile, "continue", "", "path to an old trace file to continue")
	cmd.Flags().StringVar(&opts.OutDir, "out", "", "override the config's output directory")

	return cmd
}

func runExperiment(opts *RunOptions, configPath string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	mode := engine.ModeNormal
	oldTraceFile := ""
	switch {
	case opts.RerunFile != "" && opts.ContinueFile != "":
		return NewExitError(ExitCommandError, "cannot use both --rerun and --continue")
	case opts.RerunFile != "":
		mode, oldTraceFile = engine.ModeRerun, opts.RerunFile
	case opts.ContinueFile != "":
		mode, oldTraceFile = engine.ModeContinue, opts.ContinueFile
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "load config", err)
	}
	if opts.OutDir != "" {
		cfg.OutDir = filepath.Clean(opts.OutDir)
	}

	var old *trace.Trace
	if oldTraceFile != "" {
		old, err = trace.LoadFile(oldTraceFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "load old trace", err)
		}
	}

	runDir, runNumber, err := buildRunDir(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "prepare run directory", err)
	}
	slog.Info("run directory ready", "dir", runDir, "run", runNumber)

	tw, err := trace.Create(filepath.Join(runDir, "trace.json"))
	if err != nil {
		return WrapExitError(ExitCommandError, "create trace file", err)
	}
	defer func() {
		if closeErr := tw.Close(); closeErr != nil {
			slog.Error("error closing trace file", "error", closeErr)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.New(parts.Builtin(), cfg.Parts,
		engine.WithExperimentName(cfg.Name),
		engine.WithRunNumber(runNumber),
		engine.WithEntry(cfg.StartHere),
		engine.WithInitialData(cfg.Initial),
		engine.WithOperator(newConsoleOperator(cmd.InOrStdin(), cmd.OutOrStdout())),
		engine.WithStdio(cmd.InOrStdin(), cmd.OutOrStdout()),
	)
	if err := eng.Run(ctx, tw, mode, old); err != nil {
		var deviation *engine.PathDeviationError
		if errors.As(err, &deviation) {
			return WrapExitError(ExitFailure, "retrace failed", err)
		}
		if part.IsConfigError(err) {
			return WrapExitError(ExitFailure, "invalid configuration", err)
		}
		return WrapExitError(ExitFailure, "run failed", err)
	}
	return nil
}

// buildRunDir creates out_dir/<experiment>/run_N, where N is one past the
// highest existing run number, and copies the config file into it.
func buildRunDir(cfg *config.Config) (string, int, error) {
	expDir := filepath.Join(cfg.OutDir, cfg.Name)
	if err := os.MkdirAll(expDir, 0o755); err != nil {
		return "", 0, err
	}
	entries, err := os.ReadDir(expDir)
	if err != nil {
		return "", 0, err
	}
	runNumber := 1
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rest, ok := strings.CutPrefix(entry.Name(), "run_")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n >= runNumber {
			runNumber = n + 1
		}
	}
	runDir := filepath.Join(expDir, fmt.Sprintf("run_%d", runNumber))
	if err := os.Mkdir(runDir, 0o755); err != nil {
		return "", 0, err
	}
	if err := copyFile(cfg.Path, filepath.Join(runDir, "config.yaml")); err != nil {
		return "", 0, err
	}
	return runDir, runNumber, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
