package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/crucible/internal/config"
	"github.com/roach88/crucible/internal/parts"
)

// ValidationResult holds the outcome of validating a config file.
type ValidationResult struct {
	Valid      bool     `json:"valid"`
	Experiment string   `json:"experiment_name,omitempty"`
	Parts      []string `json:"parts,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Validate an experiment config without running it",
		Long: `Validate an experiment config file without running the experiment.

Checks the config shape against the schema and that every part names a
registered part type.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, configPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return outputValidateError(formatter, err)
	}
	formatter.VerboseLog("Loaded %d part(s) from %s", len(cfg.Parts), configPath)

	reg := parts.Builtin()
	names := make([]string, 0, len(cfg.Parts))
	for _, pc := range cfg.Parts {
		names = append(names, pc.FullName)
		if _, ok := reg.Lookup(pc.TypeName); !ok {
			return outputValidateError(formatter,
				fmt.Errorf("part %q: unknown part type %q", pc.FullName, pc.TypeName))
		}
	}

	if formatter.Format == "json" {
		if err := formatter.Success(ValidationResult{
			Valid:      true,
			Experiment: cfg.Name,
			Parts:      names,
		}); err != nil {
			return err
		}
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ Config valid: experiment %q, %d part(s)\n", cfg.Name, len(names))
	return nil
}

func outputValidateError(formatter *OutputFormatter, err error) error {
	if formatter.Format == "json" {
		_ = formatter.Error("E_CONFIG", err.Error(), nil)
	} else {
		fmt.Fprintf(formatter.Writer, "✗ Validation failed\n\n  %v\n", err)
	}
	return WrapExitError(ExitFailure, "validation failed", err)
}
