package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/borrowck/internal/compiler"
	"github.com/roach88/borrowck/internal/interp"
	"github.com/roach88/borrowck/internal/ir"
	"github.com/roach88/borrowck/internal/report"
	"github.com/roach88/borrowck/internal/runlog"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	DB    string // run log database path, empty disables logging
	RunID string // fixed run ID, empty defers to the generator
	IDs   runlog.RunIDGenerator
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions, ids runlog.RunIDGenerator) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts, IDs: ids}

	cmd := &cobra.Command{
		Use:   "check <trace-file>",
		Short: "Run the aliasing checker on a trace program",
		Long: `Compile a CUE trace program, execute it against the borrow-stack
discipline, and report the verdict.

Exit codes:
  0 - Program is sound
  1 - Undefined behavior found, or the trace is malformed
  2 - Command error (missing file, unreadable database)

Examples:
  borrowck check trace.cue
  borrowck check trace.cue --db runs.db
  borrowck check trace.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "append the run to a SQLite run log")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "fixed run ID (default: generated UUIDv7)")

	return cmd
}

func runCheck(opts *CheckOptions, tracePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(tracePath); os.IsNotExist(err) {
		_ = formatter.Error("E005", fmt.Sprintf("trace file not found: %s", tracePath), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("trace file not found: %s", tracePath))
	}

	prog, err := compiler.LoadFile(tracePath)
	if err != nil {
		_ = formatter.Error("E010", fmt.Sprintf("failed to compile trace: %v", err), nil)
		return WrapExitError(ExitFailure, "trace compilation failed", err)
	}

	if verrs := ir.Validate(prog); len(verrs) > 0 {
		_ = formatter.Error("E011", fmt.Sprintf("invalid trace: %s", verrs[0]), verrs)
		return NewExitError(ExitFailure, fmt.Sprintf("trace validation failed with %d error(s)", len(verrs)))
	}

	formatter.VerboseLog("Running %s (%d ops)", prog.Name, len(prog.Ops))

	out, err := interp.New().Run(prog)
	if err != nil {
		_ = formatter.Error("E012", fmt.Sprintf("malformed trace: %v", err), nil)
		return WrapExitError(ExitFailure, "trace execution failed", err)
	}

	rep, err := report.Build(prog, out)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build report", err)
	}

	if opts.DB != "" {
		if err := logRun(opts, rep); err != nil {
			return WrapExitError(ExitCommandError, "failed to write run log", err)
		}
		formatter.VerboseLog("Run logged to %s", opts.DB)
	}

	if opts.Format == "json" {
		if err := formatter.Success(rep); err != nil {
			return err
		}
	} else {
		if err := report.RenderText(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
	}

	if rep.Violation != nil {
		return NewExitError(ExitFailure, fmt.Sprintf("undefined behavior: %s at op %d", rep.Violation.Rule, rep.Violation.OpIndex))
	}
	return nil
}

// logRun appends the report to the run log database.
func logRun(opts *CheckOptions, rep *report.Result) error {
	store, err := runlog.Open(opts.DB)
	if err != nil {
		return err
	}
	defer store.Close()

	id := opts.RunID
	if id == "" {
		id = opts.IDs.Generate()
	}
	return store.WriteRun(context.Background(), id, rep)
}
