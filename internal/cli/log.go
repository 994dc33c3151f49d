package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/borrowck/internal/runlog"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	DB          string
	ProgramHash string
	Limit       int
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log [run-id]",
		Short: "Inspect the run log",
		Long: `List recorded checker runs, or show one run in full.

With no argument, lists runs in creation order (UUIDv7 IDs sort by
time). With a run ID, prints the stored canonical report.

Exit codes:
  0 - Success
  1 - Run not found
  2 - Command error (missing database)

Examples:
  borrowck log --db runs.db
  borrowck log --db runs.db --program-hash <hash> --limit 10
  borrowck log --db runs.db 0190a8b2-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				return runLogShow(opts, args[0], cmd)
			}
			return runLogList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DB, "db", "", "run log database path (required)")
	cmd.Flags().StringVar(&opts.ProgramHash, "program-hash", "", "only list runs of this program")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of runs to list (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func openRunLog(opts *LogOptions) (*runlog.Store, error) {
	if _, err := os.Stat(opts.DB); os.IsNotExist(err) {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.DB))
	}
	store, err := runlog.Open(opts.DB)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open run log", err)
	}
	return store, nil
}

func runLogList(opts *LogOptions, cmd *cobra.Command) error {
	store, err := openRunLog(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), opts.ProgramHash, opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return formatter.Success(runs)
	}

	w := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	for _, run := range runs {
		verdict := run.Status
		if run.Rule != "" {
			verdict = fmt.Sprintf("%s (%s at op %d)", run.Status, run.Rule, run.OpIndex)
		}
		fmt.Fprintf(w, "%s  %s  %-24s %s\n", run.ID, run.CreatedAt, run.Program, verdict)
	}
	fmt.Fprintf(w, "\n%d run(s)\n", len(runs))
	return nil
}

func runLogShow(opts *LogOptions, id string, cmd *cobra.Command) error {
	store, err := openRunLog(opts)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.ReadRun(context.Background(), id)
	if errors.Is(err, runlog.ErrRunNotFound) {
		formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		_ = formatter.Error("E020", fmt.Sprintf("run %q not found", id), nil)
		return NewExitError(ExitFailure, fmt.Sprintf("run %q not found", id))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	if opts.Format == "json" {
		formatter := &OutputFormatter{Format: "json", Writer: cmd.OutOrStdout()}
		return formatter.Success(run)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "run     %s\n", run.ID)
	fmt.Fprintf(w, "program %s\n", run.Program)
	fmt.Fprintf(w, "hash    %s\n", run.ProgramHash)
	fmt.Fprintf(w, "status  %s\n", run.Status)
	if run.Rule != "" {
		fmt.Fprintf(w, "rule    %s (op %d)\n", run.Rule, run.OpIndex)
	}
	fmt.Fprintf(w, "created %s\n", run.CreatedAt)
	fmt.Fprintf(w, "\n%s\n", run.Result)
	return nil
}
