package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/borrowck/internal/compiler"
	"github.com/roach88/borrowck/internal/ir"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                  `json:"valid"`
	Errors []*ir.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <trace-file|dir>",
		Short: "Validate trace programs without running them",
		Long: `Compile CUE trace programs and run structural and semantic
validation without executing them. Faster feedback than check for
authoring traces.

With a directory argument, every .cue file under it is validated,
stopping at the first file that fails.

Exit codes:
  0 - All traces are valid
  1 - A trace failed validation
  2 - Command error (missing path)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, tracePath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	info, err := os.Stat(tracePath)
	if os.IsNotExist(err) {
		_ = formatter.Error("E005", fmt.Sprintf("trace file not found: %s", tracePath), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("trace file not found: %s", tracePath))
	}
	if err == nil && info.IsDir() {
		return runValidateDir(opts, formatter, tracePath)
	}

	prog, err := compiler.LoadFile(tracePath)
	if err != nil {
		var cerr *compiler.CompileError
		if errors.As(err, &cerr) {
			_ = formatter.Error("E010", cerr.Error(), nil)
		} else {
			_ = formatter.Error("E010", fmt.Sprintf("failed to compile trace: %v", err), nil)
		}
		return WrapExitError(ExitFailure, "trace compilation failed", err)
	}

	formatter.VerboseLog("Compiled %s (%d ops)", prog.Name, len(prog.Ops))

	verrs := ir.Validate(prog)
	if len(verrs) > 0 {
		return outputValidationErrors(formatter, verrs)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s is a valid trace (%d ops)\n", prog.Name, len(prog.Ops))
	return nil
}

// runValidateDir validates every .cue trace under dir, stopping at the
// first file that fails to compile or validate.
func runValidateDir(opts *RootOptions, formatter *OutputFormatter, dir string) error {
	progs, err := compiler.LoadDir(dir)
	if err != nil {
		_ = formatter.Error("E010", fmt.Sprintf("failed to compile traces: %v", err), nil)
		return WrapExitError(ExitFailure, "trace compilation failed", err)
	}

	for _, prog := range progs {
		if verrs := ir.Validate(prog); len(verrs) > 0 {
			if opts.Format != "json" {
				fmt.Fprintf(formatter.Writer, "program %q:\n", prog.Name)
			}
			return outputValidationErrors(formatter, verrs)
		}
		formatter.VerboseLog("Validated %s (%d ops)", prog.Name, len(prog.Ops))
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d valid trace(s) in %s\n", len(progs), dir)
	return nil
}

// outputValidationErrors outputs validation errors and returns the failure.
func outputValidationErrors(formatter *OutputFormatter, verrs []*ir.ValidationError) error {
	if formatter.Format == "json" {
		_ = formatter.Error(verrs[0].Code, verrs[0].Message, ValidationResult{
			Valid:  false,
			Errors: verrs,
		})
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(verrs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, verr := range verrs {
		fmt.Fprintf(formatter.Writer, "  op %d: %s: %s\n", verr.Index, verr.Code, verr.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(verrs)))
}
