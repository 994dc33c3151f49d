// Package cli implements the borrowck command line interface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/borrowck/internal/runlog"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the borrowck CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(runlog.UUIDv7Generator{})
}

// newRootCommand wires the commands with an explicit run-ID generator.
// Tests substitute a fixed generator for deterministic run-log contents.
func newRootCommand(ids runlog.RunIDGenerator) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "borrowck",
		Short: "borrowck - borrow-stack aliasing checker",
		Long:  "Checks abstract memory-operation traces against a borrow-stack aliasing discipline and reports undefined behavior.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewCheckCommand(opts, ids))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts, ids))
	cmd.AddCommand(NewLogCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
