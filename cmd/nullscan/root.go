package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/nullscan/internal/log"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for nullscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nullscan",
		Short: "Report missing values per column of tabular data",
		Long: `nullscan finds the columns of a dataset that contain missing values.

For every such column it prints the number of present values, the number of
missing values and the column's dtype, then the number of affected columns.
CSV, TSV, JSON, YAML, SQLite, HTML and Arrow tables are supported.

Every report is also recorded in a local history database, so later runs
can be compared with 'nullscan history'.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", logFormatText, "Log format on stderr: text or json")

	cmd.AddCommand(NewReportCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Log formats accepted by --log-format.
const (
	logFormatText = "text"
	logFormatJSON = "json"
)

// newLogger creates the stderr logger selected by --verbose and --log-format.
func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	verbose := getVerboseFlag(cmd)

	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}

	switch format {
	case logFormatText:
		return log.NewSecureLogger(cmd.ErrOrStderr(), verbose), nil
	case logFormatJSON:
		return log.NewSecureJSONLogger(cmd.ErrOrStderr(), verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (expected %s or %s)", format, logFormatText, logFormatJSON)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
