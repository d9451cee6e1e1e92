package commands

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"unilog/internal/output"
	apperrors "unilog/pkg/errors"
)

func newCorrelateCmd(e *env) *cobra.Command {
	var (
		format    string
		strategy  string
		window    float64
		outFormat string
	)

	cmd := &cobra.Command{
		Use:   "correlate FILES...",
		Short: "Correlate records across multiple log files",
		Long: "Merge two or more log files by timestamp and group related records\n" +
			"by shared identifier, time proximity or session.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateChoice("strategy", strategy, "request_id", "timestamp", "session", "all"); err != nil {
				return err
			}
			if err := validateChoice("output", outFormat, "table", "json"); err != nil {
				return err
			}
			if len(args) < 2 {
				return apperrors.ConfigError("correlate", "correlation requires at least 2 files")
			}

			for _, path := range args {
				e.printInfo("Added source: %s", path)
			}

			result, err := e.app.Correlate(args, strategy, format, window)
			if err != nil {
				return err
			}

			if !e.quiet {
				e.printInfo("\n%s", color.New(color.Bold).Sprint("Correlation Results"))
				e.printInfo("  Groups found: %s", color.CyanString("%d", len(result.Groups)))
				e.printInfo("  Orphan entries: %s", color.YellowString("%d", len(result.Orphans)))
			}
			return output.RenderCorrelation(e.out, result, outFormat)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "log format for all files (skips detection)")
	cmd.Flags().StringVarP(&strategy, "strategy", "s", "all", "strategy: request_id, timestamp, session, all")
	cmd.Flags().Float64VarP(&window, "window", "w", 1.0, "time window in seconds for the timestamp strategy")
	cmd.Flags().StringVarP(&outFormat, "output", "o", "table", "output format: table, json")
	return cmd
}
