package commands

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"unilog/internal/output"
	"unilog/internal/security"
	"unilog/internal/sources"
	apperrors "unilog/pkg/errors"
	"unilog/pkg/types"
)

func newParseCmd(e *env) *cobra.Command {
	var (
		format      string
		outFormat   string
		level       string
		limit       int
		grep        string
		normalize   bool
		noNormalize bool
	)

	cmd := &cobra.Command{
		Use:   "parse [FILES...]",
		Short: "Parse log files into normalized records",
		Long: "Parse one or more log files (or stdin) into normalized records.\n" +
			"The format is auto-detected unless given with --format.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateChoice("output", outFormat, "table", "json", "csv", "compact"); err != nil {
				return err
			}
			// level names match case-insensitively
			level = strings.ToLower(level)
			if level != "" {
				if err := validateChoice("level", level, "debug", "info", "warning", "error", "critical"); err != nil {
					return err
				}
			}
			if noNormalize {
				normalize = false
			}

			// The grep pattern is vetted before any input is read, so a
			// hostile pattern cannot be fed the file's contents.
			var pattern *regexp.Regexp
			if grep != "" {
				compiled, err := security.ValidateRegexPattern(grep)
				if err != nil {
					return err
				}
				pattern = compiled
			}

			var records []*types.Record
			if len(args) == 0 {
				stdinRecords, err := e.parseStdin(format, normalize)
				if err != nil {
					return err
				}
				records = stdinRecords
			} else {
				for _, path := range args {
					fileRecords, summary, err := e.app.Parse(path, format, normalize)
					if err != nil {
						e.printError("%v", err)
						continue
					}
					if format == "" && !e.quiet {
						e.printInfo("%s: Detected %s (confidence: %.0f%%)",
							filepath.Base(path), color.CyanString(summary.Format), summary.Confidence*100)
					}
					records = append(records, fileRecords...)
				}
			}

			if level != "" {
				records = types.FilterByLevel(records, types.ParseLevel(level))
			}
			if pattern != nil {
				filtered := records[:0]
				for _, r := range records {
					if pattern.MatchString(r.Message) {
						filtered = append(filtered, r)
					}
				}
				records = filtered
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}

			if len(records) == 0 {
				if !e.quiet {
					e.printInfo("%s", color.YellowString("No matching log entries found."))
				}
				return nil
			}
			return output.RenderRecords(e.out, records, outFormat)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "log format (skips detection)")
	cmd.Flags().StringVarP(&outFormat, "output", "o", "table", "output format: table, json, csv, compact")
	cmd.Flags().StringVarP(&level, "level", "l", "", "minimum level: debug, info, warning, error, critical")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum number of records to show")
	cmd.Flags().StringVarP(&grep, "grep", "g", "", "only records whose message matches this pattern")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "apply the normalization pipeline")
	cmd.Flags().BoolVar(&noNormalize, "no-normalize", false, "disable the normalization pipeline")
	cmd.Flags().MarkHidden("no-normalize")
	return cmd
}

// parseStdin reads records from standard input, refusing an interactive
// terminal.
func (e *env) parseStdin(format string, normalize bool) ([]*types.Record, error) {
	info, err := os.Stdin.Stat()
	if err == nil && info.Mode()&os.ModeCharDevice != 0 {
		return nil, apperrors.ConfigError("parse", "no files specified")
	}
	src := sources.NewPeekSource(os.Stdin, e.cfg.DetectionSampleSize)
	records, _, err := e.app.ParseFrom(src, "", format, normalize)
	return records, err
}
