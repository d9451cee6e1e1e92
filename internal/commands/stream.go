package commands

import (
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"unilog/internal/output"
	"unilog/internal/sources"
	"unilog/pkg/types"
)

// recordSeq is the lazy record stream both streaming modes produce.
type recordSeq = iter.Seq2[*types.Record, error]

func newStreamCmd(e *env) *cobra.Command {
	var (
		format     string
		outFormat  string
		progress   bool
		noProgress bool
		follow     bool
	)

	cmd := &cobra.Command{
		Use:   "stream FILE",
		Short: "Stream-parse a large log file",
		Long: "Parse a file record by record without buffering, for inputs too\n" +
			"large to hold in memory. The format must be given explicitly.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateChoice("output", outFormat, "compact", "json"); err != nil {
				return err
			}
			if noProgress {
				progress = false
			}
			path := args[0]

			var bar *progressbar.ProgressBar
			var progressFn sources.ProgressFunc
			if progress && !follow && !e.quiet {
				info, err := os.Stat(path)
				if err == nil {
					bar = progressbar.NewOptions64(info.Size(),
						progressbar.OptionSetWriter(e.errOut),
						progressbar.OptionSetDescription("parsing"),
						progressbar.OptionShowBytes(true),
						progressbar.OptionThrottle(65*time.Millisecond),
						progressbar.OptionClearOnFinish(),
					)
					progressFn = func(bytesRead, totalBytes int64, linesRead int) {
						bar.Set64(bytesRead)
					}
				}
			}

			records, err := e.streamRecords(path, format, follow, progressFn)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(e.out)
			count := 0
			for r, err := range records {
				if err != nil {
					return err
				}
				if outFormat == "json" {
					if err := enc.Encode(r.ToMap()); err != nil {
						return err
					}
				} else {
					if err := output.WriteCompact(e.out, r); err != nil {
						return err
					}
				}
				count++
			}

			if bar != nil {
				bar.Finish()
			}
			if progress && !follow && !e.quiet {
				fmt.Fprintln(e.errOut, color.GreenString("Processed %d entries", count))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "log format (required; streaming skips detection)")
	cmd.Flags().StringVarP(&outFormat, "output", "o", "compact", "output format: compact, json")
	cmd.Flags().BoolVar(&progress, "progress", true, "show a progress bar on stderr")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().MarkHidden("no-progress")
	cmd.Flags().BoolVar(&follow, "follow", false, "keep reading as the file grows")
	cmd.MarkFlagRequired("format")
	return cmd
}

func (e *env) streamRecords(path, format string, follow bool, progressFn sources.ProgressFunc) (recordSeq, error) {
	if follow {
		return e.app.StreamFollow(path, format)
	}
	return e.app.StreamParse(path, format, progressFn)
}
