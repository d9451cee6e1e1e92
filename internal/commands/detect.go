package commands

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"unilog/internal/output"
	apperrors "unilog/pkg/errors"
)

func newDetectCmd(e *env) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "detect FILES...",
		Short: "Detect the format of log files",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return apperrors.ConfigError("detect", "no files specified")
			}

			for _, path := range args {
				name := filepath.Base(path)
				if all {
					scores, err := e.app.DetectAllFormats(path)
					if err != nil {
						e.printError("%v", err)
						continue
					}
					if err := output.RenderDetectionAll(e.out, name, scores); err != nil {
						return err
					}
					continue
				}

				format, confidence, err := e.app.DetectFormat(path)
				if err != nil {
					e.printError("%v", err)
					continue
				}
				if err := output.RenderDetection(e.out, name, format, confidence); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "show every candidate format ranked by confidence")
	return cmd
}
