// Package commands defines the CLI: the root command with its persistent
// flags, and the parse, correlate, stream, detect and formats
// subcommands. Commands print rendered output to stdout and diagnostics
// to stderr, and report failure through their returned error.
package commands

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"unilog/internal/app"
	"unilog/internal/config"
	"unilog/internal/logging"
)

// env carries the state shared by every subcommand, resolved once in the
// root's persistent pre-run.
type env struct {
	quiet      bool
	configPath string

	cfg    *config.Config
	logger *logrus.Logger
	app    *app.App

	out    io.Writer
	errOut io.Writer
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	e := &env{out: os.Stdout, errOut: os.Stderr}

	root := &cobra.Command{
		Use:           "unilog",
		Short:         "Universal log parser",
		Long:          "Detect, parse, correlate and stream log files of many formats.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.setup()
		},
	}
	root.PersistentFlags().BoolVarP(&e.quiet, "quiet", "q", false, "suppress informational output")
	root.PersistentFlags().StringVar(&e.configPath, "config", "",
		"configuration file (defaults to $UNILOG_CONFIG)")

	root.AddCommand(
		newParseCmd(e),
		newCorrelateCmd(e),
		newStreamCmd(e),
		newDetectCmd(e),
		newFormatsCmd(e),
	)
	return root
}

// Execute runs the CLI and reports failures on stderr.
func Execute(version string) error {
	err := NewRootCmd(version).Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
	}
	return err
}

// setup loads configuration and builds the shared facade.
func (e *env) setup() error {
	path := e.configPath
	if path == "" {
		path = os.Getenv("UNILOG_CONFIG")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	e.cfg = cfg

	if e.quiet {
		e.logger = logging.Quiet()
	} else {
		e.logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	}
	e.app = app.New(cfg, e.logger)
	return nil
}

// printError reports a non-fatal per-file failure.
func (e *env) printError(format string, args ...interface{}) {
	fmt.Fprintf(e.errOut, "%s %s\n", color.RedString("Error:"), fmt.Sprintf(format, args...))
}

// printInfo writes an informational line, suppressed in quiet mode.
func (e *env) printInfo(format string, args ...interface{}) {
	if e.quiet {
		return
	}
	fmt.Fprintf(e.out, format+"\n", args...)
}

// validateChoice rejects flag values outside the allowed set.
func validateChoice(flag, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}
	return fmt.Errorf("invalid value %q for --%s (allowed: %v)", value, flag, allowed)
}
