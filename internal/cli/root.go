// Package cli implements the zencalcs command line tool.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"zencalcs-assistant/internal/common/config"
	"zencalcs-assistant/internal/common/logger"
)

// Version is stamped at build time.
var Version = "1.0.0"

type options struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the command tree. Each call returns independent
// flag state.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "zencalcs",
		Short: "Analyze calculation transcripts and render PDF reports",
		Long: `zencalcs works on saved ZenCalcs conversations without the running service.

A transcript is a JSON file holding either an array of {"role", "content"}
messages or an object with a "conversationHistory" array. Use "-" to read
from stdin.

Examples:
  zencalcs analyze chat.json                 # Local heuristic analysis
  zencalcs analyze chat.json --remote URL    # Ask the analysis service
  zencalcs report chat.json -o report.pdf    # Render a PDF report
  zencalcs render answer.md --collapsible    # Markdown to HTML
  zencalcs registry check                    # Verify worker contracts`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (default: built-in report settings)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(
		newAnalyzeCommand(opts),
		newReportCommand(opts),
		newRenderCommand(),
		newRegistryCommand(opts),
	)
	return root
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func (o *options) logger() logger.Logger {
	if !o.verbose {
		return logger.NewNoOpLogger()
	}
	zl, err := logger.NewFromConfig(config.LoggingConfig{Level: "debug", Format: "console", Output: "stderr"})
	if err != nil {
		return logger.NewNoOpLogger()
	}
	return logger.NewZapAdapter(zl)
}

// loadConfig returns nil when no config file was given.
func (o *options) loadConfig() (*config.Config, error) {
	if o.configPath == "" {
		return nil, nil
	}
	return config.LoadFromFile(o.configPath)
}
