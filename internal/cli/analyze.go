package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"zencalcs-assistant/internal/analysis"
)

type analyzeOutput struct {
	Source   string      `json:"source"`
	Analysis interface{} `json:"analysis"`
}

func newAnalyzeCommand(opts *options) *cobra.Command {
	var (
		remote   string
		timeout  time.Duration
		fallback bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <transcript.json>",
		Short: "Extract structured report data from a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			history, err := parseTranscript(data)
			if err != nil {
				return err
			}

			source := newSource(opts, remote, timeout, fallback)
			result, err := source.Resolve(cmd.Context(), history, remote != "")
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(analyzeOutput{Source: result.Source, Analysis: result.Data})
		},
	}

	cmd.Flags().StringVar(&remote, "remote", "", "Analysis service base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Remote analysis timeout")
	cmd.Flags().BoolVar(&fallback, "fallback", true, "Use local analysis when the remote call fails")
	return cmd
}

func newSource(opts *options, remote string, timeout time.Duration, fallback bool) *analysis.Source {
	sourceOpts := []analysis.SourceOption{analysis.WithLogger(opts.logger())}
	if remote != "" {
		sourceOpts = append(sourceOpts, analysis.WithRemote(analysis.NewClient(remote, timeout), fallback))
	}
	return analysis.NewSource(sourceOpts...)
}
