package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"zencalcs-assistant/internal/chart"
	"zencalcs-assistant/internal/common/config"
	"zencalcs-assistant/internal/layout"
	"zencalcs-assistant/internal/models"
	"zencalcs-assistant/internal/pdf"
	"zencalcs-assistant/internal/report"
)

func newReportCommand(opts *options) *cobra.Command {
	var (
		output   string
		dataPath string
		remote   string
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "report [transcript.json]",
		Short: "Render a PDF report from a transcript or from report data",
		Long: `Render a PDF report.

With a transcript the conversation is analyzed first. With --data the given
report data JSON is laid out as is. The default output name follows
ZenCalcs_<type>_Report_<date>.pdf.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (dataPath == "") {
				return fmt.Errorf("pass either a transcript or --data")
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			log := opts.logger()

			measurer := pdf.NewMeasurer()
			engine := layout.NewEngine(
				layoutConfigFrom(cfg),
				measurer,
				layout.NewGridTableRenderer(measurer),
				chart.NewRenderer(),
				layout.WithLogger(log),
			)
			gen := report.NewGenerator(
				newSource(opts, remote, timeout, true),
				engine,
				pdf.NewRenderer("ZenCalcs"),
				report.WithLogger(log),
				report.PreferRemote(remote != ""),
			)

			var art *report.Artifact
			if dataPath != "" {
				raw, err := readInput(dataPath, cmd.InOrStdin())
				if err != nil {
					return err
				}
				var data models.ReportData
				if err := json.Unmarshal(raw, &data); err != nil {
					return fmt.Errorf("parse report data: %w", err)
				}
				art, err = gen.FromData(cmd.Context(), "", data)
				if err != nil {
					return err
				}
			} else {
				raw, err := readInput(args[0], cmd.InOrStdin())
				if err != nil {
					return err
				}
				history, err := parseTranscript(raw)
				if err != nil {
					return err
				}
				art, err = gen.Generate(cmd.Context(), "", history)
				if err != nil {
					return err
				}
			}

			if output == "" {
				output = art.Filename
			}
			if err := os.WriteFile(output, art.PDF, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d pages, source %s", output, art.PageCount, art.Source)
			if art.ChartFailures > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), ", %d chart(s) replaced by placeholders", art.ChartFailures)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output PDF path")
	cmd.Flags().StringVar(&dataPath, "data", "", "Report data JSON instead of a transcript")
	cmd.Flags().StringVar(&remote, "remote", "", "Analysis service base URL")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Remote analysis timeout")
	return cmd
}

func layoutConfigFrom(cfg *config.Config) layout.Config {
	lc := layout.DefaultConfig()
	if cfg == nil {
		return lc
	}
	rc := cfg.Report
	lc.Geometry.Width = rc.PageWidth
	lc.Geometry.Height = rc.PageHeight
	lc.Geometry.Margin = rc.Margin
	lc.Brand = rc.Brand
	lc.Attribution = rc.Attribution
	lc.ChartWidth = rc.ChartWidth
	lc.ChartHeight = rc.ChartHeight
	return lc
}
