package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	ac "zencalcs-assistant/internal/workers/ai-conversation/analyze-conversation"
	scm "zencalcs-assistant/internal/workers/ai-conversation/send-chat-message"
	dr "zencalcs-assistant/internal/workers/reporting/deliver-report"
	gr "zencalcs-assistant/internal/workers/reporting/generate-report"
	sr "zencalcs-assistant/internal/workers/reporting/search-reports"
	"zencalcs-assistant/pkg/registry"
)

// WorkerTaskTypes lists every task type the worker manager can start.
var WorkerTaskTypes = []string{
	scm.TaskType,
	ac.TaskType,
	gr.TaskType,
	dr.TaskType,
	sr.TaskType,
}

func newRegistryCommand(opts *options) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect the activity registry that documents worker contracts",
	}
	cmd.PersistentFlags().StringVar(&path, "path", "", "Registry file (default: registry.path from config)")

	load := func() (*registry.ActivityRegistry, error) {
		p := path
		if p == "" {
			cfg, err := opts.loadConfig()
			if err != nil {
				return nil, err
			}
			p = "configs/activities.json"
			if cfg != nil {
				p = cfg.Registry.Path
			}
		}
		return registry.LoadRegistry(p)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered activities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := load()
			if err != nil {
				return err
			}
			activities := append([]registry.Activity(nil), reg.Activities...)
			sort.Slice(activities, func(i, j int) bool { return activities[i].TaskType < activities[j].TaskType })

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TASK TYPE\tCATEGORY\tSTATUS\tTIMEOUT\tRETRIES")
			for _, a := range activities {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", a.TaskType, a.Category, a.ImplementationStatus, a.Timeout, a.Retries)
			}
			return w.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Fail when a worker task type has no registry entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := load()
			if err != nil {
				return err
			}
			if missing := reg.Missing(WorkerTaskTypes...); len(missing) > 0 {
				return fmt.Errorf("task types missing from registry: %v", missing)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "all %d worker task types are registered\n", len(WorkerTaskTypes))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate <taskType> <variables.json>",
		Short: "Validate job variables against an activity input schema",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := load()
			if err != nil {
				return err
			}
			raw, err := readInput(args[1], cmd.InOrStdin())
			if err != nil {
				return err
			}
			var vars map[string]interface{}
			if err := json.Unmarshal(raw, &vars); err != nil {
				return fmt.Errorf("parse variables: %w", err)
			}

			res, err := reg.ValidateInput(args[0], vars)
			if err != nil {
				return err
			}
			if !res.Valid {
				for _, e := range res.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", e.Field, e.Message)
				}
				return fmt.Errorf("variables do not match the %s input schema", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "valid")
			return nil
		},
	})

	return cmd
}
