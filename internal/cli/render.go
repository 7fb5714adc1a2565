package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"zencalcs-assistant/internal/render"
)

func newRenderCommand() *cobra.Command {
	var collapsible bool

	cmd := &cobra.Command{
		Use:   "render <answer.md>",
		Short: "Render an assistant answer from Markdown to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			r := render.New()

			if collapsible {
				c, err := r.RenderCollapsible(string(src))
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			}

			html, err := r.Render(string(src))
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), html)
			return err
		},
	}

	cmd.Flags().BoolVar(&collapsible, "collapsible", false, "Split into summary and expanded parts (JSON output)")
	return cmd
}
