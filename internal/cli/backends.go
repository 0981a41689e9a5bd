package cli

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/subtitle"
	"github.com/mgpai22/captioner/internal/transcribe"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List transcription backends and output formats",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, renderBackends(transcribe.Backends(), cfg.Defaults.Backend))
		fmt.Fprintf(out, "Formats: %s (default %s)\n",
			strings.Join(subtitle.SupportedFormats(), ", "),
			cfg.Defaults.Format,
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(backendsCmd)
}

func renderBackends(backends []transcribe.BackendInfo, defaultBackend string) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Backend", "Description", "Environment", "Auto-detect"})

	for _, b := range backends {
		name := string(b.Backend)
		if name == defaultBackend {
			name += " (default)"
		}
		detect := "no"
		if b.AutoDetect {
			detect = "yes"
		}
		tw.AppendRow(table.Row{name, b.Description, strings.Join(b.Env, ", "), detect})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignCenter, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
