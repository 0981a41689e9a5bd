package cli

import (
	"github.com/spf13/cobra"

	"github.com/mgpai22/captioner/internal/subtitle"
)

func addWriteModeFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("atomic", false, "Write through a temp file and rename it into place")
	cmd.Flags().Bool("no-clobber", false, "Fail instead of overwriting an existing output file")
	cmd.MarkFlagsMutuallyExclusive("atomic", "no-clobber")
}

func writeModeFromFlags(cmd *cobra.Command) subtitle.WriteMode {
	if atomic, _ := cmd.Flags().GetBool("atomic"); atomic {
		return subtitle.WriteAtomic
	}
	if noClobber, _ := cmd.Flags().GetBool("no-clobber"); noClobber {
		return subtitle.WriteNoClobber
	}
	return subtitle.WriteOverwrite
}
