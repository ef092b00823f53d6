package cli

import (
	"fmt"

	"github.com/nghyane/inkledger/internal/buildinfo"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "inkledger %s\n", buildinfo.Version)
		fmt.Fprintf(out, "Commit: %s\n", buildinfo.Commit)
		fmt.Fprintf(out, "Built: %s\n", buildinfo.BuildDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
