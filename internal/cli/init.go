package cli

import (
	"github.com/spf13/cobra"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize config and generate management key",
	Long: `Initialize inkledger configuration and generate a management key.

On first run, this creates the config file and the credentials file.
If config already exists, it shows the current management key.

Use --force to regenerate the management key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return DoInitConfig(cfgFile, forceInit)
	},
}

func init() {
	initCmd.Flags().BoolVar(&forceInit, "force", false, "force regenerate management key")
	rootCmd.AddCommand(initCmd)
}
