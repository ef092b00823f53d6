package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "inkledger",
	Short: "Handwriting recognition with a durable usage ledger",
	Long: `inkledger sends scans of handwritten documents to Gemini, extracts
structured records and keeps a retention-capped ledger of every call's
tokens, cost, latency and outcome.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	addConfigFlag(rootCmd.PersistentFlags())
}

func addConfigFlag(fs *pflag.FlagSet) {
	fs.StringVarP(&cfgFile, "config", "c", "", "config file (default $XDG_CONFIG_HOME/inkledger/config.yaml)")
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
