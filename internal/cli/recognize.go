package cli

import (
	"fmt"

	"github.com/nghyane/inkledger/internal/json"
	"github.com/nghyane/inkledger/internal/recognition"
	"github.com/spf13/cobra"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>...",
	Short: "Extract records from handwritten document scans",
	Long: `Send one or more document images to Gemini in a single call and print the
extracted records as JSON. The call is recorded in the usage ledger whether it
succeeds or fails.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := Bootstrap(cfgFile)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		images, err := recognition.LoadImages(ctx, args)
		if err != nil {
			return err
		}

		svc, err := NewServices(ctx, result.Config, false)
		if err != nil {
			return err
		}
		defer svc.Close()

		records, err := svc.Client.Recognize(ctx, images)
		if warning, ok := svc.Ledger.RateLimitWarning(ctx); ok {
			fmt.Fprintln(cmd.ErrOrStderr(), warning)
		}
		if err != nil {
			return err
		}

		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encode records: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recognizeCmd)
}
