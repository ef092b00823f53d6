package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nghyane/inkledger/internal/json"
	"github.com/nghyane/inkledger/internal/usage"
	"github.com/spf13/cobra"
)

var (
	usageLogsFrom string
	usageLogsTo   string
	usageLogsJSON bool

	usageExportFormat string
	usageExportOutput string

	usageClearYes bool
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Inspect, export or clear the usage ledger",
}

var usageSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show all-time and today's totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(svc *Services) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			snap := svc.Ledger.Snapshot(ctx)
			writeSummary(out, "All time", usage.Summarize(snap.All))
			fmt.Fprintln(out)
			writeSummary(out, "Today", usage.Summarize(snap.Today))

			if used, err := svc.Store.Usage(ctx); err == nil {
				fmt.Fprintf(out, "\nStorage: %s of %s\n",
					humanize.IBytes(uint64(used)), humanize.IBytes(uint64(svc.Store.Limit())))
			}
			if snap.Warning != "" {
				fmt.Fprintf(out, "\n%s\n", snap.Warning)
			}
			return nil
		})
	},
}

var usageTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List today's calls",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(svc *Services) error {
			logs := svc.Ledger.TodayLogs(cmd.Context())
			writeLines(cmd.OutOrStdout(), logs)
			return nil
		})
	},
}

var usageLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "List calls, optionally within a date range",
	Long: `List ledger entries oldest first. --from and --to accept YYYY-MM-DD or an
RFC 3339 instant and are inclusive; a date used with --to covers the whole day.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(svc *Services) error {
			ctx := cmd.Context()
			loc := svc.Ledger.Policy().Location
			start, end, err := parseRange(usageLogsFrom, usageLogsTo, loc)
			if err != nil {
				return err
			}

			var logs []usage.Entry
			if start.IsZero() && end.IsZero() {
				logs = svc.Ledger.AllLogs(ctx)
			} else {
				if end.IsZero() {
					end = time.Now()
				}
				logs = svc.Ledger.LogsByDateRange(ctx, start, end)
			}

			out := cmd.OutOrStdout()
			if usageLogsJSON {
				data, err := json.MarshalIndent(logs, "", "  ")
				if err != nil {
					return fmt.Errorf("encode logs: %w", err)
				}
				fmt.Fprintln(out, string(data))
				return nil
			}
			writeLines(out, logs)
			return nil
		})
	},
}

var usageExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ledger as text or JSON",
	Long: `Export the ledger with a summary header. Without --output the export is
written to stdout. When --output names a directory the file is written there
as quota-log-YYYY-MM-DD.<format>.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := usage.ParseFormat(usageExportFormat)
		if err != nil {
			return err
		}
		return withLedger(cmd, func(svc *Services) error {
			ctx := cmd.Context()
			if usageExportOutput == "" || usageExportOutput == "-" {
				return svc.Ledger.Export(ctx, cmd.OutOrStdout(), format)
			}

			path := exportPath(usageExportOutput, format, time.Now())
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
			if err != nil {
				return fmt.Errorf("open export file: %w", err)
			}
			if err := svc.Ledger.Export(ctx, f, format); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close export file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Exported to %s\n", path)
			return nil
		})
	},
}

var usageClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every ledger entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !usageClearYes {
			return errors.New("refusing to clear the usage ledger without --yes")
		}
		return withLedger(cmd, func(svc *Services) error {
			removed, err := svc.Ledger.ClearAndCount(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s entries\n", humanize.Comma(int64(removed)))
			return nil
		})
	},
}

func init() {
	usageLogsCmd.Flags().StringVar(&usageLogsFrom, "from", "", "earliest entry (YYYY-MM-DD or RFC 3339)")
	usageLogsCmd.Flags().StringVar(&usageLogsTo, "to", "", "latest entry (YYYY-MM-DD or RFC 3339)")
	usageLogsCmd.Flags().BoolVar(&usageLogsJSON, "json", false, "print entries as JSON")

	usageExportCmd.Flags().StringVarP(&usageExportFormat, "format", "f", "txt", "export format: txt or json")
	usageExportCmd.Flags().StringVarP(&usageExportOutput, "output", "o", "", "output file or directory (default stdout)")

	usageClearCmd.Flags().BoolVar(&usageClearYes, "yes", false, "confirm deletion")

	usageCmd.AddCommand(usageSummaryCmd, usageTodayCmd, usageLogsCmd, usageExportCmd, usageClearCmd)
	rootCmd.AddCommand(usageCmd)
}

// withLedger bootstraps config and the usage store for a single command.
func withLedger(cmd *cobra.Command, fn func(*Services) error) error {
	result, err := Bootstrap(cfgFile)
	if err != nil {
		return err
	}
	svc, err := NewServices(cmd.Context(), result.Config, false)
	if err != nil {
		return err
	}
	defer svc.Close()
	return fn(svc)
}

func writeSummary(w io.Writer, title string, s usage.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", title)
	fmt.Fprintf(tw, "  Requests:\t%s (%s ok, %s failed, %s rate limited)\n",
		humanize.Comma(int64(s.TotalRequests)),
		humanize.Comma(int64(s.SuccessfulRequests)),
		humanize.Comma(int64(s.FailedRequests)),
		humanize.Comma(int64(s.RateLimitedRequests)))
	fmt.Fprintf(tw, "  Tokens:\t%s (prompt %s, output %s)\n",
		humanize.Comma(s.TotalTokens),
		humanize.Comma(s.TotalPromptTokens),
		humanize.Comma(s.TotalOutputTokens))
	fmt.Fprintf(tw, "  Cost:\t$%.4f\n", s.TotalCost)
	fmt.Fprintf(tw, "  Avg time:\t%.0fms\n", s.AverageProcessingTime)
	if s.FirstRequest != "" {
		fmt.Fprintf(tw, "  Window:\t%s .. %s\n", s.FirstRequest, s.LastRequest)
	}
	_ = tw.Flush()
}

func writeLines(w io.Writer, logs []usage.Entry) {
	if len(logs) == 0 {
		fmt.Fprintln(w, "No entries.")
		return
	}
	for _, e := range logs {
		fmt.Fprintln(w, usage.FormatLine(e))
	}
}

// parseRange parses --from and --to. A zero time means unbounded.
func parseRange(fromArg, toArg string, loc *time.Location) (from, to time.Time, err error) {
	if s := strings.TrimSpace(fromArg); s != "" {
		if from, err = parseDay(s, loc, false); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if s := strings.TrimSpace(toArg); s != "" {
		if to, err = parseDay(s, loc, true); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("--to is before --from")
	}
	return from, to, nil
}

func parseDay(s string, loc *time.Location, upper bool) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		if upper {
			return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// exportPath resolves --output; an existing directory gets the dated default name.
func exportPath(output string, format usage.Format, now time.Time) string {
	if fi, err := os.Stat(output); err == nil && fi.IsDir() {
		return filepath.Join(output, usage.ExportFilename(format, now))
	}
	return output
}
