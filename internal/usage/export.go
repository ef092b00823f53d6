package usage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nghyane/inkledger/internal/json"
)

// Format selects an export encoding.
type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
)

// ParseFormat accepts "txt", "text" and "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "txt", "text":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("usage: unknown export format %q (use txt or json)", s)
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatJSON {
		return "application/json; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// ExportFilename returns quota-log-YYYY-MM-DD.<ext> for the UTC date of now.
func ExportFilename(f Format, now time.Time) string {
	return "quota-log-" + now.UTC().Format("2006-01-02") + "." + string(f)
}

// Export is the JSON export document.
type Export struct {
	Summary    Summary `json:"summary"`
	Logs       []Entry `json:"logs"`
	ExportedAt string  `json:"exportedAt"`
}

// Export writes the ledger to w in format f.
func (l *Ledger) Export(ctx context.Context, w io.Writer, f Format) error {
	if f == FormatJSON {
		return l.ExportJSON(ctx, w)
	}
	return l.ExportText(ctx, w)
}

// ExportJSON writes {summary, logs, exportedAt} with two-space indentation.
func (l *Ledger) ExportJSON(ctx context.Context, w io.Writer) error {
	logs := l.AllLogs(ctx)
	doc := Export{
		Summary:    Summarize(logs),
		Logs:       logs,
		ExportedAt: NewTimestamp(l.now()).String(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("usage: encode export: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportText writes a summary header followed by the detailed log. The text
// mirror is used when present; otherwise lines are rendered from the ledger.
func (l *Ledger) ExportText(ctx context.Context, w io.Writer) error {
	logs, content := l.textSnapshot(ctx)
	s := Summarize(logs)

	var b strings.Builder
	b.WriteString("=== QUOTA USAGE SUMMARY ===\n")
	fmt.Fprintf(&b, "Generated: %s\n", NewTimestamp(l.now()))
	fmt.Fprintf(&b, "Total Requests: %d\n", s.TotalRequests)
	fmt.Fprintf(&b, "Successful: %d\n", s.SuccessfulRequests)
	fmt.Fprintf(&b, "Failed: %d\n", s.FailedRequests)
	fmt.Fprintf(&b, "Rate Limited: %d\n", s.RateLimitedRequests)
	fmt.Fprintf(&b, "Total Tokens: %s (Prompt: %s, Output: %s)\n",
		humanize.Comma(s.TotalTokens), humanize.Comma(s.TotalPromptTokens), humanize.Comma(s.TotalOutputTokens))
	fmt.Fprintf(&b, "Total Cost: $%.4f\n", s.TotalCost)
	fmt.Fprintf(&b, "Average Processing Time: %.0fms\n", s.AverageProcessingTime)
	fmt.Fprintf(&b, "First Request: %s\n", s.FirstRequest)
	fmt.Fprintf(&b, "Last Request: %s\n", s.LastRequest)
	b.WriteString("\n=== DETAILED LOGS ===\n\n")

	if content == "" && len(logs) > 0 {
		lines := make([]string, len(logs))
		for i, e := range logs {
			lines[i] = FormatLine(e)
		}
		content = "=== QUOTA USAGE LOG ===\n\n" + strings.Join(lines, "\n") + "\n"
	}
	b.WriteString(content)

	_, err := io.WriteString(w, b.String())
	return err
}
