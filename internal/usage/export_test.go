package usage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func seedScenario(t *testing.T) (*Ledger, *fakeClock) {
	t.Helper()
	ctx := context.Background()
	l, clock, _ := newTestLedger(t)
	l.LogSuccess(ctx, SuccessParams{Model: "m1", FilesProcessed: 2, PromptTokens: 1000, OutputTokens: 500, EstimatedCost: 0.01, ProcessingTimeMs: 1200})
	clock.Advance(time.Second)
	l.LogError(ctx, ErrorParams{Model: "m1", FilesProcessed: 1, ErrorMessage: "quota exceeded", ProcessingTimeMs: 300})
	clock.Advance(time.Second)
	return l, clock
}

func TestExportText(t *testing.T) {
	l, _ := seedScenario(t)

	var buf bytes.Buffer
	if err := l.ExportText(context.Background(), &buf); err != nil {
		t.Fatalf("ExportText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"=== QUOTA USAGE SUMMARY ===\n",
		"Generated: 2024-06-10T12:00:02.000Z\n",
		"Total Requests: 2\n",
		"Successful: 1\n",
		"Failed: 0\n",
		"Rate Limited: 1\n",
		"Total Tokens: 1,500 (Prompt: 1,000, Output: 500)\n",
		"Total Cost: $0.0100\n",
		"Average Processing Time: 750ms\n",
		"First Request: 2024-06-10T12:00:00.000Z\n",
		"Last Request: 2024-06-10T12:00:01.000Z\n",
		"\n=== DETAILED LOGS ===\n\n",
		"| SUCCESS | m1 | files=2 |",
		`| RATE_LIMITED | m1 | files=1 | prompt_tokens=0 | output_tokens=0 | total_tokens=0 | cost=$0.000000 | time=300ms | error="quota exceeded"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text export missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "=== QUOTA USAGE LOG ===") {
		t.Error("mirror is present, fallback header should not be rendered")
	}
}

func TestExportText_FallsBackWithoutMirror(t *testing.T) {
	l, _ := seedScenario(t)
	ctx := context.Background()
	if err := l.store.Remove(ctx, MirrorKey); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := l.ExportText(ctx, &buf); err != nil {
		t.Fatalf("ExportText: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "=== DETAILED LOGS ===\n\n=== QUOTA USAGE LOG ===\n\n") {
		t.Errorf("fallback header missing:\n%s", out)
	}
	if strings.Count(out, "| m1 |") != 2 {
		t.Errorf("expected both entries rendered:\n%s", out)
	}
}

func TestExportText_Empty(t *testing.T) {
	l, _, _ := newTestLedger(t)

	var buf bytes.Buffer
	if err := l.ExportText(context.Background(), &buf); err != nil {
		t.Fatalf("ExportText: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Total Tokens: 0 (Prompt: 0, Output: 0)") || !strings.Contains(out, "Average Processing Time: 0ms") {
		t.Errorf("unexpected empty export:\n%s", out)
	}
	if !strings.HasSuffix(out, "=== DETAILED LOGS ===\n\n") {
		t.Errorf("empty export should end after the detailed header:\n%q", out)
	}
}

func TestExportJSON(t *testing.T) {
	l, _ := seedScenario(t)

	var buf bytes.Buffer
	if err := l.ExportJSON(context.Background(), &buf); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	doc := buf.String()

	if !gjson.Valid(doc) {
		t.Fatalf("invalid JSON:\n%s", doc)
	}
	if !strings.Contains(doc, "\n  \"summary\": {") {
		t.Errorf("expected two-space indentation:\n%s", doc)
	}
	checks := map[string]string{
		"summary.totalRequests":       "2",
		"summary.rateLimitedRequests": "1",
		"summary.totalTokens":         "1500",
		"logs.#":                      "2",
		"logs.1.status":               "rate_limited",
		"logs.1.errorMessage":         "quota exceeded",
		"exportedAt":                  "2024-06-10T12:00:02.000Z",
	}
	for path, want := range checks {
		if got := gjson.Get(doc, path).String(); got != want {
			t.Errorf("%s = %q, want %q", path, got, want)
		}
	}
}

func TestExportJSON_EmptyLogsIsArray(t *testing.T) {
	l, _, _ := newTestLedger(t)

	var buf bytes.Buffer
	if err := l.Export(context.Background(), &buf, FormatJSON); err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !gjson.Get(buf.String(), "logs").IsArray() {
		t.Errorf("logs should be an empty array:\n%s", buf.String())
	}
}

func TestExportFilename(t *testing.T) {
	at := time.Date(2024, 6, 10, 23, 30, 0, 0, time.FixedZone("X", -3*3600))
	if got := ExportFilename(FormatText, at); got != "quota-log-2024-06-11.txt" {
		t.Errorf("ExportFilename(txt) = %q", got)
	}
	if got := ExportFilename(FormatJSON, at); got != "quota-log-2024-06-11.json" {
		t.Errorf("ExportFilename(json) = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatText, "txt": FormatText, "TEXT": FormatText, "json": FormatJSON}
	for in, want := range tests {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("ParseFormat(csv) should fail")
	}
}

func TestExportText_HeaderMatchesBodyDuringWrites(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLedger(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			l.LogSuccess(ctx, success("m"))
		}
	}()

	for i := 0; i < 50; i++ {
		var buf bytes.Buffer
		if err := l.ExportText(ctx, &buf); err != nil {
			t.Fatalf("ExportText: %v", err)
		}
		out := buf.String()
		header := headerInt(t, out, "Total Requests: ")
		body := strings.Count(out, "| SUCCESS |")
		if header != body {
			t.Fatalf("header counts %d requests but body has %d lines", header, body)
		}
	}
	<-done
}

func headerInt(t *testing.T, s, prefix string) int {
	t.Helper()
	i := strings.Index(s, prefix)
	if i < 0 {
		t.Fatalf("%q not found", prefix)
	}
	var n int
	if _, err := fmt.Sscanf(s[i+len(prefix):], "%d", &n); err != nil {
		t.Fatalf("parse %q: %v", prefix, err)
	}
	return n
}
