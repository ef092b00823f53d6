// Package usage implements the usage ledger: an append-only, retention-capped
// record of every recognition call, with summaries, rate-limit heuristics and
// text/JSON exports derived from it.
package usage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status is the outcome of a single recognition call. It is assigned once when
// the entry is created.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusError       Status = "error"
	StatusRateLimited Status = "rate_limited"
)

// TimestampLayout renders instants in UTC with millisecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp is an instant that serializes with TimestampLayout.
type Timestamp struct {
	time.Time
}

// NewTimestamp truncates t to milliseconds and converts it to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{t.UTC().Truncate(time.Millisecond)}
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimestampLayout)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(t.String())), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("usage: timestamp must be a string: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("usage: invalid timestamp %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// Entry is one immutable record of a recognition call outcome.
type Entry struct {
	Timestamp        Timestamp `json:"timestamp"`
	SessionID        string    `json:"sessionId"`
	Model            string    `json:"model"`
	FilesProcessed   int       `json:"filesProcessed"`
	PromptTokens     int64     `json:"promptTokens"`
	OutputTokens     int64     `json:"outputTokens"`
	TotalTokens      int64     `json:"totalTokens"`
	EstimatedCost    float64   `json:"estimatedCost"`
	Status           Status    `json:"status"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
}

// SuccessParams describes a completed call.
type SuccessParams struct {
	Model            string
	FilesProcessed   int
	PromptTokens     int64
	OutputTokens     int64
	EstimatedCost    float64
	ProcessingTimeMs int64
}

// ErrorParams describes a failed call.
type ErrorParams struct {
	Model            string
	FilesProcessed   int
	ErrorMessage     string
	ProcessingTimeMs int64
}

// lineBreaks escapes line terminators so one entry stays one mirror line.
var lineBreaks = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\r`)

// FormatLine renders e as one line of the plain-text mirror. Line breaks in
// the error message are written as \n.
func FormatLine(e Entry) string {
	parts := []string{
		e.Timestamp.String(),
		e.SessionID,
		strings.ToUpper(string(e.Status)),
		e.Model,
		"files=" + strconv.Itoa(e.FilesProcessed),
		"prompt_tokens=" + strconv.FormatInt(e.PromptTokens, 10),
		"output_tokens=" + strconv.FormatInt(e.OutputTokens, 10),
		"total_tokens=" + strconv.FormatInt(e.TotalTokens, 10),
		fmt.Sprintf("cost=$%.6f", e.EstimatedCost),
		"time=" + strconv.FormatInt(e.ProcessingTimeMs, 10) + "ms",
	}
	if e.ErrorMessage != "" {
		parts = append(parts, `error="`+lineBreaks.Replace(e.ErrorMessage)+`"`)
	}
	return strings.Join(parts, " | ")
}

// Classify maps an upstream error message to a status. Matching is a
// case-sensitive substring test against markers.
func Classify(message string, markers []string) Status {
	for _, m := range markers {
		if m != "" && strings.Contains(message, m) {
			return StatusRateLimited
		}
	}
	return StatusError
}
