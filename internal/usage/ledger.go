package usage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nghyane/inkledger/internal/json"
	log "github.com/nghyane/inkledger/internal/logging"
	"github.com/nghyane/inkledger/internal/store"
	"github.com/tidwall/gjson"
)

// Store keys.
const (
	LedgerKey = "quota_ledger"
	MirrorKey = "quota_ledger_text_mirror"
)

const (
	rateLimitedWarning   = "⚠️ You've hit rate limits %d time(s) today. Consider reducing batch size or waiting between requests."
	highFrequencyWarning = "⚠️ High request frequency detected. You may hit rate limits soon. Consider adding delays between batches."
)

// WriteResult reports the persistence outcome of a LogSuccess or LogError
// call. The entry is always constructed, even when both writes fail.
type WriteResult struct {
	Entry     Entry
	LedgerErr error
	MirrorErr error
}

// Err joins the ledger and mirror errors; nil when both writes succeeded.
func (r WriteResult) Err() error {
	return errors.Join(r.LedgerErr, r.MirrorErr)
}

// Observer is notified after every recorded entry, outside the ledger lock.
type Observer func(Entry)

// Option configures a Ledger.
type Option func(*Ledger)

// WithPolicy replaces the default policy.
func WithPolicy(p Policy) Option {
	return func(l *Ledger) { l.policy.Store(ptr(p.normalized())) }
}

// WithClock injects the time source used for timestamps and time windows.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithObserver registers fn to receive every recorded entry.
func WithObserver(fn Observer) Option {
	return func(l *Ledger) { l.observers = append(l.observers, fn) }
}

// Ledger records recognition calls to a store and derives statistics from
// them. It is safe for concurrent use; read-modify-write cycles are
// serialized within the process. Separate processes sharing one store are
// last-write-wins.
type Ledger struct {
	store     store.Store
	sessionID string
	now       func() time.Time
	observers []Observer
	policy    atomic.Pointer[Policy]
	mu        sync.Mutex
}

// NewLedger returns a ledger writing to s and tagging entries with sessionID.
func NewLedger(s store.Store, sessionID string, opts ...Option) *Ledger {
	l := &Ledger{
		store:     s,
		sessionID: sessionID,
		now:       time.Now,
	}
	l.policy.Store(ptr(DefaultPolicy()))
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func ptr[T any](v T) *T { return &v }

// SessionID returns the id attached to entries written by this ledger.
func (l *Ledger) SessionID() string { return l.sessionID }

// Policy returns the active policy.
func (l *Ledger) Policy() Policy { return *l.policy.Load() }

// SetPolicy swaps the active policy. Retention caps apply from the next write.
func (l *Ledger) SetPolicy(p Policy) {
	l.policy.Store(ptr(p.normalized()))
}

// LogSuccess records a completed call.
func (l *Ledger) LogSuccess(ctx context.Context, p SuccessParams) WriteResult {
	return l.record(ctx, Entry{
		Timestamp:        NewTimestamp(l.now()),
		SessionID:        l.sessionID,
		Model:            p.Model,
		FilesProcessed:   p.FilesProcessed,
		PromptTokens:     p.PromptTokens,
		OutputTokens:     p.OutputTokens,
		TotalTokens:      p.PromptTokens + p.OutputTokens,
		EstimatedCost:    p.EstimatedCost,
		Status:           StatusSuccess,
		ProcessingTimeMs: p.ProcessingTimeMs,
	})
}

// LogError records a failed call, classifying it as rate_limited when the
// message contains one of the policy's markers.
func (l *Ledger) LogError(ctx context.Context, p ErrorParams) WriteResult {
	return l.record(ctx, Entry{
		Timestamp:        NewTimestamp(l.now()),
		SessionID:        l.sessionID,
		Model:            p.Model,
		FilesProcessed:   p.FilesProcessed,
		Status:           Classify(p.ErrorMessage, l.Policy().RateLimitMarkers),
		ErrorMessage:     p.ErrorMessage,
		ProcessingTimeMs: p.ProcessingTimeMs,
	})
}

func (l *Ledger) record(ctx context.Context, e Entry) WriteResult {
	policy := l.Policy()
	res := WriteResult{Entry: e}

	l.mu.Lock()
	res.LedgerErr = l.appendEntry(ctx, e, policy.MaxEntries)
	res.MirrorErr = l.appendMirror(ctx, FormatLine(e), policy.MaxMirrorLines)
	l.mu.Unlock()

	for _, fn := range l.observers {
		fn(e)
	}
	return res
}

func (l *Ledger) appendEntry(ctx context.Context, e Entry, maxEntries int) error {
	logs, err := l.readEntries(ctx)
	if err != nil {
		// A store that cannot be read must not be overwritten with a single entry.
		return fmt.Errorf("usage: append entry: %w", err)
	}
	logs = append(logs, e)
	if len(logs) > maxEntries {
		logs = logs[len(logs)-maxEntries:]
	}
	data, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("usage: encode ledger: %w", err)
	}
	if err := l.store.Write(ctx, LedgerKey, string(data)); err != nil {
		return fmt.Errorf("usage: write ledger: %w", err)
	}
	return nil
}

func (l *Ledger) appendMirror(ctx context.Context, line string, maxLines int) error {
	existing, _, err := l.store.Read(ctx, MirrorKey)
	if err != nil {
		return fmt.Errorf("usage: read mirror: %w", err)
	}
	lines := splitLines(existing)
	lines = append(lines, line)
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	if err := l.store.Write(ctx, MirrorKey, strings.Join(lines, "\n")+"\n"); err != nil {
		return fmt.Errorf("usage: write mirror: %w", err)
	}
	return nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// readEntries returns the stored ledger. Corrupt data yields an empty ledger
// and is logged; only store failures are returned as errors.
func (l *Ledger) readEntries(ctx context.Context) ([]Entry, error) {
	raw, ok, err := l.store.Read(ctx, LedgerKey)
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []Entry{}, nil
	}
	if !gjson.Valid(raw) || !gjson.Parse(raw).IsArray() {
		log.Warnf("usage: stored ledger is not a JSON array (%d bytes), treating as empty", len(raw))
		return []Entry{}, nil
	}
	var logs []Entry
	if err := json.Unmarshal([]byte(raw), &logs); err != nil {
		log.WithError(err).Warn("usage: stored ledger has malformed entries, treating as empty")
		return []Entry{}, nil
	}
	if logs == nil {
		logs = []Entry{}
	}
	return logs, nil
}

// AllLogs returns every retained entry, oldest first. Storage failures and
// corrupt data are logged and yield an empty slice.
func (l *Ledger) AllLogs(ctx context.Context) []Entry {
	l.mu.Lock()
	logs, err := l.readEntries(ctx)
	l.mu.Unlock()
	if err != nil {
		log.WithError(err).Warn("usage: failed to read ledger")
		return []Entry{}
	}
	return logs
}

// SessionLogs returns the entries written under this ledger's session id.
func (l *Ledger) SessionLogs(ctx context.Context) []Entry {
	return filter(l.AllLogs(ctx), func(e Entry) bool { return e.SessionID == l.sessionID })
}

// LogsByDateRange returns entries with start <= timestamp <= end.
func (l *Ledger) LogsByDateRange(ctx context.Context, start, end time.Time) []Entry {
	return filterRange(l.AllLogs(ctx), start, end)
}

// DayLogs returns the entries in the policy-local calendar day containing day.
// The day is the half-open interval [midnight, next midnight).
func (l *Ledger) DayLogs(ctx context.Context, day time.Time) []Entry {
	start, end := dayBounds(day, l.Policy().Location)
	return filterRange(l.AllLogs(ctx), start, end.Add(-time.Nanosecond))
}

// TodayLogs returns DayLogs for the current day.
func (l *Ledger) TodayLogs(ctx context.Context) []Entry {
	return l.DayLogs(ctx, l.now())
}

func dayBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	t = t.In(loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func filterRange(logs []Entry, start, end time.Time) []Entry {
	return filter(logs, func(e Entry) bool {
		return !e.Timestamp.Before(start) && !e.Timestamp.After(end)
	})
}

func filter(logs []Entry, keep func(Entry) bool) []Entry {
	out := make([]Entry, 0, len(logs))
	for _, e := range logs {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Summary summarizes every retained entry.
func (l *Ledger) Summary(ctx context.Context) Summary {
	return Summarize(l.AllLogs(ctx))
}

// IsApproachingRateLimit reports whether the number of calls inside the
// policy window has reached the threshold.
func (l *Ledger) IsApproachingRateLimit(ctx context.Context) bool {
	return approachingRateLimit(l.AllLogs(ctx), l.now(), l.Policy())
}

// RateLimitWarning returns an advisory message, preferring a count of today's
// rate-limited calls over the high-frequency heuristic.
func (l *Ledger) RateLimitWarning(ctx context.Context) (string, bool) {
	return WarningFor(l.AllLogs(ctx), l.now(), l.Policy())
}

// WarningFor derives the rate-limit warning from logs as of now.
func WarningFor(logs []Entry, now time.Time, p Policy) (string, bool) {
	p = p.normalized()
	start, end := dayBounds(now, p.Location)
	limited := 0
	for _, e := range filterRange(logs, start, end.Add(-time.Nanosecond)) {
		if e.Status == StatusRateLimited {
			limited++
		}
	}
	if limited > 0 {
		return fmt.Sprintf(rateLimitedWarning, limited), true
	}
	if approachingRateLimit(logs, now, p) {
		return highFrequencyWarning, true
	}
	return "", false
}

func approachingRateLimit(logs []Entry, now time.Time, p Policy) bool {
	return len(filterRange(logs, now.Add(-p.RateLimitWindow), now)) >= p.RateLimitThreshold
}

// Snapshot is a view of the ledger derived from a single read.
type Snapshot struct {
	All     []Entry
	Today   []Entry
	Session []Entry
	Warning string
}

// Snapshot reads the ledger once and derives the today, session and warning
// views from that read.
func (l *Ledger) Snapshot(ctx context.Context) Snapshot {
	all := l.AllLogs(ctx)
	now := l.now()
	p := l.Policy()
	start, end := dayBounds(now, p.Location)
	warning, _ := WarningFor(all, now, p)
	return Snapshot{
		All:     all,
		Today:   filterRange(all, start, end.Add(-time.Nanosecond)),
		Session: filter(all, func(e Entry) bool { return e.SessionID == l.sessionID }),
		Warning: warning,
	}
}

// Clear removes the ledger and the text mirror. Clearing an empty ledger is
// not an error.
func (l *Ledger) Clear(ctx context.Context) error {
	_, err := l.ClearAndCount(ctx)
	return err
}

// ClearAndCount is Clear that also reports how many entries were removed.
// The count and the removal happen under one lock.
func (l *Ledger) ClearAndCount(ctx context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	if logs, err := l.readEntries(ctx); err == nil {
		removed = len(logs)
	}
	var errs []error
	for _, key := range []string{LedgerKey, MirrorKey} {
		if err := l.store.Remove(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("usage: remove %s: %w", key, err))
		}
	}
	return removed, errors.Join(errs...)
}

// textSnapshot returns the entries and the stored text mirror from one lock
// hold. Read failures are logged and yield empty values.
func (l *Ledger) textSnapshot(ctx context.Context) ([]Entry, string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	logs, err := l.readEntries(ctx)
	if err != nil {
		log.WithError(err).Warn("usage: failed to read ledger")
		logs = []Entry{}
	}
	raw, _, err := l.store.Read(ctx, MirrorKey)
	if err != nil {
		log.WithError(err).Warn("usage: failed to read text mirror")
		raw = ""
	}
	return logs, raw
}
