package management

import (
	"bytes"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/api/handlers"
	log "github.com/nghyane/inkledger/internal/logging"
	"github.com/nghyane/inkledger/internal/usage"
)

// GetUsage returns the summary views polled by the usage monitor. Every view
// is derived from one ledger read.
func (h *Handler) GetUsage(c *gin.Context) {
	snap := h.ledger.Snapshot(c.Request.Context())
	handlers.RespondOK(c, UsageResponse{
		SessionID: h.ledger.SessionID(),
		Summary:   usage.Summarize(snap.All),
		Today:     usage.Summarize(snap.Today),
		Session:   usage.Summarize(snap.Session),
		Warning:   snap.Warning,
		Breakdown: h.ledger.Breakdown(snap.All),
	})
}

// GetUsageLogs lists entries. scope is all, session or today; from and to
// (YYYY-MM-DD or RFC 3339, inclusive) narrow any scope further.
func (h *Handler) GetUsageLogs(c *gin.Context) {
	ctx := c.Request.Context()
	scope := strings.ToLower(strings.TrimSpace(c.DefaultQuery("scope", "all")))

	var logs []usage.Entry
	switch scope {
	case "all":
		logs = h.ledger.AllLogs(ctx)
	case "session":
		logs = h.ledger.SessionLogs(ctx)
	case "today":
		logs = h.ledger.TodayLogs(ctx)
	default:
		handlers.RespondBadRequest(c, fmt.Sprintf("unknown scope %q (use all, session or today)", scope))
		return
	}

	from, to, err := h.parseTimeRange(c)
	if err != nil {
		handlers.RespondBadRequest(c, err.Error())
		return
	}
	resp := UsageLogsResponse{Scope: scope}
	if !from.IsZero() {
		resp.From = usage.NewTimestamp(from).String()
	}
	if !to.IsZero() {
		resp.To = usage.NewTimestamp(to).String()
	}
	logs = inRange(logs, from, to)
	if logs == nil {
		logs = []usage.Entry{}
	}
	resp.Count = len(logs)
	resp.Summary = usage.Summarize(logs)
	resp.Logs = logs
	handlers.RespondOK(c, resp)
}

// ExportUsage streams the ledger as an attachment. format is txt (default)
// or json; filename overrides the dated default.
func (h *Handler) ExportUsage(c *gin.Context) {
	format, err := usage.ParseFormat(c.Query("format"))
	if err != nil {
		handlers.RespondBadRequest(c, err.Error())
		return
	}
	filename := usage.ExportFilename(format, h.now())
	if name := sanitizeFilename(c.Query("filename")); name != "" {
		filename = name
	}

	var buf bytes.Buffer
	if err := h.ledger.Export(c.Request.Context(), &buf, format); err != nil {
		log.WithError(err).Error("usage export failed")
		handlers.RespondInternalError(c, "failed to export usage log")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// DeleteUsage clears the ledger and its text mirror.
func (h *Handler) DeleteUsage(c *gin.Context) {
	removed, err := h.ledger.ClearAndCount(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("usage clear failed")
		handlers.RespondError(c, http.StatusInternalServerError, handlers.ErrCodeWriteFailed, "failed to clear usage log")
		return
	}
	log.Infof("usage log cleared (%d entries)", removed)
	handlers.RespondOK(c, ClearResponse{Status: "cleared", Removed: removed})
}

func (h *Handler) parseTimeRange(c *gin.Context) (from, to time.Time, err error) {
	loc := h.ledger.Policy().Location
	if s := strings.TrimSpace(c.Query("from")); s != "" {
		if from, err = parseBound(s, loc, false); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
		}
	}
	if s := strings.TrimSpace(c.Query("to")); s != "" {
		if to, err = parseBound(s, loc, true); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to is before from")
	}
	return from, to, nil
}

// parseBound accepts a date or an RFC 3339 instant. A date used as an upper
// bound covers the whole day.
func parseBound(s string, loc *time.Location, upper bool) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		if upper {
			return t.AddDate(0, 0, 1).Add(-time.Nanosecond), nil
		}
		return t, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

// inRange keeps entries within [from, to]; a zero bound is open.
func inRange(logs []usage.Entry, from, to time.Time) []usage.Entry {
	if from.IsZero() && to.IsZero() {
		return logs
	}
	out := make([]usage.Entry, 0, len(logs))
	for _, e := range logs {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && e.Timestamp.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '\\' {
			return -1
		}
		return r
	}, name)
}
