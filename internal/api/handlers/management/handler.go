// Package management implements the usage monitor's management endpoints.
package management

import (
	"context"
	"time"

	"github.com/nghyane/inkledger/internal/usage"
)

// QuotaReporter exposes the store's byte consumption.
type QuotaReporter interface {
	Usage(ctx context.Context) (int64, error)
	Limit() int64
}

// Handler serves /v0/management routes over a usage ledger.
type Handler struct {
	ledger *usage.Ledger
	quota  QuotaReporter
	now    func() time.Time
}

// NewHandler returns a handler for ledger. quota may be nil.
func NewHandler(ledger *usage.Ledger, quota QuotaReporter) *Handler {
	return &Handler{ledger: ledger, quota: quota, now: time.Now}
}
