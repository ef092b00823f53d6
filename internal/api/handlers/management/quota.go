package management

import (
	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/api/handlers"
	log "github.com/nghyane/inkledger/internal/logging"
)

// GetQuota reports how much of the store's byte quota the ledger occupies.
func (h *Handler) GetQuota(c *gin.Context) {
	ctx := c.Request.Context()
	resp := QuotaResponse{LedgerLength: len(h.ledger.AllLogs(ctx))}
	if h.quota == nil {
		handlers.RespondOK(c, resp)
		return
	}

	used, err := h.quota.Usage(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to measure store usage")
		handlers.RespondInternalError(c, "failed to measure store usage")
		return
	}
	resp.UsedBytes = used
	resp.LimitBytes = h.quota.Limit()
	resp.UsedHuman = humanize.IBytes(uint64(max(used, 0)))
	if resp.LimitBytes > 0 {
		resp.UsedPercent = float64(used) / float64(resp.LimitBytes) * 100
		resp.LimitHuman = humanize.IBytes(uint64(resp.LimitBytes))
	}
	handlers.RespondOK(c, resp)
}
