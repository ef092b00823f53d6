package management

import "github.com/nghyane/inkledger/internal/usage"

// UsageResponse is the usage monitor snapshot.
type UsageResponse struct {
	SessionID string          `json:"session-id"`
	Summary   usage.Summary   `json:"summary"`
	Today     usage.Summary   `json:"today"`
	Session   usage.Summary   `json:"session"`
	Warning   string          `json:"warning,omitempty"`
	Breakdown usage.Breakdown `json:"breakdown"`
}

// UsageLogsResponse lists ledger entries for a scope.
type UsageLogsResponse struct {
	Scope   string        `json:"scope"`
	From    string        `json:"from,omitempty"`
	To      string        `json:"to,omitempty"`
	Count   int           `json:"count"`
	Summary usage.Summary `json:"summary"`
	Logs    []usage.Entry `json:"logs"`
}

// QuotaResponse reports store consumption against its limit.
type QuotaResponse struct {
	UsedBytes    int64   `json:"used-bytes"`
	LimitBytes   int64   `json:"limit-bytes"`
	UsedPercent  float64 `json:"used-percent"`
	UsedHuman    string  `json:"used"`
	LimitHuman   string  `json:"limit"`
	LedgerLength int     `json:"ledger-entries"`
}

// ClearResponse confirms a clear.
type ClearResponse struct {
	Status  string `json:"status"`
	Removed int    `json:"removed"`
}
