package usage

import (
	"time"

	"github.com/nghyane/inkledger/internal/config"
)

// Policy holds the tunables the ledger applies on every call. It can be
// swapped at runtime with Ledger.SetPolicy.
type Policy struct {
	MaxEntries         int
	MaxMirrorLines     int
	RateLimitWindow    time.Duration
	RateLimitThreshold int
	RateLimitMarkers   []string
	// Location defines day boundaries for TodayLogs and Breakdown.
	Location *time.Location
}

// DefaultPolicy returns the built-in retention and rate-limit settings.
func DefaultPolicy() Policy {
	return Policy{
		MaxEntries:         config.DefaultMaxEntries,
		MaxMirrorLines:     config.DefaultMaxMirrorLines,
		RateLimitWindow:    config.DefaultRateLimitWindow,
		RateLimitThreshold: config.DefaultRateLimitThreshold,
		RateLimitMarkers:   append([]string(nil), config.DefaultRateLimitMarkers...),
		Location:           time.Local,
	}
}

// PolicyFromConfig builds a Policy from the usage section of the config.
func PolicyFromConfig(cfg *config.Config) (Policy, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Policy{}, err
	}
	u := cfg.Usage
	return Policy{
		MaxEntries:         u.MaxEntries,
		MaxMirrorLines:     u.MaxMirrorLines,
		RateLimitWindow:    u.RateLimitWindow,
		RateLimitThreshold: u.RateLimitThreshold,
		RateLimitMarkers:   append([]string(nil), u.RateLimitMarkers...),
		Location:           loc,
	}.normalized(), nil
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.MaxEntries <= 0 {
		p.MaxEntries = d.MaxEntries
	}
	if p.MaxMirrorLines <= 0 {
		p.MaxMirrorLines = d.MaxMirrorLines
	}
	if p.RateLimitWindow <= 0 {
		p.RateLimitWindow = d.RateLimitWindow
	}
	if p.RateLimitThreshold <= 0 {
		p.RateLimitThreshold = d.RateLimitThreshold
	}
	if len(p.RateLimitMarkers) == 0 {
		p.RateLimitMarkers = d.RateLimitMarkers
	}
	if p.Location == nil {
		p.Location = d.Location
	}
	return p
}
