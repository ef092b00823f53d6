package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/nghyane/inkledger/internal/json"
)

// computeContentHash fingerprints raw config bytes so saves that do not
// change the file are ignored.
func computeContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

type markersSummary struct {
	hash  string
	count int
}

// summarizeMarkers fingerprints a marker list. Markers match case-sensitively
// and order does not matter, so only blanks and duplicates are dropped.
func summarizeMarkers(list []string) markersSummary {
	if len(list) == 0 {
		return markersSummary{}
	}
	seen := make(map[string]struct{}, len(list))
	normalized := make([]string, 0, len(list))
	for _, entry := range list {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		if _, exists := seen[entry]; exists {
			continue
		}
		seen[entry] = struct{}{}
		normalized = append(normalized, entry)
	}
	if len(normalized) == 0 {
		return markersSummary{}
	}
	sort.Strings(normalized)
	data, err := json.Marshal(normalized)
	if err != nil {
		return markersSummary{count: len(normalized)}
	}
	return markersSummary{hash: computeContentHash(data), count: len(normalized)}
}
