package usage

import (
	"sort"
	"time"
)

// ModelStats aggregates entries for one model.
type ModelStats struct {
	Model       string  `json:"model"`
	Requests    int64   `json:"requests"`
	Failures    int64   `json:"failures"`
	RateLimited int64   `json:"rateLimited"`
	Tokens      int64   `json:"tokens"`
	Cost        float64 `json:"cost"`
}

// DailyStats represents aggregated metrics for a single day.
type DailyStats struct {
	Day      string  `json:"day"` // Format: "2006-01-02"
	Requests int64   `json:"requests"`
	Tokens   int64   `json:"tokens"`
	Cost     float64 `json:"cost"`
}

// HourlyStats represents aggregated metrics for an hour of the day.
type HourlyStats struct {
	Hour     int   `json:"hour"` // 0-23
	Requests int64 `json:"requests"`
	Tokens   int64 `json:"tokens"`
}

// Breakdown groups entries per model, per day and per hour of day for the
// usage monitor.
type Breakdown struct {
	Models []ModelStats  `json:"models"`
	Days   []DailyStats  `json:"days"`
	Hours  []HourlyStats `json:"hours"`
}

// BreakdownOf aggregates logs. Days and hours are computed in loc; a nil loc
// means time.Local.
func BreakdownOf(logs []Entry, loc *time.Location) Breakdown {
	if loc == nil {
		loc = time.Local
	}
	models := map[string]*ModelStats{}
	days := map[string]*DailyStats{}
	var hours [24]HourlyStats

	for _, e := range logs {
		m, ok := models[e.Model]
		if !ok {
			m = &ModelStats{Model: e.Model}
			models[e.Model] = m
		}
		m.Requests++
		m.Tokens += e.TotalTokens
		m.Cost += e.EstimatedCost
		switch e.Status {
		case StatusError:
			m.Failures++
		case StatusRateLimited:
			m.RateLimited++
		}

		local := e.Timestamp.In(loc)
		key := local.Format("2006-01-02")
		d, ok := days[key]
		if !ok {
			d = &DailyStats{Day: key}
			days[key] = d
		}
		d.Requests++
		d.Tokens += e.TotalTokens
		d.Cost += e.EstimatedCost

		h := &hours[local.Hour()]
		h.Requests++
		h.Tokens += e.TotalTokens
	}

	b := Breakdown{
		Models: make([]ModelStats, 0, len(models)),
		Days:   make([]DailyStats, 0, len(days)),
		Hours:  make([]HourlyStats, 0, len(hours)),
	}
	for _, m := range models {
		b.Models = append(b.Models, *m)
	}
	sort.Slice(b.Models, func(i, j int) bool {
		if b.Models[i].Requests != b.Models[j].Requests {
			return b.Models[i].Requests > b.Models[j].Requests
		}
		return b.Models[i].Model < b.Models[j].Model
	})
	for _, d := range days {
		b.Days = append(b.Days, *d)
	}
	sort.Slice(b.Days, func(i, j int) bool { return b.Days[i].Day < b.Days[j].Day })
	for i := range hours {
		if hours[i].Requests == 0 {
			continue
		}
		hours[i].Hour = i
		b.Hours = append(b.Hours, hours[i])
	}
	return b
}

// Breakdown aggregates every retained entry using the policy location.
func (l *Ledger) Breakdown(logs []Entry) Breakdown {
	return BreakdownOf(logs, l.Policy().Location)
}
