package usage

// Summary is an aggregate over a sequence of entries. It is always computed,
// never stored.
type Summary struct {
	TotalRequests         int     `json:"totalRequests"`
	SuccessfulRequests    int     `json:"successfulRequests"`
	FailedRequests        int     `json:"failedRequests"`
	RateLimitedRequests   int     `json:"rateLimitedRequests"`
	TotalPromptTokens     int64   `json:"totalPromptTokens"`
	TotalOutputTokens     int64   `json:"totalOutputTokens"`
	TotalTokens           int64   `json:"totalTokens"`
	TotalCost             float64 `json:"totalCost"`
	AverageProcessingTime float64 `json:"averageProcessingTime"`
	FirstRequest          string  `json:"firstRequest"`
	LastRequest           string  `json:"lastRequest"`
}

// Summarize aggregates logs in the order given. First and last request are
// taken positionally, so callers pass chronologically ordered entries.
func Summarize(logs []Entry) Summary {
	var s Summary
	if len(logs) == 0 {
		return s
	}

	var totalTime int64
	for _, e := range logs {
		switch e.Status {
		case StatusSuccess:
			s.SuccessfulRequests++
		case StatusError:
			s.FailedRequests++
		case StatusRateLimited:
			s.RateLimitedRequests++
		}
		s.TotalPromptTokens += e.PromptTokens
		s.TotalOutputTokens += e.OutputTokens
		s.TotalTokens += e.TotalTokens
		s.TotalCost += e.EstimatedCost
		totalTime += e.ProcessingTimeMs
	}
	s.TotalRequests = len(logs)
	s.AverageProcessingTime = float64(totalTime) / float64(len(logs))
	s.FirstRequest = logs[0].Timestamp.String()
	s.LastRequest = logs[len(logs)-1].Timestamp.String()
	return s
}
