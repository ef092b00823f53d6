package usage

import (
	"testing"
	"time"
)

func TestBreakdownOf(t *testing.T) {
	at := func(day, hour int) Timestamp {
		return NewTimestamp(time.Date(2024, 6, day, hour, 0, 0, 0, time.UTC))
	}
	logs := []Entry{
		{Timestamp: at(9, 8), Model: "flash", Status: StatusSuccess, TotalTokens: 10, EstimatedCost: 0.1},
		{Timestamp: at(10, 8), Model: "pro", Status: StatusSuccess, TotalTokens: 100, EstimatedCost: 1},
		{Timestamp: at(10, 9), Model: "pro", Status: StatusRateLimited},
		{Timestamp: at(10, 9), Model: "pro", Status: StatusError},
	}

	b := BreakdownOf(logs, time.UTC)

	if len(b.Models) != 2 || b.Models[0].Model != "pro" {
		t.Fatalf("Models = %+v, want pro first", b.Models)
	}
	pro := b.Models[0]
	if pro.Requests != 3 || pro.Failures != 1 || pro.RateLimited != 1 || pro.Tokens != 100 || pro.Cost != 1 {
		t.Errorf("pro stats = %+v", pro)
	}

	if len(b.Days) != 2 || b.Days[0].Day != "2024-06-09" || b.Days[1].Requests != 3 {
		t.Errorf("Days = %+v", b.Days)
	}

	if len(b.Hours) != 2 || b.Hours[0].Hour != 8 || b.Hours[0].Requests != 2 || b.Hours[1].Hour != 9 {
		t.Errorf("Hours = %+v", b.Hours)
	}
}

func TestBreakdownOf_Empty(t *testing.T) {
	b := BreakdownOf(nil, nil)
	if b.Models == nil || b.Days == nil || b.Hours == nil {
		t.Errorf("empty breakdown should use empty slices: %+v", b)
	}
}
