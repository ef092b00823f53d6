package recognition

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nghyane/inkledger/internal/json"
	"github.com/tidwall/gjson"
)

// ErrEmptyResponse is returned when the model answers without any text.
var ErrEmptyResponse = errors.New("No response text received from model.")

// Line is one transcribed line with its alternative readings.
type Line struct {
	Text         string   `json:"text"`
	Alternatives []string `json:"alternatives"`
	// Box2D is [ymin, xmin, ymax, xmax] on a 0-1000 scale.
	Box2D []int `json:"box_2d,omitempty"`
}

// Record is the structured transcription of one page.
type Record struct {
	ID            string  `json:"id"`
	FileName      string  `json:"file_name"`
	DocumentType  string  `json:"document_type"`
	FlatNumber    Line    `json:"flat_number"`
	OriginalOwner Line    `json:"original_owner"`
	Transfers     []Line  `json:"transfers"`
	EstimatedCost float64 `json:"estimated_cost"`
}

func parseRecords(text string) ([]Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyResponse
	}
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("recognition: model returned invalid JSON")
	}
	if !gjson.Parse(text).IsArray() {
		return nil, fmt.Errorf("recognition: model returned %s, want an array of records", gjson.Parse(text).Type)
	}

	var records []Record
	if err := json.Unmarshal([]byte(text), &records); err != nil {
		return nil, fmt.Errorf("recognition: decode records: %w", err)
	}
	for i := range records {
		r := &records[i]
		r.ID = uuid.NewString()
		r.FlatNumber.normalize()
		r.OriginalOwner.normalize()
		if r.Transfers == nil {
			r.Transfers = []Line{}
		}
		for j := range r.Transfers {
			r.Transfers[j].normalize()
		}
	}
	return records, nil
}

func (l *Line) normalize() {
	if l.Alternatives == nil {
		l.Alternatives = []string{}
	}
}
