package recognition

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"
)

// Request is a single structured-output generation call.
type Request struct {
	Model             string
	Temperature       float32
	SystemInstruction string
	Parts             []Part
}

// TokenUsage is the token accounting reported by the service.
type TokenUsage struct {
	PromptTokens int64
	OutputTokens int64
}

// Response carries the raw JSON text and, when reported, token usage.
type Response struct {
	Text  string
	Usage *TokenUsage
}

// Generator sends a prompt to a multimodal model and returns its JSON answer.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// GeminiGenerator implements Generator on the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("recognition: create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, req Request) (*Response, error) {
	parts := make([]*genai.Part, 0, len(req.Parts))
	for _, p := range req.Parts {
		if p.Image != nil {
			parts = append(parts, genai.NewPartFromBytes(p.Image.Data, p.Image.MIMEType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(req.SystemInstruction, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    recordsSchema(),
		Temperature:       genai.Ptr(req.Temperature),
	}

	resp, err := g.client.Models.GenerateContent(ctx, req.Model, contents, cfg)
	if err != nil {
		return nil, err
	}

	out := &Response{Text: resp.Text()}
	if md := resp.UsageMetadata; md != nil {
		out.Usage = &TokenUsage{
			PromptTokens: int64(md.PromptTokenCount),
			OutputTokens: int64(md.CandidatesTokenCount),
		}
	}
	return out, nil
}

func lineSchema(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeObject,
		Description: description,
		Properties: map[string]*genai.Schema{
			"text": {
				Type:        genai.TypeString,
				Description: "Option 1: The most visually accurate transcription based on pixel evidence. Marathi Only.",
			},
			"alternatives": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "List of 10-12 alternative readings including Stroke Variations (Step 3) and Phonetic Predictions (Step 4). Marathi Only.",
			},
			"box_2d": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeInteger},
				Description: "Bounding box coordinates [ymin, xmin, ymax, xmax] on a 0-1000 scale.",
			},
		},
		Required: []string{"text", "alternatives"},
	}
}

func recordsSchema() *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Description: "List of OCR records for each file",
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"file_name":      {Type: genai.TypeString, Description: "The name of the file"},
				"document_type":  {Type: genai.TypeString, Description: "Type of document (e.g. 'नोंद', 'पत्र')"},
				"flat_number":    lineSchema("The Sr. No or Flat Number from the first column."),
				"original_owner": lineSchema("The text from the first line (Original Owner)."),
				"transfers": {
					Type:        genai.TypeArray,
					Description: "List of subsequent transfer names.",
					Items:       lineSchema(""),
				},
			},
			Required: []string{"file_name", "document_type", "flat_number", "original_owner", "transfers"},
		},
	}
}

var retryableStatuses = []string{"RESOURCE_EXHAUSTED", "UNAVAILABLE", "INTERNAL", "DEADLINE_EXCEEDED"}

// Retryable reports whether a failed generation is worth another attempt:
// throttling and server-side failures.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return retryableCode(apiErr.Code)
	}
	msg := err.Error()
	for _, status := range retryableStatuses {
		if strings.Contains(msg, status) {
			return true
		}
	}
	return false
}

func retryableCode(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}
