package config

import (
	"fmt"
	"strings"
	"time"
)

// Recognition configures the Gemini-backed handwriting recognition client.
type Recognition struct {
	// APIKey is the Gemini API key. Env overrides take precedence.
	APIKey string `yaml:"api-key,omitempty" json:"api-key,omitempty"`

	// Model is the model name sent with every request.
	Model string `yaml:"model" json:"model"`

	Temperature float32       `yaml:"temperature" json:"temperature"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`

	// RequestRetry is the number of extra attempts after a failed call. Zero disables retry.
	RequestRetry     int           `yaml:"request-retry" json:"request-retry"`
	MaxRetryInterval time.Duration `yaml:"max-retry-interval" json:"max-retry-interval"`

	Pricing Pricing `yaml:"pricing" json:"pricing"`
}

// Pricing is the USD price per million tokens.
type Pricing struct {
	InputPerMillion  float64 `yaml:"input-per-million" json:"input-per-million"`
	OutputPerMillion float64 `yaml:"output-per-million" json:"output-per-million"`
}

// Cost returns the USD cost of a single call.
func (p Pricing) Cost(promptTokens, outputTokens int64) float64 {
	return float64(promptTokens)/1_000_000*p.InputPerMillion +
		float64(outputTokens)/1_000_000*p.OutputPerMillion
}

// HasAPIKey reports whether a non-blank key is configured.
func (r *Recognition) HasAPIKey() bool {
	return strings.TrimSpace(r.APIKey) != ""
}

func (r *Recognition) sanitize() {
	r.APIKey = strings.TrimSpace(r.APIKey)
	r.Model = strings.TrimSpace(r.Model)
	if r.Model == "" {
		r.Model = DefaultModel
	}
	if r.Timeout <= 0 {
		r.Timeout = DefaultTimeout
	}
	if r.RequestRetry < 0 {
		r.RequestRetry = 0
	}
	if r.MaxRetryInterval <= 0 {
		r.MaxRetryInterval = DefaultMaxRetryInterval
	}
}

// Validate checks the recognition section. A missing API key is not an error
// here; it is reported when a recognition call is attempted.
func (r *Recognition) Validate() error {
	if r.Temperature < 0 || r.Temperature > 2 {
		return &ValidationError{Field: "recognition.temperature", Message: fmt.Sprintf("%.2f is outside [0, 2]", r.Temperature)}
	}
	if r.Pricing.InputPerMillion < 0 {
		return &ValidationError{Field: "recognition.pricing.input-per-million", Message: "must not be negative"}
	}
	if r.Pricing.OutputPerMillion < 0 {
		return &ValidationError{Field: "recognition.pricing.output-per-million", Message: "must not be negative"}
	}
	return nil
}
