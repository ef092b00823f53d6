// Package recognition sends batches of handwritten page images to Gemini and
// turns the structured answer into records, reporting every call to the
// usage ledger.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nghyane/inkledger/internal/config"
	log "github.com/nghyane/inkledger/internal/logging"
	"github.com/nghyane/inkledger/internal/resilience"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nghyane/inkledger/internal/recognition"

var (
	ErrMissingAPIKey = errors.New("API Key is missing. Please check your environment configuration.")
	ErrNoImages      = errors.New("recognition: at least one image is required")
)

// GeneratorFactory builds a Generator for an API key.
type GeneratorFactory func(ctx context.Context, apiKey string) (Generator, error)

func geminiFactory(ctx context.Context, apiKey string) (Generator, error) {
	return NewGeminiGenerator(ctx, apiKey)
}

type Option func(*Client)

// WithGenerator fixes the generator instead of building one from the API key.
func WithGenerator(g Generator) Option {
	return func(c *Client) {
		c.factory = func(context.Context, string) (Generator, error) { return g, nil }
	}
}

// WithGeneratorFactory replaces how generators are built from API keys.
func WithGeneratorFactory(f GeneratorFactory) Option {
	return func(c *Client) { c.factory = f }
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// WithBreaker guards generator calls with a circuit breaker.
func WithBreaker(cfg resilience.BreakerConfig) Option {
	return func(c *Client) { c.breaker = &cfg }
}

// Client runs recognition calls. It is safe for concurrent use and its
// configuration can be swapped at runtime with SetConfig.
type Client struct {
	recorder Recorder
	factory  GeneratorFactory
	now      func() time.Time
	tracer   trace.Tracer
	breaker  *resilience.BreakerConfig

	mu        sync.Mutex
	cfg       config.Recognition
	generator Generator
	genKey    string
	executor  *resilience.Executor[*Response]
}

// NewClient returns a client that reports every call to rec.
func NewClient(cfg config.Recognition, rec Recorder, opts ...Option) *Client {
	c := &Client{
		recorder: rec,
		factory:  geminiFactory,
		now:      time.Now,
		tracer:   otel.Tracer(tracerName),
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.executor = c.newExecutor(cfg)
	return c
}

func (c *Client) newExecutor(cfg config.Recognition) *resilience.Executor[*Response] {
	retry := resilience.DefaultRetryConfig
	retry.MaxRetries = cfg.RequestRetry
	if cfg.MaxRetryInterval > 0 {
		retry.MaxDelay = cfg.MaxRetryInterval
	}
	if retry.BaseDelay >= retry.MaxDelay {
		retry.BaseDelay = retry.MaxDelay / 4
	}
	if retry.JitterDelay > retry.BaseDelay/2 {
		retry.JitterDelay = retry.BaseDelay / 2
	}
	retry.ShouldRetry = Retryable
	return resilience.NewExecutor[*Response](retry, c.breaker)
}

// Config returns the active recognition settings.
func (c *Client) Config() config.Recognition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// SetConfig applies new settings. A changed API key rebuilds the generator on
// the next call. Breaker state is reset.
func (c *Client) SetConfig(cfg config.Recognition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
	c.executor = c.newExecutor(cfg)
	if cfg.APIKey != c.genKey {
		c.generator = nil
	}
}

func (c *Client) prepare(ctx context.Context) (config.Recognition, Generator, *resilience.Executor[*Response], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cfg := c.cfg
	if !cfg.HasAPIKey() {
		return cfg, nil, nil, ErrMissingAPIKey
	}
	if c.generator == nil {
		g, err := c.factory(ctx, cfg.APIKey)
		if err != nil {
			return cfg, nil, nil, err
		}
		c.generator = g
		c.genKey = cfg.APIKey
	}
	return cfg, c.generator, c.executor, nil
}

// Recognize transcribes images in a single model call. Exactly one usage
// entry is written for the call, success or failure, unless the client is
// not configured with an API key.
func (c *Client) Recognize(ctx context.Context, images []Image) (records []Record, err error) {
	cfg, gen, exec, err := c.prepare(ctx)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrNoImages
	}

	ctx, span := c.tracer.Start(ctx, "recognition.Recognize", trace.WithAttributes(
		attribute.String("gen_ai.request.model", cfg.Model),
		attribute.Int("recognition.files", len(images)),
	))
	defer span.End()

	reporter := newUsageReporter(c.recorder, cfg.Model, len(images), c.now)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.WithError(err).Errorf("recognition: %s failed for %d file(s)", cfg.Model, len(images))
		}
	}()
	defer reporter.trackFailure(ctx, &err)

	callCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req := Request{
		Model:             cfg.Model,
		Temperature:       cfg.Temperature,
		SystemInstruction: systemInstruction,
		Parts:             buildParts(images),
	}
	resp, err := exec.Execute(callCtx, func() (*Response, error) {
		r, err := gen.Generate(callCtx, req)
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, ErrEmptyResponse
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	records, err = parseRecords(resp.Text)
	if err != nil {
		return nil, err
	}

	var tokens TokenUsage
	if resp.Usage != nil {
		tokens = *resp.Usage
	}
	perRecord := splitCost(cfg.Pricing, resp.Usage, len(records))
	var total float64
	for i := range records {
		records[i].EstimatedCost = perRecord
		total += perRecord
	}

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", tokens.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", tokens.OutputTokens),
		attribute.Int("recognition.records", len(records)),
	)
	reporter.publishSuccess(ctx, tokens, total)
	log.Debugf("recognition: %s returned %d record(s), %d prompt / %d output tokens", cfg.Model, len(records), tokens.PromptTokens, tokens.OutputTokens)
	return records, nil
}

// splitCost divides the call's cost evenly across the returned records. It is
// an approximation: pages are not metered individually.
func splitCost(p config.Pricing, u *TokenUsage, n int) float64 {
	if u == nil || n <= 0 {
		return 0
	}
	return p.Cost(u.PromptTokens, u.OutputTokens) / float64(n)
}

// String describes the client for logs without exposing the API key.
func (c *Client) String() string {
	cfg := c.Config()
	return fmt.Sprintf("recognition(model=%s, retries=%d, key=%t)", cfg.Model, cfg.RequestRetry, cfg.HasAPIKey())
}
