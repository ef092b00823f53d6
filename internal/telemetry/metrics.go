package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nghyane/inkledger/internal/usage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "inkledger"

// Metrics holds the collectors fed by the usage ledger and the HTTP router.
// Each Metrics owns its registry.
type Metrics struct {
	registry *prometheus.Registry

	RecognitionCalls    *prometheus.CounterVec
	RecognitionTokens   *prometheus.CounterVec
	RecognitionCost     *prometheus.CounterVec
	RecognitionFiles    *prometheus.CounterVec
	RecognitionDuration *prometheus.HistogramVec

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		RecognitionCalls: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_calls_total",
			Help:      "Recognition calls recorded in the usage ledger, by outcome.",
		}, []string{"model", "status"}),
		RecognitionTokens: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_tokens_total",
			Help:      "Tokens reported by the recognition service.",
		}, []string{"model", "kind"}),
		RecognitionCost: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_cost_usd_total",
			Help:      "Estimated recognition cost in USD.",
		}, []string{"model"}),
		RecognitionFiles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recognition_files_total",
			Help:      "Images submitted for recognition.",
		}, []string{"model"}),
		RecognitionDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recognition_duration_seconds",
			Help:      "Wall time of recognition calls.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
		}, []string{"status"}),
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served.",
		}, []string{"route", "code"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// ObserveEntry is a usage.Observer.
func (m *Metrics) ObserveEntry(e usage.Entry) {
	if m == nil {
		return
	}
	m.RecognitionCalls.WithLabelValues(e.Model, string(e.Status)).Inc()
	m.RecognitionFiles.WithLabelValues(e.Model).Add(float64(e.FilesProcessed))
	m.RecognitionDuration.WithLabelValues(string(e.Status)).Observe(float64(e.ProcessingTimeMs) / 1000)
	if e.Status != usage.StatusSuccess {
		return
	}
	m.RecognitionTokens.WithLabelValues(e.Model, "prompt").Add(float64(e.PromptTokens))
	m.RecognitionTokens.WithLabelValues(e.Model, "output").Add(float64(e.OutputTokens))
	m.RecognitionCost.WithLabelValues(e.Model).Add(e.EstimatedCost)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// GinMiddleware counts requests by matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
