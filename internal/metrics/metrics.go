// Package metrics exposes prometheus collectors for the validation service.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives service events. Library code depends on this interface
// so it never needs a registry.
type Recorder interface {
	LLMCall(mode, outcome string, d time.Duration)
	RateLimitDecision(allowed bool)
	ValidationRun(outcome string, d time.Duration)
	CellProcessed(result string)
}

// Cell outcomes reported through CellProcessed.
const (
	CellAccepted = "accepted"
	CellRejected = "rejected"
	CellRoot     = "root"
	CellBlocked  = "blocked"
)

// Nop discards every event.
type Nop struct{}

func (Nop) LLMCall(string, string, time.Duration) {}
func (Nop) RateLimitDecision(bool)                {}
func (Nop) ValidationRun(string, time.Duration)   {}
func (Nop) CellProcessed(string)                  {}

// Prometheus records events into a private registry.
type Prometheus struct {
	registry *prometheus.Registry

	llmCalls       *prometheus.CounterVec
	llmDuration    *prometheus.HistogramVec
	rateDecisions  *prometheus.CounterVec
	validationRuns *prometheus.CounterVec
	validationTime prometheus.Histogram
	cellsProcessed *prometheus.CounterVec
}

// NewPrometheus registers all collectors on a fresh registry.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		llmCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "maams_llm_calls_total",
			Help: "LLM adapter calls by mode and outcome",
		}, []string{"mode", "outcome"}),
		llmDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "maams_llm_call_duration_seconds",
			Help:    "Latency of LLM adapter calls",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"mode"}),
		rateDecisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "maams_ratelimit_decisions_total",
			Help: "Rate-limit gate decisions",
		}, []string{"decision"}),
		validationRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "maams_validation_runs_total",
			Help: "Grid validation runs by outcome",
		}, []string{"outcome"}),
		validationTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "maams_validation_duration_seconds",
			Help:    "Wall time of a full grid validation run",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		cellsProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "maams_cells_processed_total",
			Help: "Cells handled by the engine by result",
		}, []string{"result"}),
	}
}

func (p *Prometheus) LLMCall(mode, outcome string, d time.Duration) {
	p.llmCalls.WithLabelValues(mode, outcome).Inc()
	p.llmDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *Prometheus) RateLimitDecision(allowed bool) {
	decision := "refused"
	if allowed {
		decision = "admitted"
	}
	p.rateDecisions.WithLabelValues(decision).Inc()
}

func (p *Prometheus) ValidationRun(outcome string, d time.Duration) {
	p.validationRuns.WithLabelValues(outcome).Inc()
	p.validationTime.Observe(d.Seconds())
}

func (p *Prometheus) CellProcessed(result string) {
	p.cellsProcessed.WithLabelValues(result).Inc()
}

// Registry returns the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
