// Package metrics exposes the service's Prometheus collectors and adapts
// them onto the domain lifecycle hooks.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mirislabs/renderd/pkg/domain"
)

// Metrics bundles the collectors on a private registry so tests can create
// instances without global registration conflicts.
type Metrics struct {
	registry *prometheus.Registry
	backend  string

	stageOpens     *prometheus.CounterVec
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
}

// New creates the collectors. The backend label identifies the configured
// renderer (kit or preview).
func New(backend string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		backend:  backend,
		stageOpens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "renderd_stage_opens_total",
			Help: "Total number of open_stage calls",
		}, []string{"result"}),
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "renderd_renders_total",
			Help: "Total number of render calls",
		}, []string{"result"}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "renderd_render_duration_seconds",
			Help:        "Wall time spent rendering a frame",
			ConstLabels: prometheus.Labels{"backend": backend},
			Buckets:     prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renderd_frame_cache_hits_total",
			Help: "Renders served from the frame cache",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "renderd_frame_cache_misses_total",
			Help: "Renders that went to the backend",
		}),
	}

	m.registry.MustRegister(
		m.stageOpens,
		m.renders,
		m.renderDuration,
		m.cacheHits,
		m.cacheMisses,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks adapts the collectors onto the service lifecycle hooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStageOpen: func(ctx context.Context, e *domain.StageEvent) {
			m.stageOpens.WithLabelValues(result(e.IsError)).Inc()
		},
		OnRenderDone: func(ctx context.Context, e *domain.RenderEvent) {
			m.renders.WithLabelValues(result(e.IsError)).Inc()
			if e.IsError {
				return
			}
			if e.CacheHit {
				m.cacheHits.Inc()
				return
			}
			m.cacheMisses.Inc()
			m.renderDuration.Observe(e.Elapsed.Seconds())
		},
	}
}

func result(isError bool) string {
	if isError {
		return "error"
	}
	return "ok"
}
