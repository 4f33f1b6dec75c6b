package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the career engine's Prometheus collectors. A nil *Recorder
// is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	advances         *prometheus.CounterVec
	advanceDuration  prometheus.Histogram
	batches          prometheus.Counter
	matchesSimulated prometheus.Counter
	dispatchFailures prometheus.Counter
	careerTicks      prometheus.Counter
	stageDuration    *prometheus.HistogramVec
	stageFailures    *prometheus.CounterVec
}

func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = "career_engine"
	}
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Recorder{
		registry: registry,
		advances: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advances_total",
			Help:      "Matchday advance calls by outcome status.",
		}, []string{"status"}),
		advanceDuration: auto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advance_duration_seconds",
			Help:      "Wall time of a matchday advance including every batch it processed.",
			Buckets:   prometheus.DefBuckets,
		}),
		batches: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_processed_total",
			Help:      "Matchday batches simulated and persisted.",
		}),
		matchesSimulated: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_simulated_total",
			Help:      "Matches simulated across all batches.",
		}),
		dispatchFailures: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "career_dispatch_failures_total",
			Help:      "Career tick runs that could not be handed to the background executor.",
		}),
		careerTicks: auto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "career_ticks_total",
			Help:      "Career ticks processed.",
		}),
		stageDuration: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "season_end_stage_duration_seconds",
			Help:      "Duration of each season-end pipeline stage.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		stageFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "season_end_stage_failures_total",
			Help:      "Season-end pipeline stage failures.",
		}, []string{"stage"}),
	}
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) ObserveAdvance(status string, took time.Duration) {
	if r == nil {
		return
	}
	r.advances.WithLabelValues(status).Inc()
	r.advanceDuration.Observe(took.Seconds())
}

func (r *Recorder) BatchProcessed(matches int) {
	if r == nil {
		return
	}
	r.batches.Inc()
	r.matchesSimulated.Add(float64(matches))
}

func (r *Recorder) DispatchFailed() {
	if r == nil {
		return
	}
	r.dispatchFailures.Inc()
}

func (r *Recorder) CareerTicks(n int) {
	if r == nil {
		return
	}
	r.careerTicks.Add(float64(n))
}

func (r *Recorder) ObserveStage(stage string, took time.Duration, err error) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(took.Seconds())
	if err != nil {
		r.stageFailures.WithLabelValues(stage).Inc()
	}
}
