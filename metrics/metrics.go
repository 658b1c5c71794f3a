// Package metrics holds the Prometheus collectors for bot runs, posted tweets
// and LLM calls. All methods are safe on a nil *Metrics, so components can
// be built without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hakbot"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Tweet kinds.
const (
	KindMain  = "main"
	KindReply = "reply"
)

// Metrics owns a private registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	tweets      *prometheus.CounterVec
	llmRequests *prometheus.CounterVec
}

// New creates the collectors and registers them along with the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Bot runs by bot, mode (live/dry_run) and outcome.",
		}, []string{"bot", "mode", "outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a bot run.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}, []string{"bot"}),
		tweets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tweets_total",
			Help:      "Tweets posted by bot and kind (main/reply).",
		}, []string{"bot", "kind"}),
		llmRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "LLM completions by capability and outcome.",
		}, []string{"capability", "outcome"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runs,
		m.runDuration,
		m.tweets,
		m.llmRequests,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRun records one finished bot run.
func (m *Metrics) ObserveRun(bot string, dryRun bool, err error, d time.Duration) {
	if m == nil {
		return
	}
	mode := "live"
	if dryRun {
		mode = "dry_run"
	}
	m.runs.WithLabelValues(bot, mode, outcome(err)).Inc()
	m.runDuration.WithLabelValues(bot).Observe(d.Seconds())
}

// TweetPosted counts a tweet accepted by the social API.
func (m *Metrics) TweetPosted(bot, kind string) {
	if m == nil {
		return
	}
	m.tweets.WithLabelValues(bot, kind).Inc()
}

// LLMRequest counts one Complete call, after fallback.
func (m *Metrics) LLMRequest(capability string, err error) {
	if m == nil {
		return
	}
	m.llmRequests.WithLabelValues(capability, outcome(err)).Inc()
}

// Runs returns the run counter, for tests.
func (m *Metrics) Runs() *prometheus.CounterVec { return m.runs }

// Tweets returns the tweet counter, for tests.
func (m *Metrics) Tweets() *prometheus.CounterVec { return m.tweets }

// LLMRequests returns the LLM request counter, for tests.
func (m *Metrics) LLMRequests() *prometheus.CounterVec { return m.llmRequests }

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}
