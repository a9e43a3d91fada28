package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"route", "method"},
	)

	AIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_requests_total",
			Help: "Total number of model calls by provider, operation and outcome",
		},
		[]string{"provider", "operation", "outcome"},
	)
	AIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_request_duration_seconds",
			Help:    "Model call duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)
	AITokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_tokens_total",
			Help: "Estimated prompt and completion tokens by model",
		},
		[]string{"model", "kind"},
	)

	QuotaWaitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ai_quota_wait_seconds",
			Help:    "Time spent blocked on the per-minute model budget",
			Buckets: []float64{0.5, 1, 5, 10, 30, 60},
		},
	)
	QuotaRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ai_quota_rejections_total",
			Help: "Calls rejected because the daily model budget was exhausted",
		},
	)

	FallbackAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_fallback_attempts_total",
			Help: "Fallback plan attempts by step index and result",
		},
		[]string{"step", "result"},
	)
	ExtractionStrategyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_extraction_strategy_total",
			Help: "Which JSON extraction strategy produced the value",
		},
		[]string{"strategy"},
	)

	ModerationDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moderation_decisions_total",
			Help: "Moderation decisions by path and verdict",
		},
		[]string{"path", "approve"},
	)
	MatchScoreHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_score",
			Help:    "Distribution of resume/job match scores",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"source"},
	)

	QueueMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_messages_total",
			Help: "Async moderation queue messages by direction and result",
		},
		[]string{"direction", "result"},
	)
)

var initOnce sync.Once

// InitMetrics registers every collector once per process.
func InitMetrics() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			AIRequestsTotal,
			AIRequestDuration,
			AITokensTotal,
			QuotaWaitSeconds,
			QuotaRejectionsTotal,
			FallbackAttemptsTotal,
			ExtractionStrategyTotal,
			ModerationDecisionsTotal,
			MatchScoreHistogram,
			QueueMessagesTotal,
		)
	})
}

// HTTPMetricsMiddleware records Prometheus metrics for each request.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		dur := time.Since(start).Seconds()
		route := RoutePattern(r)
		HTTPRequestsTotal.WithLabelValues(route, r.Method, http.StatusText(ww.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(route, r.Method).Observe(dur)
	})
}

// RoutePattern returns the chi route pattern, or the raw path outside chi.
func RoutePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}

// ObserveAICall records one provider call.
func ObserveAICall(provider, operation, outcome string, d time.Duration) {
	AIRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	AIRequestDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

// AddTokens records estimated token usage for a model.
func AddTokens(model string, prompt, completion int) {
	if prompt > 0 {
		AITokensTotal.WithLabelValues(model, "prompt").Add(float64(prompt))
	}
	if completion > 0 {
		AITokensTotal.WithLabelValues(model, "completion").Add(float64(completion))
	}
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ObserveModeration records a moderation verdict and the path that produced it.
func ObserveModeration(path string, approve bool) {
	ModerationDecisionsTotal.WithLabelValues(path, boolLabel(approve)).Inc()
}

// ObserveMatch records a match score and whether it came from the model or the heuristic.
func ObserveMatch(source string, score int) {
	MatchScoreHistogram.WithLabelValues(source).Observe(float64(score))
}
