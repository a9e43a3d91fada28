package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/noeyos-p/hirehub-ai/internal/adapter/httpserver"
	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/service/ratelimiter"
)

// AIBucket names the shared rate limit bucket for model-backed routes.
const AIBucket = "ai"

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
// A nil limiter falls back to an in-process per-IP limit.
func BuildRouter(cfg config.Config, srv *httpserver.Server, limiter ratelimiter.Limiter) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(middleware.RealIP)
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(cfg.RequestTimeout))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Group(func(wr chi.Router) {
		if cfg.RateLimitPerMin > 0 {
			if limiter != nil {
				wr.Use(ratelimiter.Middleware(limiter, AIBucket, ratelimiter.ClientIP))
			} else {
				wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, time.Minute))
			}
		}
		wr.Post("/ai/chat", srv.ChatHandler())
		wr.Post("/ai/moderate", srv.ModerateHandler())
		wr.Post("/ai/moderate/async", srv.ModerateAsyncHandler())
		wr.Post("/ai/review", srv.ReviewHandler())
		wr.Post("/ai/match-one", srv.MatchOneHandler())
		wr.Post("/ai/summarize", srv.SummarizeHandler())
		wr.Post("/ai/embed", srv.EmbedHandler())
		wr.Post("/interview/generate-questions", srv.GenerateQuestionsHandler())
		wr.Post("/interview/feedback", srv.InterviewFeedbackHandler())
		wr.Post("/news/fetch", srv.NewsFetchHandler())
		wr.Post("/news/digest", srv.NewsDigestHandler())
	})

	r.Get("/", srv.HealthHandler())
	r.Get("/health", srv.HealthHandler())
	r.Get("/healthz", srv.HealthHandler())
	r.Get("/readyz", srv.ReadyzHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return httpserver.SecurityHeaders(r)
}
