package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/noeyos-p/hirehub-ai/internal/config"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
	"github.com/noeyos-p/hirehub-ai/internal/usecase"
)

// ReadinessProbe is one named dependency check run by /readyz.
type ReadinessProbe struct {
	Name  string
	Check func(ctx context.Context) error
}

// Server aggregates handler dependencies. Async may be nil when no broker is
// configured.
type Server struct {
	Cfg        config.Config
	Moderation *usecase.ModerationPipeline
	Matcher    *usecase.MatchScorer
	Assistant  *usecase.Assistant
	Interview  *usecase.Interview
	News       *usecase.NewsDigest
	Async      *usecase.ModerationSubmitter
	Probes     []ReadinessProbe
}

type chatRequest struct {
	Message string `json:"message" validate:"max=4000"`
}

type chatResponse struct {
	Answer string `json:"answer"`
}

// ChatHandler serves POST /ai/chat.
func (s *Server) ChatHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, chatResponse{Answer: s.Assistant.Chat(r.Context(), req.Message)})
	}
}

type contentRequest struct {
	Content string `json:"content" validate:"max=20000"`
}

// ModerateHandler serves POST /ai/moderate.
func (s *Server) ModerateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, s.Moderation.Moderate(r.Context(), req.Content))
	}
}

type asyncModerationResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ModerateAsyncHandler serves POST /ai/moderate/async. The verdict is
// published on the results topic under the returned id.
func (s *Server) ModerateAsyncHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Async == nil {
			writeError(w, r, fmt.Errorf("%w: async moderation disabled", domain.ErrProviderUnavailable), nil)
			return
		}
		var req contentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		id, err := s.Async.Submit(r.Context(), req.Content)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusAccepted, asyncModerationResponse{ID: id, Status: "queued"})
	}
}

type feedbackResponse struct {
	Feedback string `json:"feedback"`
}

// ReviewHandler serves POST /ai/review.
func (s *Server) ReviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req contentRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, feedbackResponse{Feedback: s.Assistant.ReviewResume(r.Context(), req.Content)})
	}
}

type matchRequest struct {
	Resume string `json:"resume" validate:"max=20000"`
	Job    string `json:"job" validate:"max=20000"`
}

// MatchOneHandler serves POST /ai/match-one.
func (s *Server) MatchOneHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, s.Matcher.Score(r.Context(), req.Resume, req.Job))
	}
}

type textRequest struct {
	Text string `json:"text" validate:"max=20000"`
}

type summaryResponse struct {
	Summary string `json:"summary"`
}

// SummarizeHandler serves POST /ai/summarize.
func (s *Server) SummarizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, summaryResponse{Summary: s.Assistant.Summarize(r.Context(), req.Text)})
	}
}

type embedResponse struct {
	Vector []float32 `json:"vector"`
}

// EmbedHandler serves POST /ai/embed.
func (s *Server) EmbedHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req textRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, embedResponse{Vector: s.Assistant.Embed(r.Context(), req.Text)})
	}
}

type questionsRequest struct {
	ResumeID          int64    `json:"resumeId" validate:"gte=0"`
	ResumeText        string   `json:"resumeText" validate:"max=20000"`
	JobPostID         int64    `json:"jobPostId" validate:"gte=0"`
	JobPostLink       string   `json:"jobPostLink" validate:"omitempty,max=2000"`
	CompanyID         int64    `json:"companyId" validate:"gte=0"`
	CompanyLink       string   `json:"companyLink" validate:"omitempty,max=2000"`
	PreviousQuestions []string `json:"previousQuestions" validate:"max=50,dive,max=1000"`
}

// GenerateQuestionsHandler serves POST /interview/generate-questions and
// answers with a bare JSON array.
func (s *Server) GenerateQuestionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req questionsRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, s.Interview.GenerateQuestions(r.Context(), usecase.QuestionRequest{
			ResumeID:          req.ResumeID,
			ResumeText:        req.ResumeText,
			JobPostID:         req.JobPostID,
			JobPostLink:       req.JobPostLink,
			CompanyID:         req.CompanyID,
			CompanyLink:       req.CompanyLink,
			PreviousQuestions: req.PreviousQuestions,
		}))
	}
}

type interviewFeedbackRequest struct {
	ResumeID    int64  `json:"resumeId" validate:"gte=0"`
	JobPostLink string `json:"jobPostLink" validate:"omitempty,max=2000"`
	CompanyLink string `json:"companyLink" validate:"omitempty,max=2000"`
	Question    string `json:"question" validate:"max=2000"`
	Answer      string `json:"answer" validate:"max=10000"`
	Context     string `json:"context" validate:"max=20000"`
}

// InterviewFeedbackHandler serves POST /interview/feedback.
func (s *Server) InterviewFeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req interviewFeedbackRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, feedbackResponse{Feedback: s.Interview.Feedback(r.Context(), usecase.FeedbackRequest{
			Question:    req.Question,
			Answer:      req.Answer,
			Context:     req.Context,
			JobPostLink: req.JobPostLink,
			CompanyLink: req.CompanyLink,
		})})
	}
}

type digestRequest struct {
	Query string `json:"query" validate:"max=200"`
	Days  int    `json:"days" validate:"gte=0,lte=30"`
	Limit int    `json:"limit" validate:"gte=0,lte=100"`
	Style string `json:"style" validate:"max=40"`
}

func (d digestRequest) toUsecase() usecase.DigestRequest {
	return usecase.DigestRequest{Query: d.Query, Days: d.Days, Limit: d.Limit, Style: d.Style}
}

// NewsFetchHandler serves POST /news/fetch.
func (s *Server) NewsFetchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req digestRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, s.News.Fetch(r.Context(), req.toUsecase()))
	}
}

// NewsDigestHandler serves POST /news/digest.
func (s *Server) NewsDigestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req digestRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		writeJSON(w, http.StatusOK, s.News.Digest(r.Context(), req.toUsecase()))
	}
}

// HealthHandler is a liveness check that touches no dependency.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// ReadyzHandler runs every probe under a short deadline.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]usecase.ReadinessCheck, 0, len(s.Probes))
		ok := true
		for _, p := range s.Probes {
			c := usecase.ReadinessCheck{Name: p.Name, OK: true}
			if err := p.Check(ctx); err != nil {
				c.OK = false
				c.Details = err.Error()
				ok = false
			}
			checks = append(checks, c)
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
