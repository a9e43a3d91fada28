package ai

import (
	"context"
	"log/slog"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noeyos-p/hirehub-ai/internal/adapter/observability"
	"github.com/noeyos-p/hirehub-ai/internal/domain"
)

// NoModelResponse is returned when a whole plan is exhausted. Never empty, so
// callers can always render the value.
const NoModelResponse = "⚠️ no model response"

// Gate is the pre-call budget check; *QuotaGate implements it.
type Gate interface {
	CheckAndWait(ctx context.Context) error
}

// PlanStep is one (model, task) attempt.
type PlanStep struct {
	Label   string
	Model   string
	Task    domain.GenerationTask
	Quality QualityCheck
}

// FallbackPlan is consumed front to back, stopping at the first acceptable result.
type FallbackPlan []PlanStep

// TwoModelPlan tries the primary model, then the secondary, with the same task.
func TwoModelPlan(primary, secondary string, task domain.GenerationTask, quality QualityCheck) FallbackPlan {
	plan := FallbackPlan{{Label: "primary", Model: primary, Task: task, Quality: quality}}
	if secondary != "" {
		plan = append(plan, PlanStep{Label: "secondary", Model: secondary, Task: task, Quality: quality})
	}
	return plan
}

// DegradingPromptPlan tries the detailed task, then a simplified task with a
// relaxed quality bar, both against one model.
func DegradingPromptPlan(model string, full domain.GenerationTask, fullQuality QualityCheck, simple domain.GenerationTask, simpleQuality QualityCheck) FallbackPlan {
	return FallbackPlan{
		{Label: "full", Model: model, Task: full, Quality: fullQuality},
		{Label: "simplified", Model: model, Task: simple, Quality: simpleQuality},
	}
}

// Outcome describes how a plan ended.
type Outcome struct {
	// Text is the accepted response, or NoModelResponse when OK is false.
	Text  string
	Model string
	Step  string
	OK    bool
	// Attempts counts plan entries consumed, skipped ones included.
	Attempts int
	// LastKind classifies the last failure seen; ErrorKindNone if every
	// failure was an empty or low-quality response.
	LastKind domain.ErrorKind
	// Rejected is the last non-empty response that failed its quality check.
	Rejected string
}

// Orchestrator runs fallback plans. It is prompt-agnostic.
type Orchestrator struct {
	invoker  domain.ModelInvoker
	gate     Gate
	breakers *BreakerSet
}

// NewOrchestrator wires an invoker behind the quota gate. breakers may be nil.
func NewOrchestrator(invoker domain.ModelInvoker, gate Gate, breakers *BreakerSet) *Orchestrator {
	return &Orchestrator{invoker: invoker, gate: gate, breakers: breakers}
}

// RunWithFallback returns the first acceptable text or NoModelResponse.
func (o *Orchestrator) RunWithFallback(ctx context.Context, plan FallbackPlan) string {
	return o.Run(ctx, plan).Text
}

// Run consumes the plan and reports the outcome. A quota failure is never
// retried; it moves straight to the next entry.
func (o *Orchestrator) Run(ctx context.Context, plan FallbackPlan) Outcome {
	lg := observability.LoggerFromContext(ctx)
	tracer := otel.Tracer("ai.orchestrator")
	out := Outcome{Text: NoModelResponse}

	for i, step := range plan {
		out.Attempts++
		stepIdx := strconv.Itoa(i)

		if o.breakers != nil && !o.breakers.For(step.Model).ShouldAttempt() {
			out.LastKind = domain.ErrorKindTransient
			observability.FallbackAttemptsTotal.WithLabelValues(stepIdx, "circuit_open").Inc()
			lg.Warn("skipping model with open circuit", slog.String("model", step.Model), slog.String("step", step.Label))
			continue
		}

		if o.gate != nil {
			if err := o.gate.CheckAndWait(ctx); err != nil {
				out.LastKind = domain.ClassifyError(err)
				observability.FallbackAttemptsTotal.WithLabelValues(stepIdx, "gate_"+string(out.LastKind)).Inc()
				lg.Warn("quota gate refused model call", slog.String("model", step.Model), slog.String("step", step.Label), slog.Any("error", err))
				continue
			}
		}

		actx, span := tracer.Start(ctx, "ai.fallback.attempt")
		span.SetAttributes(
			attribute.String("ai.model", step.Model),
			attribute.String("ai.step", step.Label),
			attribute.Int("ai.step_index", i),
		)
		res := o.invoker.Invoke(actx, step.Model, step.Task)

		switch {
		case !res.Succeeded:
			o.recordFailure(step.Model)
			out.LastKind = res.Kind
			span.SetStatus(codes.Error, string(res.Kind))
			observability.FallbackAttemptsTotal.WithLabelValues(stepIdx, "failed_"+string(res.Kind)).Inc()
			lg.Warn("model call failed; falling back",
				slog.String("model", step.Model), slog.String("step", step.Label), slog.String("kind", string(res.Kind)))
		case res.Empty():
			o.recordSuccess(step.Model)
			span.SetStatus(codes.Error, "empty")
			observability.FallbackAttemptsTotal.WithLabelValues(stepIdx, "empty").Inc()
			lg.Warn("model returned empty text; falling back", slog.String("model", step.Model), slog.String("step", step.Label))
		default:
			o.recordSuccess(step.Model)
			if step.Quality != nil {
				if why := step.Quality(res.Text); why != "" {
					out.Rejected = res.Text
					span.SetAttributes(attribute.String("ai.quality_rejected", why))
					observability.FallbackAttemptsTotal.WithLabelValues(stepIdx, "low_quality").Inc()
					lg.Info("model response failed quality check; falling back",
						slog.String("model", step.Model), slog.String("step", step.Label), slog.String("why", why))
					span.End()
					continue
				}
			}
			span.End()
			observability.FallbackAttemptsTotal.WithLabelValues(stepIdx, "accepted").Inc()
			out.Text = res.Text
			out.Model = step.Model
			out.Step = step.Label
			out.OK = true
			out.LastKind = domain.ErrorKindNone
			return out
		}
		span.End()
	}

	lg.Error("fallback plan exhausted",
		slog.Int("attempts", out.Attempts),
		slog.String("last_kind", string(out.LastKind)))
	return out
}

func (o *Orchestrator) recordFailure(model string) {
	if o.breakers != nil {
		o.breakers.For(model).RecordFailure()
	}
}

func (o *Orchestrator) recordSuccess(model string) {
	if o.breakers != nil {
		o.breakers.For(model).RecordSuccess()
	}
}
