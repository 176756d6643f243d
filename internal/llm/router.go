package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docqa/docqa/internal/ai"
)

// ModelSpec describes one candidate model. The configured order is the
// priority order; specs are read-only at run time.
type ModelSpec struct {
	Name             string
	Identifier       string
	MaxContextTokens int
	Timeout          time.Duration
}

// AttemptFailure records one genuinely attempted model that failed. Skipped
// models never appear here.
type AttemptFailure struct {
	ModelName string `json:"model_name"`
	Reason    string `json:"failure_reason"`
}

// Outcome is a successful generation. Attempts lists the models that failed
// before the winning one, in attempt order.
type Outcome struct {
	Text      string
	ModelName string
	Attempts  []AttemptFailure
}

// NoEligibleModelError means every configured model was skipped because the
// estimated context exceeded its window; nothing was attempted.
type NoEligibleModelError struct {
	EstimatedTokens int
}

func (e *NoEligibleModelError) Error() string {
	return fmt.Sprintf("no model can fit an estimated %d context tokens", e.EstimatedTokens)
}

// AllFailedError means every attempted model failed; Attempts holds the
// per-model reasons in priority order.
type AllFailedError struct {
	Attempts []AttemptFailure
}

func (e *AllFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.ModelName+": "+a.Reason)
	}
	return "all models failed: " + strings.Join(parts, "; ")
}

// Entry pairs a model spec with the generator that can execute it.
type Entry struct {
	Spec      ModelSpec
	Generator ai.Generator
}

// Router tries candidate models strictly in order, one at a time, under each
// model's own timeout. The first well-formed answer wins and later models
// are never tried.
type Router struct {
	entries []Entry
}

func NewRouter(entries []Entry) *Router {
	return &Router{entries: entries}
}

// AvailableModels returns the configured model names in priority order.
func (r *Router) AvailableModels() []string {
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.Spec.Name)
	}
	return names
}

// Generate runs the failover sweep. Each model gets exactly one attempt; the
// only retry mechanism is falling through to the next model. Cancelling ctx
// abandons the in-flight attempt and stops the sweep.
func (r *Router) Generate(ctx context.Context, prompt string, estimatedTokens int) (*Outcome, error) {
	logger := logutil.GetLogger(ctx)
	var attempts []AttemptFailure
	attempted := false

	for _, entry := range r.entries {
		spec := entry.Spec
		if estimatedTokens > spec.MaxContextTokens {
			logger.Debug("model skipped: context too large",
				zap.String("model", spec.Name),
				zap.Int("estimated_tokens", estimatedTokens),
				zap.Int("max_context_tokens", spec.MaxContextTokens),
			)
			continue
		}
		attempted = true

		text, err := r.attempt(ctx, entry, prompt)
		if err == nil {
			logger.Info("model answered",
				zap.String("model", spec.Name),
				zap.Int("failed_attempts", len(attempts)),
			)
			return &Outcome{Text: text, ModelName: spec.Name, Attempts: attempts}, nil
		}
		if ctx.Err() != nil {
			// Caller went away; partial sweep state is not salvageable.
			return nil, ctx.Err()
		}
		reason := failureReason(err, spec.Timeout)
		attempts = append(attempts, AttemptFailure{ModelName: spec.Name, Reason: reason})
		logger.Warn("model attempt failed",
			zap.String("model", spec.Name),
			zap.String("reason", reason),
		)
	}

	if !attempted {
		return nil, &NoEligibleModelError{EstimatedTokens: estimatedTokens}
	}
	return nil, &AllFailedError{Attempts: attempts}
}

func (r *Router) attempt(ctx context.Context, entry Entry, prompt string) (string, error) {
	if entry.Generator == nil {
		return "", fmt.Errorf("generator not configured")
	}
	if entry.Spec.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, entry.Spec.Timeout)
		defer cancel()
	}
	text, err := entry.Generator.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	return text, nil
}

func failureReason(err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("timed out after %s", timeout)
	}
	return err.Error()
}
