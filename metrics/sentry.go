package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// RecordTokenUsage records LLM token usage metrics
func (m *SentryMetrics) RecordTokenUsage(ctx context.Context, model string, totalTokens, inputTokens, outputTokens int) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("llm.model", model)
		transaction.SetData("llm.total_tokens", totalTokens)
		transaction.SetData("llm.input_tokens", inputTokens)
		transaction.SetData("llm.output_tokens", outputTokens)
	}

	span := sentry.StartSpan(ctx, "llm.token_usage")
	defer span.Finish()

	span.SetTag("model", model)
	span.SetTag("total_tokens", fmt.Sprintf("%d", totalTokens))

	span.SetData("total_tokens", totalTokens)
	span.SetData("input_tokens", inputTokens)
	span.SetData("output_tokens", outputTokens)

	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Token Usage: %s", model)
}

// RecordSectionDuration records how long one section generation took
func (m *SentryMetrics) RecordSectionDuration(ctx context.Context, strategy string, duration time.Duration, success bool) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "section.generate")
	defer span.Finish()

	span.SetTag("strategy", strategy)
	span.SetTag("success", fmt.Sprintf("%t", success))

	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("success", success)

	if success {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("Section Generation: %s", strategy)
}

// RecordSectionRetry records a failed attempt that will be retried
func (m *SentryMetrics) RecordSectionRetry(ctx context.Context, strategy string, attempt int, reason string) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "section.retry")
	defer span.Finish()

	span.SetTag("strategy", strategy)
	span.SetTag("attempt", fmt.Sprintf("%d", attempt))

	span.SetData("attempt", attempt)
	span.SetData("reason", reason)

	span.Status = sentry.SpanStatusOK
	span.Description = fmt.Sprintf("Section Retry: attempt %d", attempt)
}
