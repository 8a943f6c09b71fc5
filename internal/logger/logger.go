package logger

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// WithSession builds the base fields attached to every log line emitted
// during a workflow run, the way the teacher's WithContext seeded fields
// from the inbound gin request.
func WithSession(sessionID string, stage string) Fields {
	fields := Fields{
		"session_id": sessionID,
	}
	if stage != "" {
		fields["stage"] = stage
	}
	return fields
}

// Info logs an informational message with structured fields
func Info(msg string, fields Fields) {
	log.Printf("[INFO] %s %v", msg, formatFields(fields))

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     "info",
			Category: "log",
			Message:  msg,
			Data:     convertFieldsToMap(fields),
			Level:    sentry.LevelInfo,
		})
	}
}

// Error logs an error message with structured fields and sends to Sentry
func Error(msg string, err error, fields Fields) {
	log.Printf("[ERROR] %s: %v %v", msg, err, formatFields(fields))

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			for key, value := range fields {
				scope.SetContext(key, map[string]interface{}{
					"value": value,
				})
			}

			if sessionID, ok := fields["session_id"].(string); ok {
				scope.SetTag("session_id", sessionID)
			}
			if stage, ok := fields["stage"].(string); ok {
				scope.SetTag("stage", stage)
			}

			hub.CaptureException(err)
		})
	}
}

// Warn logs a warning message with structured fields
func Warn(msg string, fields Fields) {
	log.Printf("[WARN] %s %v", msg, formatFields(fields))

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     "warning",
			Category: "log",
			Message:  msg,
			Data:     convertFieldsToMap(fields),
			Level:    sentry.LevelWarning,
		})
	}
}

// Debug logs a debug message with structured fields
func Debug(msg string, fields Fields) {
	log.Printf("[DEBUG] %s %v", msg, formatFields(fields))

	if hub := sentry.CurrentHub(); hub.Client() != nil {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Type:     "debug",
			Category: "log",
			Message:  msg,
			Data:     convertFieldsToMap(fields),
			Level:    sentry.LevelDebug,
		})
	}
}

// LogStageCompletion logs a single recommender stage's timing and result
// size, mirroring the teacher's per-agent timing summaries.
func LogStageCompletion(stage string, duration time.Duration, itemCount int, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	fields["stage"] = stage
	fields["duration_ms"] = duration.Milliseconds()
	fields["item_count"] = itemCount

	Info(fmt.Sprintf("stage %s completed in %v", stage, duration), fields)

	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:     "default",
		Category: "orchestrator",
		Message:  stage,
		Data:     convertFieldsToMap(fields),
		Level:    sentry.LevelInfo,
	})
}

// LogLLMInvocation logs a completed LLM call's timing and token usage,
// generalizing the teacher's LogGenerationRequest across providers.
func LogLLMInvocation(ctx context.Context, provider string, model string, duration time.Duration, tokenUsage map[string]interface{}, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}

	fields["provider"] = provider
	fields["model"] = model
	fields["duration_ms"] = duration.Milliseconds()
	fields["total_tokens"] = tokenUsage["total_tokens"]
	fields["input_tokens"] = tokenUsage["input_tokens"]
	fields["output_tokens"] = tokenUsage["output_tokens"]

	Info("llm invocation completed", fields)

	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		span := sentry.StartSpan(ctx, provider+".generate")
		span.Description = model
		span.SetData("tokens", tokenUsage)
		span.Finish()
	}
}

// formatFields converts Fields to a readable string
func formatFields(fields Fields) string {
	if len(fields) == 0 {
		return ""
	}
	result := "{"
	first := true
	for k, v := range fields {
		if !first {
			result += ", "
		}
		result += k + "="
		switch val := v.(type) {
		case string:
			result += val
		case int, int64, float64:
			result += formatValue(val)
		default:
			result += formatValue(v)
		}
		first = false
	}
	result += "}"
	return result
}

// LogToSentry sends a log message directly to Sentry as an event
func LogToSentry(level sentry.Level, msg string, fields Fields) {
	if hub := sentry.CurrentHub(); hub.Client() != nil {
		hub.WithScope(func(scope *sentry.Scope) {
			scope.SetLevel(level)

			for key, value := range fields {
				scope.SetContext(key, map[string]interface{}{
					"value": value,
				})
			}

			if sessionID, ok := fields["session_id"].(string); ok {
				scope.SetTag("session_id", sessionID)
			}
			if stage, ok := fields["stage"].(string); ok {
				scope.SetTag("stage", stage)
			}

			hub.CaptureMessage(msg)
		})
	}
}

func formatValue(v interface{}) string {
	switch val := v.(type) {
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%.2f", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func convertFieldsToMap(fields Fields) map[string]interface{} {
	result := make(map[string]interface{})
	for k, v := range fields {
		result[k] = v
	}
	return result
}
