// Package apperrors defines the closed error-kind taxonomy used across the
// recommender pipeline, replacing per-stage ad-hoc error types with a
// single wrapped type carrying a Kind, a stage label, and context fields.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind is a closed taxonomy of error categories. Every error raised inside
// the recommender pipeline is classified into exactly one Kind so the
// orchestrator can decide, without inspecting message text, whether to
// retry locally, fall back, surface a warning, or halt.
type Kind string

const (
	// KindRetryableTransient covers network timeouts, 5xx responses from
	// the catalog, and LLM rate limits. Handled locally with bounded
	// exponential backoff; never surfaced if retries succeed.
	KindRetryableTransient Kind = "retryable_transient"

	// KindCatalogAuth covers an expired or invalid catalog access token.
	// Propagated up so the HTTP layer can refresh and re-invoke.
	KindCatalogAuth Kind = "catalog_auth"

	// KindSchemaViolation covers an LLM response that is malformed JSON
	// or missing required fields. Handled locally: the stage falls back
	// to its rule-based path and records the failure in metadata.
	KindSchemaViolation Kind = "schema_violation"

	// KindInsufficientSupply covers the case where, after all
	// regeneration attempts, the recommendation count is still below
	// the minimum playlist count. Never fatal.
	KindInsufficientSupply Kind = "insufficient_supply"

	// KindCancelled covers user-initiated cancellation.
	KindCancelled Kind = "cancelled"

	// KindFatal covers programming errors, quota exhaustion, and missing
	// configuration. Halts the stage pipeline.
	KindFatal Kind = "fatal"
)

// AppError is the single error type raised across the recommender
// pipeline. Stage and Iteration are populated by the orchestrator as the
// error propagates so the tracker can attribute it correctly.
type AppError struct {
	Kind      Kind
	Stage     string
	Iteration int
	Message   string
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s/%s] %s: %v", e.Kind, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s/%s] %s", e.Kind, e.Stage, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError with no wrapped cause.
func New(kind Kind, stage string, message string) *AppError {
	return &AppError{Kind: kind, Stage: stage, Message: message}
}

// Wrap builds an AppError wrapping an existing error.
func Wrap(kind Kind, stage string, message string, err error) *AppError {
	return &AppError{Kind: kind, Stage: stage, Message: message, Err: err}
}

// WithIteration returns a copy of the error tagged with the orchestrator
// iteration it occurred in.
func (e *AppError) WithIteration(iteration int) *AppError {
	clone := *e
	clone.Iteration = iteration
	return &clone
}

// KindOf extracts the Kind from err if it is (or wraps) an *AppError,
// defaulting to KindFatal for anything unclassified so that unexpected
// errors fail closed rather than being silently retried forever.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindFatal
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether the stage that produced err should retry
// locally before propagating.
func IsRetryable(err error) bool {
	return IsKind(err, KindRetryableTransient)
}
