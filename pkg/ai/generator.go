package ai

import (
	"context"
	"fmt"
	"time"
)

// TextGenerator generates text from a system prompt and a user prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Limiter is an optional client-side request guard keyed by credential.
type Limiter interface {
	Allow(key string) bool
}

// APIError describes a model-provider failure. StatusCode follows the
// upstream HTTP status: 401/403 for credential problems, 429 for throttling,
// anything else is a generic upstream failure.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("model api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("model api error: %s", e.Message)
}

// IsAuthentication reports whether the error is a credential failure.
func (e *APIError) IsAuthentication() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsRateLimited reports whether the error is upstream or client-side throttling.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == 429
}
