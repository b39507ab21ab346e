package app

import (
	"context"
	"errors"
	"strings"

	"domstudio/pkg/ai"
	"domstudio/pkg/domain"
	"domstudio/pkg/prompt"
)

// GenerateContent runs the full generation pipeline for one
// (episode, module type) pair: validate, fetch the base script, compose the
// prompt, call the model, and upsert the resulting row. Every failure returns
// a structured *Error and writes nothing; persistence happens only after a
// fully-formed content string is obtained.
func (a *App) GenerateContent(ctx context.Context, userID, episodeID, rawModuleType string) (domain.GeneratedContent, error) {
	episodeID = strings.TrimSpace(episodeID)
	if episodeID == "" {
		return domain.GeneratedContent{}, validationError("episode_id is required")
	}
	moduleType, ok := domain.ParseModuleType(strings.TrimSpace(rawModuleType))
	if !ok {
		return domain.GeneratedContent{}, validationError("invalid module_type: %q", rawModuleType)
	}

	episode, err := a.loadEpisode(userID, episodeID, accessEdit)
	if err != nil {
		return domain.GeneratedContent{}, err
	}

	composed, err := a.composer.Compose(episode.Title, episode.BaseScript, moduleType)
	if err != nil {
		if errors.Is(err, prompt.ErrMissingBaseScript) {
			return domain.GeneratedContent{}, validationError("episode has no base_script; add one before generating")
		}
		return domain.GeneratedContent{}, validationError("compose prompt: %v", err)
	}

	genCtx, cancel := context.WithTimeout(ctx, a.generateTimeout)
	defer cancel()
	text, err := a.generator.GenerateText(genCtx, composed.System, composed.User)
	if err != nil {
		return domain.GeneratedContent{}, mapGeneratorError(err)
	}

	record, err := a.store.UpsertGeneratedContent(episode.ID, moduleType, text)
	if err != nil {
		return domain.GeneratedContent{}, persistenceError(err)
	}
	return record, nil
}

// mapGeneratorError translates model-client failures into the app taxonomy.
// Model failures are never retried here; the caller decides about retries.
func mapGeneratorError(err error) *Error {
	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.IsAuthentication():
			return &Error{Kind: KindAuthentication, Message: "model provider rejected the credential"}
		case apiErr.IsRateLimited():
			return &Error{
				Kind:       KindRateLimited,
				Message:    "model provider is throttling requests",
				RetryAfter: apiErr.RetryAfter,
			}
		default:
			return &Error{Kind: KindUpstream, Message: apiErr.Error()}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindUpstream, Message: "model request timed out"}
	}
	return &Error{Kind: KindUpstream, Message: err.Error()}
}
