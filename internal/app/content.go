package app

import (
	"strings"

	"domstudio/pkg/domain"
)

// ListEpisodeContent returns all generated content rows for an episode the
// caller can view.
func (a *App) ListEpisodeContent(userID, episodeID string) ([]domain.GeneratedContent, error) {
	if _, err := a.loadEpisode(userID, episodeID, accessView); err != nil {
		return nil, err
	}
	items, err := a.store.ListGeneratedContent(episodeID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return items, nil
}

// UpdateContent applies a manual edit to a generated content row, bypassing
// generation. Requires edit access on the parent episode.
func (a *App) UpdateContent(userID, contentID, newContent string) (domain.GeneratedContent, error) {
	contentID = strings.TrimSpace(contentID)
	if contentID == "" {
		return domain.GeneratedContent{}, validationError("content_id is required")
	}
	if strings.TrimSpace(newContent) == "" {
		return domain.GeneratedContent{}, validationError("content is required")
	}
	record, ok, err := a.store.GetGeneratedContent(contentID)
	if err != nil {
		return domain.GeneratedContent{}, persistenceError(err)
	}
	if !ok {
		return domain.GeneratedContent{}, notFoundError("content not found")
	}
	if _, err := a.loadEpisode(userID, record.EpisodeID, accessEdit); err != nil {
		return domain.GeneratedContent{}, err
	}
	updated, err := a.store.UpdateGeneratedContent(contentID, newContent)
	if err != nil {
		return domain.GeneratedContent{}, persistenceError(err)
	}
	return updated, nil
}
