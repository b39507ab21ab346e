package app

import (
	"strings"
	"time"

	"domstudio/internal/util"
	"domstudio/pkg/domain"
)

// EpisodeInput carries the user-editable fields of an episode.
type EpisodeInput struct {
	Title       string
	BaseScript  string
	Description string
	Status      string
	IsPublic    bool
}

// CreateEpisode creates an episode owned by the caller. A base script is not
// required yet; generation enforces it later.
func (a *App) CreateEpisode(userID string, input EpisodeInput) (domain.Episode, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Episode{}, validationError("title is required")
	}
	status := domain.EpisodeStatus(strings.TrimSpace(input.Status))
	if status == "" {
		status = domain.EpisodeDraft
	}
	now := time.Now().UTC()
	episode := domain.Episode{
		ID:          util.NewID(),
		OwnerID:     userID,
		Title:       title,
		BaseScript:  input.BaseScript,
		Description: strings.TrimSpace(input.Description),
		Status:      status,
		IsPublic:    input.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.CreateEpisode(episode); err != nil {
		return domain.Episode{}, persistenceError(err)
	}
	return episode, nil
}

// GetEpisode returns one episode the caller can at least view.
func (a *App) GetEpisode(userID, episodeID string) (domain.Episode, error) {
	return a.loadEpisode(userID, episodeID, accessView)
}

// ListEpisodes returns the caller's own episodes followed by episodes shared
// with them.
func (a *App) ListEpisodes(userID string) ([]domain.Episode, error) {
	own, err := a.store.ListEpisodesByOwner(userID)
	if err != nil {
		return nil, persistenceError(err)
	}
	shared, err := a.store.ListEpisodesSharedWith(userID)
	if err != nil {
		return nil, persistenceError(err)
	}
	res := make([]domain.Episode, 0, len(own)+len(shared))
	res = append(res, own...)
	res = append(res, shared...)
	return res, nil
}

// UpdateEpisode overwrites the mutable fields. Requires edit access.
func (a *App) UpdateEpisode(userID, episodeID string, input EpisodeInput) (domain.Episode, error) {
	episode, err := a.loadEpisode(userID, episodeID, accessEdit)
	if err != nil {
		return domain.Episode{}, err
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return domain.Episode{}, validationError("title is required")
	}
	episode.Title = title
	episode.BaseScript = input.BaseScript
	episode.Description = strings.TrimSpace(input.Description)
	if status := domain.EpisodeStatus(strings.TrimSpace(input.Status)); status != "" {
		episode.Status = status
	}
	episode.IsPublic = input.IsPublic
	if err := a.store.UpdateEpisode(episode); err != nil {
		return domain.Episode{}, persistenceError(err)
	}
	updated, err := a.loadEpisode(userID, episodeID, accessView)
	if err != nil {
		return domain.Episode{}, err
	}
	return updated, nil
}

// DeleteEpisode removes an episode and everything derived from it. Owner only.
func (a *App) DeleteEpisode(userID, episodeID string) error {
	episode, err := a.loadEpisode(userID, episodeID, accessView)
	if err != nil {
		return err
	}
	if episode.OwnerID != userID {
		return forbiddenError("only the owner can delete an episode")
	}
	if err := a.store.DeleteEpisode(episodeID); err != nil {
		return persistenceError(err)
	}
	return nil
}
