package app

import (
	"strings"
	"time"

	"domstudio/internal/util"
	"domstudio/pkg/domain"
)

// AddCollaborator grants (or updates) another user's access to an episode.
// Only the owner can manage collaborators.
func (a *App) AddCollaborator(userID, episodeID, collaboratorID string, permission string) (domain.Collaborator, error) {
	collaboratorID = strings.TrimSpace(collaboratorID)
	if collaboratorID == "" {
		return domain.Collaborator{}, validationError("user_id is required")
	}
	perm := domain.Permission(permission)
	if perm != domain.PermissionView && perm != domain.PermissionEdit {
		return domain.Collaborator{}, validationError("permission must be view or edit")
	}
	episode, err := a.loadEpisode(userID, episodeID, accessOwner)
	if err != nil {
		return domain.Collaborator{}, err
	}
	if collaboratorID == episode.OwnerID {
		return domain.Collaborator{}, validationError("owner already has full access")
	}
	collab := domain.Collaborator{
		ID:         util.NewID(),
		EpisodeID:  episodeID,
		UserID:     collaboratorID,
		Permission: perm,
		CreatedAt:  time.Now().UTC(),
	}
	if err := a.store.AddCollaborator(collab); err != nil {
		return domain.Collaborator{}, persistenceError(err)
	}
	// The store upserts on (episode, user); re-read so repeated grants
	// return the surviving row.
	saved, ok, err := a.store.GetCollaboration(episodeID, collaboratorID)
	if err != nil {
		return domain.Collaborator{}, persistenceError(err)
	}
	if ok {
		return saved, nil
	}
	return collab, nil
}

// ListCollaborators returns the grants on an episode the caller can view.
func (a *App) ListCollaborators(userID, episodeID string) ([]domain.Collaborator, error) {
	if _, err := a.loadEpisode(userID, episodeID, accessView); err != nil {
		return nil, err
	}
	items, err := a.store.ListCollaborators(episodeID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return items, nil
}

// RemoveCollaborator revokes a grant. The owner can remove anyone; a
// collaborator may remove their own grant.
func (a *App) RemoveCollaborator(userID, episodeID, collaborationID string) error {
	episode, err := a.loadEpisode(userID, episodeID, accessView)
	if err != nil {
		return err
	}
	items, err := a.store.ListCollaborators(episodeID)
	if err != nil {
		return persistenceError(err)
	}
	for _, c := range items {
		if c.ID != collaborationID {
			continue
		}
		if episode.OwnerID != userID && c.UserID != userID {
			return forbiddenError("only the owner can remove other collaborators")
		}
		if err := a.store.RemoveCollaborator(collaborationID); err != nil {
			return persistenceError(err)
		}
		return nil
	}
	return notFoundError("collaboration not found")
}
