package store

import (
	"errors"

	"domstudio/pkg/domain"
)

// ErrNotFound is returned by update/delete operations targeting a missing row.
// Lookups report absence through their bool return instead.
var ErrNotFound = errors.New("record not found")

// Store defines persistence for episodes, generated content, script
// templates, collaborators and exports.
type Store interface {
	// episodes
	CreateEpisode(domain.Episode) error
	GetEpisode(id string) (domain.Episode, bool, error)
	ListEpisodesByOwner(ownerID string) ([]domain.Episode, error)
	ListEpisodesSharedWith(userID string) ([]domain.Episode, error)
	UpdateEpisode(domain.Episode) error
	// DeleteEpisode removes the episode and cascades to its generated
	// content, collaborators and exports.
	DeleteEpisode(id string) error

	// generated content: at most one row per (episode, module type).
	UpsertGeneratedContent(episodeID string, moduleType domain.ModuleType, content string) (domain.GeneratedContent, error)
	GetGeneratedContent(id string) (domain.GeneratedContent, bool, error)
	ListGeneratedContent(episodeID string) ([]domain.GeneratedContent, error)
	UpdateGeneratedContent(id string, content string) (domain.GeneratedContent, error)

	// script templates
	SaveScriptTemplate(domain.ScriptTemplate) error
	GetScriptTemplate(id string) (domain.ScriptTemplate, bool, error)
	ListScriptTemplates(ownerID string) ([]domain.ScriptTemplate, error)
	DeleteScriptTemplate(id string) error

	// collaborators
	AddCollaborator(domain.Collaborator) error
	GetCollaboration(episodeID, userID string) (domain.Collaborator, bool, error)
	ListCollaborators(episodeID string) ([]domain.Collaborator, error)
	RemoveCollaborator(id string) error

	// exports
	SaveExport(domain.Export) error
	GetExport(id string) (domain.Export, bool, error)
	ListExportsByEpisode(episodeID string) ([]domain.Export, error)
	SetExportStatus(id string, status domain.ExportStatus, url, errMsg string) error
}
