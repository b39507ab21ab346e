package app

import (
	"context"
	"errors"
	"time"

	"domstudio/pkg/ai"
	"domstudio/pkg/prompt"
	"domstudio/pkg/queue"
	"domstudio/pkg/storage"
	"domstudio/pkg/store"

	"domstudio/pkg/domain"
)

const defaultGenerateTimeout = 2 * time.Minute

// ExportQueue enqueues export jobs for the worker.
type ExportQueue interface {
	Enqueue(ctx context.Context, exportID string) (queue.JobStatus, error)
}

// Config wires the application dependencies.
type Config struct {
	Store           store.Store
	Generator       ai.TextGenerator
	Composer        *prompt.Composer
	Exports         ExportQueue         // optional; export requests fail without it
	Artifacts       storage.ObjectStore // optional; used by the export worker
	GenerateTimeout time.Duration
}

// App is the core application service: episode CRUD, the generation
// pipeline, script templates, collaborators and exports.
type App struct {
	store           store.Store
	generator       ai.TextGenerator
	composer        *prompt.Composer
	exports         ExportQueue
	artifacts       storage.ObjectStore
	generateTimeout time.Duration
}

// New constructs the application.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("text generator required")
	}
	composer := cfg.Composer
	if composer == nil {
		composer = prompt.NewComposer(prompt.NewRegistry())
	}
	timeout := cfg.GenerateTimeout
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	return &App{
		store:           cfg.Store,
		generator:       cfg.Generator,
		composer:        composer,
		exports:         cfg.Exports,
		artifacts:       cfg.Artifacts,
		generateTimeout: timeout,
	}, nil
}

// Store exposes the persistence layer to the export worker.
func (a *App) Store() store.Store {
	return a.store
}

// Artifacts exposes the artifact store to the export worker.
func (a *App) Artifacts() storage.ObjectStore {
	return a.artifacts
}

// accessLevel orders episode permissions from none to owner.
type accessLevel int

const (
	accessNone accessLevel = iota
	accessView
	accessEdit
	accessOwner
)

// episodeAccess resolves the caller's permission on an episode, mirroring the
// storage layer's row policies: owner, then collaborator grant, then public
// read.
func (a *App) episodeAccess(userID string, episode domain.Episode) (accessLevel, error) {
	if episode.OwnerID == userID {
		return accessOwner, nil
	}
	collab, ok, err := a.store.GetCollaboration(episode.ID, userID)
	if err != nil {
		return accessNone, persistenceError(err)
	}
	if ok {
		if collab.Permission == domain.PermissionEdit {
			return accessEdit, nil
		}
		return accessView, nil
	}
	if episode.IsPublic {
		return accessView, nil
	}
	return accessNone, nil
}

// loadEpisode fetches an episode and enforces the minimum access level.
// Episodes the caller cannot see at all surface as not-found.
func (a *App) loadEpisode(userID, episodeID string, need accessLevel) (domain.Episode, error) {
	episode, ok, err := a.store.GetEpisode(episodeID)
	if err != nil {
		return domain.Episode{}, persistenceError(err)
	}
	if !ok {
		return domain.Episode{}, notFoundError("episode not found")
	}
	level, err := a.episodeAccess(userID, episode)
	if err != nil {
		return domain.Episode{}, err
	}
	if level == accessNone {
		return domain.Episode{}, notFoundError("episode not found")
	}
	if level < need {
		return domain.Episode{}, forbiddenError("insufficient permission for episode")
	}
	return episode, nil
}
