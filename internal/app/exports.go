package app

import (
	"context"
	"errors"
	"strconv"
	"time"

	"domstudio/internal/util"
	"domstudio/pkg/domain"
)

var errExportsDisabled = errors.New("export queue not configured")

// RequestExport queues an export of an episode's generated content and
// returns the pending record.
func (a *App) RequestExport(ctx context.Context, userID, episodeID string, rawFormat string) (domain.Export, error) {
	format := domain.ExportFormat(rawFormat)
	if format != domain.ExportTXT && format != domain.ExportMarkdown {
		return domain.Export{}, validationError("format must be txt or markdown")
	}
	if a.exports == nil {
		return domain.Export{}, persistenceError(errExportsDisabled)
	}
	episode, err := a.loadEpisode(userID, episodeID, accessView)
	if err != nil {
		return domain.Export{}, err
	}
	items, err := a.store.ListGeneratedContent(episodeID)
	if err != nil {
		return domain.Export{}, persistenceError(err)
	}
	if len(items) == 0 {
		return domain.Export{}, validationError("episode has no generated content to export")
	}
	now := time.Now().UTC()
	export := domain.Export{
		ID:        util.NewID(),
		EpisodeID: episodeID,
		UserID:    userID,
		Format:    format,
		Status:    domain.ExportQueued,
		Metadata: map[string]string{
			"title":   episode.Title,
			"modules": strconv.Itoa(len(items)),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.SaveExport(export); err != nil {
		return domain.Export{}, persistenceError(err)
	}
	if _, err := a.exports.Enqueue(ctx, export.ID); err != nil {
		_ = a.store.SetExportStatus(export.ID, domain.ExportFailed, "", "enqueue failed")
		return domain.Export{}, persistenceError(err)
	}
	return export, nil
}

// GetExport returns one export record, scoped to episode access.
func (a *App) GetExport(userID, exportID string) (domain.Export, error) {
	export, ok, err := a.store.GetExport(exportID)
	if err != nil {
		return domain.Export{}, persistenceError(err)
	}
	if !ok {
		return domain.Export{}, notFoundError("export not found")
	}
	if _, err := a.loadEpisode(userID, export.EpisodeID, accessView); err != nil {
		return domain.Export{}, notFoundError("export not found")
	}
	return export, nil
}

// ListExports returns the export history of an episode.
func (a *App) ListExports(userID, episodeID string) ([]domain.Export, error) {
	if _, err := a.loadEpisode(userID, episodeID, accessView); err != nil {
		return nil, err
	}
	items, err := a.store.ListExportsByEpisode(episodeID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return items, nil
}
