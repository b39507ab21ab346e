package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"domstudio/pkg/domain"
	"domstudio/pkg/queue"
	"domstudio/pkg/storage"
	"domstudio/pkg/store"
)

const (
	defaultURLExpiry = 7 * 24 * time.Hour
	defaultWorkers   = 2
)

// Worker consumes export jobs, renders the episode's generated content into
// the requested format, uploads the artifact and records the download URL.
type Worker struct {
	store     store.Store
	queue     *queue.RedisJobQueue
	artifacts storage.ObjectStore
	urlExpiry time.Duration
	workers   int
}

type Config struct {
	Store     store.Store
	Queue     *queue.RedisJobQueue
	Artifacts storage.ObjectStore
	URLExpiry time.Duration
	Workers   int
}

func New(cfg Config) (*Worker, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue required")
	}
	if cfg.Artifacts == nil {
		return nil, fmt.Errorf("artifact store required")
	}
	expiry := cfg.URLExpiry
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Worker{
		store:     cfg.Store,
		queue:     cfg.Queue,
		artifacts: cfg.Artifacts,
		urlExpiry: expiry,
		workers:   workers,
	}, nil
}

// Run starts the consumers and blocks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.queue.Start(ctx, w.workers, w.process)
	<-ctx.Done()
	return ctx.Err()
}

func (w *Worker) process(ctx context.Context, job queue.JobStatus) error {
	logger := slog.Default().With("jobId", job.ID, "exportId", job.ExportID)

	export, ok, err := w.store.GetExport(job.ExportID)
	if err != nil {
		return fmt.Errorf("load export: %w", err)
	}
	if !ok {
		// Export row deleted after enqueue (episode removed). Nothing to do.
		logger.Warn("export record missing, dropping job")
		return nil
	}
	if export.Status == domain.ExportDone {
		return nil
	}
	if err := w.store.SetExportStatus(export.ID, domain.ExportProcessing, "", ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	url, err := w.build(ctx, export)
	if err != nil {
		_ = w.store.SetExportStatus(export.ID, domain.ExportFailed, "", err.Error())
		logger.Error("export failed", "error", err)
		return err
	}
	if err := w.store.SetExportStatus(export.ID, domain.ExportDone, url, ""); err != nil {
		return fmt.Errorf("mark done: %w", err)
	}
	logger.Info("export completed", "format", string(export.Format))
	return nil
}

func (w *Worker) build(ctx context.Context, export domain.Export) (string, error) {
	episode, ok, err := w.store.GetEpisode(export.EpisodeID)
	if err != nil {
		return "", fmt.Errorf("load episode: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("episode %s not found", export.EpisodeID)
	}
	items, err := w.store.ListGeneratedContent(export.EpisodeID)
	if err != nil {
		return "", fmt.Errorf("load content: %w", err)
	}
	if len(items) == 0 {
		return "", fmt.Errorf("episode has no generated content")
	}

	var body, ext, contentType string
	switch export.Format {
	case domain.ExportMarkdown:
		body = renderMarkdown(episode, items)
		ext = "md"
		contentType = "text/markdown; charset=utf-8"
	case domain.ExportTXT:
		body = renderText(episode, items)
		ext = "txt"
		contentType = "text/plain; charset=utf-8"
	default:
		return "", fmt.Errorf("unsupported export format %q", export.Format)
	}

	key := fmt.Sprintf("exports/%s/%s.%s", export.EpisodeID, export.ID, ext)
	reader := strings.NewReader(body)
	if err := w.artifacts.Put(ctx, key, reader, int64(reader.Len()), contentType); err != nil {
		return "", fmt.Errorf("upload artifact: %w", err)
	}
	filename := fmt.Sprintf("%s.%s", slugify(episode.Title), ext)
	url, err := w.artifacts.PresignDownload(ctx, key, filename, w.urlExpiry)
	if err != nil {
		return "", fmt.Errorf("presign url: %w", err)
	}
	return url, nil
}

// slugify produces a safe download filename from an episode title.
func slugify(title string) string {
	var out []rune
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ' || r == '-' || r == '_':
			if len(out) > 0 && out[len(out)-1] != '-' {
				out = append(out, '-')
			}
		}
	}
	slug := strings.Trim(string(out), "-")
	if slug == "" {
		return "episodio"
	}
	return slug
}
