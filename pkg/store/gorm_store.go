package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"domstudio/pkg/domain"
)

const migrateLockID int64 = 40412077

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations under an advisory lock
// so concurrent instances do not race on schema changes.
func NewGormStore(dsn string) (*GormStore, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLog})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := withMigrationLock(db, func(tx *gorm.DB) error {
		if err := tx.AutoMigrate(
			&EpisodeModel{},
			&GeneratedContentModel{},
			&ScriptTemplateModel{},
			&CollaboratorModel{},
			&ExportModel{},
		); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		if err := tx.Exec(`
			DO $$
			BEGIN
				DELETE FROM generated_content_models c
				WHERE NOT EXISTS (SELECT 1 FROM episode_models e WHERE e.id = c.episode_id);
				DELETE FROM collaborator_models c
				WHERE NOT EXISTS (SELECT 1 FROM episode_models e WHERE e.id = c.episode_id);
				DELETE FROM export_models x
				WHERE NOT EXISTS (SELECT 1 FROM episode_models e WHERE e.id = x.episode_id);
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'generated_content_models'
					AND constraint_name = 'generated_content_models_episode_id_fkey'
				) THEN
					ALTER TABLE generated_content_models
					ADD CONSTRAINT generated_content_models_episode_id_fkey
					FOREIGN KEY (episode_id) REFERENCES episode_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'collaborator_models'
					AND constraint_name = 'collaborator_models_episode_id_fkey'
				) THEN
					ALTER TABLE collaborator_models
					ADD CONSTRAINT collaborator_models_episode_id_fkey
					FOREIGN KEY (episode_id) REFERENCES episode_models(id) ON DELETE CASCADE;
				END IF;
				IF NOT EXISTS (
					SELECT 1 FROM information_schema.table_constraints
					WHERE table_schema = 'public'
					AND table_name = 'export_models'
					AND constraint_name = 'export_models_episode_id_fkey'
				) THEN
					ALTER TABLE export_models
					ADD CONSTRAINT export_models_episode_id_fkey
					FOREIGN KEY (episode_id) REFERENCES episode_models(id) ON DELETE CASCADE;
				END IF;
			END $$;
		`).Error; err != nil {
			return fmt.Errorf("ensure episode foreign keys: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func withMigrationLock(db *gorm.DB, fn func(*gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("open sql conn: %w", err)
	}
	defer conn.Close()
	if err := execAdvisory(ctx, conn, "SELECT pg_advisory_lock($1)", migrateLockID); err != nil {
		return fmt.Errorf("acquire migrate lock: %w", err)
	}
	defer func() {
		_ = execAdvisory(ctx, conn, "SELECT pg_advisory_unlock($1)", migrateLockID)
	}()
	return fn(db)
}

func execAdvisory(ctx context.Context, conn *sql.Conn, query string, lockID int64) error {
	_, err := conn.ExecContext(ctx, query, lockID)
	return err
}

// CreateEpisode inserts a new episode.
func (s *GormStore) CreateEpisode(e domain.Episode) error {
	model := episodeToModel(e)
	return s.db.Create(&model).Error
}

// GetEpisode retrieves an episode by ID.
func (s *GormStore) GetEpisode(id string) (domain.Episode, bool, error) {
	var model EpisodeModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Episode{}, false, nil
		}
		return domain.Episode{}, false, err
	}
	return episodeFromModel(model), true, nil
}

// ListEpisodesByOwner returns the owner's episodes, newest first.
func (s *GormStore) ListEpisodesByOwner(ownerID string) ([]domain.Episode, error) {
	var models []EpisodeModel
	if err := s.db.Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	return episodesFromModels(models), nil
}

// ListEpisodesSharedWith returns episodes the user can access as a collaborator.
func (s *GormStore) ListEpisodesSharedWith(userID string) ([]domain.Episode, error) {
	var models []EpisodeModel
	if err := s.db.
		Joins("JOIN collaborator_models ON collaborator_models.episode_id = episode_models.id").
		Where("collaborator_models.user_id = ?", userID).
		Order("episode_models.created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	return episodesFromModels(models), nil
}

// UpdateEpisode overwrites the mutable fields of an episode.
func (s *GormStore) UpdateEpisode(e domain.Episode) error {
	res := s.db.Model(&EpisodeModel{}).Where("id = ?", e.ID).Updates(map[string]any{
		"title":       e.Title,
		"base_script": e.BaseScript,
		"description": e.Description,
		"status":      string(e.Status),
		"is_public":   e.IsPublic,
		"updated_at":  time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteEpisode removes the episode; children go with it via FK cascade, the
// explicit deletes keep behavior identical on databases without the FKs yet.
func (s *GormStore) DeleteEpisode(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&GeneratedContentModel{}, "episode_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&CollaboratorModel{}, "episode_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&ExportModel{}, "episode_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&EpisodeModel{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpsertGeneratedContent inserts or overwrites the row for the
// (episode, module type) key. Repeated generation updates content and
// updated_at in place; the row's identity and created_at survive.
func (s *GormStore) UpsertGeneratedContent(episodeID string, moduleType domain.ModuleType, content string) (domain.GeneratedContent, error) {
	now := time.Now().UTC()
	model := GeneratedContentModel{
		ID:         uuid.NewString(),
		EpisodeID:  episodeID,
		ModuleType: string(moduleType),
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "episode_id"}, {Name: "module_type"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "updated_at"}),
	}).Create(&model).Error; err != nil {
		return domain.GeneratedContent{}, err
	}
	var persisted GeneratedContentModel
	if err := s.db.First(&persisted, "episode_id = ? AND module_type = ?", episodeID, string(moduleType)).Error; err != nil {
		return domain.GeneratedContent{}, err
	}
	return contentFromModel(persisted), nil
}

// GetGeneratedContent retrieves a content row by ID.
func (s *GormStore) GetGeneratedContent(id string) (domain.GeneratedContent, bool, error) {
	var model GeneratedContentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.GeneratedContent{}, false, nil
		}
		return domain.GeneratedContent{}, false, err
	}
	return contentFromModel(model), true, nil
}

// ListGeneratedContent returns all content rows for an episode.
func (s *GormStore) ListGeneratedContent(episodeID string) ([]domain.GeneratedContent, error) {
	var models []GeneratedContentModel
	if err := s.db.Where("episode_id = ?", episodeID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.GeneratedContent, 0, len(models))
	for _, m := range models {
		res = append(res, contentFromModel(m))
	}
	return res, nil
}

// UpdateGeneratedContent applies a manual edit to a content row.
func (s *GormStore) UpdateGeneratedContent(id string, content string) (domain.GeneratedContent, error) {
	res := s.db.Model(&GeneratedContentModel{}).Where("id = ?", id).Updates(map[string]any{
		"content":    content,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return domain.GeneratedContent{}, res.Error
	}
	if res.RowsAffected == 0 {
		return domain.GeneratedContent{}, ErrNotFound
	}
	var model GeneratedContentModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		return domain.GeneratedContent{}, err
	}
	return contentFromModel(model), nil
}

// SaveScriptTemplate stores or updates a script template.
func (s *GormStore) SaveScriptTemplate(t domain.ScriptTemplate) error {
	model := templateToModel(t)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "description", "base_script", "is_public", "updated_at"}),
	}).Create(&model).Error
}

// GetScriptTemplate retrieves a template by ID.
func (s *GormStore) GetScriptTemplate(id string) (domain.ScriptTemplate, bool, error) {
	var model ScriptTemplateModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.ScriptTemplate{}, false, nil
		}
		return domain.ScriptTemplate{}, false, err
	}
	return templateFromModel(model), true, nil
}

// ListScriptTemplates returns the user's own templates plus public ones.
func (s *GormStore) ListScriptTemplates(ownerID string) ([]domain.ScriptTemplate, error) {
	var models []ScriptTemplateModel
	if err := s.db.Where("owner_id = ? OR is_public = ?", ownerID, true).
		Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.ScriptTemplate, 0, len(models))
	for _, m := range models {
		res = append(res, templateFromModel(m))
	}
	return res, nil
}

// DeleteScriptTemplate removes a template.
func (s *GormStore) DeleteScriptTemplate(id string) error {
	res := s.db.Delete(&ScriptTemplateModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddCollaborator grants a user access to an episode. Re-adding the same user
// updates the permission in place.
func (s *GormStore) AddCollaborator(c domain.Collaborator) error {
	model := collaboratorToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "episode_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"permission"}),
	}).Create(&model).Error
}

// GetCollaboration looks up the collaborator row for (episode, user).
func (s *GormStore) GetCollaboration(episodeID, userID string) (domain.Collaborator, bool, error) {
	var model CollaboratorModel
	if err := s.db.First(&model, "episode_id = ? AND user_id = ?", episodeID, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Collaborator{}, false, nil
		}
		return domain.Collaborator{}, false, err
	}
	return collaboratorFromModel(model), true, nil
}

// ListCollaborators returns all collaborators of an episode.
func (s *GormStore) ListCollaborators(episodeID string) ([]domain.Collaborator, error) {
	var models []CollaboratorModel
	if err := s.db.Where("episode_id = ?", episodeID).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Collaborator, 0, len(models))
	for _, m := range models {
		res = append(res, collaboratorFromModel(m))
	}
	return res, nil
}

// RemoveCollaborator revokes access.
func (s *GormStore) RemoveCollaborator(id string) error {
	res := s.db.Delete(&CollaboratorModel{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveExport stores or updates an export record.
func (s *GormStore) SaveExport(e domain.Export) error {
	model := exportToModel(e)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "url", "error_message", "metadata", "updated_at"}),
	}).Create(&model).Error
}

// GetExport retrieves an export record.
func (s *GormStore) GetExport(id string) (domain.Export, bool, error) {
	var model ExportModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domain.Export{}, false, nil
		}
		return domain.Export{}, false, err
	}
	return exportFromModel(model), true, nil
}

// ListExportsByEpisode returns exports for an episode, newest first.
func (s *GormStore) ListExportsByEpisode(episodeID string) ([]domain.Export, error) {
	var models []ExportModel
	if err := s.db.Where("episode_id = ?", episodeID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Export, 0, len(models))
	for _, m := range models {
		res = append(res, exportFromModel(m))
	}
	return res, nil
}

// SetExportStatus updates the lifecycle fields of an export.
func (s *GormStore) SetExportStatus(id string, status domain.ExportStatus, url, errMsg string) error {
	res := s.db.Model(&ExportModel{}).Where("id = ?", id).Updates(map[string]any{
		"status":        string(status),
		"url":           url,
		"error_message": errMsg,
		"updated_at":    time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func episodeToModel(e domain.Episode) EpisodeModel {
	return EpisodeModel{
		ID:          e.ID,
		OwnerID:     e.OwnerID,
		Title:       e.Title,
		BaseScript:  e.BaseScript,
		Description: e.Description,
		Status:      string(e.Status),
		IsPublic:    e.IsPublic,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func episodeFromModel(m EpisodeModel) domain.Episode {
	status := domain.EpisodeStatus(m.Status)
	if status == "" {
		status = domain.EpisodeDraft
	}
	return domain.Episode{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Title:       m.Title,
		BaseScript:  m.BaseScript,
		Description: m.Description,
		Status:      status,
		IsPublic:    m.IsPublic,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func episodesFromModels(models []EpisodeModel) []domain.Episode {
	res := make([]domain.Episode, 0, len(models))
	for _, m := range models {
		res = append(res, episodeFromModel(m))
	}
	return res
}

func contentFromModel(m GeneratedContentModel) domain.GeneratedContent {
	return domain.GeneratedContent{
		ID:         m.ID,
		EpisodeID:  m.EpisodeID,
		ModuleType: domain.ModuleType(m.ModuleType),
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func templateToModel(t domain.ScriptTemplate) ScriptTemplateModel {
	return ScriptTemplateModel{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Name:        t.Name,
		Description: t.Description,
		BaseScript:  t.BaseScript,
		IsPublic:    t.IsPublic,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func templateFromModel(m ScriptTemplateModel) domain.ScriptTemplate {
	return domain.ScriptTemplate{
		ID:          m.ID,
		OwnerID:     m.OwnerID,
		Name:        m.Name,
		Description: m.Description,
		BaseScript:  m.BaseScript,
		IsPublic:    m.IsPublic,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func collaboratorToModel(c domain.Collaborator) CollaboratorModel {
	return CollaboratorModel{
		ID:         c.ID,
		EpisodeID:  c.EpisodeID,
		UserID:     c.UserID,
		Permission: string(c.Permission),
		CreatedAt:  c.CreatedAt,
	}
}

func collaboratorFromModel(m CollaboratorModel) domain.Collaborator {
	return domain.Collaborator{
		ID:         m.ID,
		EpisodeID:  m.EpisodeID,
		UserID:     m.UserID,
		Permission: domain.Permission(m.Permission),
		CreatedAt:  m.CreatedAt,
	}
}

func exportToModel(e domain.Export) ExportModel {
	meta, _ := json.Marshal(e.Metadata)
	return ExportModel{
		ID:           e.ID,
		EpisodeID:    e.EpisodeID,
		UserID:       e.UserID,
		Format:       string(e.Format),
		Status:       string(e.Status),
		URL:          e.URL,
		ErrorMessage: e.ErrorMessage,
		Metadata:     meta,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func exportFromModel(m ExportModel) domain.Export {
	var meta map[string]string
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &meta)
	}
	return domain.Export{
		ID:           m.ID,
		EpisodeID:    m.EpisodeID,
		UserID:       m.UserID,
		Format:       domain.ExportFormat(m.Format),
		Status:       domain.ExportStatus(m.Status),
		URL:          m.URL,
		ErrorMessage: m.ErrorMessage,
		Metadata:     meta,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
