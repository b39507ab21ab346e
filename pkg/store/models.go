package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type EpisodeModel struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"not null;index"`
	Title       string `gorm:"not null"`
	BaseScript  string `gorm:"type:text"`
	Description string
	Status      string
	IsPublic    bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// GeneratedContentModel enforces one row per (episode, module type); the
// upsert in GormStore relies on this composite unique index.
type GeneratedContentModel struct {
	ID         string    `gorm:"primaryKey"`
	EpisodeID  string    `gorm:"not null;uniqueIndex:idx_content_episode_module"`
	ModuleType string    `gorm:"not null;uniqueIndex:idx_content_episode_module"`
	Content    string    `gorm:"type:text"`
	CreatedAt  time.Time `gorm:"not null"`
	UpdatedAt  time.Time `gorm:"not null"`
}

type ScriptTemplateModel struct {
	ID          string `gorm:"primaryKey"`
	OwnerID     string `gorm:"not null;index"`
	Name        string `gorm:"not null"`
	Description string
	BaseScript  string    `gorm:"type:text"`
	IsPublic    bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

type CollaboratorModel struct {
	ID         string    `gorm:"primaryKey"`
	EpisodeID  string    `gorm:"not null;uniqueIndex:idx_collab_episode_user"`
	UserID     string    `gorm:"not null;uniqueIndex:idx_collab_episode_user;index"`
	Permission string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

type ExportModel struct {
	ID           string `gorm:"primaryKey"`
	EpisodeID    string `gorm:"not null;index"`
	UserID       string `gorm:"not null;index"`
	Format       string `gorm:"not null"`
	Status       string `gorm:"not null"`
	URL          string
	ErrorMessage string
	Metadata     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null"`
	UpdatedAt    time.Time      `gorm:"not null"`
}
