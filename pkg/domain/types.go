package domain

import "time"

// ModuleType identifies one derived content format for an episode.
type ModuleType string

const (
	ModulePromptVisual     ModuleType = "prompt_visual"
	ModuleRoteiroCompleto  ModuleType = "roteiro_completo"
	ModuleRoteiroCena      ModuleType = "roteiro_cena"
	ModuleRoteiroLivro     ModuleType = "roteiro_livro"
	ModuleRoteiroAudiobook ModuleType = "roteiro_audiobook"
)

// ModuleTypes returns the closed set of module types in display order.
func ModuleTypes() []ModuleType {
	return []ModuleType{
		ModulePromptVisual,
		ModuleRoteiroCompleto,
		ModuleRoteiroCena,
		ModuleRoteiroLivro,
		ModuleRoteiroAudiobook,
	}
}

// ParseModuleType validates a raw string against the closed set.
func ParseModuleType(raw string) (ModuleType, bool) {
	mt := ModuleType(raw)
	switch mt {
	case ModulePromptVisual, ModuleRoteiroCompleto, ModuleRoteiroCena,
		ModuleRoteiroLivro, ModuleRoteiroAudiobook:
		return mt, true
	}
	return "", false
}

type EpisodeStatus string

const (
	EpisodeDraft      EpisodeStatus = "draft"
	EpisodeInProgress EpisodeStatus = "in_progress"
	EpisodeComplete   EpisodeStatus = "complete"
)

type Episode struct {
	ID          string        `json:"id"`
	OwnerID     string        `json:"ownerId"`
	Title       string        `json:"title"`
	BaseScript  string        `json:"baseScript"`
	Description string        `json:"description,omitempty"`
	Status      EpisodeStatus `json:"status"`
	IsPublic    bool          `json:"isPublic"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// GeneratedContent is the output of one generation run. At most one record
// exists per (episode, module type) pair; regeneration overwrites in place.
type GeneratedContent struct {
	ID         string     `json:"id"`
	EpisodeID  string     `json:"episodeId"`
	ModuleType ModuleType `json:"moduleType"`
	Content    string     `json:"content"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// ScriptTemplate is a reusable base-script starter.
type ScriptTemplate struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"ownerId"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	BaseScript  string    `json:"baseScript"`
	IsPublic    bool      `json:"isPublic"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Permission string

const (
	PermissionView Permission = "view"
	PermissionEdit Permission = "edit"
)

// Collaborator grants another user access to an episode.
type Collaborator struct {
	ID         string     `json:"id"`
	EpisodeID  string     `json:"episodeId"`
	UserID     string     `json:"userId"`
	Permission Permission `json:"permission"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type ExportFormat string

const (
	ExportTXT      ExportFormat = "txt"
	ExportMarkdown ExportFormat = "markdown"
)

type ExportStatus string

const (
	ExportQueued     ExportStatus = "queued"
	ExportProcessing ExportStatus = "processing"
	ExportDone       ExportStatus = "done"
	ExportFailed     ExportStatus = "failed"
)

// Export tracks one requested export of an episode's generated content.
type Export struct {
	ID           string            `json:"id"`
	EpisodeID    string            `json:"episodeId"`
	UserID       string            `json:"userId"`
	Format       ExportFormat      `json:"format"`
	Status       ExportStatus      `json:"status"`
	URL          string            `json:"url,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}
