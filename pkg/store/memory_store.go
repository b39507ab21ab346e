package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"domstudio/pkg/domain"
)

// MemoryStore keeps everything in-process. It mirrors GormStore semantics,
// including the one-row-per-(episode, module type) upsert, and is used by
// tests and local development.
type MemoryStore struct {
	mu            sync.RWMutex
	episodes      map[string]domain.Episode
	content       map[string]domain.GeneratedContent // key: content ID
	contentByKey  map[string]string                  // episodeID+"/"+moduleType -> content ID
	templates     map[string]domain.ScriptTemplate
	collaborators map[string]domain.Collaborator
	exports       map[string]domain.Export
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		episodes:      make(map[string]domain.Episode),
		content:       make(map[string]domain.GeneratedContent),
		contentByKey:  make(map[string]string),
		templates:     make(map[string]domain.ScriptTemplate),
		collaborators: make(map[string]domain.Collaborator),
		exports:       make(map[string]domain.Export),
	}
}

func contentKey(episodeID string, moduleType domain.ModuleType) string {
	return episodeID + "/" + string(moduleType)
}

func (m *MemoryStore) CreateEpisode(e domain.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.episodes[e.ID] = e
	return nil
}

func (m *MemoryStore) GetEpisode(id string) (domain.Episode, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.episodes[id]
	return e, ok, nil
}

func (m *MemoryStore) ListEpisodesByOwner(ownerID string) ([]domain.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Episode
	for _, e := range m.episodes {
		if e.OwnerID == ownerID {
			res = append(res, e)
		}
	}
	sortEpisodesNewestFirst(res)
	return res, nil
}

func (m *MemoryStore) ListEpisodesSharedWith(userID string) ([]domain.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Episode
	for _, c := range m.collaborators {
		if c.UserID != userID {
			continue
		}
		if e, ok := m.episodes[c.EpisodeID]; ok {
			res = append(res, e)
		}
	}
	sortEpisodesNewestFirst(res)
	return res, nil
}

func (m *MemoryStore) UpdateEpisode(e domain.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.episodes[e.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = e.Title
	existing.BaseScript = e.BaseScript
	existing.Description = e.Description
	existing.Status = e.Status
	existing.IsPublic = e.IsPublic
	existing.UpdatedAt = time.Now().UTC()
	m.episodes[e.ID] = existing
	return nil
}

func (m *MemoryStore) DeleteEpisode(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.episodes[id]; !ok {
		return ErrNotFound
	}
	delete(m.episodes, id)
	for cid, c := range m.content {
		if c.EpisodeID == id {
			delete(m.content, cid)
			delete(m.contentByKey, contentKey(id, c.ModuleType))
		}
	}
	for cid, c := range m.collaborators {
		if c.EpisodeID == id {
			delete(m.collaborators, cid)
		}
	}
	for xid, x := range m.exports {
		if x.EpisodeID == id {
			delete(m.exports, xid)
		}
	}
	return nil
}

func (m *MemoryStore) UpsertGeneratedContent(episodeID string, moduleType domain.ModuleType, content string) (domain.GeneratedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	key := contentKey(episodeID, moduleType)
	if id, ok := m.contentByKey[key]; ok {
		record := m.content[id]
		record.Content = content
		record.UpdatedAt = now
		m.content[id] = record
		return record, nil
	}
	record := domain.GeneratedContent{
		ID:         uuid.NewString(),
		EpisodeID:  episodeID,
		ModuleType: moduleType,
		Content:    content,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.content[record.ID] = record
	m.contentByKey[key] = record.ID
	return record, nil
}

func (m *MemoryStore) GetGeneratedContent(id string) (domain.GeneratedContent, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.content[id]
	return c, ok, nil
}

func (m *MemoryStore) ListGeneratedContent(episodeID string) ([]domain.GeneratedContent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.GeneratedContent
	for _, c := range m.content {
		if c.EpisodeID == episodeID {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (m *MemoryStore) UpdateGeneratedContent(id string, content string) (domain.GeneratedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.content[id]
	if !ok {
		return domain.GeneratedContent{}, ErrNotFound
	}
	record.Content = content
	record.UpdatedAt = time.Now().UTC()
	m.content[id] = record
	return record, nil
}

func (m *MemoryStore) SaveScriptTemplate(t domain.ScriptTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[t.ID] = t
	return nil
}

func (m *MemoryStore) GetScriptTemplate(id string) (domain.ScriptTemplate, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	return t, ok, nil
}

func (m *MemoryStore) ListScriptTemplates(ownerID string) ([]domain.ScriptTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.ScriptTemplate
	for _, t := range m.templates {
		if t.OwnerID == ownerID || t.IsPublic {
			res = append(res, t)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *MemoryStore) DeleteScriptTemplate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *MemoryStore) AddCollaborator(c domain.Collaborator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.collaborators {
		if existing.EpisodeID == c.EpisodeID && existing.UserID == c.UserID {
			existing.Permission = c.Permission
			m.collaborators[id] = existing
			return nil
		}
	}
	m.collaborators[c.ID] = c
	return nil
}

func (m *MemoryStore) GetCollaboration(episodeID, userID string) (domain.Collaborator, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.collaborators {
		if c.EpisodeID == episodeID && c.UserID == userID {
			return c, true, nil
		}
	}
	return domain.Collaborator{}, false, nil
}

func (m *MemoryStore) ListCollaborators(episodeID string) ([]domain.Collaborator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Collaborator
	for _, c := range m.collaborators {
		if c.EpisodeID == episodeID {
			res = append(res, c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}

func (m *MemoryStore) RemoveCollaborator(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collaborators[id]; !ok {
		return ErrNotFound
	}
	delete(m.collaborators, id)
	return nil
}

func (m *MemoryStore) SaveExport(e domain.Export) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exports[e.ID] = e
	return nil
}

func (m *MemoryStore) GetExport(id string) (domain.Export, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.exports[id]
	return e, ok, nil
}

func (m *MemoryStore) ListExportsByEpisode(episodeID string) ([]domain.Export, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Export
	for _, e := range m.exports {
		if e.EpisodeID == episodeID {
			res = append(res, e)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.After(res[j].CreatedAt) })
	return res, nil
}

func (m *MemoryStore) SetExportStatus(id string, status domain.ExportStatus, url, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.exports[id]
	if !ok {
		return ErrNotFound
	}
	e.Status = status
	e.URL = url
	e.ErrorMessage = errMsg
	e.UpdatedAt = time.Now().UTC()
	m.exports[id] = e
	return nil
}

func sortEpisodesNewestFirst(episodes []domain.Episode) {
	sort.Slice(episodes, func(i, j int) bool {
		return episodes[i].CreatedAt.After(episodes[j].CreatedAt)
	})
}
