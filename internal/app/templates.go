package app

import (
	"strings"
	"time"

	"domstudio/internal/util"
	"domstudio/pkg/domain"
)

// ScriptTemplateInput carries the user-editable fields of a script template.
type ScriptTemplateInput struct {
	Name        string
	Description string
	BaseScript  string
	IsPublic    bool
}

// CreateScriptTemplate saves a reusable base-script starter.
func (a *App) CreateScriptTemplate(userID string, input ScriptTemplateInput) (domain.ScriptTemplate, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return domain.ScriptTemplate{}, validationError("name is required")
	}
	if strings.TrimSpace(input.BaseScript) == "" {
		return domain.ScriptTemplate{}, validationError("base_script is required")
	}
	now := time.Now().UTC()
	tpl := domain.ScriptTemplate{
		ID:          util.NewID(),
		OwnerID:     userID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		BaseScript:  input.BaseScript,
		IsPublic:    input.IsPublic,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.SaveScriptTemplate(tpl); err != nil {
		return domain.ScriptTemplate{}, persistenceError(err)
	}
	return tpl, nil
}

// GetScriptTemplate returns a template the caller owns or a public one.
func (a *App) GetScriptTemplate(userID, templateID string) (domain.ScriptTemplate, error) {
	tpl, ok, err := a.store.GetScriptTemplate(templateID)
	if err != nil {
		return domain.ScriptTemplate{}, persistenceError(err)
	}
	if !ok || (tpl.OwnerID != userID && !tpl.IsPublic) {
		return domain.ScriptTemplate{}, notFoundError("template not found")
	}
	return tpl, nil
}

// ListScriptTemplates returns the caller's templates plus public ones.
func (a *App) ListScriptTemplates(userID string) ([]domain.ScriptTemplate, error) {
	items, err := a.store.ListScriptTemplates(userID)
	if err != nil {
		return nil, persistenceError(err)
	}
	return items, nil
}

// DeleteScriptTemplate removes a template the caller owns.
func (a *App) DeleteScriptTemplate(userID, templateID string) error {
	tpl, ok, err := a.store.GetScriptTemplate(templateID)
	if err != nil {
		return persistenceError(err)
	}
	if !ok {
		return notFoundError("template not found")
	}
	if tpl.OwnerID != userID {
		return forbiddenError("only the owner can delete a template")
	}
	if err := a.store.DeleteScriptTemplate(templateID); err != nil {
		return persistenceError(err)
	}
	return nil
}
