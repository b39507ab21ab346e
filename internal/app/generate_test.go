package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"domstudio/pkg/ai"
	"domstudio/pkg/domain"
	"domstudio/pkg/store"
)

// fakeGenerator scripts model responses and counts invocations.
type fakeGenerator struct {
	calls   int
	reply   func(systemPrompt, userPrompt string) (string, error)
	lastSys string
	lastUsr string
}

func (f *fakeGenerator) GenerateText(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.calls++
	f.lastSys = systemPrompt
	f.lastUsr = userPrompt
	if f.reply != nil {
		return f.reply(systemPrompt, userPrompt)
	}
	return "🟦\nPágina 1\nDom encontra a lagoa.", nil
}

func newTestApp(t *testing.T, gen *fakeGenerator) (*App, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	a, err := New(Config{Store: st, Generator: gen})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, st
}

func seedEpisode(t *testing.T, a *App, ownerID, title, script string) domain.Episode {
	t.Helper()
	episode, err := a.CreateEpisode(ownerID, EpisodeInput{Title: title, BaseScript: script})
	if err != nil {
		t.Fatalf("create episode: %v", err)
	}
	return episode
}

func TestGenerateContentPersistsAndReturnsRow(t *testing.T) {
	gen := &fakeGenerator{}
	a, _ := newTestApp(t, gen)
	episode := seedEpisode(t, a, "user-1", "Dom e a Lagoa", "Dom encontra uma lagoa mágica perto da escola.")

	record, err := a.GenerateContent(context.Background(), "user-1", episode.ID, "roteiro_livro")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if record.EpisodeID != episode.ID || record.ModuleType != domain.ModuleRoteiroLivro {
		t.Fatalf("unexpected record %+v", record)
	}
	if !strings.Contains(record.Content, "🟦") {
		t.Fatalf("expected model output persisted verbatim, got %q", record.Content)
	}
	if gen.calls != 1 {
		t.Fatalf("expected one model call, got %d", gen.calls)
	}
	if !strings.Contains(gen.lastUsr, "Título do Episódio: Dom e a Lagoa") {
		t.Fatalf("user prompt missing episode title: %q", gen.lastUsr)
	}
	if !strings.Contains(gen.lastUsr, "Dom encontra uma lagoa mágica") {
		t.Fatalf("user prompt missing base script: %q", gen.lastUsr)
	}

	items, err := a.ListEpisodeContent("user-1", episode.ID)
	if err != nil {
		t.Fatalf("list content: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected exactly one row, got %d", len(items))
	}
}

func TestGenerateContentOverwritesInPlace(t *testing.T) {
	output := "first version"
	gen := &fakeGenerator{reply: func(_, _ string) (string, error) { return output, nil }}
	a, _ := newTestApp(t, gen)
	episode := seedEpisode(t, a, "user-1", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	first, err := a.GenerateContent(context.Background(), "user-1", episode.ID, "roteiro_cena")
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	output = "second version"
	second, err := a.GenerateContent(context.Background(), "user-1", episode.ID, "roteiro_cena")
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}

	if second.ID != first.ID {
		t.Fatalf("regeneration must reuse the row: %s vs %s", first.ID, second.ID)
	}
	if second.Content != "second version" {
		t.Fatalf("expected overwrite, got %q", second.Content)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Fatalf("updatedAt must advance: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Fatalf("createdAt must survive regeneration: %v -> %v", first.CreatedAt, second.CreatedAt)
	}

	items, err := a.ListEpisodeContent("user-1", episode.ID)
	if err != nil {
		t.Fatalf("list content: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("regeneration must not add rows, got %d", len(items))
	}
}

func TestGenerateContentModulesAreIndependent(t *testing.T) {
	gen := &fakeGenerator{reply: func(sys, _ string) (string, error) { return "out:" + sys[:20], nil }}
	a, _ := newTestApp(t, gen)
	episode := seedEpisode(t, a, "user-1", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	ids := make(map[string]bool)
	for _, mt := range domain.ModuleTypes() {
		record, err := a.GenerateContent(context.Background(), "user-1", episode.ID, string(mt))
		if err != nil {
			t.Fatalf("generate %s: %v", mt, err)
		}
		ids[record.ID] = true
	}
	if len(ids) != len(domain.ModuleTypes()) {
		t.Fatalf("expected one row per module type, got %d distinct IDs", len(ids))
	}
	items, err := a.ListEpisodeContent("user-1", episode.ID)
	if err != nil {
		t.Fatalf("list content: %v", err)
	}
	if len(items) != len(domain.ModuleTypes()) {
		t.Fatalf("expected %d rows, got %d", len(domain.ModuleTypes()), len(items))
	}
}

func TestGenerateContentEmptyScriptFailsBeforeModelCall(t *testing.T) {
	gen := &fakeGenerator{}
	a, _ := newTestApp(t, gen)
	episode := seedEpisode(t, a, "user-1", "Dom e a Lagoa", "")

	_, err := a.GenerateContent(context.Background(), "user-1", episode.ID, "prompt_visual")
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("model must not be called without a base script, got %d calls", gen.calls)
	}
	items, err := a.ListEpisodeContent("user-1", episode.ID)
	if err != nil {
		t.Fatalf("list content: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("nothing may be persisted, got %d rows", len(items))
	}
}

func TestGenerateContentInvalidModuleType(t *testing.T) {
	gen := &fakeGenerator{}
	a, _ := newTestApp(t, gen)
	episode := seedEpisode(t, a, "user-1", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	_, err := a.GenerateContent(context.Background(), "user-1", episode.ID, "roteiro_novela")
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("model must not be called for an invalid module type")
	}
}

func TestGenerateContentUnknownEpisode(t *testing.T) {
	a, _ := newTestApp(t, &fakeGenerator{})
	_, err := a.GenerateContent(context.Background(), "user-1", "missing-id", "prompt_visual")
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind != KindNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestGenerateContentProviderRateLimited(t *testing.T) {
	gen := &fakeGenerator{reply: func(_, _ string) (string, error) {
		return "", &ai.APIError{
			StatusCode: http.StatusTooManyRequests,
			Message:    "Rate limit reached",
			RetryAfter: 20 * time.Second,
		}
	}}
	a, _ := newTestApp(t, gen)
	episode := seedEpisode(t, a, "user-1", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	_, err := a.GenerateContent(context.Background(), "user-1", episode.ID, "prompt_visual")
	var appErr *Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if appErr.Kind != KindRateLimited {
		t.Fatalf("expected rate_limited kind, got %s", appErr.Kind)
	}
	if appErr.RetryAfter != 20*time.Second {
		t.Fatalf("expected RetryAfter propagated, got %v", appErr.RetryAfter)
	}
	items, _ := a.ListEpisodeContent("user-1", episode.ID)
	if len(items) != 0 {
		t.Fatalf("failed generation must not persist rows, got %d", len(items))
	}
}

func TestGenerateContentProviderAuthFailure(t *testing.T) {
	gen := &fakeGenerator{reply: func(_, _ string) (string, error) {
		return "", &ai.APIError{StatusCode: http.StatusUnauthorized, Message: "Incorrect API key"}
	}}
	a, _ := newTestApp(t, gen)
	episode := seedEpisode(t, a, "user-1", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	_, err := a.GenerateContent(context.Background(), "user-1", episode.ID, "prompt_visual")
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind != KindAuthentication {
		t.Fatalf("expected upstream_auth kind, got %v", err)
	}
}

func TestGenerateContentTimeoutMapsToUpstream(t *testing.T) {
	gen := &fakeGenerator{reply: func(_, _ string) (string, error) {
		return "", context.DeadlineExceeded
	}}
	a, _ := newTestApp(t, gen)
	episode := seedEpisode(t, a, "user-1", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	_, err := a.GenerateContent(context.Background(), "user-1", episode.ID, "prompt_visual")
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind != KindUpstream {
		t.Fatalf("expected upstream kind for timeout, got %v", err)
	}
}

func TestGenerateContentRequiresEditAccess(t *testing.T) {
	gen := &fakeGenerator{}
	a, _ := newTestApp(t, gen)
	episode := seedEpisode(t, a, "owner", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	// Stranger: episode is invisible.
	_, err := a.GenerateContent(context.Background(), "stranger", episode.ID, "prompt_visual")
	var appErr *Error
	if !errors.As(err, &appErr) || appErr.Kind != KindNotFound {
		t.Fatalf("stranger: expected not-found, got %v", err)
	}

	// View-only collaborator: visible but not writable.
	if _, err := a.AddCollaborator("owner", episode.ID, "viewer", "view"); err != nil {
		t.Fatalf("add collaborator: %v", err)
	}
	_, err = a.GenerateContent(context.Background(), "viewer", episode.ID, "prompt_visual")
	if !errors.As(err, &appErr) || appErr.Kind != KindForbidden {
		t.Fatalf("viewer: expected forbidden, got %v", err)
	}

	// Editor collaborator succeeds.
	if _, err := a.AddCollaborator("owner", episode.ID, "editor", "edit"); err != nil {
		t.Fatalf("add editor: %v", err)
	}
	if _, err := a.GenerateContent(context.Background(), "editor", episode.ID, "prompt_visual"); err != nil {
		t.Fatalf("editor generate: %v", err)
	}

	if gen.calls != 1 {
		t.Fatalf("only the editor call may reach the model, got %d", gen.calls)
	}
}
