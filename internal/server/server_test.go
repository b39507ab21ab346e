package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"domstudio/internal/app"
	"domstudio/internal/ratelimit"
	"domstudio/pkg/ai"
	"domstudio/pkg/domain"
	"domstudio/pkg/store"
)

type stubVerifier struct{}

// VerifySubject accepts tokens of the form "user:<id>".
func (stubVerifier) VerifySubject(token string) (string, error) {
	if id, ok := strings.CutPrefix(token, "user:"); ok && id != "" {
		return id, nil
	}
	return "", errors.New("invalid token")
}

type scriptedGenerator struct {
	calls int
	reply func() (string, error)
}

func (g *scriptedGenerator) GenerateText(context.Context, string, string) (string, error) {
	g.calls++
	if g.reply != nil {
		return g.reply()
	}
	return "conteúdo gerado", nil
}

type testEnv struct {
	srv   *httptest.Server
	app   *app.App
	store *store.MemoryStore
	gen   *scriptedGenerator
}

func newTestEnv(t *testing.T, limiter RateLimiter) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	gen := &scriptedGenerator{}
	appCore, err := app.New(app.Config{Store: st, Generator: gen})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	httpServer, err := New(Config{
		App:             appCore,
		TokenVerifier:   stubVerifier{},
		GenerateLimiter: limiter,
		AIModel:         "gpt-4o",
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	srv := httptest.NewServer(httpServer.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, app: appCore, store: st, gen: gen}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func createEpisode(t *testing.T, e *testEnv, token, title, script string) domain.Episode {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/episodes", token, map[string]any{
		"title":      title,
		"baseScript": script,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create episode expected 201, got %d", resp.StatusCode)
	}
	var episode domain.Episode
	decodeBody(t, resp, &episode)
	return episode
}

func TestRoutesRequireAuthentication(t *testing.T) {
	e := newTestEnv(t, nil)
	for _, path := range []string{"/api/episodes", "/api/generate", "/api/templates"} {
		resp := e.do(t, http.MethodGet, path, "", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s without token expected 401, got %d", path, resp.StatusCode)
		}
		resp = e.do(t, http.MethodGet, path, "garbage", nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s with bad token expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestHealthzIsPublic(t *testing.T) {
	e := newTestEnv(t, nil)
	resp := e.do(t, http.MethodGet, "/healthz", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz expected 200, got %d", resp.StatusCode)
	}
}

func TestGenerateEndpointHappyPath(t *testing.T) {
	e := newTestEnv(t, nil)
	episode := createEpisode(t, e, "user:alice", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	resp := e.do(t, http.MethodPost, "/api/generate", "user:alice", map[string]string{
		"episodeId":  episode.ID,
		"moduleType": "roteiro_livro",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate expected 200, got %d", resp.StatusCode)
	}
	var record domain.GeneratedContent
	decodeBody(t, resp, &record)
	if record.ModuleType != domain.ModuleRoteiroLivro || record.Content != "conteúdo gerado" {
		t.Fatalf("unexpected record %+v", record)
	}
	if e.gen.calls != 1 {
		t.Fatalf("expected one model call, got %d", e.gen.calls)
	}
}

func TestGenerateEndpointErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		reply      func() (string, error)
		wantStatus int
		wantKind   string
	}{
		{
			name: "provider auth failure",
			reply: func() (string, error) {
				return "", &ai.APIError{StatusCode: http.StatusUnauthorized, Message: "bad key"}
			},
			wantStatus: http.StatusBadGateway,
			wantKind:   "upstream_auth",
		},
		{
			name: "provider throttled",
			reply: func() (string, error) {
				return "", &ai.APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down", RetryAfter: 30 * time.Second}
			},
			wantStatus: http.StatusBadGateway,
			wantKind:   "rate_limited",
		},
		{
			name: "provider outage",
			reply: func() (string, error) {
				return "", &ai.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}
			},
			wantStatus: http.StatusBadGateway,
			wantKind:   "upstream",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEnv(t, nil)
			episode := createEpisode(t, e, "user:alice", "Dom e a Lagoa", "Dom encontra uma lagoa.")
			e.gen.reply = tc.reply

			resp := e.do(t, http.MethodPost, "/api/generate", "user:alice", map[string]string{
				"episodeId":  episode.ID,
				"moduleType": "prompt_visual",
			})
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, resp.StatusCode)
			}
			retryAfter := resp.Header.Get("Retry-After")
			var body map[string]string
			decodeBody(t, resp, &body)
			if body["kind"] != tc.wantKind {
				t.Fatalf("expected kind %q, got %q", tc.wantKind, body["kind"])
			}
			if tc.wantKind == "rate_limited" && retryAfter != "30" {
				t.Fatalf("expected Retry-After 30, got %q", retryAfter)
			}
		})
	}
}

func TestGenerateEndpointValidationAndNotFound(t *testing.T) {
	e := newTestEnv(t, nil)
	episode := createEpisode(t, e, "user:alice", "Dom e a Lagoa", "")

	// Unknown module type.
	resp := e.do(t, http.MethodPost, "/api/generate", "user:alice", map[string]string{
		"episodeId":  episode.ID,
		"moduleType": "roteiro_novela",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid module type expected 400, got %d", resp.StatusCode)
	}

	// Empty base script.
	resp = e.do(t, http.MethodPost, "/api/generate", "user:alice", map[string]string{
		"episodeId":  episode.ID,
		"moduleType": "prompt_visual",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty base script expected 400, got %d", resp.StatusCode)
	}

	// Unknown episode.
	resp = e.do(t, http.MethodPost, "/api/generate", "user:alice", map[string]string{
		"episodeId":  "nope",
		"moduleType": "prompt_visual",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown episode expected 404, got %d", resp.StatusCode)
	}

	if e.gen.calls != 0 {
		t.Fatalf("no failure path may call the model, got %d calls", e.gen.calls)
	}
}

func TestGenerateEndpointRateLimited(t *testing.T) {
	limiter := ratelimit.NewSlidingWindowLimiter(1, time.Minute)
	e := newTestEnv(t, limiter)
	episode := createEpisode(t, e, "user:alice", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	body := map[string]string{"episodeId": episode.ID, "moduleType": "prompt_visual"}
	resp := e.do(t, http.MethodPost, "/api/generate", "user:alice", body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", resp.StatusCode)
	}
	resp = e.do(t, http.MethodPost, "/api/generate", "user:alice", body)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Fatalf("429 must carry Retry-After")
	}
	// Other users are unaffected.
	other := createEpisode(t, e, "user:bob", "Outro Episódio", "Lua ensina algo novo.")
	resp = e.do(t, http.MethodPost, "/api/generate", "user:bob", map[string]string{
		"episodeId": other.ID, "moduleType": "prompt_visual",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("other user expected 200, got %d", resp.StatusCode)
	}
}

func TestEpisodeCRUDOverHTTP(t *testing.T) {
	e := newTestEnv(t, nil)
	episode := createEpisode(t, e, "user:alice", "Dom e a Lagoa", "Dom encontra uma lagoa.")

	resp := e.do(t, http.MethodGet, "/api/episodes/"+episode.ID, "user:alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get expected 200, got %d", resp.StatusCode)
	}
	var got domain.Episode
	decodeBody(t, resp, &got)
	if got.Title != "Dom e a Lagoa" {
		t.Fatalf("unexpected episode %+v", got)
	}

	resp = e.do(t, http.MethodPut, "/api/episodes/"+episode.ID, "user:alice", map[string]any{
		"title":      "Dom e a Lagoa Encantada",
		"baseScript": "Dom encontra uma lagoa encantada.",
		"status":     "in_progress",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &got)
	if got.Status != domain.EpisodeInProgress {
		t.Fatalf("expected in_progress, got %s", got.Status)
	}

	// Other users cannot see a private episode.
	resp = e.do(t, http.MethodGet, "/api/episodes/"+episode.ID, "user:bob", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("foreign get expected 404, got %d", resp.StatusCode)
	}

	resp = e.do(t, http.MethodDelete, "/api/episodes/"+episode.ID, "user:alice", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete expected 200, got %d", resp.StatusCode)
	}
}

func TestContentListAndManualEdit(t *testing.T) {
	e := newTestEnv(t, nil)
	episode := createEpisode(t, e, "user:alice", "Dom e a Lagoa", "Dom encontra uma lagoa.")
	resp := e.do(t, http.MethodPost, "/api/generate", "user:alice", map[string]string{
		"episodeId": episode.ID, "moduleType": "roteiro_completo",
	})
	var record domain.GeneratedContent
	decodeBody(t, resp, &record)

	resp = e.do(t, http.MethodGet, fmt.Sprintf("/api/episodes/%s/content", episode.ID), "user:alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list content expected 200, got %d", resp.StatusCode)
	}
	var listing struct {
		Items []domain.GeneratedContent `json:"items"`
		Count int                       `json:"count"`
	}
	decodeBody(t, resp, &listing)
	if listing.Count != 1 || len(listing.Items) != 1 {
		t.Fatalf("expected one row, got %+v", listing)
	}

	resp = e.do(t, http.MethodPatch, "/api/content/"+record.ID, "user:alice", map[string]string{
		"content": "versão editada",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patch expected 200, got %d", resp.StatusCode)
	}
	decodeBody(t, resp, &record)
	if record.Content != "versão editada" {
		t.Fatalf("edit not applied: %+v", record)
	}
}

func TestAIStatusEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)
	resp := e.do(t, http.MethodGet, "/api/ai/status", "user:alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Configured bool     `json:"configured"`
		Model      string   `json:"model"`
		Modules    []string `json:"modules"`
	}
	decodeBody(t, resp, &body)
	if !body.Configured || body.Model != "gpt-4o" {
		t.Fatalf("unexpected status body %+v", body)
	}
	if len(body.Modules) != 5 {
		t.Fatalf("expected 5 module types, got %v", body.Modules)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	e := newTestEnv(t, nil)
	resp := e.do(t, http.MethodDelete, "/api/generate", "user:alice", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}
