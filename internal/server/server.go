package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"domstudio/internal/app"
	"domstudio/internal/util"
	"domstudio/pkg/domain"
)

// SubjectVerifier validates a bearer token and returns the subject user ID.
// Satisfied by *usertoken.Verifier.
type SubjectVerifier interface {
	VerifySubject(token string) (string, error)
}

// RateLimiter gates requests per key. Satisfied by the redis fixed-window and
// the in-process sliding-window limiters.
type RateLimiter interface {
	Allow(key string) bool
}

// Config wires required dependencies for the HTTP server.
type Config struct {
	App             *app.App
	TokenVerifier   SubjectVerifier
	GenerateLimiter RateLimiter // optional; generation is unthrottled without it
	MaxUploadBytes  int64
	AIModel         string
}

// Server exposes the HTTP API: episodes, generation, content, templates,
// collaborators and exports.
type Server struct {
	app             *app.App
	tokenVerifier   SubjectVerifier
	generateLimiter RateLimiter
	maxUploadBytes  int64
	aiModel         string
	mux             *http.ServeMux
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	if cfg.TokenVerifier == nil {
		return nil, errors.New("token verifier required")
	}
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 << 20
	}
	s := &Server{
		app:             cfg.App,
		tokenVerifier:   cfg.TokenVerifier,
		generateLimiter: cfg.GenerateLimiter,
		maxUploadBytes:  maxUpload,
		aiModel:         cfg.AIModel,
		mux:             http.NewServeMux(),
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the shared middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("api", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	s.mux.Handle("/api/generate", s.authenticated(s.handleGenerate))
	s.mux.Handle("/api/ai/status", s.authenticated(s.handleAIStatus))

	s.mux.Handle("/api/episodes", s.authenticated(s.handleEpisodes))
	s.mux.Handle("/api/episodes/", s.authenticated(s.handleEpisodeSubtree))
	s.mux.Handle("/api/content/", s.authenticated(s.handleContentByID))
	s.mux.Handle("/api/templates", s.authenticated(s.handleTemplates))
	s.mux.Handle("/api/templates/", s.authenticated(s.handleTemplateByID))
	s.mux.Handle("/api/exports/", s.authenticated(s.handleExportByID))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, string)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		userID, err := s.tokenVerifier.VerifySubject(token)
		if err != nil {
			util.LoggerFromContext(r.Context()).Warn("token rejected", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r, userID)
	})
}

// POST /api/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if s.generateLimiter != nil && !s.generateLimiter.Allow(userID) {
		util.LoggerFromContext(r.Context()).Warn("generation rate limited", "user_id", userID, "ip", util.ClientIP(r, nil))
		w.Header().Set("Retry-After", "60")
		writeError(w, http.StatusTooManyRequests, "too many generation requests")
		return
	}
	var req generateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	record, err := s.app.GenerateContent(r.Context(), userID, req.EpisodeID, req.ModuleType)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// GET /api/ai/status
func (s *Server) handleAIStatus(w http.ResponseWriter, r *http.Request, _ string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"configured": s.aiModel != "",
		"model":      s.aiModel,
		"modules":    domain.ModuleTypes(),
	})
}

// GET /api/episodes, POST /api/episodes
func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.ListEpisodes(userID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	case http.MethodPost:
		input, ok := decodeEpisodeInput(w, r)
		if !ok {
			return
		}
		episode, err := s.app.CreateEpisode(userID, input)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, episode)
	default:
		methodNotAllowed(w)
	}
}

// /api/episodes/{id} and its nested resources.
func (s *Server) handleEpisodeSubtree(w http.ResponseWriter, r *http.Request, userID string) {
	path := strings.TrimPrefix(r.URL.Path, "/api/episodes/")
	parts := strings.SplitN(path, "/", 3)
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}
	if len(parts) == 1 {
		s.handleEpisodeByID(w, r, userID, id)
		return
	}
	switch parts[1] {
	case "content":
		if len(parts) == 2 {
			s.handleEpisodeContent(w, r, userID, id)
			return
		}
	case "script":
		if len(parts) == 2 {
			s.handleScriptImport(w, r, userID, id)
			return
		}
	case "collaborators":
		if len(parts) == 2 {
			s.handleCollaborators(w, r, userID, id)
			return
		}
		s.handleCollaboratorByID(w, r, userID, id, parts[2])
		return
	case "exports":
		if len(parts) == 2 {
			s.handleEpisodeExports(w, r, userID, id)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) handleEpisodeByID(w http.ResponseWriter, r *http.Request, userID, id string) {
	switch r.Method {
	case http.MethodGet:
		episode, err := s.app.GetEpisode(userID, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, episode)
	case http.MethodPut:
		input, ok := decodeEpisodeInput(w, r)
		if !ok {
			return
		}
		episode, err := s.app.UpdateEpisode(userID, id, input)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, episode)
	case http.MethodDelete:
		if err := s.app.DeleteEpisode(userID, id); err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

// GET /api/episodes/{id}/content
func (s *Server) handleEpisodeContent(w http.ResponseWriter, r *http.Request, userID, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items, err := s.app.ListEpisodeContent(userID, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// POST /api/episodes/{id}/script — multipart file upload replacing the base
// script.
func (s *Server) handleScriptImport(w http.ResponseWriter, r *http.Request, userID, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}
	text, err := s.app.ImportBaseScript(userID, id, header.Filename, data)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"baseScript": text})
}

// GET/POST /api/episodes/{id}/collaborators
func (s *Server) handleCollaborators(w http.ResponseWriter, r *http.Request, userID, id string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.ListCollaborators(userID, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	case http.MethodPost:
		var req collaboratorRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		collab, err := s.app.AddCollaborator(userID, id, req.UserID, req.Permission)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, collab)
	default:
		methodNotAllowed(w)
	}
}

// DELETE /api/episodes/{id}/collaborators/{collabId}
func (s *Server) handleCollaboratorByID(w http.ResponseWriter, r *http.Request, userID, episodeID, collabID string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w)
		return
	}
	if collabID == "" || strings.Contains(collabID, "/") {
		http.NotFound(w, r)
		return
	}
	if err := s.app.RemoveCollaborator(userID, episodeID, collabID); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET/POST /api/episodes/{id}/exports
func (s *Server) handleEpisodeExports(w http.ResponseWriter, r *http.Request, userID, id string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.ListExports(userID, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	case http.MethodPost:
		var req exportRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		export, err := s.app.RequestExport(r.Context(), userID, id, req.Format)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, export)
	default:
		methodNotAllowed(w)
	}
}

// GET /api/exports/{id}
func (s *Server) handleExportByID(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/exports/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	export, err := s.app.GetExport(userID, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

// PATCH /api/content/{id} — manual edit of a generated row.
func (s *Server) handleContentByID(w http.ResponseWriter, r *http.Request, userID string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/content/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	var req contentUpdateRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	record, err := s.app.UpdateContent(userID, id, req.Content)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// GET/POST /api/templates
func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodGet:
		items, err := s.app.ListScriptTemplates(userID)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	case http.MethodPost:
		var req templateRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		tpl, err := s.app.CreateScriptTemplate(userID, app.ScriptTemplateInput{
			Name:        req.Name,
			Description: req.Description,
			BaseScript:  req.BaseScript,
			IsPublic:    req.IsPublic,
		})
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tpl)
	default:
		methodNotAllowed(w)
	}
}

// GET/DELETE /api/templates/{id}
func (s *Server) handleTemplateByID(w http.ResponseWriter, r *http.Request, userID string) {
	id := strings.TrimPrefix(r.URL.Path, "/api/templates/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		tpl, err := s.app.GetScriptTemplate(userID, id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tpl)
	case http.MethodDelete:
		if err := s.app.DeleteScriptTemplate(userID, id); err != nil {
			writeAppError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w)
	}
}

type generateRequest struct {
	EpisodeID  string `json:"episodeId"`
	ModuleType string `json:"moduleType"`
}

type episodeRequest struct {
	Title       string `json:"title"`
	BaseScript  string `json:"baseScript"`
	Description string `json:"description"`
	Status      string `json:"status"`
	IsPublic    bool   `json:"isPublic"`
}

type collaboratorRequest struct {
	UserID     string `json:"userId"`
	Permission string `json:"permission"`
}

type exportRequest struct {
	Format string `json:"format"`
}

type contentUpdateRequest struct {
	Content string `json:"content"`
}

type templateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BaseScript  string `json:"baseScript"`
	IsPublic    bool   `json:"isPublic"`
}

func decodeEpisodeInput(w http.ResponseWriter, r *http.Request) (app.EpisodeInput, bool) {
	var req episodeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return app.EpisodeInput{}, false
	}
	return app.EpisodeInput{
		Title:       req.Title,
		BaseScript:  req.BaseScript,
		Description: req.Description,
		Status:      req.Status,
		IsPublic:    req.IsPublic,
	}, true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps the app error taxonomy onto HTTP. Upstream model
// failures keep their kind in the body so clients can tell a bad credential
// from provider throttling.
func writeAppError(w http.ResponseWriter, err error) {
	var appErr *app.Error
	if !errors.As(err, &appErr) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	status := http.StatusInternalServerError
	switch appErr.Kind {
	case app.KindValidation:
		status = http.StatusBadRequest
	case app.KindNotFound:
		status = http.StatusNotFound
	case app.KindForbidden:
		status = http.StatusForbidden
	case app.KindRateLimited:
		status = http.StatusBadGateway
		if appErr.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
		}
	case app.KindAuthentication, app.KindUpstream:
		status = http.StatusBadGateway
	case app.KindPersistence:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{
		"error": appErr.Message,
		"kind":  string(appErr.Kind),
	})
}
