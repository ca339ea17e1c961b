package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/runger/cmdvault/internal/learn"
	"github.com/runger/cmdvault/internal/storage"
	"github.com/runger/cmdvault/internal/suggest"
)

// defaultTempCodeTTL bounds how long a device code stays exchangeable
// when no TTL is configured.
const defaultTempCodeTTL = 15 * time.Minute

// LearnRequest is the request for /api/learn.
type LearnRequest struct {
	ExecutedCommand string `json:"executed_command"`
	OS              string `json:"os,omitempty"`
	Pwd             string `json:"pwd,omitempty"`
	LsOutput        string `json:"ls_output,omitempty"`
}

// SuggestRequest is the request for /api/suggest.
type SuggestRequest struct {
	Query string `json:"query"`
	OS    string `json:"os,omitempty"`
	Pwd   string `json:"pwd,omitempty"`
}

// CommandRequest carries a saved command create or update.
type CommandRequest struct {
	Title       string   `json:"title,omitempty"`
	Text        string   `json:"text"`
	Description string   `json:"description,omitempty"`
	Platform    string   `json:"platform,omitempty"`
	Visibility  string   `json:"visibility,omitempty"`
	Favorite    bool     `json:"favorite,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// CommandResponse is the wire form of a saved command.
type CommandResponse struct {
	ID          string   `json:"id"`
	Title       string   `json:"title,omitempty"`
	Text        string   `json:"text"`
	Description string   `json:"description,omitempty"`
	Platform    string   `json:"platform,omitempty"`
	Visibility  string   `json:"visibility"`
	Favorite    bool     `json:"favorite"`
	UsageCount  int      `json:"usage_count"`
	Tags        []string `json:"tags,omitempty"`
	CreatedAtMs int64    `json:"created_at_ms"`
	UpdatedAtMs int64    `json:"updated_at_ms"`
}

// LearnedResponse is the wire form of a learned usage record.
type LearnedResponse struct {
	ID         string `json:"id"`
	Command    string `json:"command"`
	OS         string `json:"os,omitempty"`
	UsageCount int    `json:"usage_count"`
	LastUsedMs int64  `json:"last_used_ms"`
}

// ExchangeTokenRequest is the request for /api/exchange-token.
type ExchangeTokenRequest struct {
	Code  string `json:"code"`
	Label string `json:"label,omitempty"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}

func (s *Server) handleLearn(w http.ResponseWriter, r *http.Request) {
	var req LearnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON request body")
		return
	}
	if req.ExecutedCommand == "" {
		s.writeError(w, http.StatusBadRequest, "missing_command", "executed_command is required")
		return
	}

	user := requestUser(r)
	err := s.recorder.Record(r.Context(), learn.Event{
		UserID:  user.ID,
		Command: req.ExecutedCommand,
		OS:      req.OS,
		Dir:     req.Pwd,
		Listing: req.LsOutput,
	})
	if err != nil {
		s.logger.Error("ingestion failed", "user_id", user.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "learn_failed", "Failed to record command")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	var req SuggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON request body")
		return
	}

	user := requestUser(r)
	suggestions, err := s.engine.Suggest(r.Context(), suggest.Request{
		UserID:   user.ID,
		Query:    req.Query,
		Platform: req.OS,
	})
	if err != nil {
		s.logger.Error("suggestion failed", "user_id", user.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "suggest_failed", "Failed to compute suggestions")
		return
	}

	s.writeJSON(w, http.StatusOK, suggestions)
}

func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	q := storage.SavedQuery{UserID: user.ID}
	if r.URL.Query().Get("favorite") == "true" {
		q.FavoriteOnly = true
	}
	if tag := r.URL.Query().Get("tag"); tag != "" {
		q.Tag = tag
	}

	commands, err := s.store.QuerySaved(r.Context(), q)
	if err != nil {
		s.logger.Error("command list failed", "user_id", user.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list commands")
		return
	}

	out := make([]CommandResponse, len(commands))
	for i, c := range commands {
		out[i] = toCommandResponse(&c)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON request body")
		return
	}
	if msg := validateCommand(&req); msg != "" {
		s.writeError(w, http.StatusBadRequest, "invalid_command", msg)
		return
	}

	user := requestUser(r)
	c := &storage.SavedCommand{
		UserID:      user.ID,
		Title:       req.Title,
		Text:        req.Text,
		Description: req.Description,
		Platform:    req.Platform,
		Visibility:  req.Visibility,
		Favorite:    req.Favorite,
		Tags:        req.Tags,
	}
	if err := s.store.CreateSaved(r.Context(), c); err != nil {
		s.logger.Error("command create failed", "user_id", user.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "create_failed", "Failed to create command")
		return
	}

	s.writeJSON(w, http.StatusCreated, toCommandResponse(c))
}

func (s *Server) handleGetCommand(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	c, err := s.store.GetSaved(r.Context(), r.PathValue("id"))
	if err != nil || c.UserID != user.ID {
		s.writeNotFoundOr(w, err, "command not found")
		return
	}

	s.writeJSON(w, http.StatusOK, toCommandResponse(c))
}

func (s *Server) handleUpdateCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON request body")
		return
	}
	if msg := validateCommand(&req); msg != "" {
		s.writeError(w, http.StatusBadRequest, "invalid_command", msg)
		return
	}

	user := requestUser(r)
	c := &storage.SavedCommand{
		ID:          r.PathValue("id"),
		UserID:      user.ID,
		Title:       req.Title,
		Text:        req.Text,
		Description: req.Description,
		Platform:    req.Platform,
		Visibility:  req.Visibility,
		Favorite:    req.Favorite,
		Tags:        req.Tags,
	}
	if err := s.store.UpdateSaved(r.Context(), c); err != nil {
		s.writeNotFoundOr(w, err, "command not found")
		return
	}

	updated, err := s.store.GetSaved(r.Context(), c.ID)
	if err != nil {
		s.writeNotFoundOr(w, err, "command not found")
		return
	}
	s.writeJSON(w, http.StatusOK, toCommandResponse(updated))
}

func (s *Server) handleDeleteCommand(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	if err := s.store.DeleteSaved(r.Context(), r.PathValue("id"), user.ID); err != nil {
		s.writeNotFoundOr(w, err, "command not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handlePromote copies a learned usage record into the vault as a
// private saved command, seeding its counter from the learned history.
func (s *Server) handlePromote(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	rec, err := s.store.GetUsage(r.Context(), r.PathValue("id"))
	if err != nil || rec.UserID != user.ID {
		s.writeNotFoundOr(w, err, "learned command not found")
		return
	}

	c := &storage.SavedCommand{
		UserID:     user.ID,
		Text:       rec.Command,
		Platform:   rec.OS,
		Visibility: storage.VisibilityPrivate,
	}
	if err := s.store.CreateSaved(r.Context(), c); err != nil {
		s.logger.Error("promote failed", "user_id", user.ID, "usage_id", rec.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "promote_failed", "Failed to promote command")
		return
	}

	s.writeJSON(w, http.StatusCreated, toCommandResponse(c))
}

func (s *Server) handleListLearned(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	records, err := s.store.QueryUsage(r.Context(), storage.UsageQuery{UserID: user.ID})
	if err != nil {
		s.logger.Error("learned list failed", "user_id", user.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list learned commands")
		return
	}

	out := make([]LearnedResponse, len(records))
	for i, rec := range records {
		out[i] = LearnedResponse{
			ID:         rec.ID,
			Command:    rec.Command,
			OS:         rec.OS,
			UsageCount: rec.UsageCount,
			LastUsedMs: rec.UpdatedAtUnixMs,
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	tags, err := s.store.ListTags(r.Context(), user.ID)
	if err != nil {
		s.logger.Error("tag list failed", "user_id", user.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, "list_failed", "Failed to list tags")
		return
	}

	out := make([]string, len(tags))
	for i, tag := range tags {
		out[i] = tag.Name
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeleteLearned(w http.ResponseWriter, r *http.Request) {
	user := requestUser(r)

	if err := s.store.DeleteUsage(r.Context(), r.PathValue("id"), user.ID); err != nil {
		s.writeNotFoundOr(w, err, "learned command not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExchangeToken(w http.ResponseWriter, r *http.Request) {
	var req ExchangeTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON request body")
		return
	}
	if req.Code == "" {
		s.writeError(w, http.StatusBadRequest, "missing_code", "code is required")
		return
	}

	notBefore := time.Now().Add(-s.tempCodeTTL).UnixMilli()
	token, err := s.store.ExchangeTempCode(r.Context(), req.Code, notBefore, req.Label)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			s.writeError(w, http.StatusUnauthorized, "invalid_code", "Unknown or already used code")
		case errors.Is(err, storage.ErrCodeExpired):
			s.writeError(w, http.StatusUnauthorized, "code_expired", "Code has expired, request a new one")
		default:
			s.logger.Error("token exchange failed", "error", err)
			s.writeError(w, http.StatusInternalServerError, "exchange_failed", "Failed to exchange code")
		}
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"token": token.Token})
}

func toCommandResponse(c *storage.SavedCommand) CommandResponse {
	return CommandResponse{
		ID:          c.ID,
		Title:       c.Title,
		Text:        c.Text,
		Description: c.Description,
		Platform:    c.Platform,
		Visibility:  c.Visibility,
		Favorite:    c.Favorite,
		UsageCount:  c.UsageCount,
		Tags:        c.Tags,
		CreatedAtMs: c.CreatedAtUnixMs,
		UpdatedAtMs: c.UpdatedAtUnixMs,
	}
}

// writeNotFoundOr maps ErrNotFound (and ownership misses) to 404 and
// everything else to 500.
func (s *Server) writeNotFoundOr(w http.ResponseWriter, err error, msg string) {
	if err == nil || errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "not_found", msg)
		return
	}
	s.logger.Error("storage operation failed", "error", err)
	s.writeError(w, http.StatusInternalServerError, "internal", "Storage operation failed")
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to write response", "error", err)
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, errorCode, message string) {
	s.writeJSON(w, status, ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}
