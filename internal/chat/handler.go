// Package chat exposes the Router over REST.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wolfman30/pathlab-ai-platform/internal/agent"
	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// FallbackReply is sent when a turn fails after routing.
const FallbackReply = "Sorry, I ran into a problem while handling that. Please try again in a moment."

const maxMessageBytes = 8 << 10

// Service runs chat turns.
type Service interface {
	Handle(ctx context.Context, sessionID, message string) (agent.Reply, error)
	Reset(sessionID string, intent session.Intent) (session.Snapshot, error)
}

// HistoryReader loads a session transcript.
type HistoryReader interface {
	History(ctx context.Context, id string) ([]session.Turn, bool, error)
}

// Handler wires HTTP requests to the chat service.
type Handler struct {
	service Service
	history HistoryReader
	logger  *logging.Logger
}

func NewHandler(service Service, history HistoryReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, history: history, logger: logger}
}

// Request is the body of POST /chat.
type Request struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// HistoryResponse is the body of GET /chat/{sessionID}/history.
type HistoryResponse struct {
	SessionID string         `json:"session_id"`
	Messages  []session.Turn `json:"messages"`
}

// Routes mounts the chat endpoints on a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Chat)
	r.Get("/{sessionID}/history", h.History)
	r.Post("/{sessionID}/reset", h.Reset)
}

// Chat handles POST /chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		h.logger.Warn("failed to decode chat request", "error", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}
	if req.SessionID = strings.TrimSpace(req.SessionID); req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx := labapi.WithToken(r.Context(), r.Header.Get("Authorization"))
	reply, err := h.service.Handle(ctx, req.SessionID, req.Message)
	if err != nil {
		// The user still gets a reply; the session stays usable.
		h.logger.Error("chat turn failed", "session_id", req.SessionID, "intent", reply.Intent, "error", err)
		reply.SessionID = req.SessionID
		reply.Messages = []string{FallbackReply}
		reply.Done = false
	}
	h.writeJSON(w, http.StatusOK, reply)
}

// History handles GET /chat/{sessionID}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if h.history == nil {
		http.Error(w, "history not available", http.StatusNotImplemented)
		return
	}
	turns, ok, err := h.history.History(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to load history", "session_id", id, "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if turns == nil {
		turns = []session.Turn{}
	}
	h.writeJSON(w, http.StatusOK, HistoryResponse{SessionID: id, Messages: turns})
}

type resetRequest struct {
	Agent session.Intent `json:"agent"`
}

// Reset handles POST /chat/{sessionID}/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	var req resetRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	snap, err := h.service.Reset(id, req.Agent)
	if errors.Is(err, agent.ErrUnknownIntent) {
		http.Error(w, "unknown agent", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("failed to reset agent", "session_id", id, "agent", req.Agent, "error", err)
		http.Error(w, "failed to reset agent", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "state": snap})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
