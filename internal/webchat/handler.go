package webchat

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/pathlab-ai-platform/internal/agent"
	"github.com/wolfman30/pathlab-ai-platform/internal/chat"
	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

const historyLimit = 50

// Turner runs one chat turn.
type Turner interface {
	Handle(ctx context.Context, sessionID, message string) (agent.Reply, error)
}

// Handler serves the real-time chat socket. Each inbound message runs one
// Router turn and the replies are written back on the same connection.
type Handler struct {
	turns   Turner
	history chat.HistoryReader
	logger  *logging.Logger
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string            `json:"type"` // "session", "history", "typing", "message", "state", "error", "pong"
	Text      string            `json:"text,omitempty"`
	Role      string            `json:"role,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Intent    session.Intent    `json:"intent,omitempty"`
	Timestamp string            `json:"timestamp,omitempty"`
	Messages  []HistoryMessage  `json:"messages,omitempty"`
	State     *session.Snapshot `json:"state,omitempty"`
	Done      bool              `json:"done,omitempty"`
}

// HistoryMessage is a simplified message for history frames.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

func NewHandler(turns Turner, history chat.HistoryReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{turns: turns, history: history, logger: logger}
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
// Browsers cannot set headers on the upgrade, so a lab token may also be
// passed as ?token=.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	token := r.Header.Get("Authorization")
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	ctx := labapi.WithToken(r.Context(), token)
	logger := h.logger.WithSession(sessionID)

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})
	h.sendHistory(ctx, conn, sessionID)

	logger.Info("webchat: connection opened")
	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			logger.Debug("webchat: connection closed", "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}
		h.processMessage(ctx, conn, sessionID, strings.TrimSpace(msg.Text))
	}
}

func (h *Handler) sendHistory(ctx context.Context, conn *websocket.Conn, sessionID string) {
	if h.history == nil {
		return
	}
	turns, ok, err := h.history.History(ctx, sessionID)
	if err != nil || !ok || len(turns) == 0 {
		return
	}
	if len(turns) > historyLimit {
		turns = turns[len(turns)-historyLimit:]
	}
	history := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		history = append(history, HistoryMessage{
			Role:      string(t.Role),
			Text:      t.Content,
			Timestamp: t.Timestamp.Format(time.RFC3339),
		})
	}
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: history})
}

func (h *Handler) processMessage(ctx context.Context, conn *websocket.Conn, sessionID, text string) {
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})

	reply, err := h.turns.Handle(ctx, sessionID, text)
	if err != nil {
		h.logger.Error("webchat: turn failed", "session_id", sessionID, "error", err)
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: chat.FallbackReply})
		return
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, m := range reply.Messages {
		_ = websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Role:      string(session.RoleAssistant),
			Text:      m,
			Intent:    reply.Intent,
			Timestamp: now,
		})
	}
	state := reply.State
	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "state", Intent: reply.Intent, State: &state, Done: reply.Done})
}
