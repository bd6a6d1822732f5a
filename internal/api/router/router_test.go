package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/pathlab-ai-platform/internal/agent"
	"github.com/wolfman30/pathlab-ai-platform/internal/catalog"
	"github.com/wolfman30/pathlab-ai-platform/internal/chat"
	httpmiddleware "github.com/wolfman30/pathlab-ai-platform/internal/http/middleware"
	"github.com/wolfman30/pathlab-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/internal/webchat"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

type greetingAgent struct{}

func (greetingAgent) Handle(_ context.Context, input string, _ *session.Session) (agent.Result, error) {
	return agent.Result{Messages: []string{"You said: " + input}}, nil
}

func newTestRouter(t *testing.T, limiter *httpmiddleware.RateLimiter) http.Handler {
	t.Helper()
	logger := logging.Discard()
	reg := prometheus.NewRegistry()
	chatMetrics := metrics.NewChatMetrics(reg)
	store := session.NewStore(time.Hour)
	agents := map[session.Intent]agent.Agent{
		session.IntentBooking:           greetingAgent{},
		session.IntentViewReport:        greetingAgent{},
		session.IntentAppointmentStatus: greetingAgent{},
	}
	turns := agent.NewRouter(store, nil, agents, logger, agent.WithTurnObserver(chatMetrics))

	return New(&Config{
		Logger:             logger,
		ChatHandler:        chat.NewHandler(turns, store, logger),
		WebChat:            webchat.NewHandler(turns, store, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins: []string{"https://portal.pathlab.example"},
		RateLimiter:        limiter,
		Catalog:            catalog.New([]catalog.Test{{Code: "CBC", Name: "Complete Blood Count", BasePrice: 350}}),
		Models:             []string{"gemini:gemini-1.5-flash"},
	})
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "loaded", resp.Catalog)
	assert.Equal(t, []string{"gemini:gemini-1.5-flash"}, resp.Models)
}

func TestRouter_HealthWithUnavailableCatalog(t *testing.T) {
	h := New(&Config{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"catalog":"unavailable"`)
}

func TestRouter_ChatTurnAndMetrics(t *testing.T) {
	h := newTestRouter(t, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"book a test","session_id":"s-1"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var reply agent.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, "s-1", reply.SessionID)
	assert.Equal(t, session.IntentBooking, reply.Intent)
	assert.Equal(t, []string{"You said: book a test"}, reply.Messages)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat/s-1/history", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You said: book a test")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `pathlab_chat_turns_total{intent="booking",outcome="continue"} 1`)
}

func TestRouter_RateLimitsChatOnly(t *testing.T) {
	h := newTestRouter(t, httpmiddleware.NewRateLimiter(0.001, 1))

	send := func(path, body string) int {
		method := http.MethodGet
		if body != "" {
			method = http.MethodPost
		}
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.RemoteAddr = "198.51.100.4:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send("/chat", `{"message":"hi"}`))
	assert.Equal(t, http.StatusTooManyRequests, send("/chat", `{"message":"hi again"}`))
	assert.Equal(t, http.StatusOK, send("/health", ""))
}

func TestRouter_CORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "https://portal.pathlab.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	newTestRouter(t, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://portal.pathlab.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
