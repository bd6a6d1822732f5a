package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func apiEvent(method, path string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{Method: method, Path: path},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://example.com", upstreamTimeout: time.Second}
	resp, err := handle(context.Background(), cfg, &http.Client{}, apiEvent(http.MethodGet, "/health"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", resp.Body)
}

func TestHandleRouting(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://127.0.0.1:1", upstreamTimeout: 100 * time.Millisecond}
	cases := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"get on chat", http.MethodGet, "/chat", http.StatusMethodNotAllowed},
		{"post on history", http.MethodPost, "/chat/s-1/history", http.StatusMethodNotAllowed},
		{"get on reset", http.MethodGet, "/chat/s-1/reset", http.StatusMethodNotAllowed},
		{"unknown sub-resource", http.MethodGet, "/chat/s-1/other", http.StatusNotFound},
		{"missing session", http.MethodGet, "/chat//history", http.StatusNotFound},
		{"outside chat", http.MethodPost, "/webhooks/twilio", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := handle(context.Background(), cfg, &http.Client{}, apiEvent(tc.method, tc.path))
			require.NoError(t, err)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}
}

func TestHandleInvalidBase64Body(t *testing.T) {
	cfg := config{upstreamBaseURL: "http://example.com", upstreamTimeout: time.Second}
	evt := apiEvent(http.MethodPost, "/chat")
	evt.Body = "not-base64"
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), cfg, &http.Client{}, evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid body", resp.Body)
}

func TestHandleForwardsChatTurn(t *testing.T) {
	type captured struct {
		method  string
		path    string
		headers http.Header
		body    string
	}
	reqCh := make(chan captured, 1)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqCh <- captured{method: r.Method, path: r.URL.Path, headers: r.Header.Clone(), body: string(body)}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"session_id":"s-1","messages":["Which test?"]}`))
	}))
	defer upstream.Close()

	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second}
	evt := apiEvent(http.MethodPost, "/chat")
	evt.Body = base64.StdEncoding.EncodeToString([]byte(`{"message":"book a test"}`))
	evt.IsBase64Encoded = true
	evt.Headers = map[string]string{
		"Content-Type":  "application/json",
		"Authorization": "Bearer patient-token",
	}
	evt.RequestContext.HTTP.SourceIP = "203.0.113.9"

	resp, err := handle(context.Background(), cfg, upstream.Client(), evt)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Headers["content-type"])
	assert.Contains(t, resp.Body, "Which test?")

	select {
	case got := <-reqCh:
		assert.Equal(t, http.MethodPost, got.method)
		assert.Equal(t, "/chat", got.path)
		assert.Equal(t, `{"message":"book a test"}`, got.body)
		assert.Equal(t, "Bearer patient-token", got.headers.Get("Authorization"))
		assert.Equal(t, "203.0.113.9", got.headers.Get("X-Real-IP"))
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for upstream request")
	}
}

func TestHandleForwardsHistoryAndRetryAfter(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/chat/s-1/history", r.URL.Path)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer upstream.Close()

	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second}
	resp, err := handle(context.Background(), cfg, upstream.Client(), apiEvent(http.MethodGet, "/chat/s-1/history"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "1", resp.Headers["retry-after"])
}

func TestHandleUpstreamDown(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	cfg := config{upstreamBaseURL: url, upstreamTimeout: time.Second}
	resp, err := handle(context.Background(), cfg, &http.Client{}, apiEvent(http.MethodPost, "/chat"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")
	_, err := loadConfig()
	require.Error(t, err)

	t.Setenv("UPSTREAM_BASE_URL", "https://api.example.com/")
	t.Setenv("UPSTREAM_TIMEOUT", "5s")
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", cfg.upstreamBaseURL)
	assert.Equal(t, 5*time.Second, cfg.upstreamTimeout)

	t.Setenv("UPSTREAM_TIMEOUT", "soon")
	_, err = loadConfig()
	require.Error(t, err)
}
