// Package labapi is the HTTP client for the pathology lab's REST API: patient
// profile, collection slots, test search, bookings, appointments and results.
package labapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

const (
	defaultBaseURL = "http://localhost:5000/api"
	defaultTimeout = 15 * time.Second
)

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Path       string
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("lab API %s returned %d: %s", e.Path, e.StatusCode, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Observer receives one call per completed request.
type Observer interface {
	ObserveBackendRequest(operation, status string, elapsed time.Duration)
}

// Client calls the lab REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *logging.Logger
	observer   Observer
}

// Option configures a Client.
type Option func(*Client)

// WithServiceToken sets the service bearer token used when the request context carries none.
func WithServiceToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithTimeout overrides the fixed per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithObserver records per-operation outcomes.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient constructs a lab API client.
func NewClient(baseURL string, logger *logging.Logger, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenKey struct{}

// WithToken attaches a caller's bearer token to ctx. Requests made with that
// context authenticate as the caller instead of the service token.
func WithToken(ctx context.Context, token string) context.Context {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey{}).(string); ok {
		return v
	}
	return ""
}

// GetProfile returns the patient profile.
func (c *Client) GetProfile(ctx context.Context) (Profile, error) {
	var wrapped struct {
		Profile
		Nested *Profile `json:"profile"`
	}
	if err := c.doJSON(ctx, "get_profile", http.MethodGet, "/patients/profile", nil, &wrapped); err != nil {
		return Profile{}, fmt.Errorf("get profile: %w", err)
	}
	if wrapped.Nested != nil {
		return *wrapped.Nested, nil
	}
	return wrapped.Profile, nil
}

// GetSlots lists the fixed collection windows.
func (c *Client) GetSlots(ctx context.Context) ([]Slot, error) {
	var slots []Slot
	if err := c.getList(ctx, "get_slots", "/appointments/slots", "slots", &slots); err != nil {
		return nil, fmt.Errorf("get slots: %w", err)
	}
	return slots, nil
}

// SearchTests finds catalog tests by name or code.
func (c *Client) SearchTests(ctx context.Context, query string) ([]TestInfo, error) {
	path := "/tests/search?q=" + url.QueryEscape(strings.TrimSpace(query))
	var tests []TestInfo
	if err := c.getList(ctx, "search_tests", path, "tests", &tests); err != nil {
		return nil, fmt.Errorf("search tests: %w", err)
	}
	return tests, nil
}

// CreateBooking books a test appointment.
func (c *Client) CreateBooking(ctx context.Context, payload BookingPayload) (BookingConfirmation, error) {
	var out BookingConfirmation
	if err := c.doJSON(ctx, "create_booking", http.MethodPost, "/appointments", payload, &out); err != nil {
		return BookingConfirmation{}, fmt.Errorf("create booking: %w", err)
	}
	return out, nil
}

// ListAppointments returns the patient's appointments.
func (c *Client) ListAppointments(ctx context.Context) ([]Appointment, error) {
	var appts []Appointment
	if err := c.getList(ctx, "list_appointments", "/appointments", "appointments", &appts); err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// ListTestResults returns the patient's processed reports.
func (c *Client) ListTestResults(ctx context.Context) ([]TestResult, error) {
	var results []TestResult
	if err := c.getList(ctx, "list_results", "/results", "results", &results); err != nil {
		return nil, fmt.Errorf("list test results: %w", err)
	}
	return results, nil
}

// getList decodes either a bare JSON array or an object wrapping it under key or "data".
// An object carrying neither is a malformed response, not an empty list.
func (c *Client) getList(ctx context.Context, op, path, key string, out any) error {
	var raw json.RawMessage
	if err := c.doJSON(ctx, op, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	for _, k := range []string{key, "data"} {
		if inner, ok := wrapped[k]; ok {
			if err := json.Unmarshal(inner, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
			return nil
		}
	}
	return fmt.Errorf("decode response: missing %q or \"data\"", key)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		if c.observer != nil {
			c.observer.ObserveBackendRequest(op, status, time.Since(start))
		}
	}()

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token := tokenFrom(ctx)
	if token == "" {
		token = c.token
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("lab API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return &StatusError{StatusCode: resp.StatusCode, Path: path, Body: msg}
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
