package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

type stubClient struct {
	mu       sync.Mutex
	replies  []string
	errs     []error
	requests []Request
}

func (s *stubClient) Complete(_ context.Context, req Request) (Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return Response{}, s.errs[i]
	}
	if i < len(s.replies) {
		return Response{Text: s.replies[i]}, nil
	}
	return Response{}, errors.New("stub: no reply")
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveLLMRequest(model, kind, status string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, model+"/"+kind+"/"+status)
}

func TestGateway_GenerateTextFirstSuccessWins(t *testing.T) {
	primary := &stubClient{errs: []error{errors.New("quota exceeded")}}
	secondary := &stubClient{replies: []string{"  Your test is booked.  "}}
	tertiary := &stubClient{replies: []string{"unused"}}
	obs := &recordingObserver{}

	gw := NewGateway([]Candidate{
		{Name: "gemini", Client: primary, Model: "gemini-2.5-flash"},
		{Name: "gemini", Client: secondary, Model: "gemini-2.0-flash"},
		{Name: "openai", Client: tertiary, Model: "gpt-4o-mini"},
	}, logging.Discard(), WithObserver(obs))

	text, model, err := gw.GenerateTextWithModel(context.Background(), "say hi")
	require.NoError(t, err)
	assert.Equal(t, "Your test is booked.", text)
	assert.Equal(t, "gemini:gemini-2.0-flash", model)
	assert.Empty(t, tertiary.requests)
	require.Len(t, secondary.requests, 1)
	assert.Equal(t, "gemini-2.0-flash", secondary.requests[0].Model)
	assert.False(t, secondary.requests[0].JSON)
	assert.Equal(t, []string{
		"gemini:gemini-2.5-flash/text/error",
		"gemini:gemini-2.0-flash/text/success",
	}, obs.calls)
}

func TestGateway_AllFailWrapsLastError(t *testing.T) {
	last := errors.New("service unavailable")
	gw := NewGateway([]Candidate{
		{Client: &stubClient{errs: []error{errors.New("first")}}, Model: "a"},
		{Client: &stubClient{errs: []error{last}}, Model: "b"},
	}, logging.Discard())

	_, err := gw.GenerateText(context.Background(), "hi")
	require.Error(t, err)
	assert.ErrorIs(t, err, last)
}

func TestGateway_NoCandidates(t *testing.T) {
	gw := NewGateway([]Candidate{{Name: "nil", Model: "x"}}, logging.Discard())
	_, err := gw.GenerateText(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoCandidates)

	var nilGateway *Gateway
	assert.ErrorIs(t, nilGateway.GenerateJSON(context.Background(), "hi", &struct{}{}), ErrNoCandidates)
}

func TestGateway_EmptyReplyFallsThrough(t *testing.T) {
	gw := NewGateway([]Candidate{
		{Client: &stubClient{replies: []string{"   "}}, Model: "a"},
		{Client: &stubClient{replies: []string{"ok"}}, Model: "b"},
	}, logging.Discard())

	text, err := gw.GenerateText(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
}

func TestGateway_GenerateJSONRecoversAndFallsBack(t *testing.T) {
	garbage := &stubClient{replies: []string{"I think the intent is booking."}}
	fenced := &stubClient{replies: []string{"```json\n{\"intent\":\"view_report\",\"confidence\":0.92}\n```"}}
	obs := &recordingObserver{}

	gw := NewGateway([]Candidate{
		{Name: "a", Client: garbage, Model: "m1"},
		{Name: "b", Client: fenced, Model: "m2"},
	}, logging.Discard(), WithObserver(obs))

	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	require.NoError(t, gw.GenerateJSON(context.Background(), "classify", &out))
	assert.Equal(t, "view_report", out.Intent)
	assert.InDelta(t, 0.92, out.Confidence, 0.001)
	assert.True(t, fenced.requests[0].JSON)
	assert.Equal(t, []string{"a:m1/json/invalid_json", "b:m2/json/success"}, obs.calls)
}

func TestGateway_GenerateJSONDiscardsPartialDecode(t *testing.T) {
	wrongType := &stubClient{replies: []string{`{"intent":"view_report","confidence":"high"}`}}
	partial := &stubClient{replies: []string{`{"confidence":0.9}`}}

	gw := NewGateway([]Candidate{
		{Name: "a", Client: wrongType, Model: "m1"},
		{Name: "b", Client: partial, Model: "m2"},
	}, logging.Discard())

	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}
	require.NoError(t, gw.GenerateJSON(context.Background(), "classify", &out))
	assert.Empty(t, out.Intent, "fields from the rejected reply must not survive")
	assert.InDelta(t, 0.9, out.Confidence, 0.001)
}

func TestGateway_StopsOnCancelledContext(t *testing.T) {
	client := &stubClient{replies: []string{"never"}}
	gw := NewGateway([]Candidate{{Client: client, Model: "a"}}, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := gw.GenerateText(ctx, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, client.requests)
}

func TestGateway_Models(t *testing.T) {
	gw := NewGateway([]Candidate{
		{Name: "bedrock", Client: &stubClient{}, Model: "anthropic.claude"},
		{Client: &stubClient{}, Model: "gpt-4o-mini"},
	}, nil)
	assert.Equal(t, []string{"bedrock:anthropic.claude", "gpt-4o-mini"}, gw.Models())
}
