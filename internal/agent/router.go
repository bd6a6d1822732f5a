package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// ErrUnknownIntent is returned when no agent is registered for an intent.
var ErrUnknownIntent = errors.New("agent: unknown intent")

// JSONGenerator is the language-model call used for intent classification.
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, out any) error
}

// TurnObserver records one call per routed turn.
type TurnObserver interface {
	ObserveTurn(intent, outcome string, elapsed time.Duration)
}

// Reply is the outcome of one routed turn.
type Reply struct {
	SessionID string           `json:"session_id"`
	Intent    session.Intent   `json:"intent"`
	Messages  []string         `json:"messages"`
	Done      bool             `json:"done"`
	State     session.Snapshot `json:"state"`
}

var (
	appointmentStatusTrigger = regexp.MustCompile(`appointment.*status|status.*appointment`)
	reportTrigger            = regexp.MustCompile(`\breports?\b`)
	resultTrigger            = regexp.MustCompile(`\b(reports?|results?)\b`)
	bookingTrigger           = regexp.MustCompile(`\bbook|\btests?\b`)
)

// Router owns intent selection and the session transcript.
type Router struct {
	store      *session.Store
	classifier JSONGenerator
	agents     map[session.Intent]Agent
	logger     *logging.Logger
	observer   TurnObserver
}

// RouterOption configures a Router.
type RouterOption func(*Router)

func WithTurnObserver(o TurnObserver) RouterOption {
	return func(r *Router) { r.observer = o }
}

// NewRouter wires the store, the cold-start classifier (may be nil) and one
// agent per intent.
func NewRouter(store *session.Store, classifier JSONGenerator, agents map[session.Intent]Agent, logger *logging.Logger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = logging.Default()
	}
	r := &Router{
		store:      store,
		classifier: classifier,
		agents:     agents,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle routes one message. The session's turn lock is held for the whole
// turn so concurrent requests for the same session are serialized.
func (r *Router) Handle(ctx context.Context, sessionID, message string) (Reply, error) {
	start := time.Now()
	sess := r.store.Get(sessionID)
	sess.LockTurn()
	defer sess.UnlockTurn()

	logger := r.logger.WithSession(sessionID)
	intent := r.route(ctx, sess, message)
	if intent != sess.ActiveAgent {
		logger.Info("routing chat turn", "intent", intent, "previous", sess.ActiveAgent)
	}
	sess.ActiveAgent = intent
	r.store.AppendHistory(ctx, sessionID, session.RoleUser, message)

	reply := Reply{SessionID: sessionID, Intent: intent}
	agent, ok := r.agents[intent]
	if !ok || agent == nil {
		r.observe(intent, "error", start)
		reply.State = sess.Snapshot()
		return reply, fmt.Errorf("%w: %s", ErrUnknownIntent, intent)
	}

	res, err := agent.Handle(ctx, message, sess)
	if err != nil {
		logger.Error("agent turn failed", "intent", intent, "error", err)
		r.observe(intent, "error", start)
		reply.State = sess.Snapshot()
		return reply, fmt.Errorf("agent: %s turn: %w", intent, err)
	}
	for _, m := range res.Messages {
		r.store.AppendHistory(ctx, sessionID, session.RoleAssistant, m)
	}

	reply.Messages = res.Messages
	if reply.Messages == nil {
		reply.Messages = []string{}
	}
	reply.Done = res.Done
	reply.State = sess.Snapshot()
	outcome := "continue"
	if res.Done {
		outcome = "done"
	}
	r.observe(intent, outcome, start)
	return reply, nil
}

// Reset restores one agent's sub-state, waiting for any in-flight turn.
func (r *Router) Reset(sessionID string, intent session.Intent) (session.Snapshot, error) {
	if !intent.Valid() {
		return session.Snapshot{}, fmt.Errorf("%w: %q", ErrUnknownIntent, intent)
	}
	sess := r.store.Get(sessionID)
	sess.LockTurn()
	defer sess.UnlockTurn()
	r.store.ResetAgentState(sessionID, intent)
	return sess.Snapshot(), nil
}

func (r *Router) route(ctx context.Context, sess *session.Session, message string) session.Intent {
	lower := strings.ToLower(message)
	if sess.ActiveAgent.Valid() {
		if trigger, ok := switchTrigger(lower); ok && trigger != sess.ActiveAgent {
			return trigger
		}
		return sess.ActiveAgent
	}
	if intent, ok := r.classify(ctx, message); ok {
		return intent
	}
	return fallbackIntent(lower)
}

// switchTrigger finds an explicit topic change. "result" alone is not a
// trigger so a booking in progress is not derailed by a stray word.
func switchTrigger(lower string) (session.Intent, bool) {
	switch {
	case appointmentStatusTrigger.MatchString(lower):
		return session.IntentAppointmentStatus, true
	case reportTrigger.MatchString(lower):
		return session.IntentViewReport, true
	case bookingTrigger.MatchString(lower):
		return session.IntentBooking, true
	}
	return session.IntentNone, false
}

// fallbackIntent is used when the classifier is unavailable or returns an
// unknown label.
func fallbackIntent(lower string) session.Intent {
	switch {
	case appointmentStatusTrigger.MatchString(lower):
		return session.IntentAppointmentStatus
	case resultTrigger.MatchString(lower):
		return session.IntentViewReport
	default:
		return session.IntentBooking
	}
}

const classifyPrompt = `Classify the pathology lab patient's message into exactly one intent.
Allowed intents:
- "booking": book a lab test, choose a date, slot, home collection or lab visit, prices, fasting
- "view_report": see or understand test results or reports
- "appointment_status": check the status of an existing appointment or sample collection
Return strict JSON only, with no markdown: {"intent": "<one of the allowed intents>", "confidence": <number between 0 and 1>}

Message: %s`

type classification struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

func (r *Router) classify(ctx context.Context, message string) (session.Intent, bool) {
	if r.classifier == nil {
		return session.IntentNone, false
	}
	var out classification
	if err := r.classifier.GenerateJSON(ctx, fmt.Sprintf(classifyPrompt, message), &out); err != nil {
		r.logger.Warn("intent classification failed, using keywords", "error", err)
		return session.IntentNone, false
	}
	intent := session.Intent(strings.TrimSpace(strings.ToLower(out.Intent)))
	if !intent.Valid() {
		r.logger.Warn("classifier returned unknown intent", "intent", out.Intent)
		return session.IntentNone, false
	}
	return intent, true
}

func (r *Router) observe(intent session.Intent, outcome string, start time.Time) {
	if r.observer != nil {
		r.observer.ObserveTurn(string(intent), outcome, time.Since(start))
	}
}
