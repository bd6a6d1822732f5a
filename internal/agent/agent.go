// Package agent holds the conversational task agents (booking, report
// viewing, appointment status) and the Router that picks one per message.
// Agents make every state transition in plain code; only the final wording
// of a reply is delegated to the language model through a Renderer.
package agent

import (
	"context"

	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
)

// Result is what an agent returns for one turn. Done marks the end of the
// current task instance, not of the session.
type Result struct {
	Messages []string
	Done     bool
}

// Agent handles one turn of a task. It is called with the session's turn
// lock held and may mutate its own sub-state.
type Agent interface {
	Handle(ctx context.Context, input string, s *session.Session) (Result, error)
}

// Backend is the slice of the lab API the agents use.
type Backend interface {
	GetProfile(ctx context.Context) (labapi.Profile, error)
	GetSlots(ctx context.Context) ([]labapi.Slot, error)
	SearchTests(ctx context.Context, query string) ([]labapi.TestInfo, error)
	CreateBooking(ctx context.Context, payload labapi.BookingPayload) (labapi.BookingConfirmation, error)
	ListAppointments(ctx context.Context) ([]labapi.Appointment, error)
	ListTestResults(ctx context.Context) ([]labapi.TestResult, error)
}
