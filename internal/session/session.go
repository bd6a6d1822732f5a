// Package session keeps per-conversation chat state in process memory.
package session

import (
	"sync"
	"time"

	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
)

// Intent names a task agent. The zero value means no agent is active yet.
type Intent string

const (
	IntentNone              Intent = ""
	IntentBooking           Intent = "booking"
	IntentViewReport        Intent = "view_report"
	IntentAppointmentStatus Intent = "appointment_status"
)

// Intents lists the task agents in classification order.
var Intents = []Intent{IntentBooking, IntentViewReport, IntentAppointmentStatus}

// Valid reports whether i names one of the task agents.
func (i Intent) Valid() bool {
	switch i {
	case IntentBooking, IntentViewReport, IntentAppointmentStatus:
		return true
	}
	return false
}

// Role identifies who produced a history turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one transcript entry.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Phase is the booking progress. Transitions go through the BookingState
// methods so pending approval and confirmation can never coexist.
type Phase string

const (
	PhaseCollectingSlots  Phase = "collecting_slots"
	PhaseAwaitingApproval Phase = "awaiting_approval"
	PhaseConfirmed        Phase = "confirmed"
)

// BookingState is the slot-filling state of the booking agent.
type BookingState struct {
	TestName        string `json:"test_name,omitempty"`
	TestCode        string `json:"test_code,omitempty"`
	BasePrice       *int   `json:"base_price,omitempty"`
	Date            string `json:"date,omitempty"`
	TimeSlot        string `json:"time_slot,omitempty"`
	AppointmentType string `json:"appointment_type,omitempty"`
	Address         string `json:"address,omitempty"`
	Phase           Phase  `json:"phase"`
	AppointmentID   string `json:"appointment_id,omitempty"`
}

// PendingApproval reports whether the summary is waiting for a yes/no.
func (b *BookingState) PendingApproval() bool { return b.Phase == PhaseAwaitingApproval }

// Confirmed reports whether the booking was acknowledged by the lab.
func (b *BookingState) Confirmed() bool { return b.Phase == PhaseConfirmed }

// RequestApproval moves CollectingSlots to AwaitingApproval.
func (b *BookingState) RequestApproval() bool {
	if b.Phase != PhaseCollectingSlots && b.Phase != "" {
		return false
	}
	b.Phase = PhaseAwaitingApproval
	return true
}

// Confirm moves AwaitingApproval to Confirmed.
func (b *BookingState) Confirm(appointmentID string) bool {
	if b.Phase != PhaseAwaitingApproval {
		return false
	}
	b.Phase = PhaseConfirmed
	b.AppointmentID = appointmentID
	return true
}

// Decline moves AwaitingApproval back to CollectingSlots; slots stay filled.
func (b *BookingState) Decline() bool {
	if b.Phase != PhaseAwaitingApproval {
		return false
	}
	b.Phase = PhaseCollectingSlots
	return true
}

// ViewReportState caches the report list between turns. A nil list means
// it has not been fetched.
type ViewReportState struct {
	ReportList       []labapi.TestResult `json:"report_list"`
	SelectedReportID string              `json:"selected_report_id,omitempty"`
}

// AppointmentStatusState caches the appointment list between turns.
type AppointmentStatusState struct {
	Appointments          []labapi.Appointment `json:"appointments"`
	SelectedAppointmentID string               `json:"selected_appointment_id,omitempty"`
}

// Session is one conversation. Sub-states are mutated only while the
// session's turn lock is held.
type Session struct {
	ID            string
	CreatedAt     time.Time
	LastUpdatedAt time.Time
	History       []Turn
	ActiveAgent   Intent
	UserProfile   *labapi.Profile

	Booking           BookingState
	ViewReport        ViewReportState
	AppointmentStatus AppointmentStatusState

	turn sync.Mutex
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:                id,
		CreatedAt:         now,
		LastUpdatedAt:     now,
		History:           []Turn{},
		Booking:           BookingState{Phase: PhaseCollectingSlots},
		ViewReport:        ViewReportState{},
		AppointmentStatus: AppointmentStatusState{},
	}
}

// LockTurn serializes turns of one session.
func (s *Session) LockTurn() { s.turn.Lock() }

// UnlockTurn releases the turn lock.
func (s *Session) UnlockTurn() { s.turn.Unlock() }

// resetAgent restores one sub-state to its default shape.
func (s *Session) resetAgent(intent Intent) {
	switch intent {
	case IntentBooking:
		s.Booking = BookingState{Phase: PhaseCollectingSlots}
	case IntentViewReport:
		s.ViewReport = ViewReportState{}
	case IntentAppointmentStatus:
		s.AppointmentStatus = AppointmentStatusState{}
	}
}

// BookingSnapshot is the client-facing view of BookingState.
type BookingSnapshot struct {
	TestName        string `json:"test_name,omitempty"`
	TestCode        string `json:"test_code,omitempty"`
	BasePrice       *int   `json:"base_price,omitempty"`
	Date            string `json:"date,omitempty"`
	TimeSlot        string `json:"time_slot,omitempty"`
	AppointmentType string `json:"appointment_type,omitempty"`
	Address         string `json:"address,omitempty"`
	Phase           Phase  `json:"phase"`
	PendingApproval bool   `json:"pending_approval"`
	Confirmed       bool   `json:"confirmed"`
}

// Snapshot is the state returned alongside every reply.
type Snapshot struct {
	ActiveAgent       Intent                 `json:"active_agent,omitempty"`
	Booking           BookingSnapshot        `json:"booking"`
	ViewReport        ViewReportState        `json:"view_report"`
	AppointmentStatus AppointmentStatusState `json:"appointment_status"`
}

// Snapshot copies the three sub-states. Call with the turn lock held.
func (s *Session) Snapshot() Snapshot {
	b := s.Booking
	var price *int
	if b.BasePrice != nil {
		p := *b.BasePrice
		price = &p
	}
	return Snapshot{
		ActiveAgent: s.ActiveAgent,
		Booking: BookingSnapshot{
			TestName:        b.TestName,
			TestCode:        b.TestCode,
			BasePrice:       price,
			Date:            b.Date,
			TimeSlot:        b.TimeSlot,
			AppointmentType: b.AppointmentType,
			Address:         b.Address,
			Phase:           b.Phase,
			PendingApproval: b.PendingApproval(),
			Confirmed:       b.Confirmed(),
		},
		ViewReport: ViewReportState{
			ReportList:       cloneSlice(s.ViewReport.ReportList),
			SelectedReportID: s.ViewReport.SelectedReportID,
		},
		AppointmentStatus: AppointmentStatusState{
			Appointments:          cloneSlice(s.AppointmentStatus.Appointments),
			SelectedAppointmentID: s.AppointmentStatus.SelectedAppointmentID,
		},
	}
}

// cloneSlice keeps the nil/empty distinction: nil means never fetched.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	return append(make([]T, 0, len(in)), in...)
}
