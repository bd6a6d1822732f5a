package agent

import (
	"context"

	"github.com/wolfman30/pathlab-ai-platform/internal/extract"
	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// AppointmentStatusAgent lists appointments and reports the status and next
// steps of the one the patient picks.
type AppointmentStatusAgent struct {
	backend  Backend
	renderer Renderer
	logger   *logging.Logger
}

func NewAppointmentStatusAgent(backend Backend, renderer Renderer, logger *logging.Logger) *AppointmentStatusAgent {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentStatusAgent{backend: backend, renderer: renderer, logger: logger}
}

func (a *AppointmentStatusAgent) Handle(ctx context.Context, input string, s *session.Session) (Result, error) {
	st := &s.AppointmentStatus
	st.SelectedAppointmentID = ""

	if st.Appointments == nil {
		appts, err := a.backend.ListAppointments(ctx)
		if err != nil {
			a.logger.Warn("list appointments failed", "session_id", s.ID, "error", err)
			msg, rerr := apology(ctx, a.renderer, input, "load your appointments", err)
			if rerr != nil {
				return Result{}, rerr
			}
			return Result{Messages: []string{msg}}, nil
		}
		if len(appts) == 0 {
			msg, err := a.renderer.Render(ctx, Prompt{
				Purpose:      "no appointments found",
				Input:        input,
				Instructions: "Tell the patient they have no appointments yet and offer to book a test.",
			})
			if err != nil {
				return Result{}, err
			}
			return Result{Messages: []string{msg}, Done: true}, nil
		}
		st.Appointments = appts
		msg, err := a.renderer.Render(ctx, Prompt{
			Purpose:      "list appointments",
			Input:        input,
			Context:      map[string]any{"appointments": appointmentListing(appts)},
			Instructions: "List every appointment inline as \"1) date, test, status\" in the given order without line breaks or bullets, then ask which number they want details for.",
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: []string{msg}}, nil
	}

	idx, ok := extract.FirstIndex(input)
	if !ok || idx < 1 || idx > len(st.Appointments) {
		msg, err := a.renderer.Render(ctx, Prompt{
			Purpose: "ask for a valid appointment number",
			Input:   input,
			Context: map[string]any{
				"appointments": appointmentListing(st.Appointments),
				"count":        len(st.Appointments),
			},
			Instructions: "Ask the patient to reply with an appointment number between 1 and count.",
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: []string{msg}}, nil
	}

	appt := st.Appointments[idx-1]
	st.SelectedAppointmentID = appt.ID.String()
	msg, err := a.renderer.Render(ctx, Prompt{
		Purpose:      "explain appointment status",
		Input:        input,
		Context:      appointmentDetails(appt),
		Instructions: "State the appointment status in plain words and the next step for the patient (for example preparing for collection, waiting for the collector, or watching for the report).",
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Messages: []string{msg}, Done: true}, nil
}

func appointmentListing(appts []labapi.Appointment) []map[string]any {
	out := make([]map[string]any, 0, len(appts))
	for i, a := range appts {
		out = append(out, map[string]any{
			"number": i + 1,
			"date":   a.Date,
			"test":   firstNonEmpty(a.TestName, a.TestCode),
			"status": a.Status,
		})
	}
	return out
}

func appointmentDetails(a labapi.Appointment) map[string]any {
	return map[string]any{
		"appointment_id":   a.ID.String(),
		"date":             a.Date,
		"time":             a.Time,
		"appointment_type": a.Type,
		"test":             firstNonEmpty(a.TestName, a.TestCode),
		"status":           a.Status,
		"collector":        a.CollectorName,
		"payment_status":   a.PaymentStatus,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
