package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

func sampleAppointments() []labapi.Appointment {
	return []labapi.Appointment{
		{ID: "41", Date: "2026-10-16", Time: "10:00", TestCode: "CBC", Status: "scheduled"},
		{ID: "42", Date: "2026-10-20", Time: "08:00", TestName: "Lipid Profile", Status: "sample_collected", CollectorName: "Ravi"},
	}
}

func TestAppointmentStatusAgent_ListThenSelect(t *testing.T) {
	backend := newStubBackend()
	backend.appts = sampleAppointments()
	renderer := &recordingRenderer{}
	sess := session.NewStore(0).Get("s-a")
	agent := NewAppointmentStatusAgent(backend, renderer, logging.Discard())

	res, err := agent.Handle(context.Background(), "what's my appointment status", sess)
	require.NoError(t, err)
	assert.Equal(t, []string{"[list appointments]"}, res.Messages)
	listing := contextMap(renderer.last())["appointments"].([]map[string]any)
	require.Len(t, listing, 2)
	assert.Equal(t, "CBC", listing[0]["test"])

	res, err = agent.Handle(context.Background(), "2", sess)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, "42", sess.AppointmentStatus.SelectedAppointmentID)
	details := contextMap(renderer.last())
	assert.Equal(t, "sample_collected", details["status"])
	assert.Equal(t, "Ravi", details["collector"])

	res, err = agent.Handle(context.Background(), "number 7", sess)
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, []string{"[ask for a valid appointment number]"}, res.Messages)
	assert.Empty(t, sess.AppointmentStatus.SelectedAppointmentID)
	assert.Equal(t, 1, backend.apptCalls)
}

func TestAppointmentStatusAgent_EmptyAndError(t *testing.T) {
	backend := newStubBackend()
	backend.appts = []labapi.Appointment{}
	renderer := &recordingRenderer{}
	sess := session.NewStore(0).Get("s-a")
	agent := NewAppointmentStatusAgent(backend, renderer, nil)

	res, err := agent.Handle(context.Background(), "status of my appointment", sess)
	require.NoError(t, err)
	assert.True(t, res.Done)
	assert.Equal(t, []string{"[no appointments found]"}, res.Messages)
	assert.Nil(t, sess.AppointmentStatus.Appointments)

	backend.apptsErr = errBackendDown
	res, err = agent.Handle(context.Background(), "status of my appointment", sess)
	require.NoError(t, err)
	assert.False(t, res.Done)
	assert.Equal(t, []string{"[apologize for a failed lab system request]"}, res.Messages)
}
