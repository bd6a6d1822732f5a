package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/pathlab-ai-platform/internal/catalog"
	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// Thursday, 15 October 2026.
var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var errBackendDown = errors.New("lab api unavailable")

type stubBackend struct {
	mu sync.Mutex

	profile    labapi.Profile
	profileErr error
	slots      []labapi.Slot
	slotsErr   error
	tests      []labapi.TestInfo
	searchErr  error
	bookingErr error
	appts      []labapi.Appointment
	apptsErr   error
	results    []labapi.TestResult
	resultsErr error

	profileCalls  int
	searchQueries []string
	bookings      []labapi.BookingPayload
	resultCalls   int
	apptCalls     int
}

func newStubBackend() *stubBackend {
	slots := make([]labapi.Slot, 0, len(catalog.FixedSlots))
	for _, s := range catalog.FixedSlots {
		slots = append(slots, labapi.Slot{ID: s.ID, Label: s.Label})
	}
	return &stubBackend{
		profile: labapi.Profile{FirstName: "Asha", LastName: "Rao", Gender: "female", DateOfBirth: "1990-06-20"},
		slots:   slots,
	}
}

func (b *stubBackend) GetProfile(context.Context) (labapi.Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.profileCalls++
	return b.profile, b.profileErr
}

func (b *stubBackend) GetSlots(context.Context) ([]labapi.Slot, error) {
	if b.slotsErr != nil {
		return nil, b.slotsErr
	}
	return b.slots, nil
}

func (b *stubBackend) SearchTests(_ context.Context, query string) ([]labapi.TestInfo, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.searchQueries = append(b.searchQueries, query)
	return b.tests, b.searchErr
}

func (b *stubBackend) CreateBooking(_ context.Context, p labapi.BookingPayload) (labapi.BookingConfirmation, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bookings = append(b.bookings, p)
	if b.bookingErr != nil {
		return labapi.BookingConfirmation{}, b.bookingErr
	}
	return labapi.BookingConfirmation{Appointment: labapi.Appointment{ID: "A-100", Status: "scheduled"}}, nil
}

func (b *stubBackend) ListAppointments(context.Context) ([]labapi.Appointment, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.apptCalls++
	return b.appts, b.apptsErr
}

func (b *stubBackend) ListTestResults(context.Context) ([]labapi.TestResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resultCalls++
	return b.results, b.resultsErr
}

// recordingRenderer captures every prompt and answers with "[purpose]".
type recordingRenderer struct {
	mu      sync.Mutex
	prompts []Prompt
	err     error
}

func (r *recordingRenderer) Render(_ context.Context, p Prompt) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, p)
	if r.err != nil {
		return "", r.err
	}
	return "[" + p.Purpose + "]", nil
}

func (r *recordingRenderer) last() Prompt {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.prompts) == 0 {
		return Prompt{}
	}
	return r.prompts[len(r.prompts)-1]
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Test{
		{Code: "CBC", Name: "Complete Blood Count", BasePrice: 350},
		{Code: "LIPID", Name: "Lipid Profile", BasePrice: 600},
		{Code: "THYROID", Name: "Thyroid Profile", BasePrice: 550},
	})
}

type bookingFixture struct {
	store    *session.Store
	backend  *stubBackend
	renderer *recordingRenderer
	agent    *BookingAgent
	sess     *session.Session
}

func newBookingFixture() *bookingFixture {
	store := session.NewStore(time.Hour)
	backend := newStubBackend()
	renderer := &recordingRenderer{}
	agent := NewBookingAgent(backend, renderer, testCatalog(), store,
		WithBookingClock(fixedClock), WithBookingLogger(logging.Discard()))
	return &bookingFixture{
		store:    store,
		backend:  backend,
		renderer: renderer,
		agent:    agent,
		sess:     store.Get("s-1"),
	}
}

func (f *bookingFixture) say(text string) (Result, error) {
	return f.agent.Handle(context.Background(), text, f.sess)
}

func contextMap(p Prompt) map[string]any {
	m, _ := p.Context.(map[string]any)
	return m
}
