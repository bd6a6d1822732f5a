package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/pathlab-ai-platform/internal/catalog"
	"github.com/wolfman30/pathlab-ai-platform/internal/extract"
	"github.com/wolfman30/pathlab-ai-platform/internal/labapi"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// StateResetter restores an agent sub-state to its defaults.
type StateResetter interface {
	ResetAgentState(id string, intent session.Intent)
}

// BookingAgent walks a patient through test, date, slot, appointment type
// and (for home collection) address, then asks for explicit approval before
// creating the booking.
type BookingAgent struct {
	backend  Backend
	renderer Renderer
	catalog  *catalog.Catalog
	resetter StateResetter
	logger   *logging.Logger
	now      func() time.Time
}

// BookingOption configures a BookingAgent.
type BookingOption func(*BookingAgent)

// WithBookingClock overrides time.Now for date parsing and age calculation.
func WithBookingClock(now func() time.Time) BookingOption {
	return func(a *BookingAgent) {
		if now != nil {
			a.now = now
		}
	}
}

// WithBookingLogger sets the agent logger.
func WithBookingLogger(logger *logging.Logger) BookingOption {
	return func(a *BookingAgent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

func NewBookingAgent(backend Backend, renderer Renderer, cat *catalog.Catalog, resetter StateResetter, opts ...BookingOption) *BookingAgent {
	a := &BookingAgent{
		backend:  backend,
		renderer: renderer,
		catalog:  cat,
		resetter: resetter,
		logger:   logging.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *BookingAgent) Handle(ctx context.Context, input string, s *session.Session) (Result, error) {
	text := strings.TrimSpace(input)
	b := &s.Booking
	if b.Phase == "" {
		b.Phase = session.PhaseCollectingSlots
	}

	// A finished booking or an explicit restart begins a new attempt.
	if b.Confirmed() || extract.IsRestart(text) {
		a.reset(s)
	}

	// Side-context. Charge and slot questions answer and return before any
	// slot is touched.
	if extract.IsHomeChargeInquiry(text) {
		return Result{Messages: []string{homeChargeMessage(b)}}, nil
	}
	if extract.IsSlotListRequest(text) {
		msg, err := a.slotListMessage(ctx, text, b)
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: []string{msg}}, nil
	}
	var messages []string
	if subject, ok := extract.FastingQuery(text); ok {
		msg, err := a.fastingAnswer(ctx, text, subject, b)
		if err != nil {
			return Result{}, err
		}
		messages = append(messages, msg)
	}

	wasPending := b.PendingApproval()
	if wasPending && extract.IsAffirmative(text) {
		return a.submit(ctx, text, s, messages)
	}

	declined := false
	var cleared []extract.Field
	if wasPending && extract.IsDecline(text) {
		b.Decline()
		declined = true
		cleared = extract.MentionedFields(text)
		clearFields(b, cleared)
	}

	// Slots that were all filled while collecting means the patient declined
	// on an earlier turn and is now editing; new values replace old ones.
	editing := !wasPending && b.Phase == session.PhaseCollectingSlots && len(missingSlots(b)) == 0
	if editing {
		clearFields(b, extract.MentionedFields(text))
	}
	a.fillSlots(text, b, editing)

	missing := missingSlots(b)
	switch {
	case declined && len(missing) == 0 && len(cleared) == 0:
		msg, err := a.renderer.Render(ctx, Prompt{
			Purpose:      "ask which booking detail to change",
			Input:        text,
			Context:      bookingContext(b),
			Instructions: "The patient did not approve the booking summary. Ask in one sentence which detail they want to change: the test, date, time slot, appointment type or address.",
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: append(messages, msg)}, nil

	case len(missing) == 0 && b.Phase == session.PhaseCollectingSlots:
		b.RequestApproval()
		msg, err := a.renderer.Render(ctx, Prompt{
			Purpose:      "confirm booking summary",
			Input:        text,
			Context:      confirmationContext(b),
			Instructions: "Summarize the booking using the context and include every line of price_lines exactly as written. Then ask the patient to reply Yes to confirm or No to change something.",
		})
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: append(messages, msg)}, nil

	case len(missing) > 0:
		msg, err := a.promptFor(ctx, text, b, missing[0])
		if err != nil {
			return Result{}, err
		}
		return Result{Messages: append(messages, msg)}, nil
	}

	msg, err := a.renderer.Render(ctx, Prompt{
		Purpose:      "clarify pending booking",
		Input:        text,
		Context:      confirmationContext(b),
		Instructions: "The booking summary is waiting for approval. Ask the patient to reply Yes to confirm the booking or No to change a detail.",
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Messages: append(messages, msg)}, nil
}

func (a *BookingAgent) reset(s *session.Session) {
	if a.resetter != nil {
		a.resetter.ResetAgentState(s.ID, session.IntentBooking)
		return
	}
	s.Booking = session.BookingState{Phase: session.PhaseCollectingSlots}
}

// fillSlots runs every extractor against the message. Only empty slots are
// filled unless overwrite is set; the address is only ever filled when empty.
func (a *BookingAgent) fillSlots(text string, b *session.BookingState, overwrite bool) {
	now := a.now()
	if b.TestCode == "" || overwrite {
		if alias, ok := extract.TestIdentity(text); ok {
			a.setTest(b, alias)
		}
	}
	filledSchedule := false
	if date, ok := extract.Date(text, now); ok && (b.Date == "" || overwrite) {
		b.Date = date
		filledSchedule = true
	}
	if slot, ok := extract.TimeSlot(text); ok && (b.TimeSlot == "" || overwrite) {
		b.TimeSlot = slot.ID
		filledSchedule = true
	}
	if b.AppointmentType == "" || overwrite {
		if t, ok := extract.AppointmentType(text, false); ok {
			if t != b.AppointmentType && t != catalog.HomeCollection {
				b.Address = ""
			}
			b.AppointmentType = t
		}
	}
	// A message that just filled the date or slot is not also an address;
	// "Flat 8-10, ..." still is once the slot is known.
	if b.AppointmentType == catalog.HomeCollection && b.Address == "" && !filledSchedule {
		if addr, ok := extract.Address(text); ok {
			b.Address = addr
		}
	}
}

func (a *BookingAgent) setTest(b *session.BookingState, alias catalog.Alias) {
	b.TestCode = alias.Code
	b.TestName = alias.DisplayName
	b.BasePrice = nil
	if t, ok := a.catalog.Lookup(alias.Code); ok {
		if t.Name != "" {
			b.TestName = t.Name
		}
		price := t.BasePrice
		b.BasePrice = &price
	}
}

func clearFields(b *session.BookingState, fields []extract.Field) {
	for _, f := range fields {
		switch f {
		case extract.FieldTest:
			b.TestCode, b.TestName, b.BasePrice = "", "", nil
		case extract.FieldDate:
			b.Date = ""
		case extract.FieldTimeSlot:
			b.TimeSlot = ""
		case extract.FieldAppointmentType:
			b.AppointmentType = ""
			b.Address = ""
		case extract.FieldAddress:
			b.Address = ""
		}
	}
}

// missingSlots is recomputed from state on every call.
func missingSlots(b *session.BookingState) []extract.Field {
	var out []extract.Field
	if b.TestCode == "" {
		out = append(out, extract.FieldTest)
	}
	if b.Date == "" {
		out = append(out, extract.FieldDate)
	}
	if b.TimeSlot == "" {
		out = append(out, extract.FieldTimeSlot)
	}
	if b.AppointmentType == "" {
		out = append(out, extract.FieldAppointmentType)
	}
	if b.AppointmentType == catalog.HomeCollection && b.Address == "" {
		out = append(out, extract.FieldAddress)
	}
	return out
}

var slotQuestions = map[extract.Field]string{
	extract.FieldTest:            "which test they want to book (for example CBC, lipid profile, thyroid profile or a full body package)",
	extract.FieldDate:            "which date they would like",
	extract.FieldTimeSlot:        "which two-hour time slot suits them, between 6 AM and 6 PM",
	extract.FieldAppointmentType: "whether they prefer home collection or a lab visit",
}

func (a *BookingAgent) promptFor(ctx context.Context, text string, b *session.BookingState, field extract.Field) (string, error) {
	instructions := "Ask the patient, in one short question, " + slotQuestions[field] + "."
	if field == extract.FieldAddress {
		instructions = "Ask the patient, in exactly one sentence, for the full home collection address including house or flat number, street, area and city."
	}
	return a.renderer.Render(ctx, Prompt{
		Purpose: "collect missing booking detail",
		Input:   text,
		Context: map[string]any{
			"missing_field": string(field),
			"booking":       bookingContext(b),
		},
		Instructions: instructions,
	})
}

func (a *BookingAgent) submit(ctx context.Context, text string, s *session.Session, messages []string) (Result, error) {
	b := &s.Booking
	if s.UserProfile == nil {
		profile, err := a.backend.GetProfile(ctx)
		if err != nil {
			a.logger.Warn("profile fetch failed", "session_id", s.ID, "error", err)
			msg, rerr := apology(ctx, a.renderer, text, "load your profile to complete the booking", err)
			if rerr != nil {
				return Result{}, rerr
			}
			return Result{Messages: append(messages, msg)}, nil
		}
		s.UserProfile = &profile
	}

	payload := buildBookingPayload(b, *s.UserProfile, a.now())
	conf, err := a.backend.CreateBooking(ctx, payload)
	if err != nil {
		a.logger.Warn("create booking failed", "session_id", s.ID, "test_code", b.TestCode, "error", err)
		msg, rerr := apology(ctx, a.renderer, text, "create your booking", err)
		if rerr != nil {
			return Result{}, rerr
		}
		return Result{Messages: append(messages, msg)}, nil
	}

	b.Confirm(conf.Appointment.ID.String())
	a.logger.Info("booking confirmed", "session_id", s.ID, "test_code", b.TestCode, "appointment_id", b.AppointmentID)
	msg, err := a.renderer.Render(ctx, Prompt{
		Purpose: "announce confirmed booking",
		Input:   text,
		Context: map[string]any{
			"booking":        confirmationContext(b),
			"appointment_id": b.AppointmentID,
			"status":         conf.Appointment.Status,
		},
		Instructions: "Tell the patient the booking is confirmed, repeating the test, date, time slot and appointment type. Mention the appointment id if present.",
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Messages: append(messages, msg), Done: true}, nil
}

func buildBookingPayload(b *session.BookingState, profile labapi.Profile, now time.Time) labapi.BookingPayload {
	payload := labapi.BookingPayload{
		TestCode:        b.TestCode,
		AppointmentDate: b.Date,
		AppointmentType: labapi.AppointmentTypeLabVisit,
		PatientName:     profile.FullName(),
		PatientGender:   profile.Gender,
	}
	if slot, ok := catalog.SlotByID(b.TimeSlot); ok {
		payload.AppointmentTime = slot.StartTime()
	}
	if age, ok := profile.Age(now); ok {
		payload.PatientAge = age
	}
	if b.AppointmentType == catalog.HomeCollection {
		payload.AppointmentType = labapi.AppointmentTypeHomeCollection
		payload.SpecialInstructions = "Home collection address: " + b.Address
	}
	return payload
}

func homeChargeMessage(b *session.BookingState) string {
	msg := fmt.Sprintf("Home collection has an additional charge of ₹%d on top of the test price.", catalog.HomeCollectionSurcharge)
	if b.BasePrice != nil && b.TestName != "" {
		msg += fmt.Sprintf(" For %s that comes to ₹%d with home collection, or ₹%d if you visit the lab.",
			b.TestName, catalog.TotalPrice(*b.BasePrice, catalog.HomeCollection), *b.BasePrice)
	}
	return msg
}

func (a *BookingAgent) slotListMessage(ctx context.Context, text string, b *session.BookingState) (string, error) {
	slots, err := a.backend.GetSlots(ctx)
	if err != nil {
		a.logger.Warn("slot list fetch failed", "error", err)
		return apology(ctx, a.renderer, text, "load the available time slots", err)
	}
	labels := make([]string, 0, len(slots))
	for _, s := range slots {
		label := strings.TrimSpace(s.Label)
		if label == "" {
			label = s.ID
		}
		labels = append(labels, label)
	}
	list := joinInline(labels)
	if b.Date != "" {
		return fmt.Sprintf("For %s you can choose from these time slots: %s. Which one works for you?", b.Date, list), nil
	}
	return fmt.Sprintf("Our collection time slots are %s. Which date and slot would you like?", list), nil
}

// joinInline renders "a, b and c".
func joinInline(items []string) string {
	switch len(items) {
	case 0:
		return "not available right now"
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

func (a *BookingAgent) fastingAnswer(ctx context.Context, text, subject string, b *session.BookingState) (string, error) {
	query := subject
	if alias, ok := catalog.AliasFor(subject); ok {
		query = alias.DisplayName
	}
	if query == "" {
		query = b.TestName
	}
	if query == "" {
		return a.renderer.Render(ctx, Prompt{
			Purpose:      "answer fasting question",
			Input:        text,
			Instructions: "Ask which test the patient is asking about so you can check its fasting requirement.",
		})
	}

	hits, err := a.backend.SearchTests(ctx, query)
	if err != nil {
		a.logger.Warn("test search failed", "query", query, "error", err)
		return apology(ctx, a.renderer, text, "look up fasting instructions", err)
	}
	info := map[string]any{"query": query, "found": false}
	if hit, ok := pickTest(hits, subject); ok {
		info = map[string]any{
			"query":            query,
			"found":            true,
			"test_name":        hit.TestName,
			"fasting_required": hit.FastingRequired,
			"fasting_hours":    hit.FastingHours,
		}
	}
	return a.renderer.Render(ctx, Prompt{
		Purpose:      "answer fasting question",
		Input:        text,
		Context:      info,
		Instructions: "Answer whether fasting is required and for how many hours, using only the context. If the test was not found, say so and suggest asking the lab.",
	})
}

func pickTest(hits []labapi.TestInfo, code string) (labapi.TestInfo, bool) {
	for _, h := range hits {
		if code != "" && strings.EqualFold(h.TestCode, code) {
			return h, true
		}
	}
	if len(hits) > 0 {
		return hits[0], true
	}
	return labapi.TestInfo{}, false
}

func bookingContext(b *session.BookingState) map[string]any {
	out := map[string]any{
		"test":             b.TestName,
		"test_code":        b.TestCode,
		"date":             b.Date,
		"time_slot":        slotLabel(b.TimeSlot),
		"appointment_type": b.AppointmentType,
	}
	if b.AppointmentType == catalog.HomeCollection {
		out["address"] = b.Address
	}
	return out
}

// confirmationContext carries the price lines; the total is always computed
// from the current base price and appointment type.
func confirmationContext(b *session.BookingState) map[string]any {
	out := bookingContext(b)
	if b.BasePrice == nil {
		out["price_lines"] = []string{"Price: not available"}
		return out
	}
	base := *b.BasePrice
	total := catalog.TotalPrice(base, b.AppointmentType)
	lines := []string{fmt.Sprintf("Test price: ₹%d", base)}
	if b.AppointmentType == catalog.HomeCollection {
		lines = append(lines, fmt.Sprintf("Home collection charge: ₹%d", catalog.HomeCollectionSurcharge))
	}
	lines = append(lines, fmt.Sprintf("Total: ₹%d", total))
	out["base_price"] = base
	out["total_price"] = total
	out["price_lines"] = lines
	return out
}

func slotLabel(id string) string {
	if slot, ok := catalog.SlotByID(id); ok {
		return slot.Label
	}
	return id
}
