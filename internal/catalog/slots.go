package catalog

import "fmt"

// Slot is one of the fixed two-hour collection windows, keyed by
// "<startHour>-<endHour>".
type Slot struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	StartHour int    `json:"-"`
	EndHour   int    `json:"-"`
}

// FixedSlots are the six half-day windows used for booking and display.
var FixedSlots = []Slot{
	newSlot(6, 8),
	newSlot(8, 10),
	newSlot(10, 12),
	newSlot(12, 14),
	newSlot(14, 16),
	newSlot(16, 18),
}

func newSlot(start, end int) Slot {
	return Slot{
		ID:        fmt.Sprintf("%d-%d", start, end),
		Label:     fmt.Sprintf("%s - %s", clockLabel(start), clockLabel(end)),
		StartHour: start,
		EndHour:   end,
	}
}

// SlotByID looks up a fixed slot.
func SlotByID(id string) (Slot, bool) {
	for _, s := range FixedSlots {
		if s.ID == id {
			return s, true
		}
	}
	return Slot{}, false
}

// StartTime is the wall-clock start used in booking payloads.
func (s Slot) StartTime() string {
	return fmt.Sprintf("%02d:00", s.StartHour)
}

// Contains reports whether minute-of-day m falls in [start, end).
func (s Slot) Contains(m int) bool {
	return m >= s.StartHour*60 && m < s.EndHour*60
}

// Overlaps reports whether [from, to) minutes intersects the slot window.
func (s Slot) Overlaps(from, to int) bool {
	return from < s.EndHour*60 && s.StartHour*60 < to
}

func clockLabel(hour int) string {
	switch {
	case hour == 12:
		return "12 PM"
	case hour > 12:
		return fmt.Sprintf("%d PM", hour-12)
	default:
		return fmt.Sprintf("%d AM", hour)
	}
}

// Appointment types as shown to patients.
const (
	HomeCollection = "Home Collection"
	LabVisit       = "Lab Visit"
)

// HomeCollectionSurcharge is added to the base price for home collection.
const HomeCollectionSurcharge = 300

// TotalPrice computes base plus any home-collection surcharge.
func TotalPrice(base int, appointmentType string) int {
	if appointmentType == HomeCollection {
		return base + HomeCollectionSurcharge
	}
	return base
}
