package extract

import (
	"regexp"
	"strings"

	"github.com/wolfman30/pathlab-ai-platform/internal/catalog"
)

// SlotStrategy maps lowercased text to one of the fixed collection slots.
type SlotStrategy struct {
	Name  string
	Parse func(text string) (catalog.Slot, bool)
}

var (
	// Slot ids must stand alone so "2026-10-12" or "10-12-2026" are not read as slot 10-12.
	slotIDRE     = regexp.MustCompile(`(?:^|[^\d:/\-])(6-8|8-10|10-12|12-14|14-16|16-18)(?:$|[^\d:/\-])`)
	timeRangeRE  = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*(?:-|–|to|till|until)\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	singleTimeRE = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)
	noonRE       = regexp.MustCompile(`\b(noon|midday)\b`)
)

// SlotStrategies in priority order.
var SlotStrategies = []SlotStrategy{
	{Name: "slot_id", Parse: parseSlotID},
	{Name: "time_range", Parse: parseTimeRange},
	{Name: "single_time", Parse: parseSingleTime},
}

// TimeSlot returns the fixed slot the text refers to.
func TimeSlot(text string) (catalog.Slot, bool) {
	lower := strings.ToLower(text)
	for _, s := range SlotStrategies {
		if slot, ok := s.Parse(lower); ok {
			return slot, true
		}
	}
	return catalog.Slot{}, false
}

func parseSlotID(text string) (catalog.Slot, bool) {
	m := slotIDRE.FindStringSubmatch(text)
	if m == nil {
		return catalog.Slot{}, false
	}
	return catalog.SlotByID(m[1])
}

// parseTimeRange maps "2pm-4pm" style ranges to the first slot they overlap.
func parseTimeRange(text string) (catalog.Slot, bool) {
	m := timeRangeRE.FindStringSubmatch(text)
	if m == nil {
		return catalog.Slot{}, false
	}
	endMeridiem := m[6]
	startMeridiem := m[3]
	end, ok := minuteOfDay(m[4], m[5], endMeridiem)
	if !ok {
		return catalog.Slot{}, false
	}
	var start int
	if startMeridiem == "" {
		// "2-4pm" shares the trailing meridiem; "11-1pm" starts in the morning.
		start, ok = minuteOfDay(m[1], m[2], endMeridiem)
		if ok && start >= end {
			start, ok = minuteOfDay(m[1], m[2], "am")
		}
	} else {
		start, ok = minuteOfDay(m[1], m[2], startMeridiem)
	}
	if !ok || start >= end {
		return catalog.Slot{}, false
	}
	for _, slot := range catalog.FixedSlots {
		if slot.Overlaps(start, end) {
			return slot, true
		}
	}
	return catalog.Slot{}, false
}

// parseSingleTime maps "at 3pm" to the slot whose window contains it.
func parseSingleTime(text string) (catalog.Slot, bool) {
	var minute int
	if m := singleTimeRE.FindStringSubmatch(text); m != nil {
		var ok bool
		if minute, ok = minuteOfDay(m[1], m[2], m[3]); !ok {
			return catalog.Slot{}, false
		}
	} else if noonRE.MatchString(text) {
		minute = 12 * 60
	} else {
		return catalog.Slot{}, false
	}
	for _, slot := range catalog.FixedSlots {
		if slot.Contains(minute) {
			return slot, true
		}
	}
	return catalog.Slot{}, false
}

func minuteOfDay(hour, minute, meridiem string) (int, bool) {
	h := atoi(hour)
	mm := 0
	if minute != "" {
		mm = atoi(minute)
	}
	if h < 1 || h > 12 || mm > 59 {
		return 0, false
	}
	switch meridiem {
	case "am":
		if h == 12 {
			h = 0
		}
	case "pm":
		if h != 12 {
			h += 12
		}
	default:
		return 0, false
	}
	return h*60 + mm, true
}
