package booking

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// DefaultTimeSlots are the two-hour pickup windows offered every day.
var DefaultTimeSlots = []string{
	"08:00 - 10:00",
	"10:00 - 12:00",
	"12:00 - 14:00",
	"14:00 - 16:00",
	"16:00 - 18:00",
	"18:00 - 20:00",
}

// Slot is a pickup window as shown on the schedule step.
type Slot struct {
	Label    string
	Selected bool
	Disabled bool
}

// Slots lists the time slots for the state's scheduled date. Every slot is
// disabled while no date is chosen; on today's date, slots whose start time
// has passed are disabled.
func Slots(labels []string, st State, now time.Time) []Slot {
	out := make([]Slot, len(labels))
	for i, l := range labels {
		disabled := st.ScheduledDate == nil
		if !disabled {
			passed, err := SlotInPast(l, *st.ScheduledDate, now)
			disabled = err != nil || passed
		}
		out[i] = Slot{Label: l, Selected: st.TimeSlot == l, Disabled: disabled}
	}
	return out
}

// SlotInPast reports whether the slot's start time has passed. It only
// applies when date falls on the same calendar day as now, compared in now's
// location; other days are never in the past.
func SlotInPast(label string, date, now time.Time) (bool, error) {
	hour, minute, err := parseSlotStart(label)
	if err != nil {
		return false, err
	}
	date = date.In(now.Location())
	if !sameDay(date, now) {
		return false, nil
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	return !now.Before(start), nil
}

// parseSlotStart extracts the start of "HH:MM - HH:MM".
func parseSlotStart(label string) (hour, minute int, err error) {
	start, _, _ := strings.Cut(label, " - ")
	h, m, ok := strings.Cut(strings.TrimSpace(start), ":")
	if !ok {
		return 0, 0, errors.Errorf("malformed slot %q", label)
	}
	if hour, err = strconv.Atoi(h); err != nil {
		return 0, 0, errors.Wrapf(err, "slot %q hour", label)
	}
	if minute, err = strconv.Atoi(m); err != nil {
		return 0, 0, errors.Wrapf(err, "slot %q minute", label)
	}
	return hour, minute, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func dateOnly(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
