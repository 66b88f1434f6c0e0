package booking

import (
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/laundry-booking/internal/domain/catalog"
)

// Sentinel errors returned by Dispatch.
var (
	ErrEmptySelection = errors.New("select at least one service to continue")
	ErrInvalidStep    = errors.New("invalid wizard step")
	ErrDateInPast     = errors.New("scheduled date is in the past")
	ErrNoDate         = errors.New("select a date first")
	ErrUnknownSlot    = errors.New("unknown time slot")
	ErrSlotPassed     = errors.New("time slot already started")
)

// Action is a single state transition. Actions are applied by Store.Dispatch,
// the only place booking state changes.
type Action interface {
	apply(s *State, env env) error
	// mutatesCart reports whether the action may change the selection.
	mutatesCart() bool
}

type env struct {
	now   time.Time
	loc   *time.Location
	slots []string
}

// AddService adds one unit of a service: a known ID has its quantity
// incremented, a new one is appended with quantity 1.
type AddService struct {
	Service catalog.Service
}

func (a AddService) apply(s *State, _ env) error {
	if i := s.index(a.Service.ID); i >= 0 {
		s.Services[i].Quantity++
		return nil
	}
	s.Services = append(s.Services, Item{Service: a.Service, Quantity: 1})
	return nil
}

func (AddService) mutatesCart() bool { return true }

// RemoveService deletes a service from the selection. Absent IDs are ignored.
type RemoveService struct {
	ID string
}

func (a RemoveService) apply(s *State, _ env) error {
	if i := s.index(a.ID); i >= 0 {
		s.Services = append(s.Services[:i], s.Services[i+1:]...)
	}
	return nil
}

func (RemoveService) mutatesCart() bool { return true }

// UpdateQuantity sets the quantity of a selected service. A quantity of zero
// or less removes it.
type UpdateQuantity struct {
	ID       string
	Quantity int
}

func (a UpdateQuantity) apply(s *State, e env) error {
	if a.Quantity <= 0 {
		return RemoveService{ID: a.ID}.apply(s, e)
	}
	if i := s.index(a.ID); i >= 0 {
		s.Services[i].Quantity = a.Quantity
	}
	return nil
}

func (UpdateQuantity) mutatesCart() bool { return true }

// ClearServices empties the selection.
type ClearServices struct{}

func (ClearServices) apply(s *State, _ env) error {
	s.Services = nil
	return nil
}

func (ClearServices) mutatesCart() bool { return true }

// SetStep moves the wizard to an arbitrary step. Leaving the services step is
// refused while the selection is empty.
type SetStep struct {
	Step Step
}

func (a SetStep) apply(s *State, _ env) error {
	if !a.Step.Valid() {
		return ErrInvalidStep
	}
	if s.Step == StepServices && a.Step > StepServices && s.Empty() {
		return ErrEmptySelection
	}
	s.Step = a.Step
	return nil
}

func (SetStep) mutatesCart() bool { return false }

// NextStep advances one step; it is a no-op on the last step.
type NextStep struct{}

func (NextStep) apply(s *State, e env) error {
	if s.Step >= StepPayment {
		return nil
	}
	return SetStep{Step: s.Step + 1}.apply(s, e)
}

func (NextStep) mutatesCart() bool { return false }

// PrevStep goes back one step; it is a no-op on the first step.
type PrevStep struct{}

func (PrevStep) apply(s *State, _ env) error {
	if s.Step > StepServices {
		s.Step--
	}
	return nil
}

func (PrevStep) mutatesCart() bool { return false }

// SetScheduledDate selects the pickup date. Only the calendar day is kept;
// days before today are refused. A nil Date clears the date and the slot.
// A selected slot that has already started on the new day is dropped.
type SetScheduledDate struct {
	Date *time.Time
}

func (a SetScheduledDate) apply(s *State, e env) error {
	if a.Date == nil {
		s.ScheduledDate = nil
		s.TimeSlot = ""
		return nil
	}
	day := dateOnly(*a.Date, e.loc)
	if day.Before(dateOnly(e.now, e.loc)) {
		return ErrDateInPast
	}
	s.ScheduledDate = &day
	if s.TimeSlot != "" {
		if passed, err := SlotInPast(s.TimeSlot, day, e.now.In(e.loc)); err != nil || passed {
			s.TimeSlot = ""
		}
	}
	return nil
}

func (SetScheduledDate) mutatesCart() bool { return false }

// SetTimeSlot selects the pickup slot. An empty Slot clears the selection.
// The slot must exist and must not have started yet when the date is today.
type SetTimeSlot struct {
	Slot string
}

func (a SetTimeSlot) apply(s *State, e env) error {
	if a.Slot == "" {
		s.TimeSlot = ""
		return nil
	}
	if !containsSlot(e.slots, a.Slot) {
		return ErrUnknownSlot
	}
	if s.ScheduledDate == nil {
		return ErrNoDate
	}
	passed, err := SlotInPast(a.Slot, *s.ScheduledDate, e.now.In(e.loc))
	if err != nil {
		return err
	}
	if passed {
		return ErrSlotPassed
	}
	s.TimeSlot = a.Slot
	return nil
}

func (SetTimeSlot) mutatesCart() bool { return false }

// SetSchedule changes the date and the slot together: either both apply or
// neither does. DateSet and SlotSet select which fields are changed; the
// slot is checked against the new date.
type SetSchedule struct {
	Date    *time.Time
	DateSet bool
	Slot    string
	SlotSet bool
}

func (a SetSchedule) apply(s *State, e env) error {
	if a.DateSet {
		if err := (SetScheduledDate{Date: a.Date}).apply(s, e); err != nil {
			return err
		}
	}
	if a.SlotSet {
		return SetTimeSlot{Slot: a.Slot}.apply(s, e)
	}
	return nil
}

func (SetSchedule) mutatesCart() bool { return false }

func containsSlot(slots []string, slot string) bool {
	for _, s := range slots {
		if s == slot {
			return true
		}
	}
	return false
}
