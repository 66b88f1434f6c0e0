package booking

import (
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/laundry-booking/internal/domain/catalog"
)

// ErrSubmissionInFlight is returned when a checkout is already running for
// the session.
var ErrSubmissionInFlight = errors.New("order submission already in progress")

// Store holds the cart and wizard state of one booking session.
//
// All changes go through Dispatch so the derived total can never drift from
// the selection. A Store is safe for concurrent use.
type Store struct {
	id    string
	now   func() time.Time
	loc   *time.Location
	slots []string

	mu         sync.Mutex
	state      State
	touched    time.Time
	submitting bool
	// idemKey is reused by checkout retries until the cart changes.
	idemKey string
}

// StoreConfig configures a Store.
type StoreConfig struct {
	// Location is used for date-only comparisons. Defaults to time.Local.
	Location *time.Location
	// TimeSlots overrides DefaultTimeSlots.
	TimeSlots []string
	// Now overrides time.Now.
	Now func() time.Time
}

// NewStore creates a session at the services step with today as the
// scheduled date.
func NewStore(id string, cfg StoreConfig) *Store {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if len(cfg.TimeSlots) == 0 {
		cfg.TimeSlots = DefaultTimeSlots
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	now := cfg.Now()
	today := dateOnly(now, cfg.Location)
	return &Store{
		id:      id,
		now:     cfg.Now,
		loc:     cfg.Location,
		slots:   cfg.TimeSlots,
		state:   State{Step: StepServices, ScheduledDate: &today},
		touched: now,
	}
}

// ID returns the session identifier.
func (s *Store) ID() string {
	return s.id
}

// Dispatch applies a to the state. On error the state is left unchanged.
// While a checkout runs the state is frozen and every action fails with
// ErrSubmissionInFlight.
func (s *Store) Dispatch(a Action) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.touched = now

	if s.submitting {
		return s.state.clone(), ErrSubmissionInFlight
	}

	next := s.state.clone()
	if err := a.apply(&next, env{now: now, loc: s.loc, slots: s.slots}); err != nil {
		return s.state.clone(), err
	}
	if a.mutatesCart() {
		s.idemKey = ""
	}
	s.state = next
	return s.state.clone(), nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Slots lists the pickup slots for the current scheduled date.
func (s *Store) Slots() []Slot {
	st := s.Snapshot()
	return Slots(s.slots, st, s.now().In(s.loc))
}

// Location returns the zone used for date comparisons.
func (s *Store) Location() *time.Location {
	return s.loc
}

// BeginCheckout marks the session as submitting and returns the state to
// submit with its idempotency key. It fails with ErrSubmissionInFlight while
// another checkout runs and with ErrEmptySelection on an empty cart.
// Every successful call must be paired with EndCheckout.
func (s *Store) BeginCheckout() (State, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return State{}, "", ErrSubmissionInFlight
	}
	if s.state.Empty() {
		return State{}, "", ErrEmptySelection
	}
	if s.idemKey == "" {
		s.idemKey = uuid.New().String()
	}
	s.submitting = true
	s.touched = s.now()
	return s.state.clone(), s.idemKey, nil
}

// EndCheckout releases the submission flag. On success the cart is cleared
// and the wizard returns to the first step; on failure the state is kept for
// a retry with the same idempotency key.
func (s *Store) EndCheckout(success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submitting = false
	if success {
		s.state.Services = nil
		s.state.Step = StepServices
		s.state.TimeSlot = ""
		s.idemKey = ""
	}
}

// Submitting reports whether a checkout is running.
func (s *Store) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

func (s *Store) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Convenience wrappers around Dispatch.

func (s *Store) AddService(svc catalog.Service) (State, error) {
	return s.Dispatch(AddService{Service: svc})
}

func (s *Store) RemoveService(id string) (State, error) {
	return s.Dispatch(RemoveService{ID: id})
}

func (s *Store) UpdateQuantity(id string, n int) (State, error) {
	return s.Dispatch(UpdateQuantity{ID: id, Quantity: n})
}

func (s *Store) ClearServices() (State, error) { return s.Dispatch(ClearServices{}) }

func (s *Store) SetCurrentStep(step Step) (State, error) {
	return s.Dispatch(SetStep{Step: step})
}
