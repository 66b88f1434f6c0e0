package booking

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/laundry-booking/internal/domain/catalog"
)

var fixedNow = time.Date(2025, 6, 15, 11, 30, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStore("s1", StoreConfig{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	})
}

func svc(id, price string) catalog.Service {
	return catalog.Service{ID: id, Title: id, UnitPrice: decimal.RequireFromString(price), Unit: "/article"}
}

func TestAddService_SameIDIncrements(t *testing.T) {
	s := newTestStore()

	_, err := s.AddService(svc("a", "10"))
	require.NoError(t, err)
	st, err := s.AddService(svc("a", "10"))
	require.NoError(t, err)

	require.Len(t, st.Services, 1)
	assert.Equal(t, 2, st.Services[0].Quantity)
}

func TestTotal_Scenario(t *testing.T) {
	s := newTestStore()

	_, _ = s.AddService(svc("a", "10"))
	_, _ = s.AddService(svc("a", "10"))
	st, err := s.AddService(svc("b", "5"))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(25).Equal(st.Total()))
	assert.Equal(t, 25.0, st.TotalFloat())
}

func TestTotal_TracksEveryMutation(t *testing.T) {
	s := newTestStore()

	steps := []struct {
		name string
		do   func() (State, error)
	}{
		{"add a", func() (State, error) { return s.AddService(svc("a", "2.50")) }},
		{"add b", func() (State, error) { return s.AddService(svc("b", "3")) }},
		{"add a again", func() (State, error) { return s.AddService(svc("a", "2.50")) }},
		{"set b to 4", func() (State, error) { return s.UpdateQuantity("b", 4) }},
		{"remove missing", func() (State, error) { return s.RemoveService("zzz") }},
		{"remove a", func() (State, error) { return s.RemoveService("a") }},
		{"add c", func() (State, error) { return s.AddService(svc("c", "0.10")) }},
		{"zero b", func() (State, error) { return s.UpdateQuantity("b", 0) }},
	}

	for _, step := range steps {
		st, err := step.do()
		require.NoError(t, err, step.name)

		want := decimal.Zero
		for _, it := range st.Services {
			want = want.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
		}
		assert.True(t, want.Equal(st.Total()), "%s: total %s, want %s", step.name, st.Total(), want)
	}
}

func TestUpdateQuantity_NonPositiveRemoves(t *testing.T) {
	for _, n := range []int{0, -1} {
		s := newTestStore()
		_, _ = s.AddService(svc("a", "10"))
		_, _ = s.AddService(svc("b", "1"))

		st, err := s.UpdateQuantity("a", n)
		require.NoError(t, err)
		assert.Zero(t, st.Quantity("a"), "quantity %d", n)
		require.Len(t, st.Services, 1)
		assert.Equal(t, "b", st.Services[0].ID)
	}
}

func TestUpdateQuantity_SetsValue(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddService(svc("a", "10"))

	st, err := s.UpdateQuantity("a", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, st.Quantity("a"))

	// Unknown ids are not created.
	st, err = s.UpdateQuantity("ghost", 3)
	require.NoError(t, err)
	assert.Len(t, st.Services, 1)
}

func TestClearServices(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddService(svc("a", "10"))

	st, err := s.ClearServices()
	require.NoError(t, err)
	assert.True(t, st.Empty())
	assert.True(t, decimal.Zero.Equal(st.Total()))
}

func TestInsertionOrderKept(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddService(svc("c", "1"))
	_, _ = s.AddService(svc("a", "1"))
	st, _ := s.AddService(svc("c", "1"))

	require.Len(t, st.Services, 2)
	assert.Equal(t, "c", st.Services[0].ID)
	assert.Equal(t, "a", st.Services[1].ID)
}

func TestSetCurrentStep_GatedOnEmptySelection(t *testing.T) {
	s := newTestStore()

	st, err := s.SetCurrentStep(StepSchedule)
	require.ErrorIs(t, err, ErrEmptySelection)
	assert.Equal(t, StepServices, st.Step)

	_, err = s.Dispatch(NextStep{})
	require.ErrorIs(t, err, ErrEmptySelection)

	_, _ = s.AddService(svc("a", "10"))
	st, err = s.SetCurrentStep(StepSchedule)
	require.NoError(t, err)
	assert.Equal(t, StepSchedule, st.Step)
}

func TestWizard_Navigation(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddService(svc("a", "10"))

	st, err := s.Dispatch(NextStep{})
	require.NoError(t, err)
	assert.Equal(t, StepSchedule, st.Step)

	// No schedule gate between schedule and payment.
	_, err = s.Dispatch(SetTimeSlot{})
	require.NoError(t, err)
	st, err = s.Dispatch(NextStep{})
	require.NoError(t, err)
	assert.Equal(t, StepPayment, st.Step)

	st, err = s.Dispatch(NextStep{})
	require.NoError(t, err)
	assert.Equal(t, StepPayment, st.Step)

	st, _ = s.Dispatch(PrevStep{})
	assert.Equal(t, StepSchedule, st.Step)
	_, _ = s.Dispatch(PrevStep{})
	st, _ = s.Dispatch(PrevStep{})
	assert.Equal(t, StepServices, st.Step)

	_, err = s.SetCurrentStep(Step(4))
	require.ErrorIs(t, err, ErrInvalidStep)
}

func TestBackAlwaysPermittedWithEmptyCart(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddService(svc("a", "10"))
	_, err := s.SetCurrentStep(StepPayment)
	require.NoError(t, err)

	_, _ = s.ClearServices()
	st, err := s.Dispatch(PrevStep{})
	require.NoError(t, err)
	assert.Equal(t, StepSchedule, st.Step)
}

func TestCheckout_IdempotencyKeyLifecycle(t *testing.T) {
	s := newTestStore()

	_, _, err := s.BeginCheckout()
	require.ErrorIs(t, err, ErrEmptySelection)

	_, _ = s.AddService(svc("a", "10"))

	st, key1, err := s.BeginCheckout()
	require.NoError(t, err)
	require.NotEmpty(t, key1)
	assert.Len(t, st.Services, 1)

	_, _, err = s.BeginCheckout()
	require.ErrorIs(t, err, ErrSubmissionInFlight)

	// Failed attempt keeps the cart and the key.
	s.EndCheckout(false)
	_, key2, err := s.BeginCheckout()
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
	s.EndCheckout(false)

	// A cart change invalidates the key.
	_, _ = s.AddService(svc("a", "10"))
	_, key3, err := s.BeginCheckout()
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3)

	s.EndCheckout(true)
	st = s.Snapshot()
	assert.True(t, st.Empty())
	assert.Equal(t, StepServices, st.Step)
	assert.False(t, s.Submitting())
}

func TestCheckout_StateFrozenWhileSubmitting(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddService(svc("a", "10"))
	_, err := s.Dispatch(SetTimeSlot{Slot: "14:00 - 16:00"})
	require.NoError(t, err)

	_, _, err = s.BeginCheckout()
	require.NoError(t, err)

	_, err = s.AddService(svc("b", "5"))
	require.ErrorIs(t, err, ErrSubmissionInFlight)
	_, err = s.UpdateQuantity("a", 3)
	require.ErrorIs(t, err, ErrSubmissionInFlight)
	_, err = s.Dispatch(SetTimeSlot{Slot: "16:00 - 18:00"})
	require.ErrorIs(t, err, ErrSubmissionInFlight)

	st := s.Snapshot()
	require.Len(t, st.Services, 1)
	assert.Equal(t, 1, st.Quantity("a"))
	assert.Equal(t, "14:00 - 16:00", st.TimeSlot)

	// A failed checkout unfreezes the session with the cart intact.
	s.EndCheckout(false)
	_, err = s.AddService(svc("b", "5"))
	require.NoError(t, err)
	assert.Len(t, s.Snapshot().Services, 2)
}

func TestNewStore_DefaultsToToday(t *testing.T) {
	st := newTestStore().Snapshot()
	require.NotNil(t, st.ScheduledDate)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), *st.ScheduledDate)
	assert.Equal(t, StepServices, st.Step)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newTestStore()
	_, _ = s.AddService(svc("a", "10"))

	st := s.Snapshot()
	st.Services[0].Quantity = 99

	assert.Equal(t, 1, s.Snapshot().Quantity("a"))
}
