package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/laundry-booking/internal/domain/catalog"
)

// Step is a booking wizard step.
type Step int

const (
	StepServices Step = 1
	StepSchedule Step = 2
	StepPayment  Step = 3
)

// Valid reports whether s is one of the three wizard steps.
func (s Step) Valid() bool {
	return s >= StepServices && s <= StepPayment
}

func (s Step) String() string {
	switch s {
	case StepServices:
		return "services"
	case StepSchedule:
		return "schedule"
	case StepPayment:
		return "payment"
	default:
		return "unknown"
	}
}

// Item is a selected service with its quantity.
type Item struct {
	catalog.Service
	Quantity int
}

// LineTotal returns UnitPrice × Quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// State is a snapshot of one booking session. Services are unique by ID and
// kept in insertion order.
type State struct {
	Services      []Item
	Step          Step
	ScheduledDate *time.Time
	TimeSlot      string
}

// Total returns Σ(unit price × quantity) over the selection.
func (s State) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range s.Services {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// TotalFloat returns the total rounded to 2 decimals.
func (s State) TotalFloat() float64 {
	return s.Total().Round(2).InexactFloat64()
}

// Empty reports whether no service is selected.
func (s State) Empty() bool {
	return len(s.Services) == 0
}

// Quantity returns the selected quantity of a service, 0 when absent.
func (s State) Quantity(id string) int {
	if i := s.index(id); i >= 0 {
		return s.Services[i].Quantity
	}
	return 0
}

func (s State) index(id string) int {
	for i := range s.Services {
		if s.Services[i].ID == id {
			return i
		}
	}
	return -1
}

func (s State) clone() State {
	out := s
	out.Services = append([]Item(nil), s.Services...)
	if s.ScheduledDate != nil {
		d := *s.ScheduledDate
		out.ScheduledDate = &d
	}
	return out
}
