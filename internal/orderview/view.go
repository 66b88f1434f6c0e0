package orderview

import (
	"time"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

// View is a rendered order list: filtered, counted and with at most one
// expanded order.
type View struct {
	Orders []order.Order
	// Expanded is the ID of the order shown with its details, empty when
	// none or when the ID is not in the filtered list.
	Expanded string
	// Counts are computed over the unfiltered list.
	Counts map[order.Status]int
	Total  int
	// Empty is set when the list loaded fine but nothing matches.
	Empty     bool
	Error     string
	Loaded    bool
	FetchedAt time.Time
}

// Render applies f to the snapshot and marks expand as expanded.
func Render(s Snapshot, f order.Filter, expand string) View {
	v := View{
		Orders:    f.Apply(s.Orders),
		Counts:    order.CountByStatus(s.Orders),
		Total:     len(s.Orders),
		Loaded:    s.Loaded,
		FetchedAt: s.FetchedAt,
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
	}
	v.Empty = s.Loaded && s.Err == nil && len(v.Orders) == 0
	if expand != "" {
		for _, o := range v.Orders {
			if o.ID == expand {
				v.Expanded = expand
				break
			}
		}
	}
	return v
}
