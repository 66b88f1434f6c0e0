// Package dashboard derives the summary figures shown on the customer and
// admin dashboards.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/laundry-booking/internal/domain/order"
)

// Summary holds the admin dashboard figures for one order list.
type Summary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Cancelled  int
	Revenue    decimal.Decimal

	TodayOrders      int
	YesterdayOrders  int
	TodayRevenue     decimal.Decimal
	YesterdayRevenue decimal.Decimal

	// Trends are percentages with one decimal, "0" when the base is zero.
	OrdersTrend    string
	RevenueTrend   string
	CompletedShare string
	PendingShare   string
}

var hundred = decimal.NewFromInt(100)

// Summarize computes the dashboard figures. Today and yesterday are the
// calendar days of now in loc.
func Summarize(orders []order.Order, now time.Time, loc *time.Location) Summary {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)
	yesterday := now.AddDate(0, 0, -1)

	s := Summary{
		Revenue:          decimal.Zero,
		TodayRevenue:     decimal.Zero,
		YesterdayRevenue: decimal.Zero,
	}
	counts := order.CountByStatus(orders)
	s.Total = len(orders)
	s.Pending = counts[order.StatusPending]
	s.Processing = counts[order.StatusProcessing]
	s.Completed = counts[order.StatusCompleted]
	s.Cancelled = counts[order.StatusCancelled]

	for _, o := range orders {
		s.Revenue = s.Revenue.Add(o.Total)
		created := o.CreatedAt.In(loc)
		switch {
		case sameDay(created, now):
			s.TodayOrders++
			s.TodayRevenue = s.TodayRevenue.Add(o.Total)
		case sameDay(created, yesterday):
			s.YesterdayOrders++
			s.YesterdayRevenue = s.YesterdayRevenue.Add(o.Total)
		}
	}

	s.OrdersTrend = Trend(decimal.NewFromInt(int64(s.TodayOrders)), decimal.NewFromInt(int64(s.YesterdayOrders)))
	s.RevenueTrend = Trend(s.TodayRevenue, s.YesterdayRevenue)
	s.CompletedShare = Share(s.Completed, s.Total)
	s.PendingShare = Share(s.Pending, s.Total)
	return s
}

// Trend returns the relative change from base to cur in percent with one
// decimal. A zero base yields "0".
func Trend(cur, base decimal.Decimal) string {
	if !base.IsPositive() {
		return "0"
	}
	return cur.Sub(base).Div(base).Mul(hundred).StringFixed(1)
}

// Share returns part/total in percent with one decimal, "0" on an empty total.
func Share(part, total int) string {
	if total <= 0 {
		return "0"
	}
	return decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(hundred).
		StringFixed(1)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
