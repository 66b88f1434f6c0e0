package handler

import (
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/laundry-booking/internal/domain/booking"
	"github.com/xenking/laundry-booking/internal/domain/catalog"
	"github.com/xenking/laundry-booking/internal/domain/dashboard"
	"github.com/xenking/laundry-booking/internal/domain/identity"
	"github.com/xenking/laundry-booking/internal/domain/order"
	"github.com/xenking/laundry-booking/internal/domain/subscription"
	"github.com/xenking/laundry-booking/internal/orderview"
)

func field(e *jx.Encoder, name, v string) {
	e.FieldStart(name)
	e.Str(v)
}

func fieldInt(e *jx.Encoder, name string, v int) {
	e.FieldStart(name)
	e.Int(v)
}

func fieldBool(e *jx.Encoder, name string, v bool) {
	e.FieldStart(name)
	e.Bool(v)
}

func fieldAmount(e *jx.Encoder, name string, v decimal.Decimal) {
	e.FieldStart(name)
	e.Num(jx.Num(v.Round(2).String()))
}

// fieldOpt writes null for an empty string.
func fieldOpt(e *jx.Encoder, name, v string) {
	e.FieldStart(name)
	if v == "" {
		e.Null()
		return
	}
	e.Str(v)
}

func fieldTime(e *jx.Encoder, name string, t *time.Time) {
	e.FieldStart(name)
	if t == nil || t.IsZero() {
		e.Null()
		return
	}
	e.Str(t.Format(time.RFC3339))
}

func encodeService(e *jx.Encoder, s catalog.Service) {
	field(e, "id", s.ID)
	field(e, "title", s.Title)
	field(e, "description", s.Description)
	fieldAmount(e, "price", s.UnitPrice)
	field(e, "unit", s.Unit)
	fieldOpt(e, "subPrice", s.SubPrice)
	field(e, "icon", s.Icon)
	field(e, "category", s.Category)
}

func encodeCatalog(e *jx.Encoder, categories []catalog.Category, services []catalog.Service) {
	e.ObjStart()
	e.FieldStart("categories")
	e.ArrStart()
	for _, c := range categories {
		e.ObjStart()
		field(e, "id", c.ID)
		field(e, "name", c.Name)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("services")
	e.ArrStart()
	for _, s := range services {
		e.ObjStart()
		encodeService(e, s)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeState(e *jx.Encoder, id string, st booking.State, submitting bool) {
	e.ObjStart()
	field(e, "sessionId", id)
	fieldInt(e, "step", int(st.Step))
	field(e, "stepName", st.Step.String())
	e.FieldStart("services")
	e.ArrStart()
	for _, it := range st.Services {
		e.ObjStart()
		encodeService(e, it.Service)
		fieldInt(e, "quantity", it.Quantity)
		fieldAmount(e, "lineTotal", it.LineTotal())
		e.ObjEnd()
	}
	e.ArrEnd()
	fieldAmount(e, "totalPrice", st.Total())
	e.FieldStart("scheduledDate")
	if st.ScheduledDate == nil {
		e.Null()
	} else {
		e.Str(st.ScheduledDate.Format(order.DateLayout))
	}
	fieldOpt(e, "timeSlot", st.TimeSlot)
	fieldBool(e, "submitting", submitting)
	e.ObjEnd()
}

func encodeSlots(e *jx.Encoder, slots []booking.Slot) {
	e.ObjStart()
	e.FieldStart("slots")
	e.ArrStart()
	for _, s := range slots {
		e.ObjStart()
		field(e, "label", s.Label)
		fieldBool(e, "selected", s.Selected)
		fieldBool(e, "disabled", s.Disabled)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// encodeOrder writes an order. Items are only listed with detail.
func encodeOrder(e *jx.Encoder, o order.Order, detail bool) {
	e.ObjStart()
	field(e, "id", o.ID)
	field(e, "userId", o.UserID)
	fieldOpt(e, "userName", o.UserName)
	fieldOpt(e, "userPhone", o.UserPhone)
	fieldOpt(e, "userAddress", o.UserAddress)
	field(e, "status", string(o.Status))
	fieldTime(e, "createdAt", &o.CreatedAt)
	fieldOpt(e, "scheduledDate", o.ScheduledDate)
	fieldOpt(e, "scheduledTime", o.ScheduledTime)
	fieldOpt(e, "deliveryDate", o.DeliveryDate)
	fieldOpt(e, "deliveryTime", o.DeliveryTime)
	fieldAmount(e, "total", o.Total)
	fieldInt(e, "itemCount", len(o.Items))
	if detail {
		fieldOpt(e, "address", o.Address)
		fieldOpt(e, "notes", o.Notes)
		e.FieldStart("items")
		e.ArrStart()
		for _, it := range o.Items {
			e.ObjStart()
			field(e, "serviceId", it.ServiceID)
			field(e, "title", it.Title)
			field(e, "description", it.Description)
			fieldAmount(e, "price", it.Price)
			field(e, "unit", it.Unit)
			field(e, "icon", it.Icon)
			fieldInt(e, "quantity", it.Quantity)
			field(e, "category", it.Category)
			e.ObjEnd()
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

// encodeView writes a rendered list. saving is nil for customer lists.
func encodeView(e *jx.Encoder, v orderview.View, saving map[string]bool) {
	e.ObjStart()
	e.FieldStart("orders")
	e.ArrStart()
	for _, o := range v.Orders {
		encodeOrder(e, o, o.ID == v.Expanded)
	}
	e.ArrEnd()
	fieldOpt(e, "expanded", v.Expanded)

	e.FieldStart("counts")
	e.ObjStart()
	fieldInt(e, order.TabAll, v.Total)
	for _, s := range order.Statuses {
		fieldInt(e, string(s), v.Counts[s])
	}
	e.ObjEnd()

	fieldBool(e, "loaded", v.Loaded)
	fieldBool(e, "empty", v.Empty)
	fieldOpt(e, "error", v.Error)
	fieldTime(e, "fetchedAt", &v.FetchedAt)
	if saving != nil {
		e.FieldStart("saving")
		e.ArrStart()
		for _, o := range v.Orders {
			if saving[o.ID] {
				e.Str(o.ID)
			}
		}
		e.ArrEnd()
	}
	e.ObjEnd()
}

func encodeOverview(e *jx.Encoder, ov dashboard.Overview) {
	e.ObjStart()

	e.FieldStart("stats")
	if s := ov.Stats; s == nil {
		e.Null()
	} else {
		e.ObjStart()
		fieldInt(e, "orderCount", s.OrderCount)
		fieldTime(e, "nextPickup", s.NextPickup)
		fieldTime(e, "nextDelivery", s.NextDelivery)
		e.FieldStart("recentActivity")
		e.ArrStart()
		for _, a := range s.RecentActivity {
			e.ObjStart()
			field(e, "type", a.Type)
			fieldTime(e, "date", &a.Date)
			field(e, "description", a.Description)
			e.ObjEnd()
		}
		e.ArrEnd()
		e.FieldStart("currentOrder")
		if c := s.CurrentOrder; c == nil {
			e.Null()
		} else {
			e.ObjStart()
			field(e, "status", string(c.Status))
			fieldOpt(e, "scheduledDate", c.ScheduledDate)
			fieldOpt(e, "scheduledTime", c.ScheduledTime)
			e.ObjEnd()
		}
		e.ObjEnd()
	}
	fieldOpt(e, "statsError", ov.StatsError)

	e.FieldStart("subscription")
	if s := ov.Subscription; s == nil {
		e.Null()
	} else {
		e.ObjStart()
		field(e, "plan", s.Plan)
		fieldInt(e, "creditsUsed", s.CreditsUsed)
		fieldInt(e, "totalCredits", s.TotalCredits)
		fieldOpt(e, "nextPaymentDate", s.NextPaymentDate)
		fieldBool(e, "active", s.Active)
		e.ObjEnd()
	}
	fieldOpt(e, "subscriptionError", ov.SubscriptionErr)

	e.FieldStart("recentOrders")
	e.ArrStart()
	for _, o := range ov.RecentOrders {
		encodeOrder(e, o, false)
	}
	e.ArrEnd()
	fieldOpt(e, "recentOrdersError", ov.RecentOrdersErr)

	e.ObjEnd()
}

func encodeSummary(e *jx.Encoder, s dashboard.Summary) {
	e.ObjStart()
	fieldInt(e, "total", s.Total)
	fieldInt(e, "pending", s.Pending)
	fieldInt(e, "processing", s.Processing)
	fieldInt(e, "completed", s.Completed)
	fieldInt(e, "cancelled", s.Cancelled)
	fieldAmount(e, "revenue", s.Revenue)
	fieldInt(e, "todayOrders", s.TodayOrders)
	fieldInt(e, "yesterdayOrders", s.YesterdayOrders)
	fieldAmount(e, "todayRevenue", s.TodayRevenue)
	fieldAmount(e, "yesterdayRevenue", s.YesterdayRevenue)
	field(e, "ordersTrend", s.OrdersTrend)
	field(e, "revenueTrend", s.RevenueTrend)
	field(e, "completedShare", s.CompletedShare)
	field(e, "pendingShare", s.PendingShare)
	e.ObjEnd()
}

func encodePlan(e *jx.Encoder, p subscription.Plan) {
	e.ObjStart()
	field(e, "id", p.ID)
	field(e, "name", p.Name)
	field(e, "description", p.Description)
	fieldAmount(e, "price", p.Price)
	field(e, "currency", p.Currency)
	field(e, "interval", p.Interval)
	fieldInt(e, "totalCredits", p.TotalCredits)
	fieldBool(e, "active", p.Active)
	e.FieldStart("features")
	e.ArrStart()
	for _, f := range p.Features {
		e.ObjStart()
		field(e, "name", f.Name)
		fieldBool(e, "included", f.Included)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeSubscription(e *jx.Encoder, s *subscription.Subscription) {
	if s == nil {
		e.Null()
		return
	}
	e.ObjStart()
	field(e, "id", s.ID)
	field(e, "planId", s.PlanID)
	field(e, "planName", s.PlanName)
	fieldInt(e, "creditsUsed", s.CreditsUsed)
	fieldInt(e, "totalCredits", s.TotalCredits)
	fieldInt(e, "remainingCredits", s.Remaining())
	fieldAmount(e, "price", s.Price)
	field(e, "currency", s.Currency)
	field(e, "status", s.Status)
	fieldTime(e, "startDate", &s.StartDate)
	fieldTime(e, "nextPaymentDate", &s.NextPaymentDate)
	e.ObjEnd()
}

func encodeUsage(e *jx.Encoder, history []subscription.Usage) {
	e.ArrStart()
	for _, u := range history {
		e.ObjStart()
		field(e, "id", u.ID)
		fieldInt(e, "credits", u.Credits)
		field(e, "description", u.Description)
		fieldTime(e, "usedAt", &u.UsedAt)
		e.ObjEnd()
	}
	e.ArrEnd()
}

func encodeMetadata(e *jx.Encoder, m identity.Metadata) {
	e.ObjStart()
	field(e, "phone", m.Phone)
	field(e, "address", m.Address)
	e.ObjEnd()
}
