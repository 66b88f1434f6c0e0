package orderapi

import (
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/laundry-booking/internal/domain/dashboard"
	"github.com/xenking/laundry-booking/internal/domain/order"
)

// encodeDraft writes the POST /api/orders body.
func encodeDraft(e *jx.Encoder, d order.Draft) {
	e.ObjStart()
	e.FieldStart("user_id")
	e.Str(d.UserID)
	e.FieldStart("status")
	e.Str(string(d.Status))
	e.FieldStart("created_at")
	e.Str(d.CreatedAt.Format(time.RFC3339))
	e.FieldStart("scheduled_date")
	if d.ScheduledDate != nil {
		e.Str(d.ScheduledDate.Format(order.DateLayout))
	} else {
		e.Null()
	}
	e.FieldStart("scheduled_time")
	optStr(e, d.ScheduledTime)
	e.FieldStart("delivery_date")
	e.Null()
	e.FieldStart("delivery_time")
	e.Null()
	e.FieldStart("total")
	num(e, d.Total)
	e.FieldStart("address")
	e.Str(d.Address)
	e.FieldStart("notes")
	e.Str(d.Notes)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range d.Items {
		e.ObjStart()
		e.FieldStart("serviceId")
		e.Str(it.ServiceID)
		e.FieldStart("title")
		e.Str(it.Title)
		e.FieldStart("description")
		e.Str(it.Description)
		e.FieldStart("price")
		num(e, it.Price)
		e.FieldStart("unit")
		e.Str(it.Unit)
		e.FieldStart("icon")
		e.Str(it.Icon)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("category")
		e.Str(it.Category)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
}

// encodeUpdate writes only the fields set on u.
func encodeUpdate(e *jx.Encoder, u order.Update) {
	e.ObjStart()
	if u.Status != nil {
		e.FieldStart("status")
		e.Str(string(*u.Status))
	}
	if u.DeliveryDate != nil {
		e.FieldStart("deliveryDate")
		optStr(e, *u.DeliveryDate)
	}
	if u.DeliveryTime != nil {
		e.FieldStart("deliveryTime")
		optStr(e, *u.DeliveryTime)
	}
	e.ObjEnd()
}

func optStr(e *jx.Encoder, s string) {
	if s == "" {
		e.Null()
		return
	}
	e.Str(s)
}

func num(e *jx.Encoder, v decimal.Decimal) {
	e.Num(jx.Num(v.Round(2).String()))
}

// decodeOrders reads an order list. Both a bare array and {"orders":[...]}
// are accepted.
func decodeOrders(d *jx.Decoder) ([]order.Order, error) {
	out := []order.Order{}
	readArr := func(d *jx.Decoder) error {
		return d.Arr(func(d *jx.Decoder) error {
			o, err := decodeOrder(d)
			if err != nil {
				return err
			}
			out = append(out, o)
			return nil
		})
	}

	switch d.Next() {
	case jx.Array:
		if err := readArr(d); err != nil {
			return nil, err
		}
	case jx.Object:
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			if key == "orders" {
				return readArr(d)
			}
			return d.Skip()
		}); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Errorf("unexpected %s for order list", d.Next())
	}
	return out, nil
}

func decodeOrder(d *jx.Decoder) (order.Order, error) {
	var o order.Order
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id", "_id":
			o.ID, err = scalar(d)
		case "userId", "user_id":
			o.UserID, err = nullStr(d)
		case "userName":
			o.UserName, err = nullStr(d)
		case "userPhone":
			o.UserPhone, err = nullStr(d)
		case "userAddress":
			o.UserAddress, err = nullStr(d)
		case "status":
			var s string
			s, err = nullStr(d)
			o.Status = order.Status(strings.ToLower(s))
		case "createdAt", "created_at":
			o.CreatedAt, err = timestamp(d)
		case "scheduledDate", "scheduled_date":
			o.ScheduledDate, err = nullStr(d)
		case "scheduledTime", "scheduled_time":
			o.ScheduledTime, err = nullStr(d)
		case "deliveryDate", "delivery_date":
			o.DeliveryDate, err = nullStr(d)
		case "deliveryTime", "delivery_time":
			o.DeliveryTime, err = nullStr(d)
		case "total":
			o.Total, err = amount(d)
		case "address":
			o.Address, err = nullStr(d)
		case "notes":
			o.Notes, err = nullStr(d)
		case "items":
			o.Items, err = decodeItems(d)
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	return o, err
}

// decodeItems accepts full item objects as well as the bare titles some
// list endpoints return.
func decodeItems(d *jx.Decoder) ([]order.Item, error) {
	switch d.Next() {
	case jx.Null:
		return nil, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil || s == "" {
			return nil, err
		}
		return []order.Item{{Title: s, Quantity: 1}}, nil
	}

	var out []order.Item
	err := d.Arr(func(d *jx.Decoder) error {
		if d.Next() == jx.String {
			s, err := d.Str()
			if err != nil {
				return err
			}
			out = append(out, order.Item{Title: s, Quantity: 1})
			return nil
		}
		it, err := decodeItem(d)
		if err != nil {
			return err
		}
		out = append(out, it)
		return nil
	})
	return out, err
}

func decodeItem(d *jx.Decoder) (order.Item, error) {
	var it order.Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "serviceId", "service_id":
			it.ServiceID, err = scalar(d)
		case "title", "name":
			it.Title, err = nullStr(d)
		case "description":
			it.Description, err = nullStr(d)
		case "price":
			it.Price, err = amount(d)
		case "unit":
			it.Unit, err = nullStr(d)
		case "icon":
			it.Icon, err = nullStr(d)
		case "imageUrl":
			it.ImageURL, err = nullStr(d)
		case "quantity":
			it.Quantity, err = d.Int()
		case "category":
			it.Category, err = nullStr(d)
		default:
			err = d.Skip()
		}
		return err
	})
	return it, err
}

func decodeStats(d *jx.Decoder) (*dashboard.Stats, error) {
	st := &dashboard.Stats{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "orderCount":
			st.OrderCount, err = d.Int()
		case "nextPickup":
			st.NextPickup, err = optTimestamp(d)
		case "nextDelivery":
			st.NextDelivery, err = optTimestamp(d)
		case "recentActivity":
			if d.Next() == jx.Null {
				return d.Null()
			}
			err = d.Arr(func(d *jx.Decoder) error {
				var a dashboard.Activity
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "type":
						a.Type, err = nullStr(d)
					case "date":
						a.Date, err = timestamp(d)
					case "description":
						a.Description, err = nullStr(d)
					default:
						err = d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				st.RecentActivity = append(st.RecentActivity, a)
				return nil
			})
		case "currentOrder":
			if d.Next() == jx.Null {
				return d.Null()
			}
			cur := &dashboard.CurrentOrder{}
			err = d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "status":
					var s string
					s, err = nullStr(d)
					cur.Status = order.Status(strings.ToLower(s))
				case "scheduledDate":
					cur.ScheduledDate, err = nullStr(d)
				case "scheduledTime":
					cur.ScheduledTime, err = nullStr(d)
				default:
					err = d.Skip()
				}
				return err
			})
			st.CurrentOrder = cur
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	return st, err
}

func decodeSubscription(d *jx.Decoder) (*dashboard.SubscriptionInfo, error) {
	sub := &dashboard.SubscriptionInfo{}
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "plan":
			sub.Plan, err = nullStr(d)
		case "creditsUsed":
			sub.CreditsUsed, err = optInt(d)
		case "totalCredits":
			sub.TotalCredits, err = optInt(d)
		case "nextPaymentDate":
			sub.NextPaymentDate, err = nullStr(d)
		case "status":
			var s string
			s, err = nullStr(d)
			sub.Active = strings.EqualFold(s, "active")
		default:
			err = d.Skip()
		}
		return errors.Wrapf(err, "field %q", key)
	})
	return sub, err
}

func nullStr(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Null {
		return "", d.Null()
	}
	return d.Str()
}

// scalar reads an identifier that may be sent as a string or a number.
func scalar(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Number {
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	}
	return nullStr(d)
}

func optInt(d *jx.Decoder) (int, error) {
	if d.Next() == jx.Null {
		return 0, d.Null()
	}
	return d.Int()
}

// amount accepts 12.5, "12.5" and null.
func amount(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.Null:
		return decimal.Zero, d.Null()
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", order.DateLayout}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, l := range timeLayouts {
		t, err := time.Parse(l, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func timestamp(d *jx.Decoder) (time.Time, error) {
	s, err := nullStr(d)
	if err != nil || s == "" {
		return time.Time{}, err
	}
	return parseTime(s)
}

func optTimestamp(d *jx.Decoder) (*time.Time, error) {
	t, err := timestamp(d)
	if err != nil || t.IsZero() {
		return nil, err
	}
	return &t, nil
}
