package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/laundry-booking/internal/domain/booking"
	"github.com/xenking/laundry-booking/internal/domain/order"
)

type sessionKey struct{}

// loadSession resolves {sid} into its booking store.
func (h *Handler) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.Sessions.Get(chi.URLParam(r, "sid"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, s)
		ctx = zctx.With(ctx, zap.String("session_id", s.ID()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func session(r *http.Request) *booking.Store {
	return r.Context().Value(sessionKey{}).(*booking.Store)
}

func writeState(w http.ResponseWriter, status int, s *booking.Store, st booking.State) {
	writeJSON(w, status, func(e *jx.Encoder) {
		encodeState(e, s.ID(), st, s.Submitting())
	})
}

// respondState writes the state returned by a store call, or its error.
func respondState(w http.ResponseWriter, r *http.Request, st booking.State, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeState(w, http.StatusOK, session(r), st)
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	s := h.Sessions.Create()
	zctx.From(r.Context()).Debug("Session created", zap.String("session_id", s.ID()))
	writeState(w, http.StatusCreated, s, s.Snapshot())
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s := session(r)
	writeState(w, http.StatusOK, s, s.Snapshot())
}

func (h *Handler) deleteSession(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Delete(session(r).ID())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addService(w http.ResponseWriter, r *http.Request) {
	var id string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "serviceId" {
			return d.Skip()
		}
		v, err := d.Str()
		id = v
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if id == "" {
		writeError(w, r, badRequest("serviceId is required"))
		return
	}
	svc, err := h.Catalog.Get(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	st, err := session(r).AddService(svc)
	respondState(w, r, st, err)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	quantity, set := 0, false
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		v, err := d.Int()
		quantity, set = v, true
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if !set {
		writeError(w, r, badRequest("quantity is required"))
		return
	}
	st, err := session(r).UpdateQuantity(chi.URLParam(r, "serviceId"), quantity)
	respondState(w, r, st, err)
}

func (h *Handler) removeService(w http.ResponseWriter, r *http.Request) {
	st, err := session(r).RemoveService(chi.URLParam(r, "serviceId"))
	respondState(w, r, st, err)
}

func (h *Handler) clearServices(w http.ResponseWriter, r *http.Request) {
	st, err := session(r).ClearServices()
	respondState(w, r, st, err)
}

func (h *Handler) nextStep(w http.ResponseWriter, r *http.Request) {
	st, err := session(r).Dispatch(booking.NextStep{})
	respondState(w, r, st, err)
}

func (h *Handler) prevStep(w http.ResponseWriter, r *http.Request) {
	st, err := session(r).Dispatch(booking.PrevStep{})
	respondState(w, r, st, err)
}

func (h *Handler) setStep(w http.ResponseWriter, r *http.Request) {
	step := 0
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "step" {
			return d.Skip()
		}
		v, err := d.Int()
		step = v
		return err
	}); err != nil {
		writeError(w, r, err)
		return
	}
	st, err := session(r).SetCurrentStep(booking.Step(step))
	respondState(w, r, st, err)
}

// setSchedule sets the pickup date and the slot in one step: a refused field
// leaves both unchanged. A null date clears both; an omitted slot leaves the
// slot as is.
func (h *Handler) setSchedule(w http.ResponseWriter, r *http.Request) {
	s := session(r)
	var (
		date, slot       string
		dateSet, slotSet bool
	)
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "date":
			dateSet = true
			return optString(d, &date)
		case "timeSlot":
			slotSet = true
			return optString(d, &slot)
		default:
			return d.Skip()
		}
	}); err != nil {
		writeError(w, r, err)
		return
	}

	a := booking.SetSchedule{DateSet: dateSet, Slot: slot, SlotSet: slotSet}
	if dateSet && date != "" {
		t, err := time.ParseInLocation(order.DateLayout, date, s.Location())
		if err != nil {
			writeError(w, r, badRequest("date %q: want YYYY-MM-DD", date))
			return
		}
		a.Date = &t
	}
	st, err := s.Dispatch(a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeState(w, http.StatusOK, s, st)
}

func (h *Handler) getSlots(w http.ResponseWriter, r *http.Request) {
	slots := session(r).Slots()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSlots(e, slots)
	})
}

// checkout submits the session cart as an order of the signed-in user. The
// delivery address comes from the user's profile.
func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lg := zctx.From(ctx)
	s := session(r)
	u := user(r)

	var notes string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "notes" {
			return d.Skip()
		}
		return optString(d, &notes)
	}); err != nil {
		writeError(w, r, err)
		return
	}

	req := order.SubmitRequest{Notes: notes}
	if u != nil {
		req.UserID = u.ID
		if md, err := h.Identity.Metadata(ctx, u.ID); err != nil {
			lg.Warn("Load profile metadata failed", zap.Error(err))
		} else {
			req.Address = md.Address
		}
	}

	res, err := h.Orders.Submit(ctx, s, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.CustomerViews.Refresh(ctx, req.UserID); err != nil {
		lg.Debug("Refresh orders after checkout failed", zap.Error(err))
	}

	st := s.Snapshot()
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("order")
		encodeOrder(e, *res.Order, true)
		field(e, "redirect", res.Redirect)
		e.FieldStart("redirectAfterMs")
		e.Int64(res.RedirectAfter.Milliseconds())
		e.FieldStart("session")
		encodeState(e, s.ID(), st, s.Submitting())
		e.ObjEnd()
	})
}

// optString reads a string or null into v.
func optString(d *jx.Decoder, v *string) error {
	if d.Next() == jx.Null {
		*v = ""
		return d.Null()
	}
	s, err := d.Str()
	*v = s
	return err
}
