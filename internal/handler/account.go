package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/laundry-booking/internal/domain/identity"
)

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.Subscriptions.Plans(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ArrStart()
		for _, p := range plans {
			encodePlan(e, p)
		}
		e.ArrEnd()
	})
}

func (h *Handler) mySubscription(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := user(r).ID
	sub, err := h.Subscriptions.Get(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := h.Subscriptions.History(ctx, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("subscription")
		encodeSubscription(e, sub)
		e.FieldStart("history")
		encodeUsage(e, history)
		e.ObjEnd()
	})
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var planID string
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		if key != "planId" {
			return d.Skip()
		}
		return optString(d, &planID)
	}); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.Subscriptions.Subscribe(r.Context(), user(r).ID, planID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		encodeSubscription(e, sub)
	})
}

func (h *Handler) cancelSubscription(w http.ResponseWriter, r *http.Request) {
	if err := h.Subscriptions.Cancel(r.Context(), user(r).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) useCredits(w http.ResponseWriter, r *http.Request) {
	var (
		credits     int
		description string
	)
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "credits":
			v, err := d.Int()
			credits = v
			return err
		case "description":
			return optString(d, &description)
		default:
			return d.Skip()
		}
	}); err != nil {
		writeError(w, r, err)
		return
	}
	sub, err := h.Subscriptions.UseCredits(r.Context(), user(r).ID, credits, description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSubscription(e, sub)
	})
}

func (h *Handler) getMetadata(w http.ResponseWriter, r *http.Request) {
	md, err := h.Identity.Metadata(r.Context(), user(r).ID)
	if err != nil {
		writeError(w, r, upstream("load metadata", err))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeMetadata(e, *md)
	})
}

// updateMetadata validates the profile before anything is sent to the
// identity provider.
func (h *Handler) updateMetadata(w http.ResponseWriter, r *http.Request) {
	var md identity.Metadata
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "phone":
			return optString(d, &md.Phone)
		case "address":
			return optString(d, &md.Address)
		default:
			return d.Skip()
		}
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if err := identity.ValidateMetadata(md); err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Identity.UpdateMetadata(r.Context(), user(r).ID, md); err != nil {
		writeError(w, r, upstream("update metadata", err))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeMetadata(e, md)
	})
}

const msgWrongPassword = "Le mot de passe actuel est incorrect"

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	var p identity.PasswordChange
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		switch key {
		case "currentPassword":
			return optString(d, &p.Current)
		case "newPassword":
			return optString(d, &p.New)
		case "confirmPassword":
			return optString(d, &p.Confirm)
		default:
			return d.Skip()
		}
	}); err != nil {
		writeError(w, r, err)
		return
	}
	if err := identity.ValidatePassword(p); err != nil {
		writeError(w, r, err)
		return
	}
	err := h.Identity.ChangePassword(r.Context(), user(r).ID, p)
	switch {
	case errors.Is(err, identity.ErrWrongPassword):
		writeError(w, r, &identity.ValidationError{
			Fields: map[string]string{"currentPassword": msgWrongPassword},
		})
	case err != nil:
		writeError(w, r, upstream("change password", err))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
