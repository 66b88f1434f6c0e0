package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/laundry-booking/internal/domain/dashboard"
	"github.com/xenking/laundry-booking/internal/domain/order"
	"github.com/xenking/laundry-booking/internal/orderview"
)

// listQuery reads ?status=&q=&expand=.
func listQuery(r *http.Request) (order.Filter, string, error) {
	q := r.URL.Query()
	f, err := order.ParseFilter(q.Get("status"), q.Get("q"))
	if err != nil {
		return order.Filter{}, "", err
	}
	return f, q.Get("expand"), nil
}

// renderList writes the snapshot through the list query. A failed fetch is
// part of the view, not an HTTP error.
func renderList(w http.ResponseWriter, r *http.Request, snap orderview.Snapshot, saving map[string]bool) {
	f, expand, err := listQuery(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := orderview.Render(snap, f, expand)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeView(e, v, saving)
	})
}

func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	snap, err := h.CustomerViews.Get(r.Context(), user(r).ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	renderList(w, r, snap, nil)
}

func (h *Handler) refreshMyOrders(w http.ResponseWriter, r *http.Request) {
	snap, err := h.CustomerViews.Refresh(r.Context(), user(r).ID)
	if err != nil && !snap.Loaded {
		writeError(w, r, err)
		return
	}
	renderList(w, r, snap, nil)
}

func (h *Handler) myDashboard(w http.ResponseWriter, r *http.Request) {
	ov := h.Dashboard.Load(r.Context(), user(r).ID)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeOverview(e, ov)
	})
}

func (h *Handler) adminOrders(w http.ResponseWriter, r *http.Request) {
	snap, err := h.AdminBoard.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	renderList(w, r, snap, h.AdminBoard.SavingIDs())
}

func (h *Handler) refreshAdminOrders(w http.ResponseWriter, r *http.Request) {
	snap, err := h.AdminBoard.Refresh(r.Context())
	if err != nil && !snap.Loaded {
		writeError(w, r, err)
		return
	}
	renderList(w, r, snap, h.AdminBoard.SavingIDs())
}

// updateAdminOrder applies a partial edit. Only status, deliveryDate and
// deliveryTime are accepted; the response is the refetched list with the
// edited order expanded.
func (h *Handler) updateAdminOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var u order.Update
	if err := decodeBody(r, func(d *jx.Decoder, key string) error {
		var v string
		switch key {
		case "status":
			if err := optString(d, &v); err != nil {
				return err
			}
			s := order.Status(v)
			u.Status = &s
		case "deliveryDate":
			if err := optString(d, &v); err != nil {
				return err
			}
			u.DeliveryDate = &v
		case "deliveryTime":
			if err := optString(d, &v); err != nil {
				return err
			}
			u.DeliveryTime = &v
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		writeError(w, r, err)
		return
	}

	snap, err := h.AdminBoard.Update(r.Context(), id, u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	zctx.From(r.Context()).Info("Admin order update", zap.String("order_id", id))

	v := orderview.Render(snap, order.Filter{}, id)
	saving := h.AdminBoard.SavingIDs()
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeView(e, v, saving)
	})
}

func (h *Handler) adminSummary(w http.ResponseWriter, r *http.Request) {
	snap, err := h.AdminBoard.Snapshot(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	s := dashboard.Summarize(snap.Orders, h.now(), h.loc)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		encodeSummary(e, s)
	})
}
