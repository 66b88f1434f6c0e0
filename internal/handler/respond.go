package handler

import (
	"io"
	"net/http"
	"sort"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/laundry-booking/internal/domain/auth"
	"github.com/xenking/laundry-booking/internal/domain/booking"
	"github.com/xenking/laundry-booking/internal/domain/catalog"
	"github.com/xenking/laundry-booking/internal/domain/identity"
	"github.com/xenking/laundry-booking/internal/domain/order"
	"github.com/xenking/laundry-booking/internal/domain/subscription"
	"github.com/xenking/laundry-booking/internal/orderview"
)

const maxBodySize = 1 << 20

// errBadRequest marks a malformed request body or parameter.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return errors.Wrapf(errBadRequest, format, args...)
}

// upstreamError is a failed call to the Order API or the identity provider.
type upstreamError struct {
	op  string
	err error
}

func (e *upstreamError) Error() string { return e.op + ": " + e.err.Error() }

func (e *upstreamError) Unwrap() error { return e.err }

func upstream(op string, err error) error {
	return &upstreamError{op: op, err: err}
}

// writeJSON encodes a response body with fn.
func writeJSON(w http.ResponseWriter, status int, fn func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	fn(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// sentinels maps domain errors to status codes. The sentinel's own message
// is what the user sees.
var sentinels = []struct {
	err    error
	status int
}{
	{order.ErrNoUser, http.StatusUnauthorized},
	{identity.ErrUnauthenticated, http.StatusUnauthorized},
	{auth.ErrUnauthorized, http.StatusUnauthorized},

	{booking.ErrSessionNotFound, http.StatusNotFound},
	{catalog.ErrNotFound, http.StatusNotFound},
	{subscription.ErrPlanNotFound, http.StatusNotFound},
	{subscription.ErrNoSubscription, http.StatusNotFound},

	{booking.ErrInvalidStep, http.StatusUnprocessableEntity},
	{booking.ErrUnknownSlot, http.StatusUnprocessableEntity},
	{order.ErrInvalidStatus, http.StatusUnprocessableEntity},
	{subscription.ErrInvalidCredits, http.StatusUnprocessableEntity},

	{order.ErrEmptyCart, http.StatusConflict},
	{booking.ErrEmptySelection, http.StatusConflict},
	{booking.ErrNoDate, http.StatusConflict},
	{booking.ErrDateInPast, http.StatusConflict},
	{booking.ErrSlotPassed, http.StatusConflict},
	{booking.ErrSubmissionInFlight, http.StatusConflict},
	{orderview.ErrSaveInProgress, http.StatusConflict},
	{subscription.ErrInsufficientCredits, http.StatusConflict},
}

// statusOf maps an error to a status code and the message shown to the user.
func statusOf(err error) (int, string) {
	var (
		validation *identity.ValidationError
		submit     *order.SubmitError
		update     *orderview.UpdateError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusUnprocessableEntity, "validation failed"
	case errors.As(err, &submit):
		return http.StatusBadGateway, submit.Error()
	case errors.As(err, &update):
		return http.StatusBadGateway, update.Error()
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.status, s.err.Error()
		}
	}
	var up *upstreamError
	if errors.As(err, &up) {
		return http.StatusBadGateway, "upstream service unavailable"
	}
	return http.StatusInternalServerError, "internal error"
}

// writeError writes {"error": message} and, for validation failures, the
// per-field messages.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusOf(err)
	lg := zctx.From(r.Context())
	if status >= http.StatusInternalServerError {
		lg.Error("Request failed", zap.Error(err))
	} else {
		lg.Debug("Request refused", zap.Int("status", status), zap.Error(err))
	}

	var validation *identity.ValidationError
	errors.As(err, &validation)

	writeJSON(w, status, func(e *jx.Encoder) {
		e.ObjStart()
		e.FieldStart("error")
		e.Str(msg)
		if validation != nil {
			e.FieldStart("fields")
			encodeStringMap(e, validation.Fields)
		}
		e.ObjEnd()
	})
}

func encodeStringMap(e *jx.Encoder, m map[string]string) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	e.ObjStart()
	for _, k := range keys {
		e.FieldStart(k)
		e.Str(m[k])
	}
	e.ObjEnd()
}

// decodeBody walks the fields of a JSON object body. An empty body is an
// empty object.
func decodeBody(r *http.Request, field func(d *jx.Decoder, key string) error) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return badRequest("read body: %v", err)
	}
	if len(raw) == 0 {
		return nil
	}
	if err := jx.DecodeBytes(raw).Obj(field); err != nil {
		return badRequest("decode body: %v", err)
	}
	return nil
}
