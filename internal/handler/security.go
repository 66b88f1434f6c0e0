package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/laundry-booking/internal/domain/identity"
)

// requireUser resolves the bearer session token into the signed-in user.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			writeError(w, r, identity.ErrUnauthenticated)
			return
		}
		user, err := h.Identity.Authenticate(r.Context(), strings.TrimSpace(token))
		if err != nil {
			if !errors.Is(err, identity.ErrUnauthenticated) {
				// The provider is down; treat as signed out but keep a trace.
				zctx.From(r.Context()).Warn("Authenticate failed", zap.Error(err))
			}
			writeError(w, r, identity.ErrUnauthenticated)
			return
		}
		ctx := identity.WithUser(r.Context(), user)
		ctx = zctx.With(ctx, zap.String("user_id", user.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin checks the admin API key header against the configured
// HMAC-SHA256 hashes.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := h.AdminKeys.Verify(r.Header.Get(APIKeyHeader)); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// user returns the user stored by requireUser.
func user(r *http.Request) *identity.User {
	return identity.UserFrom(r.Context())
}
