package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"pharmacart/internal/domain"
	apperrors "pharmacart/internal/errors"
	"pharmacart/internal/infrastructure/web"
)

const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
)

// Principal is the caller identity asserted by the upstream gateway.
type Principal struct {
	UserID int
	Role   string
}

func (p Principal) IsAdmin() bool {
	return p.Role == domain.RoleAdmin
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// Middleware trusts the identity headers set by the gateway and rejects requests
// without a usable user id. A missing role means a regular user.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := strconv.Atoi(r.Header.Get(HeaderUserID))
		if err != nil || userID <= 0 {
			writeAuthError(w, apperrors.NewUnauthorizedError(HeaderUserID+" header must carry a positive user id"))
			return
		}

		role := r.Header.Get(HeaderUserRole)
		if role == "" {
			role = domain.RoleUser
		}

		ctx := WithPrincipal(r.Context(), Principal{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects callers whose principal is not an admin. It must run after
// Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok || !p.IsAdmin() {
			writeAuthError(w, apperrors.NewForbiddenError("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeAuthError answers with the same error envelope the controllers use. The
// middlewares run before any controller, so they log through the global logger.
func writeAuthError(w http.ResponseWriter, err error) {
	traceID := uuid.New().String()
	web.WriteError(w, traceID, err, zap.L().With(zap.String("traceId", traceID)))
}
