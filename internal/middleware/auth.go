package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"booking-api/internal/logger"
	"booking-api/internal/model"
)

type ctxKey string

const principalKey ctxKey = "principal"

// Authenticator resolves a bearer token to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*model.User, error)
}

// Principal returns the authenticated user of the request, or nil.
func Principal(ctx context.Context) *model.User {
	u, _ := ctx.Value(principalKey).(*model.User)
	return u
}

func WithPrincipal(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, principalKey, u)
}

// Auth rejects requests without a valid "Authorization: Bearer <jwt>"
// header and stores the resolved user on the request context.
func Auth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r.Header.Get("Authorization"))
			if raw == "" {
				unauthorized(w, "Authentication credentials were not provided.")
				return
			}
			u, err := a.Authenticate(r.Context(), raw)
			if err != nil {
				if status.Code(err) != codes.Unauthenticated {
					logger.FromContext(r.Context()).Error("authenticate", zap.Error(err))
					writeDetail(w, http.StatusInternalServerError, "internal error")
					return
				}
				unauthorized(w, status.Convert(err).Message())
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), u)))
		})
	}
}

// bearer accepts both "Bearer" and the "Token" scheme older clients send.
func bearer(h string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(h), " ")
	if !ok {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "bearer", "token":
		return strings.TrimSpace(tok)
	}
	return ""
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	writeDetail(w, http.StatusUnauthorized, detail)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
