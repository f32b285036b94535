package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/api/response"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/domain"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/token"
)

// TokenCookie is the cookie the login endpoint sets.
const TokenCookie = "token"

type ctxKey int

const identityKey ctxKey = iota

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	ID       string
	Email    string
	Username string
	Role     domain.Role
}

func IdentityFrom(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok
}

// UserID returns the caller id or "" for anonymous requests.
func UserID(ctx context.Context) string {
	if id, ok := IdentityFrom(ctx); ok {
		return id.ID
	}
	return ""
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

type Authenticator struct {
	tokens *token.Manager
}

func NewAuthenticator(tokens *token.Manager) *Authenticator {
	return &Authenticator{tokens: tokens}
}

// tokenFrom prefers the Authorization header and falls back to the cookie.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

func (a *Authenticator) identify(r *http.Request) (*Identity, bool) {
	raw := tokenFrom(r)
	if raw == "" {
		return nil, false
	}
	claims, err := a.tokens.Parse(raw)
	if err != nil {
		return nil, false
	}
	return &Identity{
		ID:       claims.ID,
		Email:    claims.Email,
		Username: claims.Username,
		Role:     domain.Role(claims.Role),
	}, true
}

func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if tokenFrom(r) == "" {
			response.Fail(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		id, ok := a.identify(r)
		if !ok {
			response.Fail(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the identity when a valid token is present and lets
// anonymous requests through otherwise.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, ok := a.identify(r); ok {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				response.Fail(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Fail(w, http.StatusForbidden, "Insufficient permissions")
		})
	}
}
