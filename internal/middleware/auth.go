// Package middleware implements the per-request access-control pipeline:
// identity resolution from a bearer token, then pure role and ownership
// predicates over the resolved caller.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arjunm/goblog/internal/models"
	"github.com/arjunm/goblog/internal/web"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// UserLoader fetches a user by id.
type UserLoader interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type ctxKey struct{}

// UserFromContext returns the caller resolved by Authenticate. Handlers behind
// Authenticate can rely on ok being true.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok
}

// ContextWithUser returns a context carrying the resolved caller.
func ContextWithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// withUser attaches the resolved caller to the request context.
func withUser(r *http.Request, u *models.User) *http.Request {
	return r.WithContext(ContextWithUser(r.Context(), u))
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}

// resolveUser verifies the token and loads an active user. The int is the
// status to reject with; 0 means success.
func resolveUser(r *http.Request, tokens TokenVerifier, users UserLoader) (*models.User, int, string) {
	token := bearerToken(r)
	if token == "" {
		return nil, http.StatusUnauthorized, "Access token required"
	}
	userID, err := tokens.Verify(token)
	if err != nil {
		return nil, http.StatusForbidden, "Invalid or expired token"
	}
	user, err := users.GetByID(r.Context(), userID)
	if err != nil {
		return nil, http.StatusUnauthorized, "Invalid token"
	}
	if !user.IsActive {
		return nil, http.StatusUnauthorized, "Account is deactivated"
	}
	return user, 0, ""
}

// Authenticate rejects requests without a valid token and active account,
// and attaches the resolved user to the context otherwise.
func Authenticate(tokens TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, status, msg := resolveUser(r, tokens, users)
			if user == nil {
				web.Message(w, status, msg)
				return
			}
			next.ServeHTTP(w, withUser(r, user))
		})
	}
}

// OptionalAuthenticate attaches the caller when a valid token is presented
// and silently continues without identity on any failure. Used on read
// endpoints that personalize output for logged-in users.
func OptionalAuthenticate(tokens TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user, _, _ := resolveUser(r, tokens, users); user != nil {
				r = withUser(r, user)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole gates a route to the given roles. Must run after Authenticate;
// the check is a pure predicate over the resolved caller.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	msg := "Access denied. Required roles: " + strings.Join(names, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				web.Message(w, http.StatusUnauthorized, "Access token required")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			web.Message(w, http.StatusForbidden, msg)
		})
	}
}

// CanModify reports whether the caller may mutate a resource owned by
// ownerID: admins always, everyone else only their own resources.
func CanModify(caller *models.User, ownerID primitive.ObjectID) bool {
	return caller.IsAdmin() || caller.ID == ownerID
}
