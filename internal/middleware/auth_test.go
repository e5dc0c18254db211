package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arjunm/goblog/internal/auth"
	"github.com/arjunm/goblog/internal/middleware"
	"github.com/arjunm/goblog/internal/models"
	"github.com/arjunm/goblog/internal/store"
)

type fakeLoader struct {
	users map[string]*models.User
}

func (f *fakeLoader) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func newFixture(t *testing.T) (*auth.TokenService, *fakeLoader, *models.User) {
	t.Helper()
	tokens := auth.NewTokenService([]byte("test-secret"), time.Hour)
	user := &models.User{
		ID:       primitive.NewObjectID(),
		Username: "alice",
		Role:     models.RoleUser,
		IsActive: true,
	}
	loader := &fakeLoader{users: map[string]*models.User{user.ID.Hex(): user}}
	return tokens, loader, user
}

// echoUser responds 200 with the caller's username, or 500 when no identity
// was attached.
func echoUser(w http.ResponseWriter, r *http.Request) {
	u, ok := middleware.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(u.Username))
}

func TestAuthenticate(t *testing.T) {
	tokens, loader, user := newFixture(t)
	handler := middleware.Authenticate(tokens, loader)(http.HandlerFunc(echoUser))

	issue := func(id string) string {
		tok, err := tokens.Issue(id)
		require.NoError(t, err)
		return tok
	}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"missing header", "", http.StatusUnauthorized, "Access token required"},
		{"not bearer", "Basic abc", http.StatusUnauthorized, "Access token required"},
		{"garbage token", "Bearer not.a.jwt", http.StatusForbidden, "Invalid or expired token"},
		{"unknown user", "Bearer " + issue(primitive.NewObjectID().Hex()), http.StatusUnauthorized, "Invalid token"},
		{"success", "Bearer " + issue(user.ID.Hex()), http.StatusOK, "alice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	_, loader, user := newFixture(t)
	expired := auth.NewTokenService([]byte("test-secret"), -time.Minute)
	tok, err := expired.Issue(user.ID.Hex())
	require.NoError(t, err)

	verifier := auth.NewTokenService([]byte("test-secret"), time.Hour)
	handler := middleware.Authenticate(verifier, loader)(http.HandlerFunc(echoUser))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid or expired token")
}

func TestAuthenticate_DeactivatedAccount(t *testing.T) {
	tokens, loader, user := newFixture(t)
	user.IsActive = false
	handler := middleware.Authenticate(tokens, loader)(http.HandlerFunc(echoUser))

	tok, err := tokens.Issue(user.ID.Hex())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Account is deactivated")
}

func TestOptionalAuthenticate(t *testing.T) {
	tokens, loader, user := newFixture(t)

	// Handler reports whether an identity was attached.
	handler := middleware.OptionalAuthenticate(tokens, loader)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.UserFromContext(r.Context()); ok {
			w.Write([]byte("identified"))
			return
		}
		w.Write([]byte("anonymous"))
	}))

	tok, err := tokens.Issue(user.ID.Hex())
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantBody string
	}{
		{"no token", "", "anonymous"},
		{"invalid token", "Bearer junk", "anonymous"},
		{"valid token", "Bearer " + tok, "identified"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.wantBody, w.Body.String())
		})
	}

	t.Run("inactive user stays anonymous", func(t *testing.T) {
		user.IsActive = false
		defer func() { user.IsActive = true }()

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, "anonymous", w.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	tests := []struct {
		name       string
		role       models.Role
		required   []models.Role
		wantStatus int
	}{
		{"admin passes admin gate", models.RoleAdmin, []models.Role{models.RoleAdmin}, http.StatusOK},
		{"user rejected by admin gate", models.RoleUser, []models.Role{models.RoleAdmin}, http.StatusForbidden},
		{"moderator passes multi-role gate", models.RoleModerator, []models.Role{models.RoleAdmin, models.RoleModerator}, http.StatusOK},
		{"user rejected by multi-role gate", models.RoleUser, []models.Role{models.RoleAdmin, models.RoleModerator}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireRole(tt.required...)(ok)
			caller := &models.User{ID: primitive.NewObjectID(), Role: tt.role, IsActive: true}

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(middleware.ContextWithUser(req.Context(), caller))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusForbidden {
				assert.Contains(t, w.Body.String(), "Access denied. Required roles:")
			}
		})
	}

	t.Run("no identity", func(t *testing.T) {
		handler := middleware.RequireRole(models.RoleAdmin)(ok)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestCanModify(t *testing.T) {
	ownerID := primitive.NewObjectID()
	otherID := primitive.NewObjectID()

	owner := &models.User{ID: ownerID, Role: models.RoleUser}
	stranger := &models.User{ID: otherID, Role: models.RoleUser}
	moderator := &models.User{ID: otherID, Role: models.RoleModerator}
	adminUser := &models.User{ID: otherID, Role: models.RoleAdmin}

	assert.True(t, middleware.CanModify(owner, ownerID))
	assert.False(t, middleware.CanModify(stranger, ownerID))
	assert.False(t, middleware.CanModify(moderator, ownerID))
	assert.True(t, middleware.CanModify(adminUser, ownerID))
}
