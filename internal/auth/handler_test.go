package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/arjunm/goblog/internal/middleware"
	"github.com/arjunm/goblog/internal/models"
	"github.com/arjunm/goblog/internal/store"
)

// memUserStore is an in-memory UserStore for handler tests.
type memUserStore struct {
	users map[string]*models.User // keyed by hex id
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: map[string]*models.User{}}
}

// Create rejects duplicates the way the unique indexes do.
func (m *memUserStore) Create(_ context.Context, u *models.User) error {
	for _, ex := range m.users {
		if ex.Email == u.Email {
			return store.ErrDuplicateEmail
		}
		if ex.Username == u.Username {
			return store.ErrDuplicateUsername
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID.Hex()] = u
	return nil
}

func (m *memUserStore) GetByID(_ context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUserStore) GetByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUserStore) UpdateLastLogin(_ context.Context, id string) error {
	if u, ok := m.users[id]; ok {
		now := time.Now()
		u.LastLogin = &now
	}
	return nil
}

func newTestHandler(t *testing.T) (*Handler, *memUserStore, *TokenService) {
	t.Helper()
	users := newMemUserStore()
	tokens := NewTokenService([]byte("test-secret"), time.Hour)
	return NewHandler(users, tokens), users, tokens
}

func postJSON(t *testing.T, handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	handler(w, req)
	return w
}

func TestRegister_Success(t *testing.T) {
	h, users, tokens := newTestHandler(t)

	w := postJSON(t, h.Register, `{"username":"alice","email":"Alice@X.com","password":"Passw0rd"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "alice@x.com", resp.User.Email, "email is stored lowercased")
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.True(t, resp.User.IsActive)

	// Password never round-trips to the caller.
	assert.NotContains(t, w.Body.String(), "Passw0rd")
	assert.NotContains(t, w.Body.String(), `"password"`)

	// Stored hash is salted, never the plaintext.
	stored, err := users.GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.NotEqual(t, "Passw0rd", stored.Password)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Passw0rd")))

	// The returned token resolves back to the new user.
	userID, err := tokens.Verify(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, stored.ID.Hex(), userID)
}

func TestRegister_Validation(t *testing.T) {
	h, _, _ := newTestHandler(t)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"short username", `{"username":"ab","email":"a@b.com","password":"secret1"}`, "Username must be between 3 and 20 characters"},
		{"bad email", `{"username":"alice","email":"nope","password":"secret1"}`, "Please enter a valid email"},
		{"short password", `{"username":"alice","email":"a@b.com","password":"abc"}`, "Password must be at least 6 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postJSON(t, h.Register, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestRegister_Duplicates(t *testing.T) {
	h, _, _ := newTestHandler(t)

	w := postJSON(t, h.Register, `{"username":"alice","email":"a@b.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, h.Register, `{"username":"alice2","email":"a@b.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "User already exists with this email")

	w = postJSON(t, h.Register, `{"username":"alice","email":"other@b.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Username is already taken")
}

// racingUserStore simulates a second registration interleaving with the
// first: the existence reads see nothing, so only the insert can catch the
// duplicate.
type racingUserStore struct {
	*memUserStore
}

func (r *racingUserStore) GetByEmail(context.Context, string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func (r *racingUserStore) GetByUsername(context.Context, string) (*models.User, error) {
	return nil, store.ErrNotFound
}

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	users := newMemUserStore()
	tokens := NewTokenService([]byte("test-secret"), time.Hour)
	h := NewHandler(&racingUserStore{users}, tokens)

	w := postJSON(t, h.Register, `{"username":"alice","email":"a@b.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = postJSON(t, h.Register, `{"username":"alice2","email":"a@b.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "User already exists with this email")

	w = postJSON(t, h.Register, `{"username":"alice","email":"other@b.com","password":"secret1"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Username is already taken")

	// Only the first insert landed.
	assert.Len(t, users.users, 1)
}

func TestLogin(t *testing.T) {
	h, users, _ := newTestHandler(t)

	w := postJSON(t, h.Register, `{"username":"alice","email":"a@b.com","password":"secret1"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("success", func(t *testing.T) {
		w := postJSON(t, h.Login, `{"email":"a@b.com","password":"secret1"}`)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Token      string `json:"token"`
			RedirectTo string `json:"redirectTo"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, "/dashboard", resp.RedirectTo)

		stored, err := users.GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		assert.NotNil(t, stored.LastLogin)
	})

	t.Run("admin redirect", func(t *testing.T) {
		stored, err := users.GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		stored.Role = models.RoleAdmin
		defer func() { stored.Role = models.RoleUser }()

		w := postJSON(t, h.Login, `{"email":"a@b.com","password":"secret1"}`)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"redirectTo":"/admin"`)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := postJSON(t, h.Login, `{"email":"a@b.com","password":"wrong"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
	})

	t.Run("unknown email", func(t *testing.T) {
		w := postJSON(t, h.Login, `{"email":"ghost@b.com","password":"secret1"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Invalid credentials")
	})

	t.Run("deactivated account", func(t *testing.T) {
		stored, err := users.GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		stored.IsActive = false
		defer func() { stored.IsActive = true }()

		w := postJSON(t, h.Login, `{"email":"a@b.com","password":"secret1"}`)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "Account is deactivated")
	})
}

// TestRegisterThenMe walks the full flow: register, then use the returned
// bearer token against /me through the real authentication middleware.
func TestRegisterThenMe(t *testing.T) {
	h, users, tokens := newTestHandler(t)

	w := postJSON(t, h.Register, `{"username":"alice","email":"alice@x.com","password":"Passw0rd"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	me := middleware.Authenticate(tokens, users)(http.HandlerFunc(h.Me))
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	rec := httptest.NewRecorder()
	me.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
	assert.NotContains(t, rec.Body.String(), "Passw0rd")
}
