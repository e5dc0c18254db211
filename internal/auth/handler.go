package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/arjunm/goblog/internal/middleware"
	"github.com/arjunm/goblog/internal/models"
	"github.com/arjunm/goblog/internal/store"
	"github.com/arjunm/goblog/internal/web"
)

// UserStore defines the user persistence needed by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string) error
}

// Handler holds auth-related HTTP handlers.
type Handler struct {
	users  UserStore
	tokens *TokenService
}

func NewHandler(users UserStore, tokens *TokenService) *Handler {
	return &Handler{users: users, tokens: tokens}
}

type authResponse struct {
	Token      string       `json:"token"`
	User       *models.User `json:"user"`
	RedirectTo string       `json:"redirectTo,omitempty"`
}

// Register creates a new account with the user role and returns a token.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		web.ValidationErrors(w, errs)
		return
	}
	req.Email = strings.ToLower(req.Email)

	if _, err := h.users.GetByEmail(r.Context(), req.Email); err == nil {
		web.Message(w, http.StatusBadRequest, "User already exists with this email")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		web.ServerError(w, err)
		return
	}
	if _, err := h.users.GetByUsername(r.Context(), req.Username); err == nil {
		web.Message(w, http.StatusBadRequest, "Username is already taken")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		web.ServerError(w, err)
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		web.ServerError(w, err)
		return
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashed),
		Role:     models.RoleUser,
		IsActive: true,
	}
	// The unique indexes still back this up when two registrations race past
	// the reads above.
	if err := h.users.Create(r.Context(), user); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			web.Message(w, http.StatusBadRequest, "User already exists with this email")
		case errors.Is(err, store.ErrDuplicateUsername):
			web.Message(w, http.StatusBadRequest, "Username is already taken")
		default:
			web.ServerError(w, err)
		}
		return
	}

	token, err := h.tokens.Issue(user.ID.Hex())
	if err != nil {
		web.ServerError(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, authResponse{Token: token, User: user})
}

// Login verifies credentials and returns a token plus a role-based redirect
// hint for the client.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), strings.ToLower(req.Email))
	if err != nil {
		// Same message whether the account exists or not.
		web.Message(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		web.Message(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !user.IsActive {
		web.Message(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	if err := h.users.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		log.Printf("update last login: %v", err)
	}

	token, err := h.tokens.Issue(user.ID.Hex())
	if err != nil {
		web.ServerError(w, err)
		return
	}

	redirect := "/dashboard"
	if user.IsAdmin() {
		redirect = "/admin"
	}
	web.JSON(w, http.StatusOK, authResponse{Token: token, User: user, RedirectTo: redirect})
}

// Me returns the authenticated caller.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		web.Message(w, http.StatusUnauthorized, "Access token required")
		return
	}
	web.JSON(w, http.StatusOK, map[string]*models.User{"user": user})
}
