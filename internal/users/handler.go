// Package users implements public profile and self-service profile endpoints.
package users

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/arjunm/goblog/internal/middleware"
	"github.com/arjunm/goblog/internal/models"
	"github.com/arjunm/goblog/internal/store"
	"github.com/arjunm/goblog/internal/web"
)

// maxAvatarSize caps avatar uploads at 5 MiB.
const maxAvatarSize = 5 << 20

// UserStore defines the user persistence needed by these handlers.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, p models.Profile) (*models.User, error)
	SetAvatarKey(ctx context.Context, id, key string) (*models.User, error)
}

// FileStore defines the avatar object storage.
type FileStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, string, error)
	Remove(ctx context.Context, key string) error
}

// Handler holds user HTTP handlers.
type Handler struct {
	users   UserStore
	avatars FileStore
}

func NewHandler(users UserStore, avatars FileStore) *Handler {
	return &Handler{users: users, avatars: avatars}
}

// Get returns a public profile. Password and admin notes never appear in the
// serialized form.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			web.Message(w, http.StatusNotFound, "User not found")
			return
		}
		web.ServerError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

// UpdateMe updates the caller's profile fields. Role and active flag are not
// reachable from here.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())

	var req models.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Bio) > 500 {
		web.Message(w, http.StatusBadRequest, "Bio cannot exceed 500 characters")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), caller.ID.Hex(), models.Profile{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Bio:       req.Bio,
	})
	if err != nil {
		web.ServerError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

// UploadAvatar stores a multipart "avatar" file in MinIO and points the
// caller's profile at it, removing the previous object.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())

	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		web.Message(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	file, header, err := r.FormFile("avatar")
	if err != nil {
		web.Message(w, http.StatusBadRequest, "Avatar file is required")
		return
	}
	defer file.Close()

	// Read one byte past the cap so an oversized file is rejected rather
	// than truncated.
	data, err := io.ReadAll(io.LimitReader(file, maxAvatarSize+1))
	if err != nil {
		web.ServerError(w, err)
		return
	}
	if len(data) > maxAvatarSize {
		web.Message(w, http.StatusBadRequest, "Avatar cannot exceed 5MB")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := "avatars/" + uuid.New().String()
	if err := h.avatars.Upload(r.Context(), key, data, contentType); err != nil {
		web.ServerError(w, err)
		return
	}

	old := caller.Profile.AvatarKey
	user, err := h.users.SetAvatarKey(r.Context(), caller.ID.Hex(), key)
	if err != nil {
		web.ServerError(w, err)
		return
	}
	if old != "" {
		if err := h.avatars.Remove(r.Context(), old); err != nil {
			log.Printf("remove old avatar %s: %v", old, err)
		}
	}
	web.JSON(w, http.StatusOK, map[string]*models.User{"user": user})
}

// Avatar streams a user's avatar from MinIO.
func (h *Handler) Avatar(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			web.Message(w, http.StatusNotFound, "Avatar not found")
			return
		}
		web.ServerError(w, err)
		return
	}
	if user.Profile.AvatarKey == "" {
		web.Message(w, http.StatusNotFound, "Avatar not found")
		return
	}

	data, contentType, err := h.avatars.Download(r.Context(), user.Profile.AvatarKey)
	if err != nil {
		web.ServerError(w, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}
