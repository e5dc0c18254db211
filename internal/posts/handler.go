// Package posts implements the public and per-user post endpoints.
package posts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arjunm/goblog/internal/middleware"
	"github.com/arjunm/goblog/internal/models"
	"github.com/arjunm/goblog/internal/store"
	"github.com/arjunm/goblog/internal/web"
)

// PostStore defines the post persistence needed by these handlers.
type PostStore interface {
	Create(ctx context.Context, p *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	Update(ctx context.Context, id string, req models.CreatePostRequest) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	ToggleLike(ctx context.Context, id string, userID primitive.ObjectID) (*models.Post, error)
	AddComment(ctx context.Context, id string, c models.Comment) (*models.Post, error)
	ListVisible(ctx context.Context, viewerID *primitive.ObjectID) ([]models.Post, error)
}

// Handler holds post HTTP handlers.
type Handler struct {
	posts PostStore
}

func NewHandler(posts PostStore) *Handler {
	return &Handler{posts: posts}
}

// List returns published posts; a logged-in caller also sees their own drafts
// and archived posts.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var viewerID *primitive.ObjectID
	if caller, ok := middleware.UserFromContext(r.Context()); ok {
		viewerID = &caller.ID
	}
	posts, err := h.posts.ListVisible(r.Context(), viewerID)
	if err != nil {
		web.ServerError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string][]models.Post{"posts": posts})
}

// Create makes the caller the author of a new post.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		web.ValidationErrors(w, errs)
		return
	}

	post := &models.Post{
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
		Status:  req.Status,
		Author: models.PostAuthor{
			ID:       caller.ID,
			Username: caller.Username,
			Email:    caller.Email,
		},
	}
	if err := h.posts.Create(r.Context(), post); err != nil {
		web.ServerError(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, post)
}

// Get returns one post. Drafts and archived posts are visible only to their
// owner or an admin.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	if post.Status != models.StatusPublished {
		caller, ok := middleware.UserFromContext(r.Context())
		if !ok || !middleware.CanModify(caller, post.Author.ID) {
			web.Message(w, http.StatusNotFound, "Post not found")
			return
		}
	}
	web.JSON(w, http.StatusOK, post)
}

// Update rewrites a post. Owner or admin only.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	post, err := h.posts.GetByID(r.Context(), id)
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	if !middleware.CanModify(caller, post.Author.ID) {
		web.Message(w, http.StatusForbidden, "Access denied")
		return
	}

	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		web.ValidationErrors(w, errs)
		return
	}

	updated, err := h.posts.Update(r.Context(), id, req)
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	web.JSON(w, http.StatusOK, updated)
}

// Delete removes a post permanently. Owner or admin only.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	id := chi.URLParam(r, "id")

	post, err := h.posts.GetByID(r.Context(), id)
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	if !middleware.CanModify(caller, post.Author.ID) {
		web.Message(w, http.StatusForbidden, "Access denied")
		return
	}
	if err := h.posts.Delete(r.Context(), id); err != nil {
		h.notFoundOr500(w, err)
		return
	}
	web.Message(w, http.StatusOK, "Post deleted successfully")
}

// Like toggles the caller's like on a post.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())

	post, err := h.posts.ToggleLike(r.Context(), chi.URLParam(r, "id"), caller.ID)
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	web.JSON(w, http.StatusOK, post)
}

// Comment appends a comment by the caller.
func (h *Handler) Comment(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())

	var req models.CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == "" {
		web.Message(w, http.StatusBadRequest, "Comment text is required")
		return
	}

	comment := models.Comment{
		UserID:    caller.ID,
		Username:  caller.Username,
		Text:      req.Text,
		CreatedAt: time.Now(),
	}
	post, err := h.posts.AddComment(r.Context(), chi.URLParam(r, "id"), comment)
	if err != nil {
		h.notFoundOr500(w, err)
		return
	}
	web.JSON(w, http.StatusCreated, post)
}

func (h *Handler) notFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		web.Message(w, http.StatusNotFound, "Post not found")
		return
	}
	web.ServerError(w, err)
}
