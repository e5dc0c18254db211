// Package admin implements the admin dashboard and management endpoints. All
// routes are mounted behind Authenticate + RequireRole(admin). Every mutation
// here is recorded in the audit log.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arjunm/goblog/internal/middleware"
	"github.com/arjunm/goblog/internal/models"
	"github.com/arjunm/goblog/internal/store"
	"github.com/arjunm/goblog/internal/web"
)

const (
	dashboardCacheKey = "admin:dashboard"
	dashboardCacheTTL = 60 * time.Second
)

// UserStore defines the user persistence needed by the admin handlers.
type UserStore interface {
	List(ctx context.Context, p store.ListParams) ([]models.User, int64, error)
	Recent(ctx context.Context, n int) ([]models.User, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) (*models.User, error)
	CountAll(ctx context.Context) (int64, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	CountCreatedSince(ctx context.Context, t time.Time) (int64, error)
}

// PostStore defines the post persistence needed by the admin handlers.
type PostStore interface {
	List(ctx context.Context, p store.ListParams) ([]models.Post, int64, error)
	Recent(ctx context.Context, n int) ([]models.Post, error)
	UpdateStatus(ctx context.Context, id string, status models.PostStatus) (*models.Post, error)
	Delete(ctx context.Context, id string) error
	CountAll(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status models.PostStatus) (int64, error)
	CountCreatedSince(ctx context.Context, t time.Time) (int64, error)
}

// Auditor records admin actions.
type Auditor interface {
	Record(ctx context.Context, actorID, action, targetType, targetID, detail string) error
	List(ctx context.Context, limit, offset int) ([]store.AuditEntry, int64, error)
}

// Cache holds the dashboard response between recomputations.
type Cache interface {
	GetJSON(ctx context.Context, key string, v interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// Handler holds the admin HTTP handlers. audit and cache may be nil, in which
// case those features are skipped.
type Handler struct {
	users UserStore
	posts PostStore
	audit Auditor
	cache Cache
}

func NewHandler(users UserStore, posts PostStore, audit Auditor, cache Cache) *Handler {
	return &Handler{users: users, posts: posts, audit: audit, cache: cache}
}

// record writes an audit entry; failures are logged, never surfaced.
func (h *Handler) record(ctx context.Context, caller *models.User, action, targetType, targetID, detail string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.Record(ctx, caller.ID.Hex(), action, targetType, targetID, detail); err != nil {
		log.Printf("audit %s: %v", action, err)
	}
}

type dashboardStats struct {
	TotalUsers       int64 `json:"totalUsers"`
	TotalAdmins      int64 `json:"totalAdmins"`
	TotalPosts       int64 `json:"totalPosts"`
	PublishedPosts   int64 `json:"publishedPosts"`
	DraftPosts       int64 `json:"draftPosts"`
	NewUsersThisWeek int64 `json:"newUsersThisWeek"`
	NewPostsThisWeek int64 `json:"newPostsThisWeek"`
}

type dashboardResponse struct {
	Statistics  dashboardStats `json:"statistics"`
	RecentUsers []models.User  `json:"recentUsers"`
	RecentPosts []models.Post  `json:"recentPosts"`
}

// Dashboard returns aggregate statistics plus the five most recent users and
// posts. The response is cached for a minute.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.cache != nil {
		var cached dashboardResponse
		hit, err := h.cache.GetJSON(ctx, dashboardCacheKey, &cached)
		if err != nil {
			log.Printf("dashboard cache get: %v", err)
		}
		if hit {
			web.JSON(w, http.StatusOK, cached)
			return
		}
	}

	var (
		resp dashboardResponse
		err  error
	)
	weekAgo := time.Now().AddDate(0, 0, -7)

	if resp.Statistics.TotalUsers, err = h.users.CountAll(ctx); err != nil {
		web.ServerError(w, err)
		return
	}
	if resp.Statistics.TotalAdmins, err = h.users.CountByRole(ctx, models.RoleAdmin); err != nil {
		web.ServerError(w, err)
		return
	}
	if resp.Statistics.TotalPosts, err = h.posts.CountAll(ctx); err != nil {
		web.ServerError(w, err)
		return
	}
	if resp.Statistics.PublishedPosts, err = h.posts.CountByStatus(ctx, models.StatusPublished); err != nil {
		web.ServerError(w, err)
		return
	}
	if resp.Statistics.DraftPosts, err = h.posts.CountByStatus(ctx, models.StatusDraft); err != nil {
		web.ServerError(w, err)
		return
	}
	if resp.Statistics.NewUsersThisWeek, err = h.users.CountCreatedSince(ctx, weekAgo); err != nil {
		web.ServerError(w, err)
		return
	}
	if resp.Statistics.NewPostsThisWeek, err = h.posts.CountCreatedSince(ctx, weekAgo); err != nil {
		web.ServerError(w, err)
		return
	}
	if resp.RecentUsers, err = h.users.Recent(ctx, 5); err != nil {
		web.ServerError(w, err)
		return
	}
	if resp.RecentPosts, err = h.posts.Recent(ctx, 5); err != nil {
		web.ServerError(w, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.SetJSON(ctx, dashboardCacheKey, resp, dashboardCacheTTL); err != nil {
			log.Printf("dashboard cache set: %v", err)
		}
	}
	web.JSON(w, http.StatusOK, resp)
}

// ListUsers returns one page of users with search and role filtering.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	params := store.ParseListParams(r.URL.Query(), "role")
	users, total, err := h.users.List(r.Context(), params)
	if err != nil {
		web.ServerError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]interface{}{
		"users":      users,
		"pagination": store.Paginate(total, params),
	})
}

// UpdateUserRole changes a user's role. Admins cannot retarget themselves.
func (h *Handler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	var req struct {
		Role models.Role `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	// The role endpoint only ever switches between user and admin.
	if req.Role != models.RoleUser && req.Role != models.RoleAdmin {
		web.ValidationErrors(w, []string{"Role must be user or admin"})
		return
	}
	if targetID == caller.ID.Hex() {
		web.Message(w, http.StatusBadRequest, "Cannot change your own role")
		return
	}

	user, err := h.users.UpdateRole(r.Context(), targetID, req.Role)
	if err != nil {
		h.userNotFoundOr500(w, err)
		return
	}
	h.record(r.Context(), caller, "user.role_update", "user", targetID, string(req.Role))
	web.JSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("User role updated to %s", req.Role),
		"user":    user,
	})
}

// UpdateUserStatus activates or deactivates a user. Admins cannot retarget
// themselves.
func (h *Handler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	var req struct {
		IsActive *bool `json:"isActive"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
		web.ValidationErrors(w, []string{"isActive must be boolean"})
		return
	}
	if targetID == caller.ID.Hex() {
		web.Message(w, http.StatusBadRequest, "Cannot change your own status")
		return
	}

	user, err := h.users.SetActive(r.Context(), targetID, *req.IsActive)
	if err != nil {
		h.userNotFoundOr500(w, err)
		return
	}

	verb := "deactivated"
	if *req.IsActive {
		verb = "activated"
	}
	h.record(r.Context(), caller, "user.status_update", "user", targetID, verb)
	web.JSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("User %s successfully", verb),
		"user":    user,
	})
}

// DeleteUser soft-deletes a user by deactivating the account. Users are never
// hard-deleted.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	if targetID == caller.ID.Hex() {
		web.Message(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}

	if _, err := h.users.SetActive(r.Context(), targetID, false); err != nil {
		h.userNotFoundOr500(w, err)
		return
	}
	h.record(r.Context(), caller, "user.soft_delete", "user", targetID, "")
	web.Message(w, http.StatusOK, "User deactivated successfully")
}

// ListPosts returns one page of posts with search and status filtering.
func (h *Handler) ListPosts(w http.ResponseWriter, r *http.Request) {
	params := store.ParseListParams(r.URL.Query(), "status")
	posts, total, err := h.posts.List(r.Context(), params)
	if err != nil {
		web.ServerError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]interface{}{
		"posts":      posts,
		"pagination": store.Paginate(total, params),
	})
}

// UpdatePostStatus moves a post to any of the three statuses.
func (h *Handler) UpdatePostStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	var req struct {
		Status models.PostStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !models.ValidPostStatus(req.Status) {
		web.ValidationErrors(w, []string{"Invalid status"})
		return
	}

	post, err := h.posts.UpdateStatus(r.Context(), targetID, req.Status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			web.Message(w, http.StatusNotFound, "Post not found")
			return
		}
		web.ServerError(w, err)
		return
	}
	h.record(r.Context(), caller, "post.status_update", "post", targetID, string(req.Status))
	web.JSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("Post status updated to %s", req.Status),
		"post":    post,
	})
}

// DeletePost removes the post document entirely.
func (h *Handler) DeletePost(w http.ResponseWriter, r *http.Request) {
	caller, _ := middleware.UserFromContext(r.Context())
	targetID := chi.URLParam(r, "id")

	if err := h.posts.Delete(r.Context(), targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			web.Message(w, http.StatusNotFound, "Post not found")
			return
		}
		web.ServerError(w, err)
		return
	}
	h.record(r.Context(), caller, "post.delete", "post", targetID, "")
	web.Message(w, http.StatusOK, "Post deleted successfully")
}

// ListAudit returns one page of recorded admin actions, newest first.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		web.Message(w, http.StatusNotFound, "Audit log not configured")
		return
	}
	params := store.ParseListParams(r.URL.Query(), "")
	entries, total, err := h.audit.List(r.Context(), params.Limit, params.Skip())
	if err != nil {
		web.ServerError(w, err)
		return
	}
	web.JSON(w, http.StatusOK, map[string]interface{}{
		"entries":    entries,
		"pagination": store.Paginate(total, params),
	})
}

func (h *Handler) userNotFoundOr500(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		web.Message(w, http.StatusNotFound, "User not found")
		return
	}
	web.ServerError(w, err)
}
