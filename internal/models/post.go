package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PostStatus is the closed set of post lifecycle states. Any status may move
// to any other status.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
	StatusArchived  PostStatus = "archived"
)

// ValidPostStatus reports whether s is one of the known statuses.
func ValidPostStatus(s PostStatus) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

const (
	MaxTitleLen   = 100
	MaxContentLen = 1000
)

// Comment is an embedded comment on a post.
type Comment struct {
	UserID    primitive.ObjectID `json:"userId"    bson:"user_id"`
	Username  string             `json:"username"  bson:"username"`
	Text      string             `json:"text"      bson:"text"`
	CreatedAt time.Time          `json:"createdAt" bson:"created_at"`
}

// PostAuthor is the denormalized author summary attached to post responses.
type PostAuthor struct {
	ID       primitive.ObjectID `json:"id"       bson:"id"`
	Username string             `json:"username" bson:"username"`
	Email    string             `json:"email"    bson:"email"`
}

// Post is a blog post document stored in MongoDB. Posts are hard-deleted,
// unlike users.
type Post struct {
	ID        primitive.ObjectID   `json:"id"        bson:"_id,omitempty"`
	Title     string               `json:"title"     bson:"title"`
	Content   string               `json:"content"   bson:"content"`
	Tags      []string             `json:"tags"      bson:"tags"`
	Status    PostStatus           `json:"status"    bson:"status"`
	Author    PostAuthor           `json:"author"    bson:"author"`
	Likes     []primitive.ObjectID `json:"likes"     bson:"likes"`
	Comments  []Comment            `json:"comments"  bson:"comments"`
	CreatedAt time.Time            `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time            `json:"updatedAt" bson:"updated_at"`
}

// CreatePostRequest is the JSON body for POST /api/posts and PUT /api/posts/{id}.
type CreatePostRequest struct {
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Tags    []string   `json:"tags"`
	Status  PostStatus `json:"status"`
}

// Validate returns one message per invalid field. An empty status defaults
// to draft.
func (r *CreatePostRequest) Validate() []string {
	var errs []string
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" || len(r.Title) > MaxTitleLen {
		errs = append(errs, "Title is required and cannot exceed 100 characters")
	}
	if r.Content == "" || len(r.Content) > MaxContentLen {
		errs = append(errs, "Content is required and cannot exceed 1000 characters")
	}
	if r.Status == "" {
		r.Status = StatusDraft
	}
	if !ValidPostStatus(r.Status) {
		errs = append(errs, "Status must be draft, published or archived")
	}
	return errs
}

// CommentRequest is the JSON body for POST /api/posts/{id}/comments.
type CommentRequest struct {
	Text string `json:"text"`
}
