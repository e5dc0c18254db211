package models

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// Known permission names. They are stored and returned on admin accounts but
// authorization decisions only ever look at the role.
const (
	PermManageUsers    = "manage_users"
	PermManageContent  = "manage_content"
	PermViewReports    = "view_reports"
	PermManageSettings = "manage_settings"
)

// AllPermissions is the full permission set granted to the seeded admin.
var AllPermissions = []string{PermManageUsers, PermManageContent, PermViewReports, PermManageSettings}

// Profile is the optional public-facing part of a user account.
type Profile struct {
	FirstName string `json:"firstName,omitempty" bson:"first_name,omitempty"`
	LastName  string `json:"lastName,omitempty"  bson:"last_name,omitempty"`
	Bio       string `json:"bio,omitempty"       bson:"bio,omitempty"`
	AvatarKey string `json:"-"                   bson:"avatar_key,omitempty"`
}

// User is an account document stored in MongoDB. Password and AdminNotes are
// never serialized to JSON; "deleting" a user only clears IsActive.
type User struct {
	ID          primitive.ObjectID `json:"id"          bson:"_id,omitempty"`
	Username    string             `json:"username"    bson:"username"`
	Email       string             `json:"email"       bson:"email"`
	Password    string             `json:"-"           bson:"password"`
	Role        Role               `json:"role"        bson:"role"`
	Permissions []string           `json:"permissions" bson:"permissions"`
	Profile     Profile            `json:"profile"     bson:"profile"`
	IsActive    bool               `json:"isActive"    bson:"is_active"`
	AdminNotes  string             `json:"-"           bson:"admin_notes,omitempty"`
	LastLogin   *time.Time         `json:"lastLogin,omitempty" bson:"last_login,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"   bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt"   bson:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

var emailRe = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// RegisterRequest is the JSON body for POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate returns one message per invalid field, empty when the request is fine.
// Email comparison is case-insensitive: callers should store strings.ToLower(Email).
func (r *RegisterRequest) Validate() []string {
	var errs []string
	r.Username = strings.TrimSpace(r.Username)
	if n := utf8.RuneCountInString(r.Username); n < 3 || n > 20 {
		errs = append(errs, "Username must be between 3 and 20 characters")
	}
	if !emailRe.MatchString(strings.ToLower(r.Email)) {
		errs = append(errs, "Please enter a valid email")
	}
	if len(r.Password) < 6 {
		errs = append(errs, "Password must be at least 6 characters")
	}
	return errs
}

// LoginRequest is the JSON body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the JSON body for PUT /api/users/me.
type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Bio       string `json:"bio"`
}
