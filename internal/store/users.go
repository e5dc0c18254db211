package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arjunm/goblog/internal/models"
)

// Duplicate-key violations from the unique indexes on the users collection.
var (
	ErrDuplicateEmail    = errors.New("email already taken")
	ErrDuplicateUsername = errors.New("username already taken")
)

// UserStore handles user documents in MongoDB. Users are never hard-deleted:
// deactivation (is_active = false) is the only removal.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection("users")}
}

// EnsureIndexes creates the unique indexes on username and email. Uniqueness
// is enforced here, not by handler pre-checks: concurrent inserts race past
// any read-then-write guard.
func (s *UserStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.Permissions == nil {
		u.Permissions = []string{}
	}
	res, err := s.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "username") {
				return ErrDuplicateUsername
			}
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateProfile replaces the profile fields, leaving the avatar key untouched.
func (s *UserStore) UpdateProfile(ctx context.Context, id string, p models.Profile) (*models.User, error) {
	return s.update(ctx, id, bson.M{
		"profile.first_name": p.FirstName,
		"profile.last_name":  p.LastName,
		"profile.bio":        p.Bio,
	})
}

func (s *UserStore) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	return s.update(ctx, id, bson.M{"role": role})
}

// SetActive activates or deactivates an account. Soft deletion is
// SetActive(id, false).
func (s *UserStore) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	return s.update(ctx, id, bson.M{"is_active": active})
}

func (s *UserStore) SetAvatarKey(ctx context.Context, id, key string) (*models.User, error) {
	return s.update(ctx, id, bson.M{"profile.avatar_key": key})
}

func (s *UserStore) UpdateLastLogin(ctx context.Context, id string) error {
	_, err := s.update(ctx, id, bson.M{"last_login": time.Now()})
	return err
}

// update applies a single atomic $set and returns the updated document.
func (s *UserStore) update(ctx context.Context, id string, set bson.M) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	set["updated_at"] = time.Now()
	var u models.User
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// userListFilter builds the admin list filter: case-insensitive substring
// search over username and email, with an optional exact role match.
func userListFilter(p ListParams) bson.M {
	filter := bson.M{}
	if p.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"username": bson.M{"$regex": p.Search, "$options": "i"}},
			bson.M{"email": bson.M{"$regex": p.Search, "$options": "i"}},
		}
	}
	if p.Filter != "" {
		filter["role"] = p.Filter
	}
	return filter
}

// List returns one page of users, newest first, plus the filtered total.
func (s *UserStore) List(ctx context.Context, p ListParams) ([]models.User, int64, error) {
	filter := userListFilter(p)

	total, err := s.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(p.Skip())).
		SetLimit(int64(p.Limit))
	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Recent returns the n most recently created users.
func (s *UserStore) Recent(ctx context.Context, n int) ([]models.User, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(n))
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	users := []models.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *UserStore) CountAll(ctx context.Context) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{})
}

func (s *UserStore) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"role": role})
}

func (s *UserStore) CountCreatedSince(ctx context.Context, t time.Time) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": t}})
}

// HasAdmin reports whether any admin account exists, used by startup seeding.
func (s *UserStore) HasAdmin(ctx context.Context) (bool, error) {
	n, err := s.col.CountDocuments(ctx, bson.M{"role": models.RoleAdmin})
	return n > 0, err
}
