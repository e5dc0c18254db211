package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/arjunm/goblog/internal/models"
)

// PostStore handles post documents in MongoDB. Posts are hard-deleted by
// admin action, unlike users.
type PostStore struct {
	col *mongo.Collection
}

func NewPostStore(db *mongo.Database) *PostStore {
	return &PostStore{col: db.Collection("posts")}
}

func (s *PostStore) Create(ctx context.Context, p *models.Post) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.Likes = []primitive.ObjectID{}
	p.Comments = []models.Comment{}
	res, err := s.col.InsertOne(ctx, p)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	p.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *PostStore) GetByID(ctx context.Context, id string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var p models.Post
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Update rewrites the caller-editable fields of a post.
func (s *PostStore) Update(ctx context.Context, id string, req models.CreatePostRequest) (*models.Post, error) {
	return s.update(ctx, id, bson.M{
		"title":   req.Title,
		"content": req.Content,
		"tags":    req.Tags,
		"status":  req.Status,
	})
}

func (s *PostStore) UpdateStatus(ctx context.Context, id string, status models.PostStatus) (*models.Post, error) {
	return s.update(ctx, id, bson.M{"status": status})
}

func (s *PostStore) update(ctx context.Context, id string, set bson.M) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	set["updated_at"] = time.Now()
	var p models.Post
	err = s.col.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Delete removes a post permanently.
func (s *PostStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ToggleLike adds the user to the like set, or removes them when already
// present. Each update is a single atomic document write.
func (s *PostStore) ToggleLike(ctx context.Context, id string, userID primitive.ObjectID) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	if res.ModifiedCount == 0 {
		// Already liked: unlike.
		if _, err := s.col.UpdateOne(ctx,
			bson.M{"_id": oid},
			bson.M{"$pull": bson.M{"likes": userID}},
		); err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, id)
}

func (s *PostStore) AddComment(ctx context.Context, id string, c models.Comment) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$push": bson.M{"comments": c}},
	)
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// visibleFilter matches published posts, widened to the viewer's own posts in
// any status when a viewer is present.
func visibleFilter(viewerID *primitive.ObjectID) bson.M {
	if viewerID == nil {
		return bson.M{"status": models.StatusPublished}
	}
	return bson.M{"$or": bson.A{
		bson.M{"status": models.StatusPublished},
		bson.M{"author.id": *viewerID},
	}}
}

// ListVisible returns posts readable by the given viewer (nil for anonymous),
// newest first.
func (s *PostStore) ListVisible(ctx context.Context, viewerID *primitive.ObjectID) ([]models.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col.Find(ctx, visibleFilter(viewerID), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// postListFilter builds the admin list filter: case-insensitive substring
// search over title and content, with an optional exact status match.
func postListFilter(p ListParams) bson.M {
	filter := bson.M{}
	if p.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": p.Search, "$options": "i"}},
			bson.M{"content": bson.M{"$regex": p.Search, "$options": "i"}},
		}
	}
	if p.Filter != "" {
		filter["status"] = p.Filter
	}
	return filter
}

// List returns one page of posts for the admin view, newest first, plus the
// filtered total.
func (s *PostStore) List(ctx context.Context, p ListParams) ([]models.Post, int64, error) {
	filter := postListFilter(p)

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

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Recent returns the n most recently created posts.
func (s *PostStore) Recent(ctx context.Context, n int) ([]models.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(n))
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	posts := []models.Post{}
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *PostStore) CountAll(ctx context.Context) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{})
}

func (s *PostStore) CountByStatus(ctx context.Context, status models.PostStatus) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"status": status})
}

func (s *PostStore) CountCreatedSince(ctx context.Context, t time.Time) (int64, error) {
	return s.col.CountDocuments(ctx, bson.M{"created_at": bson.M{"$gte": t}})
}
