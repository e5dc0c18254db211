package store

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestParseListParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  ListParams
	}{
		{"empty", "", ListParams{Page: 1, Limit: 10}},
		{"explicit", "page=3&limit=25&search=go&role=admin", ListParams{Page: 3, Limit: 25, Search: "go", Filter: "admin"}},
		{"non-numeric falls back", "page=abc&limit=xyz", ListParams{Page: 1, Limit: 10}},
		{"zero falls back", "page=0&limit=0", ListParams{Page: 1, Limit: 10}},
		{"negative falls back", "page=-2&limit=-5", ListParams{Page: 1, Limit: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ParseListParams(q, "role"))
		})
	}
}

func TestListParams_Skip(t *testing.T) {
	assert.Equal(t, 0, ListParams{Page: 1, Limit: 10}.Skip())
	assert.Equal(t, 40, ListParams{Page: 5, Limit: 10}.Skip())
	assert.Equal(t, 6, ListParams{Page: 3, Limit: 3}.Skip())
}

func TestPaginate(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		limit     int
		wantPages int
	}{
		{"exact multiple", 30, 10, 3},
		{"remainder rounds up", 31, 10, 4},
		{"single partial page", 5, 10, 1},
		{"empty set", 0, 10, 0},
		{"limit one", 7, 1, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Paginate(tt.total, ListParams{Page: 2, Limit: tt.limit})
			assert.Equal(t, tt.wantPages, p.Pages)
			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, 2, p.Current)
			assert.Equal(t, tt.limit, p.Limit)
		})
	}
}

func TestUserListFilter(t *testing.T) {
	t.Run("empty imposes no filter", func(t *testing.T) {
		assert.Equal(t, bson.M{}, userListFilter(ListParams{}))
	})

	t.Run("search matches username and email", func(t *testing.T) {
		got := userListFilter(ListParams{Search: "ali"})
		assert.Equal(t, bson.M{"$or": bson.A{
			bson.M{"username": bson.M{"$regex": "ali", "$options": "i"}},
			bson.M{"email": bson.M{"$regex": "ali", "$options": "i"}},
		}}, got)
	})

	t.Run("role is an exact-match conjunction", func(t *testing.T) {
		got := userListFilter(ListParams{Search: "ali", Filter: "admin"})
		assert.Equal(t, "admin", got["role"])
		assert.Contains(t, got, "$or")
	})
}

func TestPostListFilter(t *testing.T) {
	t.Run("search matches title and content", func(t *testing.T) {
		got := postListFilter(ListParams{Search: "chess"})
		assert.Equal(t, bson.M{"$or": bson.A{
			bson.M{"title": bson.M{"$regex": "chess", "$options": "i"}},
			bson.M{"content": bson.M{"$regex": "chess", "$options": "i"}},
		}}, got)
	})

	t.Run("status filter alone", func(t *testing.T) {
		assert.Equal(t, bson.M{"status": "draft"}, postListFilter(ListParams{Filter: "draft"}))
	})
}
