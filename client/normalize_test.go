package client

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &m))
	return m
}

func TestNormalizePost_Aliases(t *testing.T) {
	p := NormalizePost(raw(t, `{
		"id": "42", "title": "Hi", "content": "Hello", "autor": "alice",
		"categoria": "Tech", "likes": 3,
		"comments": [{"id": 7, "comment": "Nice", "user": "bob"}]
	}`))

	assert.Equal(t, int64(42), p.ID)
	assert.False(t, p.Synthetic)
	assert.Equal(t, "Hello", p.Body)
	assert.Equal(t, "alice", p.Author)
	assert.Equal(t, "Tech", p.Category)
	assert.Equal(t, 3, p.Likes)
	require.Len(t, p.Comments, 1)
	assert.Equal(t, "Nice", p.Comments[0].Text)
	assert.Equal(t, "bob", p.Comments[0].Author)
	assert.Equal(t, int64(42), p.Comments[0].PostID)
}

func TestNormalizePost_Defaults(t *testing.T) {
	p := NormalizePost(map[string]interface{}{"likes": -4})

	assert.True(t, p.Synthetic)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "", p.Title)
	assert.Equal(t, "", p.Body)
	assert.Equal(t, Anonymous, p.Author)
	assert.Equal(t, "Geral", p.Category)
	assert.Equal(t, 0, p.Likes)
	assert.NotNil(t, p.Comments)
	assert.Empty(t, p.Comments)
}

func TestNormalizePost_SyntheticIDsAreUnique(t *testing.T) {
	seen := map[int64]bool{}
	for i := 0; i < 100; i++ {
		p := NormalizePost(map[string]interface{}{"title": "x"})
		assert.False(t, seen[p.ID])
		seen[p.ID] = true
	}
}

func TestNormalizePost_Idempotent(t *testing.T) {
	in := raw(t, `{"title":"T","body":"B","author":"a","comments":[{"text":"c"}]}`)
	a, b := NormalizePost(in), NormalizePost(in)

	assert.NotEqual(t, a.ID, b.ID)
	a.ID, b.ID = 0, 0
	for i := range a.Comments {
		a.Comments[i].ID, b.Comments[i].ID = 0, 0
		a.Comments[i].PostID, b.Comments[i].PostID = 0, 0
	}
	assert.Equal(t, a, b)

	withID := raw(t, `{"id":5,"title":"T","created_at":"2024-03-01T10:00:00Z"}`)
	assert.Equal(t, NormalizePost(withID), NormalizePost(withID))
}

func TestNormalizePost_Timestamps(t *testing.T) {
	p := NormalizePost(raw(t, `{"id":1,"createdAt":"2024-03-01T10:00:00Z"}`))
	assert.True(t, p.CreatedAt.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	ms := int64(1700000000000)
	p = NormalizePost(map[string]interface{}{"id": float64(ms)})
	assert.Equal(t, ms, p.ID)
	assert.Equal(t, ms, p.CreatedAt.UnixMilli())

	p = NormalizePost(map[string]interface{}{"id": 3})
	assert.True(t, p.CreatedAt.IsZero())
}

func TestNormalizeComment_PostIDAlias(t *testing.T) {
	c := NormalizeComment(raw(t, `{"postId":"9","body":"hey"}`), 1)
	assert.Equal(t, int64(9), c.PostID)
	assert.Equal(t, "hey", c.Text)
	assert.Equal(t, Anonymous, c.Author)
	assert.True(t, c.Synthetic)
}

func TestNormalizePosts_SkipsNonObjects(t *testing.T) {
	out := NormalizePosts([]interface{}{map[string]interface{}{"id": 1}, "junk", nil, 4})
	require.Len(t, out, 1)
	assert.Equal(t, int64(1), out[0].ID)
}
