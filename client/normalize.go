package client

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cast"

	"github.com/cppla/miniblog/models"
)

// Anonymous is the author shown when a record carries none.
const Anonymous = "Anon"

// Post is the canonical client-side post. Every field is populated.
type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Author    string    `json:"author"`
	Category  string    `json:"category"`
	Likes     int       `json:"likes"`
	CreatedAt time.Time `json:"created_at"`
	Comments  []Comment `json:"comments"`
	// Synthetic marks an id generated locally because the record had none.
	Synthetic bool `json:"-"`
}

// Comment is the canonical client-side comment.
type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"post_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Synthetic bool      `json:"-"`
}

var syntheticSeq atomic.Int64

func init() {
	syntheticSeq.Store(time.Now().UnixMilli())
}

// nextSyntheticID is unique and increasing for the life of the process.
func nextSyntheticID() int64 {
	return syntheticSeq.Add(1)
}

// Ids minted from epoch milliseconds double as creation timestamps.
const (
	minMillisID = int64(946684800000)  // 2000-01-01
	maxMillisID = int64(4102444800000) // 2100-01-01
)

// NormalizePost maps a raw post object onto Post, resolving field aliases
// and filling defaults. Only a synthesized id differs between two calls on
// the same input.
func NormalizePost(raw map[string]interface{}) Post {
	p := Post{
		Title:    str(raw, "title"),
		Body:     str(raw, "body", "content", "text"),
		Author:   str(raw, "author", "autor", "user", "username"),
		Category: str(raw, "category", "categoria"),
		Likes:    nonNegative(num(raw, "likes")),
	}
	if p.Author == "" {
		p.Author = Anonymous
	}
	if p.Category == "" {
		p.Category = models.DefaultCategory
	}

	p.ID, p.Synthetic = id(raw)
	p.CreatedAt = timestamp(raw, p.ID, p.Synthetic)

	p.Comments = []Comment{}
	if list, ok := raw["comments"].([]interface{}); ok {
		for _, item := range list {
			if m, ok := item.(map[string]interface{}); ok {
				p.Comments = append(p.Comments, NormalizeComment(m, p.ID))
			}
		}
	}
	return p
}

// NormalizeComment maps a raw comment object onto Comment.
func NormalizeComment(raw map[string]interface{}, postID int64) Comment {
	c := Comment{
		PostID: postID,
		Author: str(raw, "author", "autor", "user", "username"),
		Text:   str(raw, "text", "comment", "content", "body"),
	}
	if c.Author == "" {
		c.Author = Anonymous
	}
	if pid := num(raw, "post_id", "postId"); pid > 0 {
		c.PostID = pid
	}
	c.ID, c.Synthetic = id(raw)
	c.CreatedAt = timestamp(raw, c.ID, c.Synthetic)
	return c
}

// NormalizePosts normalizes every object in list, skipping non-objects.
func NormalizePosts(list []interface{}) []Post {
	out := make([]Post, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]interface{}); ok {
			out = append(out, NormalizePost(m))
		}
	}
	return out
}

func str(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

func num(raw map[string]interface{}, keys ...string) int64 {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr {
			v = strings.TrimSpace(s)
		}
		// cast truncates floats; ids arrive as JSON numbers
		if n, err := cast.ToInt64E(v); err == nil {
			return n
		}
	}
	return 0
}

func nonNegative(n int64) int {
	if n < 0 {
		return 0
	}
	return int(n)
}

func id(raw map[string]interface{}) (int64, bool) {
	if n := num(raw, "id", "_id"); n > 0 {
		return n, false
	}
	return nextSyntheticID(), true
}

func timestamp(raw map[string]interface{}, id int64, synthetic bool) time.Time {
	for _, k := range []string{"created_at", "createdAt", "date"} {
		v, ok := raw[k]
		if !ok || v == nil {
			continue
		}
		if t, err := cast.ToTimeE(v); err == nil && !t.IsZero() {
			return t
		}
	}
	if !synthetic && id >= minMillisID && id < maxMillisID {
		return time.UnixMilli(id)
	}
	return time.Time{}
}
