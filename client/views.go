package client

import (
	"sort"
	"strings"
)

// Sort orders accepted by Apply.
const (
	SortNewest  = "newest"
	SortOldest  = "oldest"
	SortPopular = "popular"
)

// Sidebar sizes.
const (
	TopAuthorsLimit     = 5
	LatestCommentsLimit = 6
)

// Filter selects and orders the visible posts. Empty fields match everything.
type Filter struct {
	Category string
	Search   string
	Sort     string
}

// AuthorCount is one row of the top authors list.
type AuthorCount struct {
	Author string
	Posts  int
}

// CommentRef is a comment together with the post it belongs to.
type CommentRef struct {
	PostID    int64
	PostTitle string
	Comment   Comment
}

// Apply returns the posts matching f, ordered by f.Sort. The input is not modified.
// Category matches case-insensitively and exactly; search is a
// case-insensitive substring match over title, body and author.
func Apply(posts []Post, f Filter) []Post {
	category := strings.ToLower(strings.TrimSpace(f.Category))
	search := strings.ToLower(strings.TrimSpace(f.Search))

	out := make([]Post, 0, len(posts))
	for _, p := range posts {
		if category != "" && strings.ToLower(p.Category) != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Title), search) &&
			!strings.Contains(strings.ToLower(p.Body), search) &&
			!strings.Contains(strings.ToLower(p.Author), search) {
			continue
		}
		out = append(out, p)
	}

	switch f.Sort {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	case SortPopular:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Likes > out[j].Likes })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	return out
}

// Categories lists distinct categories in order of first appearance.
func Categories(posts []Post) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range posts {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// TopAuthors ranks authors by post count. Ties keep first-appearance order.
func TopAuthors(posts []Post, limit int) []AuthorCount {
	index := make(map[string]int)
	var out []AuthorCount
	for _, p := range posts {
		if i, ok := index[p.Author]; ok {
			out[i].Posts++
			continue
		}
		index[p.Author] = len(out)
		out = append(out, AuthorCount{Author: p.Author, Posts: 1})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Posts > out[j].Posts })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// LatestComments returns the most recent comments across all posts, newest first.
func LatestComments(posts []Post, limit int) []CommentRef {
	var out []CommentRef
	for _, p := range posts {
		for _, c := range p.Comments {
			out = append(out, CommentRef{PostID: p.ID, PostTitle: p.Title, Comment: c})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Comment, out[j].Comment
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
