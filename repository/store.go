// Package repository is the persistence adapter behind the blog API.
package repository

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/cppla/miniblog/models"
)

// Store persists accounts, posts, comments and likes. Implementations return
// *models.AppError values for expected outcomes (not found, conflict, auth).
type Store interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	CreateAccount(ctx context.Context, in AccountInput) (*models.Account, error)
	VerifyCredentials(ctx context.Context, username, password string) (*models.Account, error)

	// ListPosts returns posts newest first, each with its comments oldest first.
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id uint64) (*models.Post, error)
	CreatePost(ctx context.Context, in PostInput) (*models.Post, error)
	// UpdatePost replaces title, body and category. The author never changes.
	UpdatePost(ctx context.Context, id uint64, in PostInput) (*models.Post, error)
	// DeletePost removes the post with its comments and likes.
	DeletePost(ctx context.Context, id uint64) error

	CreateComment(ctx context.Context, in CommentInput) (*models.Comment, error)
	// LikePost records a like and returns the new like count.
	LikePost(ctx context.Context, postID uint64, username string) (int, error)

	Stats(ctx context.Context) (Stats, error)
	Ping(ctx context.Context) error
	Close() error
}

// AccountInput carries the fields of a new account.
type AccountInput struct {
	Username string
	Password string
	Avatar   string
}

// PostInput carries the writable fields of a post.
type PostInput struct {
	Title    string
	Body     string
	Author   string
	Category string
}

// CommentInput carries the fields of a new comment.
type CommentInput struct {
	PostID uint64
	Author string
	Text   string
}

// Stats holds aggregate counts.
type Stats struct {
	Accounts int64 `json:"user_count"`
	Posts    int64 `json:"post_count"`
	Comments int64 `json:"comment_count"`
	Likes    int64 `json:"like_count"`
}

// Option configures a Store implementation.
type Option func(*options)

type options struct {
	defaultCategory string
}

// WithDefaultCategory sets the category given to posts saved without one.
// A blank value keeps models.DefaultCategory.
func WithDefaultCategory(category string) Option {
	return func(o *options) {
		if c := strings.TrimSpace(category); c != "" {
			o.defaultCategory = c
		}
	}
}

func newOptions(opts []Option) options {
	o := options{defaultCategory: models.DefaultCategory}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) categoryOrDefault(c string) string {
	if c = strings.TrimSpace(c); c == "" {
		return o.defaultCategory
	}
	return c
}

func passwordMatches(stored, given string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func errBadCredentials() error {
	return models.NewUnauthorizedError("invalid username or password")
}

func errAccountTaken() error {
	return models.NewConflictError("username already exists")
}

func errAlreadyLiked() error {
	return models.NewConflictError("post already liked by this user")
}
