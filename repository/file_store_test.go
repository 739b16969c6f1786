package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "data.json")

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	_, err = s.CreateAccount(ctx, AccountInput{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	p, err := s.CreatePost(ctx, PostInput{Title: "Hi", Body: "Hello", Author: "alice"})
	require.NoError(t, err)
	_, err = s.CreateComment(ctx, CommentInput{PostID: p.ID, Author: "bob", Text: "Nice"})
	require.NoError(t, err)
	_, err = s.LikePost(ctx, p.ID, "bob")
	require.NoError(t, err)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	_, err = reopened.VerifyCredentials(ctx, "alice", "pw1")
	require.NoError(t, err)
	posts, err := reopened.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 1, posts[0].Likes)
	require.Len(t, posts[0].Comments, 1)

	_, err = reopened.LikePost(ctx, p.ID, "bob")
	assert.Error(t, err, "like set is restored from disk")
}

func TestFileStore_IDsNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	s, err := OpenFileStore(path)
	require.NoError(t, err)

	p1, err := s.CreatePost(ctx, PostInput{Title: "a", Body: "a", Author: "x"})
	require.NoError(t, err)
	p2, err := s.CreatePost(ctx, PostInput{Title: "b", Body: "b", Author: "x"})
	require.NoError(t, err)
	require.NoError(t, s.DeletePost(ctx, p2.ID))

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	p3, err := reopened.CreatePost(ctx, PostInput{Title: "c", Body: "c", Author: "x"})
	require.NoError(t, err)
	assert.Greater(t, p3.ID, p2.ID)

	posts, err := reopened.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, p3.ID, posts[0].ID)
	assert.Equal(t, p1.ID, posts[1].ID)
}

func TestFileStore_LeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := OpenFileStore(filepath.Join(dir, "data.json"))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := s.CreatePost(ctx, PostInput{Title: "t", Body: "b", Author: "a"})
		require.NoError(t, err)
	}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "data.json", entries[0].Name())
}

func TestFileStore_ReadsDocumentWithoutSequences(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.json")
	legacy := `{"users":[{"user":"alice","password":"pw1"}],
"posts":[{"id":41,"title":"Old","body":"text","author":"alice","comments":[{"id":7,"author":"bob","text":"hey"}]}]}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	s, err := OpenFileStore(path)
	require.NoError(t, err)
	_, err = s.VerifyCredentials(ctx, "alice", "pw1")
	require.NoError(t, err)

	p, err := s.CreatePost(ctx, PostInput{Title: "New", Body: "b", Author: "alice"})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), p.ID)
	c, err := s.CreateComment(ctx, CommentInput{PostID: 41, Author: "carol", Text: "late"})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), c.ID)
}

func TestFileStore_RejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := OpenFileStore(path)
	assert.Error(t, err)
}

func TestFileStore_ListPostsReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newFileStore(t)
	p, err := s.CreatePost(ctx, PostInput{Title: "t", Body: "b", Author: "a"})
	require.NoError(t, err)

	posts, err := s.ListPosts(ctx)
	require.NoError(t, err)
	posts[0].Title = "mutated"

	got, err := s.GetPost(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
}
