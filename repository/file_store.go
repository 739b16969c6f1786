package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cppla/miniblog/models"
)

// FileStore keeps the whole dataset in one JSON document. Reads are served
// from in-memory indexes; every write holds the lock until the new document
// has atomically replaced the old file.
type FileStore struct {
	path string
	opts options

	mu       sync.RWMutex
	doc      document
	accounts map[string]int // username -> index in doc.Accounts
	posts    map[uint64]int // post id -> index in doc.Posts
	likes    map[likeKey]struct{}
}

type document struct {
	Accounts []accountRecord `json:"users"`
	// Posts are kept in creation order.
	Posts []models.Post `json:"posts"`
	Likes []models.Like `json:"likes"`
	Seq   sequences     `json:"seq"`
}

// accountRecord is the stored form of an account; unlike models.Account it keeps the password.
type accountRecord struct {
	ID        uint      `json:"id"`
	Username  string    `json:"user"`
	Password  string    `json:"password"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type sequences struct {
	Account uint   `json:"account"`
	Post    uint64 `json:"post"`
	Comment uint64 `json:"comment"`
	Like    uint64 `json:"like"`
}

type likeKey struct {
	postID   uint64
	username string
}

// OpenFileStore loads path, creating an empty document if the file does not exist yet.
func OpenFileStore(path string, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("file store path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	s := &FileStore{path: path, opts: newOptions(opts)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	doc := document{}
	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read %s: %w", s.path, err)
	case len(data) > 0:
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode %s: %w", s.path, err)
		}
	}
	s.doc = doc
	s.reindex()
	return nil
}

func (s *FileStore) reindex() {
	s.accounts = make(map[string]int, len(s.doc.Accounts))
	for i, a := range s.doc.Accounts {
		s.accounts[a.Username] = i
		if a.ID > s.doc.Seq.Account {
			s.doc.Seq.Account = a.ID
		}
	}
	s.posts = make(map[uint64]int, len(s.doc.Posts))
	for i, p := range s.doc.Posts {
		s.posts[p.ID] = i
		if p.ID > s.doc.Seq.Post {
			s.doc.Seq.Post = p.ID
		}
		for _, c := range p.Comments {
			if c.ID > s.doc.Seq.Comment {
				s.doc.Seq.Comment = c.ID
			}
		}
	}
	s.likes = make(map[likeKey]struct{}, len(s.doc.Likes))
	for _, l := range s.doc.Likes {
		s.likes[likeKey{l.PostID, l.Username}] = struct{}{}
		if l.ID > s.doc.Seq.Like {
			s.doc.Seq.Like = l.ID
		}
	}
}

// mutate applies fn under the write lock and persists the result. If the
// document cannot be written, the last durable state is reloaded.
func (s *FileStore) mutate(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := fn(); err != nil {
		return err
	}
	if err := s.persist(); err != nil {
		if rerr := s.load(); rerr != nil {
			return models.NewInternalError(errors.Join(err, rerr))
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (s *FileStore) persist() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

func (r accountRecord) account() models.Account {
	return models.Account{ID: r.ID, Username: r.Username, Password: r.Password, Avatar: r.Avatar, CreatedAt: r.CreatedAt}
}

func clonePost(p models.Post) models.Post {
	out := p
	out.Comments = make([]models.Comment, len(p.Comments))
	copy(out.Comments, p.Comments)
	return out
}

func (s *FileStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Account, 0, len(s.doc.Accounts))
	for _, a := range s.doc.Accounts {
		out = append(out, a.account())
	}
	return out, nil
}

func (s *FileStore) CreateAccount(ctx context.Context, in AccountInput) (*models.Account, error) {
	var created accountRecord
	err := s.mutate(ctx, func() error {
		if _, ok := s.accounts[in.Username]; ok {
			return errAccountTaken()
		}
		s.doc.Seq.Account++
		created = accountRecord{
			ID:        s.doc.Seq.Account,
			Username:  in.Username,
			Password:  in.Password,
			Avatar:    in.Avatar,
			CreatedAt: now(),
		}
		s.doc.Accounts = append(s.doc.Accounts, created)
		s.accounts[created.Username] = len(s.doc.Accounts) - 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	a := created.account()
	return &a, nil
}

func (s *FileStore) VerifyCredentials(ctx context.Context, username, password string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.accounts[username]
	if !ok || !passwordMatches(s.doc.Accounts[i].Password, password) {
		return nil, errBadCredentials()
	}
	a := s.doc.Accounts[i].account()
	return &a, nil
}

func (s *FileStore) ListPosts(ctx context.Context) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Post, 0, len(s.doc.Posts))
	for i := len(s.doc.Posts) - 1; i >= 0; i-- {
		out = append(out, clonePost(s.doc.Posts[i]))
	}
	return out, nil
}

func (s *FileStore) GetPost(ctx context.Context, id uint64) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.posts[id]
	if !ok {
		return nil, models.NewNotFoundError("post", id)
	}
	p := clonePost(s.doc.Posts[i])
	return &p, nil
}

func (s *FileStore) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	var created models.Post
	err := s.mutate(ctx, func() error {
		s.doc.Seq.Post++
		ts := now()
		created = models.Post{
			ID:        s.doc.Seq.Post,
			Title:     in.Title,
			Body:      in.Body,
			Author:    in.Author,
			Category:  s.opts.categoryOrDefault(in.Category),
			CreatedAt: ts,
			UpdatedAt: ts,
			Comments:  []models.Comment{},
		}
		s.doc.Posts = append(s.doc.Posts, created)
		s.posts[created.ID] = len(s.doc.Posts) - 1
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *FileStore) UpdatePost(ctx context.Context, id uint64, in PostInput) (*models.Post, error) {
	var updated models.Post
	err := s.mutate(ctx, func() error {
		i, ok := s.posts[id]
		if !ok {
			return models.NewNotFoundError("post", id)
		}
		p := &s.doc.Posts[i]
		p.Title = in.Title
		p.Body = in.Body
		p.Category = s.opts.categoryOrDefault(in.Category)
		p.UpdatedAt = now()
		updated = clonePost(*p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *FileStore) DeletePost(ctx context.Context, id uint64) error {
	return s.mutate(ctx, func() error {
		i, ok := s.posts[id]
		if !ok {
			return models.NewNotFoundError("post", id)
		}
		s.doc.Posts = append(s.doc.Posts[:i], s.doc.Posts[i+1:]...)
		likes := s.doc.Likes[:0]
		for _, l := range s.doc.Likes {
			if l.PostID != id {
				likes = append(likes, l)
			}
		}
		s.doc.Likes = likes
		s.reindex()
		return nil
	})
}

func (s *FileStore) CreateComment(ctx context.Context, in CommentInput) (*models.Comment, error) {
	var created models.Comment
	err := s.mutate(ctx, func() error {
		i, ok := s.posts[in.PostID]
		if !ok {
			return models.NewNotFoundError("post", in.PostID)
		}
		s.doc.Seq.Comment++
		created = models.Comment{
			ID:        s.doc.Seq.Comment,
			PostID:    in.PostID,
			Author:    in.Author,
			Text:      in.Text,
			CreatedAt: now(),
		}
		s.doc.Posts[i].Comments = append(s.doc.Posts[i].Comments, created)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *FileStore) LikePost(ctx context.Context, postID uint64, username string) (int, error) {
	var likes int
	err := s.mutate(ctx, func() error {
		i, ok := s.posts[postID]
		if !ok {
			return models.NewNotFoundError("post", postID)
		}
		key := likeKey{postID, username}
		if _, ok := s.likes[key]; ok {
			return errAlreadyLiked()
		}
		s.doc.Seq.Like++
		s.doc.Likes = append(s.doc.Likes, models.Like{
			ID:        s.doc.Seq.Like,
			PostID:    postID,
			Username:  username,
			CreatedAt: now(),
		})
		s.likes[key] = struct{}{}
		s.doc.Posts[i].Likes++
		likes = s.doc.Posts[i].Likes
		return nil
	})
	return likes, err
}

func (s *FileStore) Stats(ctx context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		Accounts: int64(len(s.doc.Accounts)),
		Posts:    int64(len(s.doc.Posts)),
		Likes:    int64(len(s.doc.Likes)),
	}
	for _, p := range s.doc.Posts {
		st.Comments += int64(len(p.Comments))
	}
	return st, nil
}

// Ping checks that the data directory is still reachable.
func (s *FileStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return models.NewStoreUnavailableError(err)
	}
	return nil
}

func (s *FileStore) Close() error {
	return nil
}
