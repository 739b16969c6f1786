package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrNotLoggedIn is returned by actions that need an identity.
var ErrNotLoggedIn = errors.New("not logged in")

// Snapshot is a consistent copy of the state handed to renderers.
type Snapshot struct {
	User    *Identity
	Theme   string
	Filter  Filter
	Posts   []Post
	Visible []Post
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger used for failed loads and prefs writes.
func WithLogger(l *zap.Logger) Option {
	return func(s *State) {
		if l != nil {
			s.log = l
		}
	}
}

// State owns the identity, the post cache, the current filter and the theme.
// The post cache only changes through replacePosts.
type State struct {
	api       *API
	prefsPath string
	log       *zap.Logger

	mu        sync.RWMutex
	user      *Identity
	theme     string
	posts     []Post
	filter    Filter
	listeners []func(Snapshot)

	loading atomic.Bool
}

// NewState restores persisted prefs from prefsPath. A corrupt prefs file is
// logged and replaced by defaults.
func NewState(api *API, prefsPath string, opts ...Option) *State {
	s := &State{api: api, prefsPath: prefsPath, log: zap.NewNop(), theme: DefaultTheme}
	for _, opt := range opts {
		opt(s)
	}
	prefs, err := LoadPrefs(prefsPath)
	if err != nil {
		s.log.Warn("prefs restore failed", zap.String("path", prefsPath), zap.Error(err))
	}
	s.user = prefs.User
	s.theme = prefs.Theme
	return s
}

// API returns the client the state talks through.
func (s *State) API() *API {
	return s.api
}

// Subscribe registers fn to run after every post cache replacement.
func (s *State) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *State) snapshotLocked() Snapshot {
	posts := make([]Post, len(s.posts))
	copy(posts, s.posts)
	var user *Identity
	if s.user != nil {
		u := *s.user
		user = &u
	}
	return Snapshot{
		User:    user,
		Theme:   s.theme,
		Filter:  s.filter,
		Posts:   posts,
		Visible: Apply(posts, s.filter),
	}
}

// Load fetches the post list and replaces the cache. It reports false
// without doing anything when another Load is in flight. On failure the
// cache is kept.
func (s *State) Load(ctx context.Context) (bool, error) {
	if !s.loading.CompareAndSwap(false, true) {
		return false, nil
	}
	defer s.loading.Store(false)

	posts, err := s.api.ListPosts(ctx)
	if err != nil {
		s.log.Warn("load posts failed", zap.String("api", s.api.BaseURL()), zap.Error(err))
		return true, err
	}
	s.replacePosts(posts)
	return true, nil
}

func (s *State) replacePosts(posts []Post) {
	s.mu.Lock()
	s.posts = posts
	snap := s.snapshotLocked()
	listeners := append([]func(Snapshot){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// SetFilter changes the visible selection; the cache is untouched.
func (s *State) SetFilter(f Filter) {
	s.mu.Lock()
	s.filter = f
	s.mu.Unlock()
}

func (s *State) User() *Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *State) Theme() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

func (s *State) SetTheme(theme string) error {
	theme = strings.ToLower(strings.TrimSpace(theme))
	if theme == "" {
		theme = DefaultTheme
	}
	s.mu.Lock()
	s.theme = theme
	s.mu.Unlock()
	return s.save()
}

// Login verifies the credentials and remembers the identity.
func (s *State) Login(ctx context.Context, username, password string) (Account, error) {
	acc, err := s.api.Login(ctx, username, password)
	if err != nil {
		return Account{}, err
	}
	if acc.Username == "" {
		acc.Username = strings.TrimSpace(username)
	}
	return acc, s.setUser(&Identity{Username: acc.Username, Avatar: acc.Avatar})
}

// Signup creates the account and logs in as it.
func (s *State) Signup(ctx context.Context, username, password string) (Account, error) {
	acc, err := s.api.CreateAccount(ctx, username, password)
	if err != nil {
		return Account{}, err
	}
	if acc.Username == "" {
		acc.Username = strings.TrimSpace(username)
	}
	return acc, s.setUser(&Identity{Username: acc.Username, Avatar: acc.Avatar})
}

func (s *State) Logout() error {
	return s.setUser(nil)
}

func (s *State) setUser(u *Identity) error {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
	return s.save()
}

func (s *State) save() error {
	s.mu.RLock()
	prefs := Prefs{User: s.user, Theme: s.theme}
	s.mu.RUnlock()
	if err := SavePrefs(s.prefsPath, prefs); err != nil {
		s.log.Warn("prefs save failed", zap.String("path", s.prefsPath), zap.Error(err))
		return err
	}
	return nil
}

func (s *State) author() (string, error) {
	u := s.User()
	if u == nil {
		return "", ErrNotLoggedIn
	}
	return u.Username, nil
}

// CreatePost publishes a post as the current user.
func (s *State) CreatePost(ctx context.Context, d Draft) (Post, error) {
	author, err := s.author()
	if err != nil {
		return Post{}, err
	}
	p, err := s.api.CreatePost(ctx, d, author)
	if err != nil {
		return Post{}, err
	}
	return p, s.reload(ctx)
}

func (s *State) EditPost(ctx context.Context, id int64, d Draft) (Post, error) {
	author, err := s.author()
	if err != nil {
		return Post{}, err
	}
	p, err := s.api.UpdatePost(ctx, id, d, author)
	if err != nil {
		return Post{}, err
	}
	return p, s.reload(ctx)
}

func (s *State) DeletePost(ctx context.Context, id int64) error {
	author, err := s.author()
	if err != nil {
		return err
	}
	if err := s.api.DeletePost(ctx, id, author); err != nil {
		return err
	}
	return s.reload(ctx)
}

// Comment posts text under the current user, or as Anonymous when logged out.
func (s *State) Comment(ctx context.Context, postID int64, text string) error {
	author := Anonymous
	if u := s.User(); u != nil {
		author = u.Username
	}
	if err := s.api.Comment(ctx, postID, author, text); err != nil {
		return err
	}
	return s.reload(ctx)
}

func (s *State) Like(ctx context.Context, postID int64) (int, error) {
	user, err := s.author()
	if err != nil {
		return 0, err
	}
	likes, err := s.api.Like(ctx, postID, user)
	if err != nil {
		return 0, err
	}
	return likes, s.reload(ctx)
}

// reload runs after every successful mutation; a skipped overlapping load is not an error.
func (s *State) reload(ctx context.Context) error {
	_, err := s.Load(ctx)
	return err
}
