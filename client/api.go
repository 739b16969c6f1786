// Package client is the data layer behind blogctl: a typed API client, the
// normalization boundary for server records, and the application State.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a failure reported by the server in its {"error": ...} body.
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Account is the public part of an account.
type Account struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Draft holds the editable fields of a post.
type Draft struct {
	Title    string
	Body     string
	Category string
}

// Health is the server's /health report.
type Health struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// API talks to the blog server.
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI returns a client for baseURL with a per-request timeout.
func NewAPI(baseURL string, timeout time.Duration) *API {
	dialer := &net.Dialer{Timeout: 5 * time.Second}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{DialContext: dialer.DialContext, Proxy: http.ProxyFromEnvironment},
		},
	}
}

// BaseURL returns the server address this client targets.
func (a *API) BaseURL() string {
	return a.baseURL
}

func (a *API) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var failure struct {
		Error string `json:"error"`
		Code  int    `json:"code"`
	}
	if len(data) > 0 && data[0] == '{' {
		_ = json.Unmarshal(data, &failure)
	}
	if failure.Error != "" || resp.StatusCode >= 400 {
		msg := failure.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: failure.Code, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// ListPosts fetches and normalizes every post.
func (a *API) ListPosts(ctx context.Context) ([]Post, error) {
	var raw []interface{}
	if err := a.do(ctx, http.MethodGet, "/posts", nil, &raw); err != nil {
		return nil, err
	}
	return NormalizePosts(raw), nil
}

func (a *API) ListUsers(ctx context.Context) ([]Account, error) {
	var accounts []Account
	err := a.do(ctx, http.MethodGet, "/users", nil, &accounts)
	return accounts, err
}

func (a *API) CreateAccount(ctx context.Context, username, password string) (Account, error) {
	var out struct {
		Account Account `json:"account"`
	}
	err := a.do(ctx, http.MethodPost, "/create-account", map[string]string{"user": username, "password": password}, &out)
	return out.Account, err
}

func (a *API) Login(ctx context.Context, username, password string) (Account, error) {
	var out struct {
		Account Account `json:"account"`
	}
	err := a.do(ctx, http.MethodPost, "/login", map[string]string{"user": username, "password": password}, &out)
	return out.Account, err
}

func (a *API) CreatePost(ctx context.Context, d Draft, author string) (Post, error) {
	return a.writePost(ctx, http.MethodPost, "/posts", d, author)
}

func (a *API) UpdatePost(ctx context.Context, id int64, d Draft, author string) (Post, error) {
	return a.writePost(ctx, http.MethodPut, "/posts/"+strconv.FormatInt(id, 10), d, author)
}

func (a *API) writePost(ctx context.Context, method, path string, d Draft, author string) (Post, error) {
	var out struct {
		Post map[string]interface{} `json:"post"`
	}
	payload := map[string]string{"title": d.Title, "body": d.Body, "category": d.Category, "author": author}
	if err := a.do(ctx, method, path, payload, &out); err != nil {
		return Post{}, err
	}
	return NormalizePost(out.Post), nil
}

func (a *API) DeletePost(ctx context.Context, id int64, author string) error {
	path := "/posts/" + strconv.FormatInt(id, 10) + "?author=" + url.QueryEscape(author)
	return a.do(ctx, http.MethodDelete, path, map[string]string{"author": author}, nil)
}

func (a *API) Comment(ctx context.Context, postID int64, author, text string) error {
	payload := map[string]interface{}{"postId": postID, "comment": text, "author": author}
	return a.do(ctx, http.MethodPost, "/comments", payload, nil)
}

// Like returns the post's like count after the like.
func (a *API) Like(ctx context.Context, postID int64, user string) (int, error) {
	var out struct {
		Likes int `json:"likes"`
	}
	err := a.do(ctx, http.MethodPost, "/like", map[string]interface{}{"postId": postID, "user": user}, &out)
	return out.Likes, err
}

// Health reports server and store status. A 503 still decodes into Health.
func (a *API) Health(ctx context.Context) (Health, error) {
	var h Health
	err := a.do(ctx, http.MethodGet, "/health", nil, &h)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusServiceUnavailable {
		return Health{Status: "error", Database: "disconnected"}, nil
	}
	return h, err
}
