package cli

import (
	"bytes"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/miniblog/client"
	"github.com/cppla/miniblog/config"
	"github.com/cppla/miniblog/repository"
	"github.com/cppla/miniblog/routes"
)

type harness struct {
	t     *testing.T
	api   string
	state string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := repository.OpenFileStore(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	srv := httptest.NewServer(routes.SetupRouter(store, config.AppConfig{
		GinMode:        "test",
		StoreDriver:    config.DriverFile,
		AllowedOrigins: []string{"*"},
		CacheTTL:       time.Minute,
	}))
	t.Cleanup(srv.Close)
	return &harness{t: t, api: srv.URL, state: filepath.Join(t.TempDir(), "state.json")}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(append([]string{"--api", h.api, "--state", h.state}, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

func TestBlogctl_Workflow(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("whoami"), "not logged in")
	assert.Contains(t, h.mustRun("posts"), "No posts.")

	_, err := h.run("post", "create", "--title", "Hi", "--body", "Hello")
	assert.ErrorIs(t, err, client.ErrNotLoggedIn)

	assert.Contains(t, h.mustRun("signup", "alice", "--password", "pw1"), "welcome, alice")
	assert.Contains(t, h.mustRun("whoami"), "alice")

	assert.Contains(t, h.mustRun("post", "create", "-t", "Hi", "-b", "<b>Hello</b> there", "-c", "Tech"), "published post 1")
	h.mustRun("comment", "1", "Nice", "post")
	assert.Contains(t, h.mustRun("like", "1"), "1 likes")

	list := h.mustRun("posts", "--category", "tech")
	assert.Contains(t, list, "Hi")
	assert.Contains(t, list, "alice")
	assert.NotContains(t, h.mustRun("posts", "--search", "nothing-matches"), "alice")

	show := h.mustRun("post", "show", "1")
	assert.Contains(t, show, "Hello there")
	assert.NotContains(t, show, "<b>")
	assert.Contains(t, show, "Nice post")

	h.mustRun("post", "edit", "1", "--title", "Edited")
	show = h.mustRun("post", "show", "1")
	assert.Contains(t, show, "Edited")
	assert.Contains(t, show, "Hello there", "body kept when not given")

	sidebar := h.mustRun("sidebar")
	assert.Contains(t, sidebar, "Top authors")
	assert.Contains(t, sidebar, "Nice post")

	assert.Contains(t, h.mustRun("users"), "alice")
	assert.NotContains(t, h.mustRun("users"), "pw1")

	h.mustRun("post", "delete", "1")
	_, err = h.run("post", "show", "1")
	assert.EqualError(t, err, "post 1 not found")

	h.mustRun("logout")
	assert.Contains(t, h.mustRun("whoami"), "not logged in")
}

func TestBlogctl_LoginFailureIsOneLine(t *testing.T) {
	h := newHarness(t)
	h.mustRun("signup", "alice", "-p", "pw1")
	h.mustRun("logout")

	_, err := h.run("login", "alice", "-p", "wrong")
	require.Error(t, err)
	msg := errorMessage(err)
	assert.NotContains(t, msg, "\n")
	assert.NotEmpty(t, msg)

	_, err = h.run("login", "alice")
	assert.EqualError(t, err, "password required")
}

func TestBlogctl_ThemeAndHealth(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, client.DefaultTheme+"\n", h.mustRun("theme"))
	h.mustRun("theme", "plain")
	assert.Equal(t, "plain\n", h.mustRun("theme"))
	_, err := h.run("theme", "neon")
	assert.Error(t, err)

	assert.Contains(t, h.mustRun("health"), "status=ok")
	_, err = h.run("posts", "--sort", "sideways")
	assert.Error(t, err)
}

func TestBlogctl_UnreachableServer(t *testing.T) {
	h := newHarness(t)
	h.api = "http://127.0.0.1:1"
	_, err := h.run("posts")
	assert.Error(t, err)
}
