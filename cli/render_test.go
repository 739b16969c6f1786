package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"

	"github.com/cppla/miniblog/client"
)

func TestPlain(t *testing.T) {
	assert.Equal(t, "Hi & bye", plain("<b>Hi</b> &amp; <i>bye</i>"))
	assert.NotContains(t, plain(`x<script>alert(1)</script>`), "alert")
	assert.Equal(t, "", plain("   "))

	assert.Equal(t, "[2J]0;pwned", plain("\x1b[2J\x1b]0;pwned\x07"))
	assert.Equal(t, "title", plain("&#27;title&#7;"), "escaped controls are removed after decoding")
	assert.Equal(t, "a\tb\nc", plain("a\tb\x00\nc\u0085"))
	for _, r := range plain("\x1b[31mred\x1b[0m \u009b2J") {
		assert.False(t, unicode.IsControl(r) && r != '\n' && r != '\t', "control rune %U left in output", r)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "a b", truncate("a \n  b", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "ééé…", truncate("éééééé", 4))
	assert.Equal(t, "…", truncate("abc", 1))
	assert.Equal(t, "…", truncate("abc", 0))
	assert.Equal(t, "…", truncate("abc", -3))
	assert.Equal(t, "", truncate("", 0))
}

func TestErrorMessage(t *testing.T) {
	apiErr := &client.APIError{Status: 409, Code: 40900, Message: "username already exists"}
	assert.Equal(t, "username already exists", errorMessage(fmt.Errorf("signup: %w", apiErr)))
	assert.Contains(t, errorMessage(client.ErrNotLoggedIn), "blogctl login")
	assert.Equal(t, "a b", errorMessage(errors.New("a\nb")))
	assert.Equal(t, "boom", errorMessage(&client.APIError{Status: 500, Message: "\x1b[2Jboom\x07"}))
}

func TestRenderPosts(t *testing.T) {
	var buf bytes.Buffer
	renderPosts(&buf, paletteFor(ThemePlain), nil)
	assert.Contains(t, buf.String(), "No posts.")

	buf.Reset()
	renderPosts(&buf, paletteFor(ThemePlain), []client.Post{
		{ID: 7, Title: "<i>Hello</i>", Author: "alice", Category: "Tech", Likes: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Hello")
	assert.NotContains(t, out, "<i>")
	assert.Contains(t, out, "7")
}

func TestPaletteFollowsTheme(t *testing.T) {
	p := paletteFor(ThemePlain)
	assert.Equal(t, "x", p.title.Sprint("x"))
	assert.Equal(t, "x", p.err.Sprint("x"))
}
