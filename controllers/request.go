package controllers

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/miniblog/models"
)

// flexID accepts an id sent either as a JSON number or a numeric string.
type flexID uint64

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
		if len(b) == 0 {
			*f = 0
			return nil
		}
	}
	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return err
	}
	*f = flexID(n)
	return nil
}

// Request bodies accept the field aliases older clients send. Each type
// resolves them once into canonical values.

type accountRequest struct {
	User     string `json:"user"`
	Username string `json:"username"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}

func (r accountRequest) username() string {
	return firstNonEmpty(r.Username, r.User)
}

type postRequest struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Body     string `json:"body"`
	Author   string `json:"author"`
	Category string `json:"category"`
}

func (r postRequest) body() string {
	return firstNonEmpty(r.Body, r.Content)
}

type commentRequest struct {
	PostID  flexID `json:"postId"`
	PostID2 flexID `json:"post_id"`
	Comment string `json:"comment"`
	Text    string `json:"text"`
	Author  string `json:"author"`
}

func (r commentRequest) postID() uint64 {
	if r.PostID != 0 {
		return uint64(r.PostID)
	}
	return uint64(r.PostID2)
}

func (r commentRequest) text() string {
	return firstNonEmpty(r.Text, r.Comment)
}

type likeRequest struct {
	PostID flexID `json:"postId"`
	User   string `json:"user"`
	Author string `json:"author"`
}

func (r likeRequest) user() string {
	return firstNonEmpty(r.User, r.Author)
}

type ownerRequest struct {
	Author string `json:"author"`
}

// bindJSON decodes the body into dst. An empty body leaves dst zeroed so
// that field validation reports what is missing.
func bindJSON(ctx *gin.Context, dst interface{}) error {
	if ctx.Request.Body == nil || ctx.Request.ContentLength == 0 {
		return nil
	}
	if err := ctx.ShouldBindJSON(dst); err != nil {
		return models.NewValidationError("invalid request payload")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// requireFields returns a validation error naming the first blank field.
func requireFields(fields ...[2]string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			missing = append(missing, f[0])
		}
	}
	if len(missing) > 0 {
		return models.NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}
	return nil
}

// idString renders a zero id as blank so requireFields reports it missing.
func idString(id uint64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatUint(id, 10)
}

func parseID(ctx *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("invalid post id")
	}
	return id, nil
}
