package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/miniblog/config"
	"github.com/cppla/miniblog/repository"
	"github.com/cppla/miniblog/utils"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	store, err := repository.OpenFileStore(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)
	cfg := config.AppConfig{
		GinMode:        "test",
		StoreDriver:    config.DriverFile,
		AllowedOrigins: []string{"*"},
		CacheTTL:       time.Minute,
	}
	return SetupRouter(store, cfg)
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	out := map[string]interface{}{}
	if w.Body.Len() > 0 && w.Body.Bytes()[0] == '{' {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w.Code, out
}

func listPosts(t *testing.T, r http.Handler) []map[string]interface{} {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/posts", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	var posts []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	return posts
}

func TestScenario_AccountPostCommentList(t *testing.T) {
	r := newTestRouter(t)

	code, body := do(t, r, http.MethodPost, "/create-account", gin.H{"user": "alice", "password": "pw1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, body = do(t, r, http.MethodPost, "/login", gin.H{"user": "alice", "password": "pw1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, body = do(t, r, http.MethodPost, "/posts", gin.H{"title": "Hi", "content": "Hello", "author": "alice"})
	require.Equal(t, http.StatusOK, code)
	post := body["post"].(map[string]interface{})
	postID := post["id"]

	code, _ = do(t, r, http.MethodPost, "/comments", gin.H{"postId": postID, "comment": "Nice", "author": "bob"})
	require.Equal(t, http.StatusOK, code)

	posts := listPosts(t, r)
	require.Len(t, posts, 1)
	assert.Equal(t, "Hi", posts[0]["title"])
	assert.Equal(t, "Hello", posts[0]["body"])
	assert.Equal(t, "alice", posts[0]["author"])
	comments := posts[0]["comments"].([]interface{})
	require.Len(t, comments, 1)
	c := comments[0].(map[string]interface{})
	assert.Equal(t, "bob", c["author"])
	assert.Equal(t, "Nice", c["text"])
}

func TestAccounts_Validation(t *testing.T) {
	r := newTestRouter(t)

	code, body := do(t, r, http.MethodPost, "/create-account", gin.H{"user": "alice"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.NotEmpty(t, body["error"])

	code, _ = do(t, r, http.MethodPost, "/create-account", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, r, http.MethodPost, "/create-account", gin.H{"username": "alice", "password": "pw1"})
	require.Equal(t, http.StatusOK, code)

	code, body = do(t, r, http.MethodPost, "/create-account", gin.H{"user": "alice", "password": "zzz"})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, float64(utils.CodeConflict), body["code"])

	code, _ = do(t, r, http.MethodPost, "/login", gin.H{"user": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = do(t, r, http.MethodPost, "/login", gin.H{"user": "", "password": "pw1"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUsers_NeverExposePasswords(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/create-account", gin.H{"user": "alice", "password": "secret"})

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
	assert.NotContains(t, w.Body.String(), "password")
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
}

func TestPosts_Validation(t *testing.T) {
	r := newTestRouter(t)

	code, _ := do(t, r, http.MethodPost, "/posts", gin.H{"title": "Hi", "author": "alice"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, r, http.MethodPost, "/posts", gin.H{"title": "  ", "body": "b", "author": "alice"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, listPosts(t, r))

	code, body := do(t, r, http.MethodPost, "/posts", gin.H{"title": "Hi", "body": "Hello", "author": "alice"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Geral", body["post"].(map[string]interface{})["category"])
}

func TestComments_UnknownPost(t *testing.T) {
	r := newTestRouter(t)

	code, _ := do(t, r, http.MethodPost, "/comments", gin.H{"postId": 12345, "comment": "x", "author": "bob"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, r, http.MethodPost, "/comments", gin.H{"postId": "12345", "comment": "x", "author": "bob"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, r, http.MethodPost, "/comments", gin.H{"comment": "x", "author": "bob"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPosts_OwnershipOnEditAndDelete(t *testing.T) {
	r := newTestRouter(t)
	_, body := do(t, r, http.MethodPost, "/posts", gin.H{"title": "Hi", "body": "Hello", "author": "alice", "category": "Tech"})
	id := int(body["post"].(map[string]interface{})["id"].(float64))
	path := "/posts/" + strconv.Itoa(id)

	code, _ := do(t, r, http.MethodPut, path, gin.H{"title": "Hacked", "body": "x", "author": "mallory"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = do(t, r, http.MethodDelete, path, gin.H{"author": "mallory"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Hi", listPosts(t, r)[0]["title"])

	code, body = do(t, r, http.MethodPut, path, gin.H{"title": "Edited", "content": "New body", "author": "alice", "category": "Life"})
	require.Equal(t, http.StatusOK, code)
	edited := body["post"].(map[string]interface{})
	assert.Equal(t, "Edited", edited["title"])
	assert.Equal(t, "New body", edited["body"])
	assert.Equal(t, "Life", edited["category"])

	code, _ = do(t, r, http.MethodDelete, path+"?author=alice", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, listPosts(t, r))

	code, _ = do(t, r, http.MethodDelete, path, gin.H{"author": "alice"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = do(t, r, http.MethodPut, "/posts/abc", gin.H{"title": "t", "body": "b", "author": "alice"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestLikes(t *testing.T) {
	r := newTestRouter(t)
	_, body := do(t, r, http.MethodPost, "/posts", gin.H{"title": "Hi", "body": "Hello", "author": "alice"})
	id := body["post"].(map[string]interface{})["id"]

	code, body := do(t, r, http.MethodPost, "/like", gin.H{"postId": id, "user": "bob"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["likes"])

	code, _ = do(t, r, http.MethodPost, "/like", gin.H{"postId": id, "user": "bob"})
	assert.Equal(t, http.StatusConflict, code)

	code, body = do(t, r, http.MethodPost, "/posts/"+strconv.Itoa(int(id.(float64)))+"/like", gin.H{"user": "carol"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(2), body["likes"])

	assert.Equal(t, float64(2), listPosts(t, r)[0]["likes"])
}

func TestHealthAndStats(t *testing.T) {
	r := newTestRouter(t)
	code, body := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "file", body["database"])

	do(t, r, http.MethodPost, "/create-account", gin.H{"user": "alice", "password": "pw1"})
	code, body = do(t, r, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, code)
	stats := body["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), stats["user_count"])
}

func TestNoRouteAndRequestID(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"error":"route not found"`)
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}

func TestListPosts_CachedUntilWrite(t *testing.T) {
	mr := miniredis.RunT(t)
	utils.SetRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { utils.SetRedis(nil) })

	r := newTestRouter(t)
	assert.Empty(t, listPosts(t, r))
	assert.True(t, mr.Exists("cache:posts:list:0"))

	do(t, r, http.MethodPost, "/posts", gin.H{"title": "Hi", "body": "Hello", "author": "alice"})
	assert.False(t, mr.Exists("cache:posts:list:0"), "writes invalidate the list")
	assert.Len(t, listPosts(t, r), 1)
	assert.True(t, mr.Exists("cache:posts:list:1"), "the next list is cached under the new generation")
}
