package controllers

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/miniblog/models"
	"github.com/cppla/miniblog/repository"
	"github.com/cppla/miniblog/utils"
)

// countingStore numbers each ListPosts result and runs onList inside the call.
type countingStore struct {
	repository.Store
	calls  int
	onList func()
}

func (s *countingStore) ListPosts(context.Context) ([]models.Post, error) {
	s.calls++
	if s.onList != nil {
		s.onList()
	}
	return []models.Post{{ID: uint64(s.calls), Title: fmt.Sprintf("v%d", s.calls)}}, nil
}

func useMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	utils.SetRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { utils.SetRedis(nil) })
	return mr
}

func TestListPosts_WriteDuringLoadIsNotServedFromCache(t *testing.T) {
	useMiniredis(t)
	store := &countingStore{}
	p := NewPostController(store, time.Minute)
	store.onList = func() {
		if store.calls == 1 {
			// a write commits while the first list is being read
			p.invalidate(context.Background())
		}
	}

	first := serve(p.ListPosts, http.MethodGet, "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Contains(t, first.Body.String(), `"v1"`)

	second := serve(p.ListPosts, http.MethodGet, "")
	assert.Contains(t, second.Body.String(), `"v2"`, "the list read before the write must not be cached past it")
	assert.Equal(t, 2, store.calls)

	third := serve(p.ListPosts, http.MethodGet, "")
	assert.Contains(t, third.Body.String(), `"v2"`)
	assert.Equal(t, 2, store.calls, "later reads hit the cache")
}

func TestInvalidate_SurvivesCancelledRequest(t *testing.T) {
	mr := useMiniredis(t)
	require.NoError(t, mr.Set("cache:posts:list:0", "[]"))
	p := NewPostController(&countingStore{}, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.invalidate(ctx)

	assert.Equal(t, int64(1), utils.CacheGeneration(context.Background(), postsCacheName))
	assert.False(t, mr.Exists("cache:posts:list:0"))
}
