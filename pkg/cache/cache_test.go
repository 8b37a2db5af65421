package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/pkg/cache"
	"site-cms/pkg/logger"
	"site-cms/pkg/metrics"
)

type doc struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

func newRedis(t *testing.T) (*cache.Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := cache.NewRedisClient(cache.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedis(client), mr
}

func backends(t *testing.T) map[string]cache.Cache {
	r, _ := newRedis(t)
	return map[string]cache.Cache{
		"memory": cache.NewMemory(),
		"redis":  r,
	}
}

func TestCache_SetGetRevalidate(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			var got doc
			hit, err := c.Get(ctx, "posts:hello", &got)
			require.NoError(t, err)
			assert.False(t, hit)

			want := doc{Title: "Hello", Slug: "hello"}
			require.NoError(t, c.Set(ctx, "posts:hello", want, []string{"posts_hello"}, 0))
			require.NoError(t, c.Set(ctx, "posts:other", doc{Slug: "other"}, []string{"posts_other"}, 0))

			hit, err = c.Get(ctx, "posts:hello", &got)
			require.NoError(t, err)
			assert.True(t, hit)
			assert.Equal(t, want, got)

			require.NoError(t, c.RevalidateTag(ctx, "posts_hello"))

			hit, err = c.Get(ctx, "posts:hello", &got)
			require.NoError(t, err)
			assert.False(t, hit)

			var other doc
			hit, err = c.Get(ctx, "posts:other", &other)
			require.NoError(t, err)
			assert.True(t, hit, "unrelated tag must survive")
		})
	}
}

func TestCache_SharedTag(t *testing.T) {
	ctx := context.Background()
	for name, c := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Set(ctx, "posts:page:1", []doc{{Slug: "a"}}, []string{cache.TagPosts}, time.Minute))
			require.NoError(t, c.Set(ctx, "posts:count", 12, []string{cache.TagPosts}, time.Minute))

			require.NoError(t, c.RevalidateTag(ctx, cache.TagPosts))

			var n int
			hit, err := c.Get(ctx, "posts:count", &n)
			require.NoError(t, err)
			assert.False(t, hit)
		})
	}
}

func TestRedis_TTL(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)

	require.NoError(t, c.Set(ctx, "list", []string{"a"}, []string{cache.TagPosts}, 10*time.Second))
	mr.FastForward(11 * time.Second)

	var got []string
	hit, err := c.Get(ctx, "list", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNewRedisClient_EmptyAddress(t *testing.T) {
	_, err := cache.NewRedisClient(cache.RedisConfig{})
	assert.ErrorIs(t, err, cache.ErrEmptyAddress)
}

func TestDocumentTags(t *testing.T) {
	assert.Equal(t, "pages_home", cache.DocumentTag("pages", "home"))
	assert.Equal(t, "global_header", cache.GlobalTag("header"))
}

func TestCached_FetchesOnceThenHits(t *testing.T) {
	ctx := context.Background()
	loader := cache.NewLoader(cache.NewMemory(), logger.NewNop(), metrics.New())

	var calls int32
	fetch := func(context.Context) (doc, error) {
		atomic.AddInt32(&calls, 1)
		return doc{Title: "Home", Slug: "home"}, nil
	}

	for range 3 {
		got, err := cache.Cached(ctx, loader, "pages:home", []string{"pages_home"}, 0, fetch)
		require.NoError(t, err)
		assert.Equal(t, "Home", got.Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	loader.Revalidate(ctx, "pages_home", "document")
	_, err := cache.Cached(ctx, loader, "pages:home", []string{"pages_home"}, 0, fetch)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestCached_ErrorIsNotStored(t *testing.T) {
	ctx := context.Background()
	loader := cache.NewLoader(cache.NewMemory(), nil, nil)
	boom := errors.New("boom")

	_, err := cache.Cached(ctx, loader, "k", nil, 0, func(context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := cache.Cached(ctx, loader, "k", nil, 0, func(context.Context) (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, got)
}

func TestCached_CoalescesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	loader := cache.NewLoader(cache.NewMemory(), nil, nil)

	var calls int32
	release := make(chan struct{})
	fetch := func(context.Context) (string, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "v", nil
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.Cached(ctx, loader, "same", nil, 0, fetch)
			assert.NoError(t, err)
			assert.Equal(t, "v", v)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCached_RedisFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	c, mr := newRedis(t)
	loader := cache.NewLoader(c, nil, nil)
	mr.Close()

	got, err := cache.Cached(ctx, loader, "k", nil, 0, func(context.Context) (string, error) {
		return "fresh", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}
