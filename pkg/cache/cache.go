// Package cache stores fetched documents under keys and invalidates them by
// tag, so a write to one document only drops what was derived from it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"site-cms/pkg/logger"
	"site-cms/pkg/metrics"
)

// Tag names shared by fetchers and revalidation hooks.
const (
	TagRedirects = "redirects"
	TagPosts     = "posts"
)

// DocumentTag is the tag of a single document, e.g. "posts_hello-world".
func DocumentTag(collection, slug string) string {
	return collection + "_" + slug
}

// GlobalTag is the tag of a global, e.g. "global_header".
func GlobalTag(slug string) string {
	return "global_" + slug
}

// Cache is a tagged key-value store. A ttl of zero keeps the entry until one
// of its tags is revalidated.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, tags []string, ttl time.Duration) error
	RevalidateTag(ctx context.Context, tag string) error
}

// Loader fronts a Cache with request coalescing.
type Loader struct {
	cache   Cache
	log     logger.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

func NewLoader(c Cache, log logger.Logger, m *metrics.Metrics) *Loader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Loader{cache: c, log: log, metrics: m}
}

func (l *Loader) Cache() Cache { return l.cache }

// Revalidate drops every entry carrying tag. Failures are logged; a stale
// entry is preferable to failing the write that triggered it.
func (l *Loader) Revalidate(ctx context.Context, tag, kind string) {
	if err := l.cache.RevalidateTag(ctx, tag); err != nil {
		l.log.Error("revalidate tag failed", logger.String("tag", tag), logger.Error(err))
		return
	}
	l.metrics.Revalidated(kind)
	l.log.Debug("revalidated", logger.String("tag", tag))
}

// Cached returns the value stored under key, or runs fetch and stores its
// result. Concurrent misses for one key share a single fetch. Cache failures
// fall through to fetch.
func Cached[T any](
	ctx context.Context,
	l *Loader,
	key string,
	tags []string,
	ttl time.Duration,
	fetch func(ctx context.Context) (T, error),
) (T, error) {
	var cached T
	hit, err := l.cache.Get(ctx, key, &cached)
	switch {
	case err != nil:
		l.metrics.CacheError()
		l.log.Warn("cache get failed", logger.String("key", key), logger.Error(err))
	case hit:
		l.metrics.CacheHit()
		return cached, nil
	default:
		l.metrics.CacheMiss()
	}

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		value, err := fetch(ctx)
		if err != nil {
			return value, err
		}
		if err := l.cache.Set(ctx, key, value, tags, ttl); err != nil {
			l.log.Warn("cache set failed", logger.String("key", key), logger.Error(err))
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Values are stored as JSON so both backends hand back private copies.
func encode(value interface{}) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode cache value: %w", err)
	}
	return raw, nil
}

func decode(raw []byte, dest interface{}) error {
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode cache value: %w", err)
	}
	return nil
}
