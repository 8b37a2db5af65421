package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"site-cms/pkg/cache"
	"site-cms/pkg/logger"
	"site-cms/pkg/models"
	"site-cms/pkg/services"
	"site-cms/pkg/store/memory"
)

type env struct {
	store       *memory.Store
	loader      *cache.Loader
	content     *services.Content
	revalidator *services.Revalidator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memory.New()
	loader := cache.NewLoader(cache.NewMemory(), logger.NewNop(), nil)
	return &env{
		store:       st,
		loader:      loader,
		content:     services.NewContent(st, loader, logger.NewNop(), time.Minute),
		revalidator: services.NewRevalidator(loader),
	}
}

func (e *env) post(t *testing.T, p models.Post) *models.Post {
	t.Helper()
	require.NoError(t, e.store.Posts().Create(context.Background(), &p))
	return &p
}

func (e *env) page(t *testing.T, p models.Page) *models.Page {
	t.Helper()
	require.NoError(t, e.store.Pages().Create(context.Background(), &p))
	return &p
}

func publishedPost(slug string, at time.Time) models.Post {
	return models.Post{Title: slug, Slug: slug, Status: models.StatusPublished, PublishedAt: at}
}
