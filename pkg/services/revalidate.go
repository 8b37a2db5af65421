package services

import (
	"context"

	"site-cms/pkg/cache"
	"site-cms/pkg/models"
)

// Revalidator drops cached content after writes. Each hook receives the
// stored document before and after the change; either may be nil.
type Revalidator struct {
	loader *cache.Loader
}

func NewRevalidator(loader *cache.Loader) *Revalidator {
	return &Revalidator{loader: loader}
}

func (r *Revalidator) document(ctx context.Context, collection string, slugs ...string) {
	seen := make(map[string]bool, len(slugs))
	for _, slug := range slugs {
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		r.loader.Revalidate(ctx, cache.DocumentTag(collection, slug), "document")
	}
}

func (r *Revalidator) Page(ctx context.Context, before, after *models.Page) {
	var slugs []string
	if before != nil {
		slugs = append(slugs, before.Slug)
	}
	if after != nil {
		slugs = append(slugs, after.Slug)
	}
	r.document(ctx, models.CollectionPages, slugs...)
}

// Post also drops the listings, since a post can enter, leave or move within
// them.
func (r *Revalidator) Post(ctx context.Context, before, after *models.Post) {
	var slugs []string
	if before != nil {
		slugs = append(slugs, before.Slug)
	}
	if after != nil {
		slugs = append(slugs, after.Slug)
	}
	r.document(ctx, models.CollectionPosts, slugs...)
	r.Posts(ctx)
}

func (r *Revalidator) Posts(ctx context.Context) {
	r.loader.Revalidate(ctx, cache.TagPosts, "posts")
}

func (r *Revalidator) Redirects(ctx context.Context) {
	r.loader.Revalidate(ctx, cache.TagRedirects, "redirects")
}

func (r *Revalidator) Global(ctx context.Context, slug string) {
	r.loader.Revalidate(ctx, cache.GlobalTag(slug), "global")
}
