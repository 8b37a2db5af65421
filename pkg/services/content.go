package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"site-cms/pkg/cache"
	"site-cms/pkg/logger"
	"site-cms/pkg/models"
	"site-cms/pkg/store"
)

const (
	// PostsPerPage is the size of one page of the posts archive.
	PostsPerPage = 12
	// DefaultArchiveLimit applies to archive blocks that do not set one.
	DefaultArchiveLimit = 10
)

// Content serves published documents to the site through the tag cache.
type Content struct {
	store   store.Store
	loader  *cache.Loader
	log     logger.Logger
	listTTL time.Duration
}

func NewContent(st store.Store, loader *cache.Loader, log logger.Logger, listTTL time.Duration) *Content {
	if log == nil {
		log = logger.NewNop()
	}
	return &Content{store: st, loader: loader, log: log, listTTL: listTTL}
}

func (s *Content) Store() store.Store { return s.store }

func published(where store.Where) store.Where {
	w := store.Where{"_status": string(models.StatusPublished)}
	for k, v := range where {
		w[k] = v
	}
	return w
}

// GetCachedDocument fetches a published page or post by slug.
func (s *Content) GetCachedDocument(ctx context.Context, collection, slug string) (interface{}, error) {
	switch collection {
	case models.CollectionPages:
		return s.GetCachedPage(ctx, slug)
	case models.CollectionPosts:
		return s.GetCachedPost(ctx, slug)
	}
	return nil, fmt.Errorf("%s: %w", collection, ErrUnknownCollection)
}

func (s *Content) GetCachedPage(ctx context.Context, slug string) (*models.Page, error) {
	key := "doc:" + models.CollectionPages + ":" + slug
	// Archive blocks embed posts, so post writes drop pages too.
	tags := []string{cache.DocumentTag(models.CollectionPages, slug), cache.TagPosts}
	return cache.Cached(ctx, s.loader, key, tags, 0, func(ctx context.Context) (*models.Page, error) {
		page, err := s.store.Pages().FindOne(ctx, published(store.Where{"slug": slug}))
		if err != nil {
			return nil, err
		}
		s.populatePage(ctx, page)
		return page, nil
	})
}

func (s *Content) GetCachedPost(ctx context.Context, slug string) (*models.Post, error) {
	key := "doc:" + models.CollectionPosts + ":" + slug
	tags := []string{cache.DocumentTag(models.CollectionPosts, slug)}
	return cache.Cached(ctx, s.loader, key, tags, 0, func(ctx context.Context) (*models.Post, error) {
		post, err := s.store.Posts().FindOne(ctx, published(store.Where{"slug": slug}))
		if err != nil {
			return nil, err
		}
		s.populatePost(ctx, post)
		return post, nil
	})
}

// GetCachedGlobal fetches a global by slug. A global that was never saved
// comes back empty.
func GetCachedGlobal[T any](ctx context.Context, s *Content, slug string) (*T, error) {
	key := "global:" + slug
	return cache.Cached(ctx, s.loader, key, []string{cache.GlobalTag(slug)}, 0, func(ctx context.Context) (*T, error) {
		var global T
		if err := s.store.Globals().Get(ctx, slug, &global); err != nil {
			return nil, err
		}
		return &global, nil
	})
}

// GetCachedRedirects returns every redirect in one cached list.
func (s *Content) GetCachedRedirects(ctx context.Context) ([]models.Redirect, error) {
	return cache.Cached(ctx, s.loader, "redirects", []string{cache.TagRedirects}, 0, func(ctx context.Context) ([]models.Redirect, error) {
		res, err := s.store.Redirects().Find(ctx, store.Query{Sort: "from"})
		if err != nil {
			return nil, err
		}
		return res.Docs, nil
	})
}

// FindRedirect looks up the redirect whose from matches path, ignoring a
// trailing slash.
func (s *Content) FindRedirect(ctx context.Context, path string) (*models.Redirect, error) {
	redirects, err := s.GetCachedRedirects(ctx)
	if err != nil {
		return nil, err
	}
	want := normalizePath(path)
	for i := range redirects {
		if normalizePath(redirects[i].From) == want && redirects[i].Destination() != "" {
			return &redirects[i], nil
		}
	}
	return nil, fmt.Errorf("redirect %s: %w", path, store.ErrNotFound)
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// ListPosts returns one page of published posts, newest first.
func (s *Content) ListPosts(ctx context.Context, page int) (*store.Result[models.Post], error) {
	if page < 1 {
		page = 1
	}
	key := "posts:page:" + strconv.Itoa(page)
	return cache.Cached(ctx, s.loader, key, []string{cache.TagPosts}, s.listTTL, func(ctx context.Context) (*store.Result[models.Post], error) {
		res, err := s.store.Posts().Find(ctx, store.Query{
			Where: published(nil),
			Sort:  "-publishedAt",
			Limit: PostsPerPage,
			Page:  page,
		})
		if err != nil {
			return nil, err
		}
		for i := range res.Docs {
			s.populateCard(ctx, &res.Docs[i])
		}
		return res, nil
	})
}

// CountPosts is the number of published posts.
func (s *Content) CountPosts(ctx context.Context) (int, error) {
	return cache.Cached(ctx, s.loader, "posts:count", []string{cache.TagPosts}, s.listTTL, func(ctx context.Context) (int, error) {
		return s.store.Posts().Count(ctx, published(nil))
	})
}

// Population resolves references one level deep. A dangling reference is
// logged and left unresolved so rendering can carry on without it.

func (s *Content) media(ctx context.Context, id string) *models.Media {
	if id == "" {
		return nil
	}
	m, err := s.store.Media().FindByID(ctx, id)
	if err != nil {
		s.logMissing("media", id, err)
		return nil
	}
	return m
}

func (s *Content) logMissing(kind, id string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		s.log.Debug("unresolved reference", logger.String("kind", kind), logger.String("id", id))
		return
	}
	s.log.Warn("resolve reference failed", logger.String("kind", kind), logger.String("id", id), logger.Error(err))
}

func (s *Content) populatePage(ctx context.Context, page *models.Page) {
	page.Hero.MediaDoc = s.media(ctx, page.Hero.Media)
	page.Meta.ImageDoc = s.media(ctx, page.Meta.Image)
	for i := range page.Blocks {
		block := &page.Blocks[i]
		block.MediaDoc = s.media(ctx, block.Media)
		if block.BlockType == models.BlockArchive {
			block.Docs = s.archivePosts(ctx, block)
		}
	}
}

func (s *Content) archivePosts(ctx context.Context, block *models.Block) []models.Post {
	if block.PopulateBy == "selection" {
		var docs []models.Post
		for _, id := range block.SelectedDocs {
			post, err := s.store.Posts().FindByID(ctx, id)
			if err != nil {
				s.logMissing("post", id, err)
				continue
			}
			if post.Status != models.StatusPublished {
				continue
			}
			s.populateCard(ctx, post)
			docs = append(docs, *post)
		}
		return docs
	}

	limit := block.Limit
	if limit <= 0 {
		limit = DefaultArchiveLimit
	}
	where := store.Where{}
	if len(block.Categories) > 0 {
		where["categories"] = store.In(block.Categories)
	}
	res, err := s.store.Posts().Find(ctx, store.Query{
		Where: published(where),
		Sort:  "-publishedAt",
		Limit: limit,
		Page:  1,
	})
	if err != nil {
		s.log.Warn("archive block query failed", logger.Error(err))
		return nil
	}
	for i := range res.Docs {
		s.populateCard(ctx, &res.Docs[i])
	}
	return res.Docs
}

func (s *Content) categories(ctx context.Context, ids []string) []models.Category {
	if len(ids) == 0 {
		return nil
	}
	res, err := s.store.Categories().Find(ctx, store.Query{Where: store.Where{"_id": store.In(ids)}, Sort: "title"})
	if err != nil {
		s.log.Warn("resolve categories failed", logger.Error(err))
		return nil
	}
	return res.Docs
}

// populateCard fills what a post card shows.
func (s *Content) populateCard(ctx context.Context, post *models.Post) {
	post.Meta.ImageDoc = s.media(ctx, post.Meta.Image)
	post.CategoryDocs = s.categories(ctx, post.Categories)
}

func (s *Content) populatePost(ctx context.Context, post *models.Post) {
	s.populateCard(ctx, post)
	post.HeroImageDoc = s.media(ctx, post.HeroImage)

	post.PopulatedAuthors = post.PopulatedAuthors[:0]
	for _, id := range post.Authors {
		user, err := s.store.Users().FindByID(ctx, id)
		if err != nil {
			s.logMissing("user", id, err)
			continue
		}
		post.PopulatedAuthors = append(post.PopulatedAuthors, models.PopulatedAuthor{ID: user.ID, Name: user.Name})
	}

	post.RelatedDocs = nil
	for _, id := range post.RelatedPosts {
		if id == post.ID {
			continue
		}
		related, err := s.store.Posts().FindByID(ctx, id)
		if err != nil {
			s.logMissing("post", id, err)
			continue
		}
		if related.Status != models.StatusPublished {
			continue
		}
		s.populateCard(ctx, related)
		post.RelatedDocs = append(post.RelatedDocs, *related)
	}
}
