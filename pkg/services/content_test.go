package services_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-cms/pkg/models"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
)

func TestGetCachedPost_PublishedOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.post(t, publishedPost("live", time.Now()))
	e.post(t, models.Post{Title: "Draft", Slug: "draft", Status: models.StatusDraft})

	post, err := e.content.GetCachedPost(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, "live", post.Slug)

	_, err = e.content.GetCachedPost(ctx, "draft")
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = e.content.GetCachedPost(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetCachedPost_StaysCachedUntilRevalidated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	p := e.post(t, publishedPost("hello", time.Now()))

	_, err := e.content.GetCachedPost(ctx, "hello")
	require.NoError(t, err)

	before := *p
	p.Title = "Changed"
	require.NoError(t, e.store.Posts().Update(ctx, p))

	cached, err := e.content.GetCachedPost(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", cached.Title)

	e.revalidator.Post(ctx, &before, p)

	fresh, err := e.content.GetCachedPost(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "Changed", fresh.Title)
}

func TestGetCachedPost_Populates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ann := &models.User{Email: "ann@example.com", Name: "Ann"}
	require.NoError(t, e.store.Users().Create(ctx, ann))
	cat := &models.Category{Title: "News", Slug: "news"}
	require.NoError(t, e.store.Categories().Create(ctx, cat))
	img := &models.Media{Filename: "a.png", URL: "/api/media/file/a.png"}
	require.NoError(t, e.store.Media().Create(ctx, img))

	related := e.post(t, publishedPost("related", time.Now()))
	hidden := e.post(t, models.Post{Slug: "hidden", Status: models.StatusDraft})

	p := publishedPost("main", time.Now())
	p.Authors = []string{ann.ID, "gone"}
	p.Categories = []string{cat.ID}
	p.HeroImage = img.ID
	p.Meta.Image = "missing-media"
	p.RelatedPosts = []string{related.ID, hidden.ID}
	e.post(t, p)

	got, err := e.content.GetCachedPost(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, []models.PopulatedAuthor{{ID: ann.ID, Name: "Ann"}}, got.PopulatedAuthors)
	require.Len(t, got.CategoryDocs, 1)
	assert.Equal(t, "News", got.CategoryDocs[0].Title)
	require.NotNil(t, got.HeroImageDoc)
	assert.Equal(t, "a.png", got.HeroImageDoc.Filename)
	assert.Nil(t, got.Meta.ImageDoc)
	require.Len(t, got.RelatedDocs, 1)
	assert.Equal(t, "related", got.RelatedDocs[0].Slug)
}

func TestGetCachedPage_ArchiveBlocks(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tech := &models.Category{Title: "Tech", Slug: "tech"}
	require.NoError(t, e.store.Categories().Create(ctx, tech))

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := publishedPost("first", base)
	first.Categories = []string{tech.ID}
	e.post(t, first)
	second := publishedPost("second", base.Add(time.Hour))
	second.Categories = []string{tech.ID}
	e.post(t, second)
	other := e.post(t, publishedPost("other", base.Add(2*time.Hour)))

	e.page(t, models.Page{
		Title: "Home", Slug: "home", Status: models.StatusPublished,
		Blocks: []models.Block{
			{BlockType: models.BlockArchive, PopulateBy: "collection", Categories: []string{tech.ID}},
			{BlockType: models.BlockArchive, PopulateBy: "collection", Limit: 1},
			{BlockType: models.BlockArchive, PopulateBy: "selection", SelectedDocs: []string{other.ID, "nope"}},
		},
	})

	page, err := e.content.GetCachedPage(ctx, "home")
	require.NoError(t, err)
	require.Len(t, page.Blocks, 3)

	assert.Equal(t, []string{"second", "first"}, slugs(page.Blocks[0].Docs))
	assert.Equal(t, []string{"other"}, slugs(page.Blocks[1].Docs))
	assert.Equal(t, []string{"other"}, slugs(page.Blocks[2].Docs))
}

func TestGetCachedPage_ArchiveRevalidatedByPostWrite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.page(t, models.Page{
		Title: "Home", Slug: "home", Status: models.StatusPublished,
		Blocks: []models.Block{{BlockType: models.BlockArchive, PopulateBy: "collection"}},
	})

	page, err := e.content.GetCachedPage(ctx, "home")
	require.NoError(t, err)
	assert.Empty(t, page.Blocks[0].Docs)

	p := e.post(t, publishedPost("fresh", time.Now()))
	e.revalidator.Post(ctx, nil, p)

	page, err = e.content.GetCachedPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh"}, slugs(page.Blocks[0].Docs))
}

func TestGetCachedDocument_Dispatch(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.page(t, models.Page{Slug: "about", Status: models.StatusPublished})

	doc, err := e.content.GetCachedDocument(ctx, models.CollectionPages, "about")
	require.NoError(t, err)
	assert.IsType(t, &models.Page{}, doc)

	_, err = e.content.GetCachedDocument(ctx, "widgets", "x")
	assert.ErrorIs(t, err, services.ErrUnknownCollection)
}

func TestListPosts_Pagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 14 {
		e.post(t, publishedPost(fmt.Sprintf("p%02d", i), base.Add(time.Duration(i)*time.Hour)))
	}
	e.post(t, models.Post{Slug: "draft", Status: models.StatusDraft})

	page1, err := e.content.ListPosts(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, page1.Docs, services.PostsPerPage)
	assert.Equal(t, 14, page1.TotalDocs)
	assert.Equal(t, 2, page1.TotalPages)
	assert.Equal(t, "p13", page1.Docs[0].Slug)

	page2, err := e.content.ListPosts(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p01", "p00"}, slugs(page2.Docs))
	assert.False(t, page2.HasNextPage)

	n, err := e.content.CountPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 14, n)
}

func TestListPosts_RevalidatedByPostWrite(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.post(t, publishedPost("one", time.Now()))

	res, err := e.content.ListPosts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalDocs)

	p := e.post(t, publishedPost("two", time.Now().Add(time.Minute)))
	res, err = e.content.ListPosts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalDocs, "listing is served from cache")

	e.revalidator.Post(ctx, nil, p)
	res, err = e.content.ListPosts(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.TotalDocs)
}

func TestGetCachedGlobal(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	empty, err := services.GetCachedGlobal[models.Header](ctx, e.content, models.GlobalHeader)
	require.NoError(t, err)
	assert.Empty(t, empty.NavItems)

	header := &models.Header{NavItems: []models.NavItem{{Link: models.Link{Type: "custom", URL: "/posts", Label: "Posts"}}}}
	require.NoError(t, services.SaveGlobal(ctx, e.store, e.revalidator, models.GlobalHeader, header))

	got, err := services.GetCachedGlobal[models.Header](ctx, e.content, models.GlobalHeader)
	require.NoError(t, err)
	require.Len(t, got.NavItems, 1)
	assert.Equal(t, "Posts", got.NavItems[0].Link.Label)
}

func TestFindRedirect(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.Redirects().Create(ctx, &models.Redirect{
		From: "/old-post",
		To:   models.RedirectTarget{Type: "reference", Reference: &models.Reference{RelationTo: "posts", Slug: "new-post"}},
	}))
	require.NoError(t, e.store.Redirects().Create(ctx, &models.Redirect{
		From:       "/docs",
		To:         models.RedirectTarget{Type: "custom", URL: "https://example.com/docs"},
		StatusCode: http.StatusMovedPermanently,
	}))

	r, err := e.content.FindRedirect(ctx, "/old-post/")
	require.NoError(t, err)
	assert.Equal(t, "/posts/new-post", r.Destination())
	assert.Equal(t, http.StatusTemporaryRedirect, r.Code())

	r, err = e.content.FindRedirect(ctx, "/docs")
	require.NoError(t, err)
	assert.Equal(t, http.StatusMovedPermanently, r.Code())

	_, err = e.content.FindRedirect(ctx, "/nowhere")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func slugs(posts []models.Post) []string {
	out := make([]string, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.Slug)
	}
	return out
}
