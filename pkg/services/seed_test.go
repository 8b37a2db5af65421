package services_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"site-cms/pkg/logger"
	"site-cms/pkg/models"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

var seedFiles = map[string]string{
	"users.yaml": `
- email: Demo@Example.com
  name: Demo Author
  password: demo
`,
	"categories.yaml": `
- title: Technology
- title: News
  slug: news
`,
	"media.yaml": `
- filename: notes.txt
  alt: Release notes
`,
	"media/notes.txt": "release notes",
	"posts/first.md": `---
title: First Post
_status: published
publishedAt: 2024-01-02
categories: [technology]
authors: [demo@example.com]
relatedPosts: [second]
meta:
  title: First
  description: The first post
---
Hello **world**.
`,
	"posts/second.md": `+++
title = "Second Post"
slug = "second"
_status = "published"
publishedAt = 2024-02-03T10:00:00Z
+++
Second body.
`,
	"posts/draft.md": `{"title": "Draft"}
Not yet.
`,
	"pages/home.md": `---
title: Home
_status: published
hero:
  type: highImpact
  richText: "# Welcome"
  links:
    - type: reference
      reference: {relationTo: pages, slug: contact}
      label: Contact
blocks:
  - blockType: archive
    populateBy: selection
    selectedDocs: [first]
---
Intro text.
`,
	"header.yaml": `
navItems:
  - link: {type: custom, url: /posts, label: Posts}
`,
	"redirects.yaml": `
- from: /old
  to: {type: reference, reference: {relationTo: posts, slug: first}}
  statusCode: 301
`,
}

func newSeeder(t *testing.T, e *env) *services.Seeder {
	t.Helper()
	blobs, err := services.NewFSBlobs(t.TempDir())
	require.NoError(t, err)
	media := services.NewMediaService(e.store.Media(), blobs, logger.NewNop(), nil)
	return services.NewSeeder(e.store, media, e.revalidator, logger.NewNop())
}

func TestSeeder_ImportsDirectory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	dir := t.TempDir()
	writeFiles(t, dir, seedFiles)

	report, err := newSeeder(t, e).Seed(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, services.SeedReport{
		Users: 1, Categories: 2, Media: 1, Posts: 3, Pages: 1, Redirects: 1, Globals: 1,
	}, report)

	user, err := e.store.Users().FindOne(ctx, store.Where{"email": "demo@example.com"})
	require.NoError(t, err)

	first, err := e.content.GetCachedPost(ctx, "first")
	require.NoError(t, err)
	assert.Equal(t, "Hello **world**.", first.Content)
	assert.Equal(t, 2024, first.PublishedAt.Year())
	assert.Equal(t, []models.PopulatedAuthor{{ID: user.ID, Name: "Demo Author"}}, first.PopulatedAuthors)
	require.Len(t, first.CategoryDocs, 1)
	assert.Equal(t, "technology", first.CategoryDocs[0].Slug)
	require.Len(t, first.RelatedDocs, 1)
	assert.Equal(t, "second", first.RelatedDocs[0].Slug)

	_, err = e.content.GetCachedPost(ctx, "draft")
	assert.ErrorIs(t, err, store.ErrNotFound, "json front matter without status defaults to draft")

	home, err := e.content.GetCachedPage(ctx, "home")
	require.NoError(t, err)
	assert.Equal(t, "highImpact", home.Hero.Type)
	require.Len(t, home.Hero.Links, 1)
	assert.Equal(t, "/contact", home.Hero.Links[0].Href())
	require.Len(t, home.Blocks, 2)
	assert.Equal(t, []string{"first"}, slugs(home.Blocks[0].Docs))
	assert.Equal(t, models.BlockContent, home.Blocks[1].BlockType)
	assert.Equal(t, "Intro text.", home.Blocks[1].Columns[0].RichText)

	media, err := e.store.Media().FindOne(ctx, store.Where{"filename": "notes.txt"})
	require.NoError(t, err)
	assert.Equal(t, "Release notes", media.Alt)

	r, err := e.content.FindRedirect(ctx, "/old")
	require.NoError(t, err)
	assert.Equal(t, "/posts/first", r.Destination())
	assert.Equal(t, 301, r.Code())
}

func TestSeeder_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	dir := t.TempDir()
	writeFiles(t, dir, seedFiles)
	seeder := newSeeder(t, e)

	_, err := seeder.Seed(ctx, dir)
	require.NoError(t, err)
	first, err := e.store.Posts().FindOne(ctx, store.Where{"slug": "first"})
	require.NoError(t, err)

	writeFiles(t, dir, map[string]string{"posts/second.md": `---
title: Second Post Revised
slug: second
_status: published
---
`})
	_, err = seeder.Seed(ctx, dir)
	require.NoError(t, err)

	n, err := e.store.Posts().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	again, err := e.store.Posts().FindOne(ctx, store.Where{"slug": "first"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	second, err := e.content.GetCachedPost(ctx, "second")
	require.NoError(t, err)
	assert.Equal(t, "Second Post Revised", second.Title)
}

func TestSeeder_EmptyDirectory(t *testing.T) {
	e := newEnv(t)
	report, err := newSeeder(t, e).Seed(context.Background(), t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, services.SeedReport{}, report)
}

func TestSeeder_ConcurrentRunsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t)
	dir := t.TempDir()
	writeFiles(t, dir, seedFiles)
	seeder := newSeeder(t, e)

	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			_, err := seeder.Seed(ctx, dir)
			return err
		})
	}
	require.NoError(t, g.Wait())

	n, err := e.store.Posts().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	n, err = e.store.Categories().Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
