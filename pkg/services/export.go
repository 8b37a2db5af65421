package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"site-cms/pkg/logger"
	"site-cms/pkg/models"
	"site-cms/pkg/store"
)

// Exporter writes posts out as posts/<slug>.md in the layout the Seeder
// reads. References are written as slugs, emails and media filenames so the
// files can be imported into another store.
type Exporter struct {
	store store.Store
	log   logger.Logger
}

func NewExporter(st store.Store, log logger.Logger) *Exporter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Exporter{store: st, log: log}
}

// ExportPosts writes every post, drafts included, with front matter in
// format. It returns the number of files written.
func (e *Exporter) ExportPosts(ctx context.Context, dir, format string) (int, error) {
	if format == "" {
		format = FormatYAML
	}
	switch format {
	case FormatYAML, FormatTOML, FormatJSON:
	default:
		return 0, fmt.Errorf("%s: %w", format, ErrUnknownFrontMatter)
	}

	refs, err := e.references(ctx)
	if err != nil {
		return 0, err
	}
	posts, err := e.store.Posts().Find(ctx, store.Query{Sort: "slug"})
	if err != nil {
		return 0, err
	}

	postsDir := filepath.Join(dir, "posts")
	if err := os.MkdirAll(postsDir, 0755); err != nil {
		return 0, fmt.Errorf("create %s: %w", postsDir, err)
	}
	written := 0
	for i := range posts.Docs {
		post := &posts.Docs[i]
		if post.Slug == "" || strings.HasPrefix(post.Slug, ".") || strings.ContainsAny(post.Slug, `/\`) {
			e.log.Warn("post without a usable slug skipped", logger.String("id", post.ID), logger.String("slug", post.Slug))
			continue
		}
		content, err := ConstructFileContent(refs.frontMatter(post), post.Content, format)
		if err != nil {
			return written, fmt.Errorf("post %s: %w", post.Slug, err)
		}
		path := filepath.Join(postsDir, post.Slug+".md")
		if err := os.WriteFile(path, content, 0644); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written++
	}
	e.log.Info("export complete", logger.String("dir", dir), logger.Int("posts", written))
	return written, nil
}

type exportRefs struct {
	categories map[string]string
	users      map[string]string
	media      map[string]string
	posts      map[string]string
}

func (e *Exporter) references(ctx context.Context) (*exportRefs, error) {
	refs := &exportRefs{}
	var err error
	if refs.categories, err = index(ctx, e.store.Categories(), func(c *models.Category) string { return c.Slug }); err != nil {
		return nil, err
	}
	if refs.users, err = index(ctx, e.store.Users(), func(u *models.User) string { return u.Email }); err != nil {
		return nil, err
	}
	if refs.media, err = index(ctx, e.store.Media(), func(m *models.Media) string { return m.Filename }); err != nil {
		return nil, err
	}
	if refs.posts, err = index(ctx, e.store.Posts(), func(p *models.Post) string { return p.Slug }); err != nil {
		return nil, err
	}
	return refs, nil
}

// index maps document IDs onto the key the Seeder resolves them by.
func index[T any](ctx context.Context, coll store.Collection[T], key func(*T) string) (map[string]string, error) {
	res, err := coll.Find(ctx, store.Query{})
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(res.Docs))
	for i := range res.Docs {
		doc := &res.Docs[i]
		out[any(doc).(models.Document).GetBase().ID] = key(doc)
	}
	return out, nil
}

func lookup(ids map[string]string, id string) string {
	if key, ok := ids[id]; ok {
		return key
	}
	return id
}

func lookupAll(ids map[string]string, refs []string) []interface{} {
	out := make([]interface{}, 0, len(refs))
	for _, id := range refs {
		out = append(out, lookup(ids, id))
	}
	return out
}

func (r *exportRefs) frontMatter(post *models.Post) map[string]interface{} {
	fm := map[string]interface{}{
		"title": post.Title,
		"slug":  post.Slug,
	}
	if post.Status != "" {
		fm["_status"] = string(post.Status)
	}
	if !post.PublishedAt.IsZero() {
		fm["publishedAt"] = post.PublishedAt.UTC().Format(time.RFC3339)
	}
	if post.HeroImage != "" {
		fm["heroImage"] = lookup(r.media, post.HeroImage)
	}
	if len(post.Categories) > 0 {
		fm["categories"] = lookupAll(r.categories, post.Categories)
	}
	if len(post.Authors) > 0 {
		fm["authors"] = lookupAll(r.users, post.Authors)
	}
	if len(post.RelatedPosts) > 0 {
		fm["relatedPosts"] = lookupAll(r.posts, post.RelatedPosts)
	}

	meta := map[string]interface{}{}
	if post.Meta.Title != "" {
		meta["title"] = post.Meta.Title
	}
	if post.Meta.Description != "" {
		meta["description"] = post.Meta.Description
	}
	if post.Meta.Image != "" {
		meta["image"] = lookup(r.media, post.Meta.Image)
	}
	if len(meta) > 0 {
		fm["meta"] = meta
	}
	return fm
}
