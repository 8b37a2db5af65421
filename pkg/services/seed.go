package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"site-cms/pkg/logger"
	"site-cms/pkg/models"
	"site-cms/pkg/store"
	"site-cms/pkg/utils"
)

// SeedReport counts the documents written by one import.
type SeedReport struct {
	Users      int
	Categories int
	Media      int
	Posts      int
	Pages      int
	Redirects  int
	Globals    int
}

// Seeder imports a content directory:
//
//	users.yaml       users (email, name, password, roles)
//	categories.yaml  categories (title, slug)
//	media/           files, stored under their own names
//	posts/*.md       posts, body is the content
//	pages/*.md       pages, body becomes a content block
//	header.yaml, footer.yaml, redirects.yaml
//
// Documents reference each other by slug, email or media filename. Existing
// documents are matched the same way and updated in place.
type Seeder struct {
	// mu serializes imports, which match existing documents before writing.
	mu          sync.Mutex
	store       store.Store
	media       *MediaService
	revalidator *Revalidator
	log         logger.Logger
}

func NewSeeder(st store.Store, media *MediaService, revalidator *Revalidator, log logger.Logger) *Seeder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Seeder{store: st, media: media, revalidator: revalidator, log: log}
}

type seedRun struct {
	*Seeder
	dir         string
	report      SeedReport
	userIDs     map[string]string
	categoryIDs map[string]string
	mediaIDs    map[string]string
	postIDs     map[string]string
}

type userFile struct {
	Email    string   `mapstructure:"email"`
	Name     string   `mapstructure:"name"`
	Password string   `mapstructure:"password"`
	Roles    []string `mapstructure:"roles"`
}

type mediaAlt struct {
	Filename string `mapstructure:"filename"`
	Alt      string `mapstructure:"alt"`
}

// Seed imports everything found in dir. Missing files are skipped.
func (s *Seeder) Seed(ctx context.Context, dir string) (SeedReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run := &seedRun{
		Seeder:      s,
		dir:         dir,
		userIDs:     map[string]string{},
		categoryIDs: map[string]string{},
		mediaIDs:    map[string]string{},
		postIDs:     map[string]string{},
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", run.seedUsers},
		{"categories", run.seedCategories},
		{"media", run.seedMedia},
		{"posts", run.seedPosts},
		{"pages", run.seedPages},
		{"globals", run.seedGlobals},
		{"redirects", run.seedRedirects},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			return run.report, fmt.Errorf("seed %s: %w", step.name, err)
		}
	}
	if run.report.Categories > 0 || run.report.Media > 0 {
		s.revalidator.Posts(ctx)
	}

	s.log.Info("seed complete",
		logger.String("dir", dir),
		logger.Int("users", run.report.Users),
		logger.Int("categories", run.report.Categories),
		logger.Int("media", run.report.Media),
		logger.Int("posts", run.report.Posts),
		logger.Int("pages", run.report.Pages),
		logger.Int("redirects", run.report.Redirects),
		logger.Int("globals", run.report.Globals),
	)
	return run.report, nil
}

// readData reads a yaml file into out. A missing file leaves out untouched.
func (r *seedRun) readData(name string, out interface{}) (bool, error) {
	content, err := os.ReadFile(filepath.Join(r.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var raw interface{}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := decodeDocument(sanitizeFrontMatterValue(raw), out); err != nil {
		return false, fmt.Errorf("decode %s: %w", name, err)
	}
	return true, nil
}

func (r *seedRun) seedUsers(ctx context.Context) error {
	var files []userFile
	if _, err := r.readData("users.yaml", &files); err != nil {
		return err
	}
	for _, f := range files {
		email := strings.ToLower(strings.TrimSpace(f.Email))
		if email == "" {
			continue
		}
		user := &models.User{Email: email, Name: f.Name, Roles: f.Roles}
		existing, err := r.store.Users().FindOne(ctx, store.Where{"email": email})
		switch {
		case err == nil:
			user.PasswordHash = existing.PasswordHash
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		if f.Password != "" {
			if user.PasswordHash, err = HashPassword(f.Password); err != nil {
				return err
			}
		}
		if _, err := upsert(ctx, r.store.Users(), existing, user); err != nil {
			return fmt.Errorf("user %s: %w", email, err)
		}
		r.userIDs[email] = user.ID
		r.report.Users++
	}
	return nil
}

func (r *seedRun) seedCategories(ctx context.Context) error {
	var cats []models.Category
	if _, err := r.readData("categories.yaml", &cats); err != nil {
		return err
	}
	for i := range cats {
		cat := &cats[i]
		if cat.Slug == "" {
			cat.Slug = utils.FormatSlug(cat.Title)
		}
		existing, err := findExisting(ctx, r.store.Categories(), store.Where{"slug": cat.Slug})
		if err != nil {
			return err
		}
		if _, err := upsert(ctx, r.store.Categories(), existing, cat); err != nil {
			return fmt.Errorf("category %s: %w", cat.Slug, err)
		}
		r.categoryIDs[cat.Slug] = cat.ID
		r.report.Categories++
	}
	return nil
}

func (r *seedRun) seedMedia(ctx context.Context) error {
	mediaDir := filepath.Join(r.dir, "media")
	entries, err := os.ReadDir(mediaDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var alts []mediaAlt
	if _, err := r.readData("media.yaml", &alts); err != nil {
		return err
	}
	altFor := make(map[string]string, len(alts))
	for _, a := range alts {
		altFor[a.Filename] = a.Alt
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(mediaDir, entry.Name()))
		if err != nil {
			return err
		}
		alt, ok := altFor[entry.Name()]
		if !ok {
			alt = humanize(entry.Name())
		}
		doc, err := r.Seeder.media.Import(ctx, entry.Name(), data, alt)
		if err != nil {
			return fmt.Errorf("media %s: %w", entry.Name(), err)
		}
		r.mediaIDs[entry.Name()] = doc.ID
		r.report.Media++
	}
	return nil
}

type markdownFile struct {
	name string
	fm   map[string]interface{}
	body string
}

func (r *seedRun) readMarkdown(sub, collection string) ([]markdownFile, error) {
	dir := filepath.Join(r.dir, sub)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	defaults := map[string]interface{}{}
	if c, ok := models.LookupCollection(collection); ok {
		defaults = c.Defaults()
	}

	var files []markdownFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		fm, body, _, err := ParseFrontMatter(content)
		if err != nil {
			return nil, fmt.Errorf("%s/%s: %w", sub, entry.Name(), err)
		}
		ApplyCollectionDefaults(fm, defaults)
		if _, ok := fm["slug"]; !ok {
			fm["slug"] = strings.TrimSuffix(entry.Name(), ".md")
		}
		files = append(files, markdownFile{name: entry.Name(), fm: fm, body: body})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })
	return files, nil
}

func (r *seedRun) seedPosts(ctx context.Context) error {
	files, err := r.readMarkdown("posts", models.CollectionPosts)
	if err != nil {
		return err
	}

	related := make(map[string][]string)
	for _, f := range files {
		post := &models.Post{}
		if err := decodeDocument(f.fm, post); err != nil {
			return fmt.Errorf("posts/%s: %w", f.name, err)
		}
		post.Content = f.body
		post.HeroImage = r.resolve(r.mediaIDs, post.HeroImage, "media")
		post.Meta.Image = r.resolve(r.mediaIDs, post.Meta.Image, "media")
		post.Categories = r.resolveAll(r.categoryIDs, post.Categories, "category")
		post.Authors = r.resolveAll(r.userIDs, lower(post.Authors), "user")
		related[post.Slug] = post.RelatedPosts
		post.RelatedPosts = nil
		defaultPublishedAt(post.Status, &post.PublishedAt)

		existing, err := findExisting(ctx, r.store.Posts(), store.Where{"slug": post.Slug})
		if err != nil {
			return err
		}
		if _, err := upsert(ctx, r.store.Posts(), existing, post); err != nil {
			return fmt.Errorf("post %s: %w", post.Slug, err)
		}
		r.revalidator.Post(ctx, existing, post)
		r.postIDs[post.Slug] = post.ID
		r.report.Posts++
	}

	// Related posts may point forward, so they are linked once every post
	// has an ID.
	for slug, refs := range related {
		if len(refs) == 0 {
			continue
		}
		post, err := r.store.Posts().FindOne(ctx, store.Where{"slug": slug})
		if err != nil {
			return err
		}
		post.RelatedPosts = r.resolveAll(r.postIDs, refs, "post")
		if err := r.store.Posts().Update(ctx, post); err != nil {
			return fmt.Errorf("post %s: %w", slug, err)
		}
		r.revalidator.Post(ctx, nil, post)
	}
	return nil
}

func (r *seedRun) seedPages(ctx context.Context) error {
	files, err := r.readMarkdown("pages", models.CollectionPages)
	if err != nil {
		return err
	}
	for _, f := range files {
		page := &models.Page{}
		if err := decodeDocument(f.fm, page); err != nil {
			return fmt.Errorf("pages/%s: %w", f.name, err)
		}
		if f.body != "" {
			page.Blocks = append(page.Blocks, models.Block{
				BlockType: models.BlockContent,
				Columns:   []models.Column{{Size: "full", RichText: f.body}},
			})
		}
		page.Hero.Media = r.resolve(r.mediaIDs, page.Hero.Media, "media")
		page.Meta.Image = r.resolve(r.mediaIDs, page.Meta.Image, "media")
		for i := range page.Blocks {
			b := &page.Blocks[i]
			b.Media = r.resolve(r.mediaIDs, b.Media, "media")
			b.Categories = r.resolveAll(r.categoryIDs, b.Categories, "category")
			b.SelectedDocs = r.resolveAll(r.postIDs, b.SelectedDocs, "post")
		}
		defaultPublishedAt(page.Status, &page.PublishedAt)

		existing, err := findExisting(ctx, r.store.Pages(), store.Where{"slug": page.Slug})
		if err != nil {
			return err
		}
		if _, err := upsert(ctx, r.store.Pages(), existing, page); err != nil {
			return fmt.Errorf("page %s: %w", page.Slug, err)
		}
		r.revalidator.Page(ctx, existing, page)
		r.report.Pages++
	}
	return nil
}

func (r *seedRun) seedGlobals(ctx context.Context) error {
	var header models.Header
	ok, err := r.readData("header.yaml", &header)
	if err != nil {
		return err
	}
	if ok {
		if err := SaveGlobal(ctx, r.store, r.revalidator, models.GlobalHeader, &header); err != nil {
			return err
		}
		r.report.Globals++
	}

	var footer models.Footer
	ok, err = r.readData("footer.yaml", &footer)
	if err != nil {
		return err
	}
	if ok {
		if err := SaveGlobal(ctx, r.store, r.revalidator, models.GlobalFooter, &footer); err != nil {
			return err
		}
		r.report.Globals++
	}
	return nil
}

func (r *seedRun) seedRedirects(ctx context.Context) error {
	var redirects []models.Redirect
	if _, err := r.readData("redirects.yaml", &redirects); err != nil {
		return err
	}
	for i := range redirects {
		rd := &redirects[i]
		if rd.From == "" {
			continue
		}
		existing, err := findExisting(ctx, r.store.Redirects(), store.Where{"from": rd.From})
		if err != nil {
			return err
		}
		if _, err := upsert(ctx, r.store.Redirects(), existing, rd); err != nil {
			return fmt.Errorf("redirect %s: %w", rd.From, err)
		}
		r.report.Redirects++
	}
	if len(redirects) > 0 {
		r.revalidator.Redirects(ctx)
	}
	return nil
}

// SaveGlobal stamps and stores a global, then drops its cache entry.
func SaveGlobal(ctx context.Context, st store.Store, rv *Revalidator, slug string, global interface{}) error {
	switch g := global.(type) {
	case *models.Header:
		g.UpdatedAt = time.Now()
	case *models.Footer:
		g.UpdatedAt = time.Now()
	}
	if err := st.Globals().Put(ctx, slug, global); err != nil {
		return err
	}
	rv.Global(ctx, slug)
	return nil
}

// resolve maps a human reference to a document ID. Unknown references are
// kept as given so that raw IDs also work.
func (r *seedRun) resolve(ids map[string]string, ref, kind string) string {
	if ref == "" {
		return ""
	}
	if id, ok := ids[ref]; ok {
		return id
	}
	r.log.Debug("seed reference kept as is", logger.String("kind", kind), logger.String("ref", ref))
	return ref
}

func (r *seedRun) resolveAll(ids map[string]string, refs []string, kind string) []string {
	if len(refs) == 0 {
		return nil
	}
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if id := r.resolve(ids, ref, kind); id != "" {
			out = append(out, id)
		}
	}
	return out
}

func findExisting[T any](ctx context.Context, coll store.Collection[T], where store.Where) (*T, error) {
	existing, err := coll.FindOne(ctx, where)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	return existing, err
}

// upsert updates existing in place with doc's fields, or creates doc.
func upsert[T any](ctx context.Context, coll store.Collection[T], existing, doc *T) (*T, error) {
	if existing == nil {
		return nil, coll.Create(ctx, doc)
	}
	base := any(doc).(models.Document).GetBase()
	prev := any(existing).(models.Document).GetBase()
	base.ID = prev.ID
	base.CreatedAt = prev.CreatedAt
	return existing, coll.Update(ctx, doc)
}

func defaultPublishedAt(status models.Status, publishedAt *time.Time) {
	if status == models.StatusPublished && publishedAt.IsZero() {
		*publishedAt = time.Now().UTC()
	}
}

func lower(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(strings.TrimSpace(v))
	}
	return out
}

func humanize(filename string) string {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	return strings.NewReplacer("-", " ", "_", " ").Replace(name)
}

var timeType = reflect.TypeOf(time.Time{})

// timeHook accepts the date shapes produced by the front matter decoders.
func timeHook(_ reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != timeType {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		if v == "" {
			return time.Time{}, nil
		}
		t, err := utils.ParseDate(v)
		if err != nil {
			return nil, err
		}
		return t, nil
	case toml.LocalDate:
		return v.AsTime(time.UTC), nil
	case toml.LocalDateTime:
		return v.AsTime(time.UTC), nil
	}
	return data, nil
}

func decodeDocument(input interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       timeHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
