// Package memory is an in-process Store used for local development and
// tests. Documents are kept bson-encoded so filters and sorting see the same
// field names as the MongoDB backend.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"site-cms/pkg/models"
	"site-cms/pkg/store"
)

type Store struct {
	pages       *collection[models.Page]
	posts       *collection[models.Post]
	categories  *collection[models.Category]
	media       *collection[models.Media]
	users       *collection[models.User]
	redirects   *collection[models.Redirect]
	submissions *collection[models.FormSubmission]
	globals     *globals
}

func New() *Store {
	return &Store{
		pages:       newCollection[models.Page](models.CollectionPages),
		posts:       newCollection[models.Post](models.CollectionPosts),
		categories:  newCollection[models.Category](models.CollectionCategories),
		media:       newCollection[models.Media](models.CollectionMedia),
		users:       newCollection[models.User](models.CollectionUsers),
		redirects:   newCollection[models.Redirect](models.CollectionRedirects),
		submissions: newCollection[models.FormSubmission](models.CollectionFormSubmissions),
		globals:     &globals{docs: make(map[string][]byte)},
	}
}

func (s *Store) Pages() store.Collection[models.Page]         { return s.pages }
func (s *Store) Posts() store.Collection[models.Post]         { return s.posts }
func (s *Store) Categories() store.Collection[models.Category] { return s.categories }
func (s *Store) Media() store.Collection[models.Media]         { return s.media }
func (s *Store) Users() store.Collection[models.User]          { return s.users }
func (s *Store) Redirects() store.Collection[models.Redirect]  { return s.redirects }
func (s *Store) FormSubmissions() store.Collection[models.FormSubmission] {
	return s.submissions
}
func (s *Store) Globals() store.Globals { return s.globals }

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

type entry struct {
	id     string
	raw    []byte
	fields bson.M
}

type collection[T any] struct {
	mu      sync.RWMutex
	name    string
	unique  string
	entries []*entry
	now     func() time.Time
}

func newCollection[T any](name string) *collection[T] {
	return &collection[T]{name: name, unique: store.UniqueFields[name], now: time.Now}
}

func encode(doc interface{}) (*entry, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var fields bson.M
	if err := bson.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	id, _ := fields["_id"].(string)
	return &entry{id: id, raw: raw, fields: fields}, nil
}

func (c *collection[T]) decode(e *entry) (*T, error) {
	var doc T
	if err := bson.Unmarshal(e.raw, &doc); err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", c.name, e.id, err)
	}
	return &doc, nil
}

func (c *collection[T]) indexOf(id string) int {
	for i, e := range c.entries {
		if e.id == id {
			return i
		}
	}
	return -1
}

func (c *collection[T]) matching(where store.Where) []*entry {
	var out []*entry
	for _, e := range c.entries {
		if matches(e.fields, where) {
			out = append(out, e)
		}
	}
	return out
}

func (c *collection[T]) Find(_ context.Context, q store.Query) (*store.Result[T], error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matched := c.matching(q.Where)
	field, desc := store.ParseSort(q.Sort)
	sort.SliceStable(matched, func(i, j int) bool {
		cmp := compare(matched[i].fields[field], matched[j].fields[field])
		if desc {
			return cmp > 0
		}
		return cmp < 0
	})

	total := len(matched)
	start := min(max(q.Skip(), 0), total)
	end := total
	if q.Limit > 0 && q.Limit < total-start {
		end = start + q.Limit
	}

	docs := make([]T, 0, end-start)
	for _, e := range matched[start:end] {
		doc, err := c.decode(e)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return store.NewResult(docs, total, q), nil
}

func (c *collection[T]) FindByID(_ context.Context, id string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i := c.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%s %s: %w", c.name, id, store.ErrNotFound)
	}
	return c.decode(c.entries[i])
}

func (c *collection[T]) FindOne(_ context.Context, where store.Where) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matched := c.matching(where)
	if len(matched) == 0 {
		return nil, fmt.Errorf("%s: %w", c.name, store.ErrNotFound)
	}
	return c.decode(matched[0])
}

func (c *collection[T]) Count(_ context.Context, where store.Where) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.matching(where)), nil
}

func (c *collection[T]) Create(_ context.Context, doc *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := any(doc).(models.Document)
	if !ok {
		return fmt.Errorf("store: %T is not a document", doc)
	}
	// A failed create leaves the caller's document as it was.
	saved := *d.GetBase()
	base, err := store.PrepareCreate(doc, c.now())
	if err != nil {
		return err
	}
	e, err := encode(doc)
	if err != nil {
		*base = saved
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	if c.indexOf(e.id) >= 0 || c.violatesUnique(e) {
		*base = saved
		return fmt.Errorf("%s %s: %w", c.name, e.id, store.ErrDuplicate)
	}
	c.entries = append(c.entries, e)
	return nil
}

func (c *collection[T]) Update(_ context.Context, doc *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := any(doc).(models.Document)
	if !ok {
		return fmt.Errorf("store: %T is not a document", doc)
	}
	i := c.indexOf(d.GetBase().ID)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", c.name, d.GetBase().ID, store.ErrNotFound)
	}

	var createdAt time.Time
	if dt, ok := c.entries[i].fields["createdAt"].(primitive.DateTime); ok {
		createdAt = dt.Time()
	}
	if _, err := store.PrepareUpdate(doc, createdAt, c.now()); err != nil {
		return err
	}
	e, err := encode(doc)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.name, err)
	}
	if c.violatesUnique(e) {
		return fmt.Errorf("%s %s: %w", c.name, e.id, store.ErrDuplicate)
	}
	c.entries[i] = e
	return nil
}

func (c *collection[T]) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%s %s: %w", c.name, id, store.ErrNotFound)
	}
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return nil
}

func (c *collection[T]) violatesUnique(e *entry) bool {
	if c.unique == "" {
		return false
	}
	value, ok := e.fields[c.unique]
	if !ok || value == "" {
		return false
	}
	for _, other := range c.entries {
		if other.id != e.id && equal(other.fields[c.unique], value) {
			return true
		}
	}
	return false
}

func matches(fields bson.M, where store.Where) bool {
	for key, want := range where {
		got := fields[key]
		switch w := want.(type) {
		case store.In:
			if !anyIn(got, w) {
				return false
			}
		default:
			if !fieldEquals(got, w) {
				return false
			}
		}
	}
	return true
}

// fieldEquals treats array fields like MongoDB: any element may match.
func fieldEquals(got, want interface{}) bool {
	if arr, ok := got.(primitive.A); ok {
		for _, v := range arr {
			if equal(v, want) {
				return true
			}
		}
		return false
	}
	return equal(got, want)
}

func anyIn(got interface{}, values store.In) bool {
	for _, v := range values {
		if fieldEquals(got, v) {
			return true
		}
	}
	return false
}

func equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compare(a, b interface{}) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch av := a.(type) {
	case primitive.DateTime:
		if bv, ok := b.(primitive.DateTime); ok {
			return compareOrdered(int64(av), int64(bv))
		}
	case string:
		if bv, ok := b.(string); ok {
			return strings.Compare(av, bv)
		}
	case int32, int64, float64:
		af, aok := toFloat(a)
		bf, bok := toFloat(b)
		if aok && bok {
			return compareOrdered(af, bf)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareOrdered[N int64 | float64](a, b N) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

type globals struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func (g *globals) Get(_ context.Context, slug string, out interface{}) error {
	g.mu.RLock()
	raw, ok := g.docs[slug]
	g.mu.RUnlock()
	if !ok {
		return nil
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode global %s: %w", slug, err)
	}
	return nil
}

func (g *globals) Put(_ context.Context, slug string, doc interface{}) error {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode global %s: %w", slug, err)
	}
	g.mu.Lock()
	g.docs[slug] = raw
	g.mu.Unlock()
	return nil
}
