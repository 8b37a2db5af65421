// Package store defines the document storage used by the site and the
// pagination envelope returned to callers.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"site-cms/pkg/models"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")

	ErrInvalidField = errors.New("invalid field name")
	ErrPageRange    = errors.New("page out of range")
)

// DefaultSort matches the CMS default of newest first.
const DefaultSort = "-createdAt"

// Where is a conjunction of field conditions. Plain values match by equality
// (or membership for array fields); In matches any of the listed values.
type Where map[string]interface{}

// In matches a field against a set of values.
type In []string

// Query selects and pages through a collection. Limit 0 disables pagination.
type Query struct {
	Where Where
	Sort  string
	Limit int
	Page  int
}

// Skip is the number of documents before the requested page. It saturates
// at math.MaxInt instead of overflowing.
func (q Query) Skip() int {
	if q.Limit <= 0 || q.Page <= 1 {
		return 0
	}
	if !q.InRange() {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// InRange reports whether the page offset fits in an int.
func (q Query) InRange() bool {
	return q.Limit <= 0 || q.Page <= 1 || q.Page-1 <= math.MaxInt/q.Limit
}

// ValidField reports whether name may be used in a filter or sort. Names
// that MongoDB would read as operators are refused.
func ValidField(name string) bool {
	return name != "" && !strings.Contains(name, "$")
}

// Validate checks the field names and page offset of q.
func (q Query) Validate() error {
	for key := range q.Where {
		if !ValidField(key) {
			return fmt.Errorf("%q: %w", key, ErrInvalidField)
		}
	}
	if q.Sort != "" {
		if field, _ := ParseSort(q.Sort); !ValidField(field) {
			return fmt.Errorf("%q: %w", q.Sort, ErrInvalidField)
		}
	}
	if !q.InRange() {
		return fmt.Errorf("page %d: %w", q.Page, ErrPageRange)
	}
	return nil
}

// ParseSort splits "-field" into its field name and direction.
func ParseSort(sort string) (field string, desc bool) {
	if sort == "" {
		sort = DefaultSort
	}
	if strings.HasPrefix(sort, "-") {
		return strings.TrimPrefix(sort, "-"), true
	}
	return sort, false
}

// Result is the paginated envelope returned by Find.
type Result[T any] struct {
	Docs          []T  `json:"docs"`
	TotalDocs     int  `json:"totalDocs"`
	Limit         int  `json:"limit"`
	Page          int  `json:"page"`
	TotalPages    int  `json:"totalPages"`
	HasNextPage   bool `json:"hasNextPage"`
	HasPrevPage   bool `json:"hasPrevPage"`
	NextPage      *int `json:"nextPage"`
	PrevPage      *int `json:"prevPage"`
	PagingCounter int  `json:"pagingCounter"`
}

// NewResult computes the pagination fields for one page of docs out of total.
func NewResult[T any](docs []T, total int, q Query) *Result[T] {
	if docs == nil {
		docs = []T{}
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	totalPages := 1
	if limit <= 0 {
		limit = total
		page = 1
	} else if total > 0 {
		totalPages = (total + limit - 1) / limit
	}

	counter := q.Skip()
	if counter < math.MaxInt {
		counter++
	}
	r := &Result[T]{
		Docs:          docs,
		TotalDocs:     total,
		Limit:         limit,
		Page:          page,
		TotalPages:    totalPages,
		HasPrevPage:   page > 1,
		HasNextPage:   page < totalPages,
		PagingCounter: counter,
	}
	if r.HasPrevPage {
		prev := page - 1
		r.PrevPage = &prev
	}
	if r.HasNextPage {
		next := page + 1
		r.NextPage = &next
	}
	return r
}

// Collection is a typed view over one stored collection.
type Collection[T any] interface {
	Find(ctx context.Context, q Query) (*Result[T], error)
	FindByID(ctx context.Context, id string) (*T, error)
	FindOne(ctx context.Context, where Where) (*T, error)
	Count(ctx context.Context, where Where) (int, error)
	Create(ctx context.Context, doc *T) error
	Update(ctx context.Context, doc *T) error
	Delete(ctx context.Context, id string) error
}

// Globals stores singleton documents by slug.
type Globals interface {
	// Get decodes the global into out. A global never written leaves out
	// untouched and is not an error.
	Get(ctx context.Context, slug string, out interface{}) error
	Put(ctx context.Context, slug string, doc interface{}) error
}

type Store interface {
	Pages() Collection[models.Page]
	Posts() Collection[models.Post]
	Categories() Collection[models.Category]
	Media() Collection[models.Media]
	Users() Collection[models.User]
	Redirects() Collection[models.Redirect]
	FormSubmissions() Collection[models.FormSubmission]
	Globals() Globals
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// UniqueFields names the field that must be unique in each collection.
var UniqueFields = map[string]string{
	models.CollectionPages:      "slug",
	models.CollectionPosts:      "slug",
	models.CollectionCategories: "slug",
	models.CollectionMedia:      "filename",
	models.CollectionUsers:      "email",
	models.CollectionRedirects:  "from",
}

// PrepareCreate assigns an ID when missing and stamps timestamps.
func PrepareCreate(doc interface{}, now time.Time) (*models.Base, error) {
	d, ok := doc.(models.Document)
	if !ok {
		return nil, fmt.Errorf("store: %T is not a document", doc)
	}
	base := d.GetBase()
	if base.ID == "" {
		base.ID = uuid.NewString()
	}
	base.Touch(now)
	return base, nil
}

// PrepareUpdate stamps UpdatedAt, keeping CreatedAt from the stored copy.
func PrepareUpdate(doc interface{}, existingCreatedAt, now time.Time) (*models.Base, error) {
	d, ok := doc.(models.Document)
	if !ok {
		return nil, fmt.Errorf("store: %T is not a document", doc)
	}
	base := d.GetBase()
	if base.ID == "" {
		return nil, fmt.Errorf("store: update without id: %w", ErrNotFound)
	}
	if base.CreatedAt.IsZero() {
		base.CreatedAt = existingCreatedAt
	}
	base.Touch(now)
	return base, nil
}
