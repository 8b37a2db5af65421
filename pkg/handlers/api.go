package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"site-cms/pkg/logger"
	"site-cms/pkg/models"
	"site-cms/pkg/services"
	"site-cms/pkg/store"
	"site-cms/pkg/utils"
)

const defaultAPILimit = 10

var errInvalidBody = errors.New("invalid request")

// resource is one collection exposed over the API.
type resource interface {
	info() models.Collection
	find(ctx context.Context, q store.Query, public bool) (interface{}, error)
	findByID(ctx context.Context, id string, public bool) (interface{}, error)
	create(ctx context.Context, raw map[string]interface{}) (interface{}, error)
	update(ctx context.Context, id string, raw map[string]interface{}) (interface{}, error)
	remove(ctx context.Context, id string) (interface{}, error)
}

type typedResource[T any] struct {
	collection models.Collection
	coll       store.Collection[T]

	// visible hides documents from anonymous readers; nil shows everything.
	visible func(*T) bool
	// beforeChange runs on the decoded document before it is stored.
	// existing is nil on create.
	beforeChange func(ctx context.Context, raw map[string]interface{}, doc, existing *T) error
	// afterChange runs once a write succeeded. before is nil on create and
	// after is nil on delete.
	afterChange func(ctx context.Context, before, after *T)
	// removeFn replaces the plain delete.
	removeFn func(ctx context.Context, id string) (*T, error)
}

func (r *typedResource[T]) info() models.Collection { return r.collection }

func (r *typedResource[T]) find(ctx context.Context, q store.Query, public bool) (interface{}, error) {
	if public && r.visible != nil {
		if q.Where == nil {
			q.Where = store.Where{}
		}
		q.Where["_status"] = string(models.StatusPublished)
	}
	return r.coll.Find(ctx, q)
}

func (r *typedResource[T]) findByID(ctx context.Context, id string, public bool) (interface{}, error) {
	doc, err := r.coll.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if public && r.visible != nil && !r.visible(doc) {
		return nil, fmt.Errorf("%s %s: %w", r.collection.Slug, id, store.ErrNotFound)
	}
	return doc, nil
}

func (r *typedResource[T]) create(ctx context.Context, raw map[string]interface{}) (interface{}, error) {
	delete(raw, "id")
	merged := utils.DeepMerge(r.collection.Defaults(), raw)

	doc := new(T)
	if err := remarshal(merged, doc); err != nil {
		return nil, err
	}
	if r.beforeChange != nil {
		if err := r.beforeChange(ctx, raw, doc, nil); err != nil {
			return nil, err
		}
	}
	if err := r.coll.Create(ctx, doc); err != nil {
		return nil, err
	}
	if r.afterChange != nil {
		r.afterChange(ctx, nil, doc)
	}
	return doc, nil
}

// update merges the patch over the stored document.
func (r *typedResource[T]) update(ctx context.Context, id string, raw map[string]interface{}) (interface{}, error) {
	existing, err := r.coll.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	current := map[string]interface{}{}
	if err := remarshal(existing, &current); err != nil {
		return nil, err
	}
	delete(raw, "id")
	merged := utils.DeepMerge(current, raw)

	doc := new(T)
	if err := remarshal(merged, doc); err != nil {
		return nil, err
	}
	if r.beforeChange != nil {
		if err := r.beforeChange(ctx, raw, doc, existing); err != nil {
			return nil, err
		}
	}
	if err := r.coll.Update(ctx, doc); err != nil {
		return nil, err
	}
	if r.afterChange != nil {
		r.afterChange(ctx, existing, doc)
	}
	return doc, nil
}

func (r *typedResource[T]) remove(ctx context.Context, id string) (interface{}, error) {
	if r.removeFn != nil {
		return r.removeFn(ctx, id)
	}
	existing, err := r.coll.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.coll.Delete(ctx, id); err != nil {
		return nil, err
	}
	if r.afterChange != nil {
		r.afterChange(ctx, existing, nil)
	}
	return existing, nil
}

// remarshal converts between documents and their JSON maps.
func remarshal(in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return nil
}

func publishedAtOnPublish(status models.Status, publishedAt *time.Time) {
	if status == models.StatusPublished && publishedAt.IsZero() {
		*publishedAt = time.Now().UTC()
	}
}

// APIHandler exposes the collections and globals as JSON.
type APIHandler struct {
	resources   map[string]resource
	content     *services.Content
	store       store.Store
	revalidator *services.Revalidator
	log         logger.Logger
}

func NewAPIHandler(st store.Store, content *services.Content, rv *services.Revalidator, media *services.MediaService, log logger.Logger) *APIHandler {
	if log == nil {
		log = logger.NewNop()
	}
	h := &APIHandler{
		resources:   make(map[string]resource),
		content:     content,
		store:       st,
		revalidator: rv,
		log:         log,
	}

	h.register(&typedResource[models.Page]{
		collection: mustCollection(models.CollectionPages),
		coll:       st.Pages(),
		visible:    (*models.Page).Published,
		beforeChange: func(_ context.Context, _ map[string]interface{}, doc, _ *models.Page) error {
			if doc.Slug == "" {
				doc.Slug = utils.FormatSlug(doc.Title)
			}
			publishedAtOnPublish(doc.Status, &doc.PublishedAt)
			return nil
		},
		afterChange: rv.Page,
	})

	h.register(&typedResource[models.Post]{
		collection: mustCollection(models.CollectionPosts),
		coll:       st.Posts(),
		visible:    (*models.Post).Published,
		beforeChange: func(_ context.Context, _ map[string]interface{}, doc, _ *models.Post) error {
			if doc.Slug == "" {
				doc.Slug = utils.FormatSlug(doc.Title)
			}
			publishedAtOnPublish(doc.Status, &doc.PublishedAt)
			return nil
		},
		afterChange: rv.Post,
	})

	h.register(&typedResource[models.Category]{
		collection: mustCollection(models.CollectionCategories),
		coll:       st.Categories(),
		beforeChange: func(_ context.Context, _ map[string]interface{}, doc, _ *models.Category) error {
			if doc.Slug == "" {
				doc.Slug = utils.FormatSlug(doc.Title)
			}
			return nil
		},
		afterChange: func(ctx context.Context, _, _ *models.Category) { rv.Posts(ctx) },
	})

	h.register(&typedResource[models.Media]{
		collection: mustCollection(models.CollectionMedia),
		coll:       st.Media(),
		beforeChange: func(_ context.Context, _ map[string]interface{}, doc, existing *models.Media) error {
			if existing == nil {
				return fmt.Errorf("%w: media must be uploaded as multipart form data", errInvalidBody)
			}
			alt := doc.Alt
			*doc = *existing
			doc.Alt = alt
			return nil
		},
		afterChange: func(ctx context.Context, _, _ *models.Media) { rv.Posts(ctx) },
		removeFn:    media.Delete,
	})

	h.register(&typedResource[models.User]{
		collection: mustCollection(models.CollectionUsers),
		coll:       st.Users(),
		beforeChange: func(_ context.Context, raw map[string]interface{}, doc, existing *models.User) error {
			doc.Email = strings.ToLower(strings.TrimSpace(doc.Email))
			if doc.Email == "" {
				return fmt.Errorf("%w: email is required", errInvalidBody)
			}
			if existing != nil {
				doc.PasswordHash = existing.PasswordHash
			}
			if password, _ := raw["password"].(string); password != "" {
				hash, err := services.HashPassword(password)
				if err != nil {
					return err
				}
				doc.PasswordHash = hash
			}
			if doc.PasswordHash == "" {
				return fmt.Errorf("%w: password is required", errInvalidBody)
			}
			return nil
		},
	})

	h.register(&typedResource[models.Redirect]{
		collection: mustCollection(models.CollectionRedirects),
		coll:       st.Redirects(),
		beforeChange: func(_ context.Context, _ map[string]interface{}, doc, _ *models.Redirect) error {
			if doc.From == "" {
				return fmt.Errorf("%w: from is required", errInvalidBody)
			}
			return nil
		},
		afterChange: func(ctx context.Context, _, _ *models.Redirect) { rv.Redirects(ctx) },
	})

	h.register(&typedResource[models.FormSubmission]{
		collection: mustCollection(models.CollectionFormSubmissions),
		coll:       st.FormSubmissions(),
	})

	return h
}

func (h *APIHandler) register(r resource) {
	h.resources[r.info().Slug] = r
}

func mustCollection(slug string) models.Collection {
	c, ok := models.LookupCollection(slug)
	if !ok {
		panic("unregistered collection " + slug)
	}
	return c
}

// resource resolves :collection and checks read access.
func (h *APIHandler) resource(c *gin.Context) (resource, bool) {
	r, ok := h.resources[c.Param("collection")]
	if !ok {
		apiError(c, http.StatusNotFound, "The requested resource was not found.")
		return nil, false
	}
	if !r.info().PublicRead && CurrentUser(c) == nil {
		apiError(c, http.StatusForbidden, "You are not allowed to perform this action.")
		return nil, false
	}
	return r, true
}

// List is GET /api/:collection.
func (h *APIHandler) List(c *gin.Context) {
	r, ok := h.resource(c)
	if !ok {
		return
	}
	q, err := parseQuery(c)
	if err != nil {
		apiFailure(c, err)
		return
	}
	res, err := r.find(c.Request.Context(), q, CurrentUser(c) == nil)
	if err != nil {
		apiFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get is GET /api/:collection/:id.
func (h *APIHandler) Get(c *gin.Context) {
	r, ok := h.resource(c)
	if !ok {
		return
	}
	doc, err := r.findByID(c.Request.Context(), c.Param("id"), CurrentUser(c) == nil)
	if err != nil {
		apiFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Create is POST /api/:collection.
func (h *APIHandler) Create(c *gin.Context) {
	r, ok := h.resource(c)
	if !ok {
		return
	}
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		apiFailure(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	doc, err := r.create(c.Request.Context(), raw)
	if err != nil {
		apiFailure(c, err)
		return
	}
	h.log.Info("document created", logger.String("collection", r.info().Slug))
	c.JSON(http.StatusCreated, gin.H{"doc": doc, "message": r.info().Label + " successfully created."})
}

// Update is PATCH /api/:collection/:id.
func (h *APIHandler) Update(c *gin.Context) {
	r, ok := h.resource(c)
	if !ok {
		return
	}
	var raw map[string]interface{}
	if err := c.ShouldBindJSON(&raw); err != nil {
		apiFailure(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	doc, err := r.update(c.Request.Context(), c.Param("id"), raw)
	if err != nil {
		apiFailure(c, err)
		return
	}
	h.log.Info("document updated", logger.String("collection", r.info().Slug), logger.String("id", c.Param("id")))
	c.JSON(http.StatusOK, gin.H{"doc": doc, "message": "Updated successfully."})
}

// Delete is DELETE /api/:collection/:id.
func (h *APIHandler) Delete(c *gin.Context) {
	r, ok := h.resource(c)
	if !ok {
		return
	}
	doc, err := r.remove(c.Request.Context(), c.Param("id"))
	if err != nil {
		apiFailure(c, err)
		return
	}
	h.log.Info("document deleted", logger.String("collection", r.info().Slug), logger.String("id", c.Param("id")))
	c.JSON(http.StatusOK, gin.H{"doc": doc, "message": "Deleted successfully."})
}

// GetGlobal is GET /api/globals/:slug.
func (h *APIHandler) GetGlobal(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		global interface{}
		err    error
	)
	switch c.Param("slug") {
	case models.GlobalHeader:
		global, err = services.GetCachedGlobal[models.Header](ctx, h.content, models.GlobalHeader)
	case models.GlobalFooter:
		global, err = services.GetCachedGlobal[models.Footer](ctx, h.content, models.GlobalFooter)
	default:
		apiError(c, http.StatusNotFound, "The requested resource was not found.")
		return
	}
	if err != nil {
		apiFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, global)
}

// UpdateGlobal is POST /api/globals/:slug.
func (h *APIHandler) UpdateGlobal(c *gin.Context) {
	slug := c.Param("slug")
	var global interface{}
	switch slug {
	case models.GlobalHeader:
		global = &models.Header{}
	case models.GlobalFooter:
		global = &models.Footer{}
	default:
		apiError(c, http.StatusNotFound, "The requested resource was not found.")
		return
	}
	if err := c.ShouldBindJSON(global); err != nil {
		apiFailure(c, fmt.Errorf("%w: %v", errInvalidBody, err))
		return
	}
	if err := services.SaveGlobal(c.Request.Context(), h.store, h.revalidator, slug, global); err != nil {
		apiFailure(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": global, "message": "Global saved successfully."})
}

// parseQuery reads limit, page, sort and where[field][op] parameters.
func parseQuery(c *gin.Context) (store.Query, error) {
	q := store.Query{Limit: defaultAPILimit, Page: 1, Sort: apiField(c.Query("sort"))}

	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%w: limit must be a non-negative integer", errInvalidBody)
		}
		q.Limit = n
	}
	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return q, fmt.Errorf("%w: page must be a positive integer", errInvalidBody)
		}
		q.Page = n
	}

	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(key, "where[") || len(values) == 0 {
			continue
		}
		field, op := parseWhereKey(key)
		if field == "" {
			return q, fmt.Errorf("%w: malformed %s", errInvalidBody, key)
		}
		if q.Where == nil {
			q.Where = store.Where{}
		}
		switch op {
		case "", "equals":
			q.Where[apiField(field)] = values[0]
		case "in":
			q.Where[apiField(field)] = store.In(strings.Split(values[0], ","))
		default:
			return q, fmt.Errorf("%w: unsupported operator %q", errInvalidBody, op)
		}
	}
	if err := q.Validate(); err != nil {
		return q, fmt.Errorf("%w: %v", errInvalidBody, err)
	}
	return q, nil
}

// parseWhereKey splits "where[slug][equals]" into "slug" and "equals".
func parseWhereKey(key string) (field, op string) {
	rest := strings.TrimPrefix(key, "where")
	var parts []string
	for strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			return "", ""
		}
		parts = append(parts, rest[1:end])
		rest = rest[end+1:]
	}
	if rest != "" || len(parts) == 0 || len(parts) > 2 {
		return "", ""
	}
	if len(parts) == 2 {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

// apiField maps API field names onto stored ones.
func apiField(name string) string {
	desc := strings.HasPrefix(name, "-")
	name = strings.TrimPrefix(name, "-")
	if name == "id" {
		name = "_id"
	}
	if desc {
		return "-" + name
	}
	return name
}
