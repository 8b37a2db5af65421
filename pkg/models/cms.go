package models

const (
	CollectionPages           = "pages"
	CollectionPosts           = "posts"
	CollectionCategories      = "categories"
	CollectionMedia           = "media"
	CollectionUsers           = "users"
	CollectionRedirects       = "redirects"
	CollectionFormSubmissions = "form-submissions"
)

// Collection describes how a stored collection is exposed.
type Collection struct {
	Slug       string
	Label      string
	PublicRead bool
	Drafts     bool
	Fields     []Field
}

// Field carries the default applied when a new document omits it.
type Field struct {
	Name    string
	Default interface{}
}

// Defaults returns the field defaults as a document fragment.
func (c Collection) Defaults() map[string]interface{} {
	defaults := make(map[string]interface{}, len(c.Fields))
	for _, f := range c.Fields {
		if f.Default != nil {
			defaults[f.Name] = f.Default
		}
	}
	return defaults
}

var Collections = []Collection{
	{
		Slug: CollectionPages, Label: "Pages", PublicRead: true, Drafts: true,
		Fields: []Field{
			{Name: "_status", Default: string(StatusDraft)},
			{Name: "hero", Default: map[string]interface{}{"type": "lowImpact"}},
		},
	},
	{
		Slug: CollectionPosts, Label: "Posts", PublicRead: true, Drafts: true,
		Fields: []Field{
			{Name: "_status", Default: string(StatusDraft)},
		},
	},
	{Slug: CollectionCategories, Label: "Categories", PublicRead: true},
	{Slug: CollectionMedia, Label: "Media", PublicRead: true},
	{Slug: CollectionUsers, Label: "Users"},
	{Slug: CollectionRedirects, Label: "Redirects", PublicRead: true},
	{Slug: CollectionFormSubmissions, Label: "Form Submissions"},
}

// LookupCollection finds a collection by slug.
func LookupCollection(slug string) (Collection, bool) {
	for _, c := range Collections {
		if c.Slug == slug {
			return c, true
		}
	}
	return Collection{}, false
}
