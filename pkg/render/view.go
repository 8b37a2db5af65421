package render

import (
	"site-cms/pkg/models"
	"site-cms/pkg/seo"
)

// View is the data every page template receives.
type View struct {
	Meta        seo.Metadata
	Theme       string
	HeaderTheme string
	Header      *models.Header
	Footer      *models.Footer
	Path        string

	Page       *models.Page
	Post       *models.Post
	Posts      []models.Post
	Pagination *Pagination
	PageRange  string

	User     *models.User
	Flash    string
	Error    string
	GitHub   bool
	Form     map[string]string
	NotFound bool
}
