package seo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"site-cms/pkg/config"
	"site-cms/pkg/models"
	"site-cms/pkg/seo"
)

func newGenerator() *seo.Generator {
	return seo.NewGenerator(config.Site{
		Name:        "Acme",
		Description: "Acme things",
		OGImage:     "/og.webp",
		Twitter:     config.Twitter{Card: "summary_large_image", Creator: "@acme"},
	}, "https://acme.test/")
}

func TestMergeOpenGraph_Defaults(t *testing.T) {
	og := newGenerator().MergeOpenGraph(nil)
	assert.Equal(t, seo.OpenGraph{
		Type:        "website",
		Description: "Acme things",
		SiteName:    "Acme",
		Title:       "Acme",
		Images:      []seo.Image{{URL: "https://acme.test/og.webp"}},
	}, og)
}

func TestMergeOpenGraph_Overrides(t *testing.T) {
	og := newGenerator().MergeOpenGraph(&seo.OpenGraph{Title: "About", URL: "/about"})
	assert.Equal(t, "About", og.Title)
	assert.Equal(t, "/about", og.URL)
	assert.Equal(t, "Acme things", og.Description)
	assert.Equal(t, []seo.Image{{URL: "https://acme.test/og.webp"}}, og.Images)

	og = newGenerator().MergeOpenGraph(&seo.OpenGraph{Images: []seo.Image{{URL: "x"}}})
	assert.Equal(t, []seo.Image{{URL: "x"}}, og.Images)
}

func TestImageURL(t *testing.T) {
	g := newGenerator()
	assert.Equal(t, "https://acme.test/og.webp", g.ImageURL(nil))
	assert.Equal(t, "https://acme.test/api/media/file/a.png",
		g.ImageURL(&models.Media{URL: "/api/media/file/a.png"}))
	assert.Equal(t, "https://acme.test/api/media/file/a-1200x630.jpg",
		g.ImageURL(&models.Media{
			URL:   "/api/media/file/a.png",
			Sizes: map[string]models.MediaSize{"og": {URL: "/api/media/file/a-1200x630.jpg"}},
		}))
}

func TestGenerateMeta(t *testing.T) {
	g := newGenerator()

	meta := g.GenerateMeta(seo.FromPage(&models.Page{
		Slug: "about",
		Meta: models.Meta{Title: "About", Description: "Who we are"},
	}))
	assert.Equal(t, "About | Acme", meta.Title)
	assert.Equal(t, "Who we are", meta.Description)
	assert.Equal(t, "About | Acme", meta.OpenGraph.Title)
	assert.Equal(t, "/about", meta.OpenGraph.URL)
	assert.Equal(t, "Acme", meta.OpenGraph.SiteName)
	assert.Equal(t, "@acme", meta.Twitter.Creator)

	meta = g.GenerateMeta(seo.FromPost(&models.Post{Slug: "hello"}))
	assert.Equal(t, "Acme", meta.Title)
	assert.Equal(t, "Acme things", meta.OpenGraph.Description)
	assert.Equal(t, "/posts/hello", meta.OpenGraph.URL)
	assert.Equal(t, []seo.Image{{URL: "https://acme.test/og.webp"}}, meta.OpenGraph.Images)
}

func TestGenerateMeta_NilDocument(t *testing.T) {
	meta := newGenerator().GenerateMeta(seo.FromPage(nil))
	assert.Equal(t, "Acme", meta.Title)
	assert.Equal(t, "/", meta.OpenGraph.URL)
}
