// Package seo builds the title, description and OpenGraph tags rendered in
// the document head.
package seo

import (
	"strings"

	"site-cms/pkg/config"
	"site-cms/pkg/models"
)

type Image struct {
	URL string
}

type OpenGraph struct {
	Type        string
	Description string
	SiteName    string
	Title       string
	URL         string
	Images      []Image
}

type Twitter struct {
	Card    string
	Creator string
}

// Metadata is everything the layout needs for the <head>.
type Metadata struct {
	Title       string
	Description string
	OpenGraph   OpenGraph
	Twitter     Twitter
}

// Document is the part of a page or post that metadata is derived from.
type Document struct {
	Slug string
	Meta models.Meta
}

func FromPage(p *models.Page) Document {
	if p == nil {
		return Document{}
	}
	return Document{Slug: p.Slug, Meta: p.Meta}
}

func FromPost(p *models.Post) Document {
	if p == nil {
		return Document{}
	}
	return Document{Slug: "posts/" + p.Slug, Meta: p.Meta}
}

type Generator struct {
	site      config.Site
	serverURL string
}

func NewGenerator(site config.Site, serverURL string) *Generator {
	return &Generator{site: site, serverURL: strings.TrimSuffix(serverURL, "/")}
}

func (g *Generator) SiteName() string {
	return g.site.Name
}

func (g *Generator) defaultImage() string {
	return g.serverURL + g.site.OGImage
}

// DefaultOpenGraph is the site-wide OpenGraph block.
func (g *Generator) DefaultOpenGraph() OpenGraph {
	return OpenGraph{
		Type:        "website",
		Description: g.site.Description,
		Images:      []Image{{URL: g.defaultImage()}},
		SiteName:    g.site.Name,
		Title:       g.site.Name,
	}
}

// MergeOpenGraph lays og over the defaults. Empty fields keep the default and
// images are only replaced when og lists some.
func (g *Generator) MergeOpenGraph(og *OpenGraph) OpenGraph {
	out := g.DefaultOpenGraph()
	if og == nil {
		return out
	}
	if og.Type != "" {
		out.Type = og.Type
	}
	if og.Description != "" {
		out.Description = og.Description
	}
	if og.SiteName != "" {
		out.SiteName = og.SiteName
	}
	if og.Title != "" {
		out.Title = og.Title
	}
	if og.URL != "" {
		out.URL = og.URL
	}
	if len(og.Images) > 0 {
		out.Images = og.Images
	}
	return out
}

// ImageURL prefers the og rendition, then the original upload, then the
// site default image.
func (g *Generator) ImageURL(image *models.Media) string {
	if image == nil || image.URL == "" {
		return g.defaultImage()
	}
	if og, ok := image.Sizes["og"]; ok && og.URL != "" {
		return g.serverURL + og.URL
	}
	return g.serverURL + image.URL
}

// Twitter is the site-wide twitter card.
func (g *Generator) Twitter() Twitter {
	return Twitter{Card: g.site.Twitter.Card, Creator: g.site.Twitter.Creator}
}

// GenerateMeta derives the head metadata of a page or post.
func (g *Generator) GenerateMeta(doc Document) Metadata {
	title := g.site.Name
	if doc.Meta.Title != "" {
		title = doc.Meta.Title + " | " + g.site.Name
	}
	return Metadata{
		Title:       title,
		Description: doc.Meta.Description,
		OpenGraph: g.MergeOpenGraph(&OpenGraph{
			Description: doc.Meta.Description,
			Images:      []Image{{URL: g.ImageURL(doc.Meta.ImageDoc)}},
			Title:       title,
			URL:         "/" + doc.Slug,
		}),
		Twitter: g.Twitter(),
	}
}

// Static is the metadata of a route without a backing document.
func (g *Generator) Static(title, description string) Metadata {
	og := g.MergeOpenGraph(&OpenGraph{Title: title, Description: description})
	return Metadata{
		Title:       title,
		Description: description,
		OpenGraph:   og,
		Twitter:     g.Twitter(),
	}
}
