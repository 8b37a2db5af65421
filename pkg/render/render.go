// Package render turns documents into HTML: the embedded page templates,
// markdown rich text and the layout block dispatch.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"site-cms/pkg/logger"
	"site-cms/pkg/models"
	"site-cms/pkg/utils"
)

// blockTemplates maps a layout block type to the template rendering it.
var blockTemplates = map[string]string{
	models.BlockHighImpactHero:   "hero-highImpact",
	models.BlockMediumImpactHero: "hero-mediumImpact",
	models.BlockLowImpactHero:    "hero-lowImpact",
	models.BlockArchive:          "block-archive",
	models.BlockContent:          "block-content",
	models.BlockCallToAction:     "block-cta",
	models.BlockMedia:            "block-media",
}

type Renderer struct {
	tmpl *template.Template
	md   goldmark.Markdown
	log  logger.Logger
}

func New(log logger.Logger) (*Renderer, error) {
	if log == nil {
		log = logger.NewNop()
	}
	r := &Renderer{
		md:  goldmark.New(goldmark.WithExtensions(extension.GFM)),
		log: log,
	}
	tmpl, err := template.New("site").Funcs(r.funcs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

// Template is the parsed template set, for gin's HTML renderer.
func (r *Renderer) Template() *template.Template {
	return r.tmpl
}

func (r *Renderer) funcs() template.FuncMap {
	return template.FuncMap{
		"markdown":      r.Markdown,
		"renderBlocks":  r.RenderBlocks,
		"renderHero":    r.RenderHero,
		"formatAuthors": utils.FormatAuthors,
		"formatDate":    utils.FormatDate,
		"kebab":         utils.ToKebabCase,
		"columnClass":   columnClass,
		"add":           func(a, b int) int { return a + b },
		"sub":           func(a, b int) int { return a - b },
	}
}

// Markdown renders rich text. Raw HTML in the source is not passed through.
func (r *Renderer) Markdown(src string) template.HTML {
	if strings.TrimSpace(src) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		r.log.Warn("markdown conversion failed", logger.Error(err))
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// RenderBlocks renders each block with the template for its type. Blocks
// without a known type are skipped.
func (r *Renderer) RenderBlocks(blocks []models.Block) (template.HTML, error) {
	var buf bytes.Buffer
	for i := range blocks {
		name, ok := blockTemplates[blocks[i].BlockType]
		if !ok {
			if blocks[i].BlockType != "" {
				r.log.Debug("skipping unknown block", logger.String("block_type", blocks[i].BlockType))
			}
			continue
		}
		if err := r.tmpl.ExecuteTemplate(&buf, name, blocks[i]); err != nil {
			return "", fmt.Errorf("render %s block: %w", blocks[i].BlockType, err)
		}
	}
	return template.HTML(buf.String()), nil
}

// RenderHero renders a page hero by its type. "none" and unknown types
// render nothing.
func (r *Renderer) RenderHero(hero models.Hero) (template.HTML, error) {
	name := "hero-" + hero.Type
	if hero.Type == "" || hero.Type == "none" || r.tmpl.Lookup(name) == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, hero); err != nil {
		return "", fmt.Errorf("render %s hero: %w", hero.Type, err)
	}
	return template.HTML(buf.String()), nil
}

// HeaderTheme is the header colour scheme a page asks for.
func HeaderTheme(page *models.Page) string {
	if page != nil && page.Hero.Type == "highImpact" {
		return "dark"
	}
	return ""
}

func columnClass(size string) string {
	switch size {
	case "half":
		return "col-6"
	case "oneThird":
		return "col-4"
	case "twoThirds":
		return "col-8"
	}
	return "col-12"
}
