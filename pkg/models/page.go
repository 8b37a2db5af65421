package models

import "time"

// Meta is the SEO group shared by pages and posts.
type Meta struct {
	Title       string `json:"title,omitempty" bson:"title,omitempty"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Image       string `json:"image,omitempty" bson:"image,omitempty"`

	ImageDoc *Media `json:"imageDoc,omitempty" bson:"-"`
}

type Hero struct {
	Type     string `json:"type" bson:"type"`
	RichText string `json:"richText,omitempty" bson:"richText,omitempty"`
	Links    []Link `json:"links,omitempty" bson:"links,omitempty"`
	Media    string `json:"media,omitempty" bson:"media,omitempty"`

	MediaDoc *Media `json:"mediaDoc,omitempty" bson:"-"`
}

type Page struct {
	Base        `bson:",inline"`
	Title       string    `json:"title" bson:"title"`
	Slug        string    `json:"slug" bson:"slug"`
	Hero        Hero      `json:"hero" bson:"hero"`
	Blocks      []Block   `json:"blocks,omitempty" bson:"blocks,omitempty"`
	Meta        Meta      `json:"meta" bson:"meta"`
	Status      Status    `json:"_status" bson:"_status" mapstructure:"_status"`
	PublishedAt time.Time `json:"publishedAt" bson:"publishedAt"`
}

// Published reports whether anonymous visitors may read the page.
func (p *Page) Published() bool { return p.Status == StatusPublished }
