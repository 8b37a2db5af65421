package models

import "time"

// PopulatedAuthor is the public projection of a post author.
type PopulatedAuthor struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

type Post struct {
	Base         `bson:",inline"`
	Title        string    `json:"title" bson:"title"`
	Slug         string    `json:"slug" bson:"slug"`
	HeroImage    string    `json:"heroImage,omitempty" bson:"heroImage,omitempty"`
	Content      string    `json:"content" bson:"content"`
	RelatedPosts []string  `json:"relatedPosts,omitempty" bson:"relatedPosts,omitempty"`
	Categories   []string  `json:"categories,omitempty" bson:"categories,omitempty"`
	Authors      []string  `json:"authors,omitempty" bson:"authors,omitempty"`
	Meta         Meta      `json:"meta" bson:"meta"`
	Status       Status    `json:"_status" bson:"_status" mapstructure:"_status"`
	PublishedAt  time.Time `json:"publishedAt" bson:"publishedAt"`

	PopulatedAuthors []PopulatedAuthor `json:"populatedAuthors,omitempty" bson:"-"`
	HeroImageDoc     *Media            `json:"heroImageDoc,omitempty" bson:"-"`
	CategoryDocs     []Category        `json:"categoryDocs,omitempty" bson:"-"`
	RelatedDocs      []Post            `json:"relatedDocs,omitempty" bson:"-"`
}

type Category struct {
	Base  `bson:",inline"`
	Title string `json:"title" bson:"title"`
	Slug  string `json:"slug" bson:"slug"`
}

// Published reports whether anonymous visitors may read the post.
func (p *Post) Published() bool { return p.Status == StatusPublished }
