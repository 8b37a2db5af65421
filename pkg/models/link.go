package models

// Reference points at another document by collection and slug.
type Reference struct {
	RelationTo string `json:"relationTo" bson:"relationTo"`
	Slug       string `json:"slug" bson:"slug"`
}

// Link is either an internal reference or a custom URL.
type Link struct {
	Type       string     `json:"type,omitempty" bson:"type,omitempty"`
	NewTab     bool       `json:"newTab,omitempty" bson:"newTab,omitempty"`
	Reference  *Reference `json:"reference,omitempty" bson:"reference,omitempty"`
	URL        string     `json:"url,omitempty" bson:"url,omitempty"`
	Label      string     `json:"label,omitempty" bson:"label,omitempty"`
	Appearance string     `json:"appearance,omitempty" bson:"appearance,omitempty"`
}

// Href resolves the link target. Pages live at the root, other collections
// under their slug.
func (l Link) Href() string {
	if l.Type == "reference" && l.Reference != nil && l.Reference.Slug != "" {
		if l.Reference.RelationTo != "" && l.Reference.RelationTo != "pages" {
			return "/" + l.Reference.RelationTo + "/" + l.Reference.Slug
		}
		return "/" + l.Reference.Slug
	}
	return l.URL
}

type NavItem struct {
	Link Link `json:"link" bson:"link"`
}
