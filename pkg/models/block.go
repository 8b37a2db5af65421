package models

const (
	BlockHighImpactHero   = "HighImpactHero"
	BlockMediumImpactHero = "MediumImpactHero"
	BlockLowImpactHero    = "LowImpactHero"
	BlockArchive          = "archive"
	BlockContent          = "content"
	BlockCallToAction     = "cta"
	BlockMedia            = "mediaBlock"
)

type Column struct {
	Size       string `json:"size,omitempty" bson:"size,omitempty"`
	RichText   string `json:"richText,omitempty" bson:"richText,omitempty"`
	EnableLink bool   `json:"enableLink,omitempty" bson:"enableLink,omitempty"`
	Link       Link   `json:"link,omitempty" bson:"link,omitempty"`
}

// Block is one entry of a page layout. Which fields matter depends on
// BlockType.
type Block struct {
	BlockType string   `json:"blockType" bson:"blockType"`
	BlockName string   `json:"blockName,omitempty" bson:"blockName,omitempty"`
	RichText  string   `json:"richText,omitempty" bson:"richText,omitempty"`
	Links     []Link   `json:"links,omitempty" bson:"links,omitempty"`
	Media     string   `json:"media,omitempty" bson:"media,omitempty"`
	Columns   []Column `json:"columns,omitempty" bson:"columns,omitempty"`

	// archive
	IntroContent string   `json:"introContent,omitempty" bson:"introContent,omitempty"`
	PopulateBy   string   `json:"populateBy,omitempty" bson:"populateBy,omitempty"`
	RelationTo   string   `json:"relationTo,omitempty" bson:"relationTo,omitempty"`
	Categories   []string `json:"categories,omitempty" bson:"categories,omitempty"`
	Limit        int      `json:"limit,omitempty" bson:"limit,omitempty"`
	SelectedDocs []string `json:"selectedDocs,omitempty" bson:"selectedDocs,omitempty"`

	MediaDoc *Media `json:"mediaDoc,omitempty" bson:"-"`
	Docs     []Post `json:"docs,omitempty" bson:"-"`
}
