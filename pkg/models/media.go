package models

// MediaSize is a derived rendition of an upload.
type MediaSize struct {
	URL      string `json:"url" bson:"url"`
	Width    int    `json:"width" bson:"width"`
	Height   int    `json:"height" bson:"height"`
	MimeType string `json:"mimeType,omitempty" bson:"mimeType,omitempty"`
	Filesize int64  `json:"filesize,omitempty" bson:"filesize,omitempty"`
	Filename string `json:"filename,omitempty" bson:"filename,omitempty"`
}

type Media struct {
	Base     `bson:",inline"`
	Alt      string               `json:"alt" bson:"alt"`
	Filename string               `json:"filename" bson:"filename"`
	MimeType string               `json:"mimeType" bson:"mimeType"`
	Filesize int64                `json:"filesize" bson:"filesize"`
	Width    int                  `json:"width,omitempty" bson:"width,omitempty"`
	Height   int                  `json:"height,omitempty" bson:"height,omitempty"`
	URL      string               `json:"url" bson:"url"`
	Sizes    map[string]MediaSize `json:"sizes,omitempty" bson:"sizes,omitempty"`
}
