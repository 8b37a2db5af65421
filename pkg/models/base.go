package models

import "time"

// Status is the publication state of drafts-enabled documents.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Base holds the fields every stored document has.
type Base struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// GetBase exposes the shared fields to generic storage code.
func (b *Base) GetBase() *Base { return b }

// Touch stamps UpdatedAt, and CreatedAt on first write.
func (b *Base) Touch(now time.Time) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

// Document is implemented by pointers to every collection type.
type Document interface {
	GetBase() *Base
}
