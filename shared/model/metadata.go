package model

import "time"

// Metadata is the audit block embedded by every persisted entity.
type Metadata struct {
	CreatedAt  time.Time `db:"created_at"  json:"created_at"`
	ModifiedAt time.Time `db:"modified_at" json:"modified_at"`
	CreatedBy  string    `db:"created_by"`
	ModifiedBy string    `db:"modified_by"`
}

// NewMetadata stamps a freshly created row as created and last touched by actor at now.
func NewMetadata(actor string, now time.Time) Metadata {
	return Metadata{CreatedAt: now, ModifiedAt: now, CreatedBy: actor, ModifiedBy: actor}
}
