package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document is a row in the generic document store. Each business collection
// (sales, inventory, expenses, ...) lives in this table keyed by collection
// name plus a client-chosen document key.
type Document struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Collection string          `gorm:"column:collection;type:text;not null;uniqueIndex:ux_documents_collection_key,priority:1"`
	Key        string          `gorm:"column:key;type:text;not null;uniqueIndex:ux_documents_collection_key,priority:2"`
	Data       json.RawMessage `gorm:"column:data;type:jsonb;not null"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns the primary key so inserts work on both Postgres and
// the SQLite driver used in tests.
func (d *Document) BeforeCreate(_ *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}
