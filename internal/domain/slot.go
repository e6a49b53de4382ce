package domain

import "time"

// Slot is one entry of the persistent key-value storage. The contact list is
// kept as a serialized snapshot under a single, fixed key.
type Slot struct {
	Key       string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Value     string    `gorm:"type:TEXT NOT NULL"`
	UpdatedAt time.Time `gorm:"type:DATETIME NOT NULL"`
}

// TableName implements the GORM tabler interface.
func (Slot) TableName() string { return "kv_slots" }
