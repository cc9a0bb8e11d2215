// Package datastore provides the local fallback store: JSON snapshots of the
// court record and the sentence list kept under fixed keys.
package datastore

import "time"

// Keys of the persisted snapshots
const (
	KeySubmissions = "recklessSubmissions"
	KeySentences   = "recklessSentences"
)

// KeyValue is one persisted snapshot
type KeyValue struct {
	Key       string `gorm:"primaryKey;size:64"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

// TableName overrides the default table name
func (KeyValue) TableName() string {
	return "key_values"
}
