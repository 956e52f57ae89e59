package models

import "time"

// SyncState tracks the last applied snapshot sequence per CRM subject. It is
// the single source of truth for ordering: an empty or fully-deleted grant
// snapshot must never be misread as "no prior sequence applied".
type SyncState struct {
	SubjectID      string    `gorm:"column:subject_id;primaryKey"`
	LastAppliedSeq int64     `gorm:"column:last_applied_seq;not null;default:0"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the plural the migrations use.
func (SyncState) TableName() string { return "sync_states" }
