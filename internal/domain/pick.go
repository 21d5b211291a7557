package domain

import "time"

// Pick Model
//
// The composite unique index on (entry_id, week) is the only guard against
// two picks for the same week; callers map its violation to a conflict.
type Pick struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                      // Primary key
	EntryID   uint      `gorm:"not null;uniqueIndex:idx_picks_entry_week" json:"entry_id"` // Owning entry
	Week      int       `gorm:"not null;uniqueIndex:idx_picks_entry_week" json:"week"`     // Season week, starting at 1
	Team      string    `gorm:"size:100;not null" json:"team"`                             // Team name (soft reference)
	CreatedAt time.Time `json:"created_at"`                                                // Submission time
	UpdatedAt time.Time `json:"updated_at"`                                                // Last edit
}
