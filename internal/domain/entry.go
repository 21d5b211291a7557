package domain

import "time"

// Entry Model
type Entry struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                    // Primary key
	UserID    uint      `gorm:"index;not null" json:"user_id"`                           // Owning user
	Nickname  string    `gorm:"size:64;not null" json:"nickname"`                        // Display name in the pool
	Verified  bool      `gorm:"not null;default:false" json:"verified"`                  // Approved to play by staff
	Picks     []Pick    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:RESTRICT;" json:"-"` // Weekly picks
	CreatedAt time.Time `json:"created_at"`                                              // Creation time
	UpdatedAt time.Time `json:"updated_at"`                                              // Last change
}
