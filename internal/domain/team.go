package domain

import "time"

// Team Model
type Team struct {
	ID   uint   `gorm:"primaryKey" json:"id"`                      // Primary key
	Name string `gorm:"size:100;uniqueIndex;not null" json:"name"` // Canonical team name
}

// Result is the outcome of a team's game in a week
type Result string

// Known results
const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
)

// ParseResult returns the result named by s, ok=false otherwise
func ParseResult(s string) (Result, bool) {
	switch r := Result(s); r {
	case ResultWin, ResultLoss:
		return r, true
	}
	return "", false
}

// TeamResult Model
type TeamResult struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                                 // Primary key
	Week      int       `gorm:"not null;uniqueIndex:idx_team_results_week_team" json:"week"`          // Season week
	Team      string    `gorm:"size:100;not null;uniqueIndex:idx_team_results_week_team" json:"team"` // Team name (soft reference)
	Result    Result    `gorm:"type:varchar(8);not null" json:"result"`                               // win or loss
	UpdatedAt time.Time `json:"updated_at"`                                                           // Last recorded
}
