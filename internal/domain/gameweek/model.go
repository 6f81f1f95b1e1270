package gameweek

import (
	"fmt"
	"time"
)

// Gameweek mirrors one FPL event row, reflecting upstream lifecycle state.
type Gameweek struct {
	ID             int
	Name           string
	DeadlineAt     time.Time
	ReleaseAt      *time.Time
	IsCurrent      bool
	IsNext         bool
	IsPrevious     bool
	Finished       bool
	DataChecked    bool
	RanksFinalized bool
}

func (g Gameweek) Validate() error {
	if g.ID <= 0 {
		return fmt.Errorf("gameweek id must be positive")
	}
	if g.Name == "" {
		return fmt.Errorf("gameweek name is required")
	}
	return nil
}

// IsInProgress reports whether g should be treated as the live gameweek:
// its deadline has passed and upstream has not marked it finished yet.
func (g Gameweek) IsInProgress(now time.Time) bool {
	return !g.DeadlineAt.After(now) && !g.Finished
}
