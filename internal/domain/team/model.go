package team

import "fmt"

// Team is an FPL club reference row. Strength fields carry the club
// strength ratings from the bootstrap payload as stored reference data.
type Team struct {
	ID              string
	ShortName       string
	Name            string
	StrengthOverall int
	StrengthHome    int
	StrengthAway    int
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.ShortName == "" {
		return fmt.Errorf("team short name is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}
