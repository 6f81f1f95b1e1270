package postgres

import "time"

type fixtureTableModel struct {
	ID                  string    `db:"id"`
	GameweekID          int       `db:"gameweek_id"`
	HomeTeamID          string    `db:"home_team_id"`
	AwayTeamID          string    `db:"away_team_id"`
	KickoffAt           time.Time `db:"kickoff_at"`
	Started             bool      `db:"started"`
	FinishedProvisional bool      `db:"finished_provisional"`
	Finished            bool      `db:"finished"`
	Minutes             int       `db:"minutes"`
	HomeScore           *int      `db:"home_score"`
	AwayScore           *int      `db:"away_score"`
}
