package postgres

import "time"

type matchdayBaselineTableModel struct {
	ManagerID            string    `db:"manager_id"`
	GameweekID           int       `db:"gameweek_id"`
	MatchdaySequence     int       `db:"matchday_sequence"`
	MatchdayDate         time.Time `db:"matchday_date"`
	FirstKickoffAt       time.Time `db:"first_kickoff_at"`
	OverallRankBaseline  int       `db:"overall_rank_baseline"`
	GameweekRankBaseline int       `db:"gameweek_rank_baseline"`
}
