package baseline

import "time"

// MatchdayBaseline snapshots a manager's ranks just before a matchday's
// first kickoff, so mid-match rank deltas stay anchored to a stable
// reference point. Sequence 1 coincides with the
// gameweek-level baseline capture; later sequences cover subsequent
// matchdays within the same gameweek (e.g. Saturday, then Sunday fixtures).
type MatchdayBaseline struct {
	ManagerID           string
	GameweekID          int
	MatchdaySequence    int
	MatchdayDate        time.Time
	FirstKickoffAt      time.Time
	OverallRankBaseline int
	GameweekRankBaseline int
}
