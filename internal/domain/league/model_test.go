package league_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riskibarqy/fantasy-league/internal/domain/league"
)

// S6: Mini-league rank with ties.
func TestRankTieBreak_TiedManagersShareLowerRank(t *testing.T) {
	rows := []league.Standing{
		{ManagerID: "m1", TotalPoints: 100},
		{ManagerID: "m2", TotalPoints: 100},
		{ManagerID: "m3", TotalPoints: 95},
	}

	league.RankTieBreak(rows)

	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, 1, rows[1].Rank)
	assert.Equal(t, 3, rows[2].Rank)
}
