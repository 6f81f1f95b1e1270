package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/fantasy-league/internal/domain/manager"
	"github.com/riskibarqy/fantasy-league/internal/domain/playerstats"
	"github.com/riskibarqy/fantasy-league/internal/usecase"
)

func pick(pos int, playerID string, captain, vice bool) manager.Pick {
	return manager.Pick{PlayerID: playerID, Position: pos, IsCaptain: captain, IsVice: vice, Multiplier: 1}
}

// S1: Auto-sub inference.
func TestApplyAutomaticSubs_InferenceSkipsIncompatiblePositionAndZeroMinutes(t *testing.T) {
	picks := []manager.Pick{
		pick(1, "GK1", false, false),
		pick(2, "DEF1", false, false),
		pick(3, "DEF2", false, false),
		pick(4, "DEF3", false, false),
		pick(5, "MID1", false, false),
		pick(6, "MID2", false, false),
		pick(7, "MID3", false, false),
		pick(8, "FWD1", false, false),
		pick(9, "FWD2", false, false),
		pick(10, "FWD3", false, false),
		pick(11, "FWD4", false, false),
		pick(12, "GK2", false, false),
		pick(13, "MID4", false, false),
		pick(14, "DEF4", false, false),
		pick(15, "MID5", false, false),
	}

	players := map[string]usecase.PlayerMatchState{
		"GK1":  {PlayerID: "GK1", Minutes: 90, FixtureFinished: true, IsGoalkeeper: true},
		"MID2": {PlayerID: "MID2", Minutes: 0, FixtureFinished: true},
		"GK2":  {PlayerID: "GK2", Minutes: 90, FixtureFinished: true, IsGoalkeeper: true},
		"MID4": {PlayerID: "MID4", Minutes: 90, FixtureFinished: true},
		"DEF4": {PlayerID: "DEF4", Minutes: 0, FixtureFinished: true},
		"MID5": {PlayerID: "MID5", Minutes: 90, FixtureFinished: true},
	}

	resolved := usecase.ApplyAutomaticSubs(picks, nil, players)

	byID := map[string]manager.Pick{}
	for _, p := range resolved {
		byID[p.PlayerID] = p
	}

	assert.True(t, byID["MID2"].WasAutoSubbedOut)
	assert.True(t, byID["MID4"].WasAutoSubbedIn)
	assert.Equal(t, "MID2", byID["MID4"].AutoSubReplacedPlayerID)
	assert.False(t, byID["GK2"].WasAutoSubbedIn)
	assert.False(t, byID["DEF4"].WasAutoSubbedIn)
	assert.False(t, byID["MID5"].WasAutoSubbedIn)
}

// S2: Provisional bonus ranking with ties.
func TestSynthesizeProvisionalBonus_TiesShareLowerRank(t *testing.T) {
	rows := []playerstats.GameweekStats{
		{PlayerID: "p35", BPS: 35},
		{PlayerID: "p30a", BPS: 30},
		{PlayerID: "p30b", BPS: 30},
		{PlayerID: "p25", BPS: 25},
	}

	bonus := usecase.SynthesizeProvisionalBonus(rows)

	assert.Equal(t, 3, bonus["p35"])
	assert.Equal(t, 2, bonus["p30a"])
	assert.Equal(t, 2, bonus["p30b"])
	assert.Equal(t, 0, bonus["p25"])
}

func TestGameweekStats_EffectivePoints_ConfirmedBonusNotAddedTwice(t *testing.T) {
	confirmed := playerstats.GameweekStats{TotalPoints: 8, Bonus: 2, BonusStatus: playerstats.BonusConfirmed}
	assert.Equal(t, 8, confirmed.EffectivePoints(3))

	provisional := playerstats.GameweekStats{TotalPoints: 6, BonusStatus: playerstats.BonusProvisional}
	assert.Equal(t, 9, provisional.EffectivePoints(3))
}

// S3: Captain multiplier normalization.
func TestCalculateGameweekPoints_CaptainMultiplierNormalization(t *testing.T) {
	base := usecase.GameweekPointsInput{
		Picks: []manager.Pick{
			pick(1, "cap", true, false),
		},
		Players: map[string]usecase.PlayerMatchState{
			"cap": {PlayerID: "cap", Minutes: 90, FixtureFinished: true, EffectivePoints: 5},
		},
	}

	withoutChip := base
	withoutChip.ActiveChip = manager.ChipNone
	result := usecase.CalculateGameweekPoints(withoutChip)
	require.Equal(t, 10, result.GameweekPoints) // 5 * 2

	withChip := base
	withChip.ActiveChip = manager.ChipTripleCaptain
	result = usecase.CalculateGameweekPoints(withChip)
	require.Equal(t, 15, result.GameweekPoints) // 5 * 3
}

// S4: Transfer cost floors at zero.
func TestCalculateGameweekPoints_TransferCostFloorsAtZero(t *testing.T) {
	in := usecase.GameweekPointsInput{
		Picks: []manager.Pick{pick(1, "p1", false, false)},
		Players: map[string]usecase.PlayerMatchState{
			"p1": {PlayerID: "p1", Minutes: 90, FixtureFinished: true, EffectivePoints: 3},
		},
		TransferCost: 8,
	}

	result := usecase.CalculateGameweekPoints(in)
	assert.Equal(t, 0, result.GameweekPoints)
}

func TestCalculateGameweekPoints_BenchBoostAddsBenchPoints(t *testing.T) {
	in := usecase.GameweekPointsInput{
		Picks: []manager.Pick{
			pick(1, "starter", false, false),
			pick(12, "bench1", false, false),
		},
		Players: map[string]usecase.PlayerMatchState{
			"starter": {PlayerID: "starter", Minutes: 90, FixtureFinished: true, EffectivePoints: 4},
			"bench1":  {PlayerID: "bench1", Minutes: 90, FixtureFinished: true, EffectivePoints: 6},
		},
		ActiveChip: manager.ChipBenchBoost,
	}

	result := usecase.CalculateGameweekPoints(in)
	assert.Equal(t, 10, result.GameweekPoints)
}

func TestResolveTotalPoints_PrefersBaselineThenPrevious(t *testing.T) {
	baseline := 100
	assert.Equal(t, 105, usecase.ResolveTotalPoints(&baseline, nil, 5))

	previous := 50
	assert.Equal(t, 55, usecase.ResolveTotalPoints(nil, &previous, 5))

	assert.Equal(t, 5, usecase.ResolveTotalPoints(nil, nil, 5))
}
