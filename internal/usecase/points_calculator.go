package usecase

import (
	"sort"

	"github.com/riskibarqy/fantasy-league/internal/domain/manager"
	"github.com/riskibarqy/fantasy-league/internal/domain/playerstats"
)

// PlayerMatchState is the per-player input the points calculator needs for
// one gameweek: minutes, whether its fixture(s) have finished, and the
// summed effective points across all fixtures played.
type PlayerMatchState struct {
	PlayerID         string
	Minutes          int
	FixtureFinished  bool
	EffectivePoints  int
	IsGoalkeeper     bool
}

// GameweekPointsInput bundles everything CalculateGameweekPoints needs.
type GameweekPointsInput struct {
	Picks         []manager.Pick
	AutomaticSubs []manager.Pick // optional upstream-supplied out->in pairs, ManagerID/Position unused
	Players       map[string]PlayerMatchState
	TransferCost  int
	ActiveChip    manager.Chip
}

// GameweekPointsResult is the computed output plus the resolved picks
// (auto-sub flags set) so callers can persist both in one write.
type GameweekPointsResult struct {
	GameweekPoints int
	ResolvedPicks  []manager.Pick
}

// CalculateGameweekPoints applies captain multipliers and automatic
// substitutions, then sums effective points across the starting XI.
func CalculateGameweekPoints(in GameweekPointsInput) GameweekPointsResult {
	picks := normalizeCaptainMultipliers(in.Picks, in.ActiveChip)
	picks = ApplyAutomaticSubs(picks, in.AutomaticSubs, in.Players)

	raw := 0
	for _, p := range picks {
		if p.WasAutoSubbedOut {
			continue // starter who subbed out retains zero points
		}
		if p.IsStarter() || p.WasAutoSubbedIn {
			multiplier := p.Multiplier
			if p.WasAutoSubbedIn && multiplier == 0 {
				multiplier = 1
			}
			raw += playerPoints(p.PlayerID, in.Players) * multiplier
		}
	}
	if in.ActiveChip == manager.ChipBenchBoost {
		for _, p := range picks {
			if p.IsBench() && !p.WasAutoSubbedIn {
				raw += playerPoints(p.PlayerID, in.Players)
			}
		}
	}

	cost := in.TransferCost
	if cost < 0 {
		cost = 0
	}
	gameweekPoints := raw - cost
	if gameweekPoints < 0 {
		gameweekPoints = 0
	}

	return GameweekPointsResult{GameweekPoints: gameweekPoints, ResolvedPicks: picks}
}

func playerPoints(playerID string, players map[string]PlayerMatchState) int {
	st, ok := players[playerID]
	if !ok {
		return 0
	}
	return st.EffectivePoints
}

// normalizeCaptainMultipliers forces the captain's multiplier to 2, or to 3
// under the triple-captain chip, regardless of what upstream sent.
func normalizeCaptainMultipliers(picks []manager.Pick, activeChip manager.Chip) []manager.Pick {
	out := make([]manager.Pick, len(picks))
	copy(out, picks)
	for i := range out {
		if !out[i].IsCaptain {
			continue
		}
		if activeChip == manager.ChipTripleCaptain {
			out[i].Multiplier = 3
		} else {
			out[i].Multiplier = 2
		}
	}
	return out
}

// ApplyAutomaticSubs resolves which bench players replace which starters.
// When upstreamSubs is non-empty its (out,in) pairs are adopted verbatim
// provided the out
// player's fixture is finished with zero minutes. When upstreamSubs is
// empty, subs are inferred: for each starter with zero minutes in a
// finished fixture, walk the bench in position order (12..15) and pick the
// first not-yet-used candidate with minutes>0 in a finished fixture whose
// position is compatible (goalkeeper only replaces goalkeeper; outfield
// replaces outfield).
func ApplyAutomaticSubs(picks []manager.Pick, upstreamSubs []manager.Pick, players map[string]PlayerMatchState) []manager.Pick {
	out := make([]manager.Pick, len(picks))
	copy(out, picks)

	if len(upstreamSubs) > 0 {
		return applyUpstreamSubs(out, upstreamSubs, players)
	}
	return inferAutomaticSubs(out, players)
}

func applyUpstreamSubs(picks []manager.Pick, upstreamSubs []manager.Pick, players map[string]PlayerMatchState) []manager.Pick {
	byPlayer := make(map[string]int, len(picks))
	for i, p := range picks {
		byPlayer[p.PlayerID] = i
	}

	for _, sub := range upstreamSubs {
		outIdx, hasOut := byPlayer[sub.AutoSubReplacedPlayerID]
		inIdx, hasIn := byPlayer[sub.PlayerID]
		if !hasOut || !hasIn {
			continue
		}
		outState, ok := players[picks[outIdx].PlayerID]
		if !ok || !outState.FixtureFinished || outState.Minutes != 0 {
			continue
		}

		picks[outIdx].WasAutoSubbedOut = true
		picks[inIdx].WasAutoSubbedIn = true
		picks[inIdx].AutoSubReplacedPlayerID = picks[outIdx].PlayerID
		if picks[inIdx].Multiplier == 0 {
			picks[inIdx].Multiplier = 1
		}
	}
	return picks
}

func inferAutomaticSubs(picks []manager.Pick, players map[string]PlayerMatchState) []manager.Pick {
	starters := make([]int, 0, 11)
	bench := make([]int, 0, 4)
	for i, p := range picks {
		switch {
		case p.IsStarter():
			starters = append(starters, i)
		case p.IsBench():
			bench = append(bench, i)
		}
	}
	sort.Slice(bench, func(a, b int) bool { return picks[bench[a]].Position < picks[bench[b]].Position })

	used := make(map[int]bool, len(bench))

	for _, si := range starters {
		starterState, ok := players[picks[si].PlayerID]
		if !ok || !starterState.FixtureFinished || starterState.Minutes != 0 {
			continue
		}

		for _, bi := range bench {
			if used[bi] {
				continue
			}
			benchState, ok := players[picks[bi].PlayerID]
			if !ok || !benchState.FixtureFinished || benchState.Minutes <= 0 {
				continue
			}
			if !positionCompatible(starterState.IsGoalkeeper, benchState.IsGoalkeeper) {
				continue
			}

			used[bi] = true
			picks[si].WasAutoSubbedOut = true
			picks[bi].WasAutoSubbedIn = true
			picks[bi].AutoSubReplacedPlayerID = picks[si].PlayerID
			if picks[bi].Multiplier == 0 {
				picks[bi].Multiplier = 1
			}
			break
		}
	}
	return picks
}

func positionCompatible(starterIsGK, benchIsGK bool) bool {
	if starterIsGK {
		return benchIsGK
	}
	return !benchIsGK
}

// ResolveTotalPoints delegates to manager.ResolveTotalPoints, kept here too so callers of the points calculator do not need to
// import the manager package directly for this one function.
func ResolveTotalPoints(baseline *int, previousTotalPoints *int, gameweekPoints int) int {
	return manager.ResolveTotalPoints(baseline, previousTotalPoints, gameweekPoints)
}

// SynthesizeProvisionalBonus synthesizes bonus points before upstream
// confirms them: within one fixture, rank players by BPS descending, a
// player's rank being its position in that order, with ties sharing the
// lower (more favorable) rank. Ranks 1, 2 and 3 receive bonus 3/2/1 and
// every other rank receives zero, so a tie for second leaves no rank 3.
func SynthesizeProvisionalBonus(rows []playerstats.GameweekStats) map[string]int {
	type ranked struct {
		playerID string
		bps      int
	}
	items := make([]ranked, 0, len(rows))
	for _, r := range rows {
		items = append(items, ranked{playerID: r.PlayerID, bps: r.BPS})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].bps > items[j].bps })

	bonusByRank := map[int]int{1: 3, 2: 2, 3: 1}
	out := make(map[string]int, len(items))

	rank := 0
	lastBPS := 0
	for i, item := range items {
		if i == 0 || item.bps != lastBPS {
			rank = i + 1
			lastBPS = item.bps
		}
		out[item.playerID] = bonusByRank[rank]
	}
	return out
}
