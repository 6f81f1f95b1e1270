package cache

import (
	"context"

	"github.com/riskibarqy/fantasy-league/internal/domain/gameweek"
	"github.com/riskibarqy/fantasy-league/internal/domain/league"
	"github.com/riskibarqy/fantasy-league/internal/domain/player"
	"github.com/riskibarqy/fantasy-league/internal/domain/team"
	basecache "github.com/riskibarqy/fantasy-league/internal/platform/cache"
)

// GameweekRepository decorates a gameweek.Repository, caching the
// current-gameweek lookup every orchestrator tick re-reads. Writes bust the
// cached current-gameweek entry since Upsert/MarkRanksFinalized can flip
// which row IsCurrent.
type GameweekRepository struct {
	next  gameweek.Repository
	cache *basecache.Store
}

func NewGameweekRepository(next gameweek.Repository, cache *basecache.Store) *GameweekRepository {
	return &GameweekRepository{next: next, cache: cache}
}

const gameweekCurrentKey = "gameweek:current"

func (r *GameweekRepository) GetCurrent(ctx context.Context) (gameweek.Gameweek, bool, error) {
	v, err := r.cache.GetOrLoad(ctx, gameweekCurrentKey, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetCurrent(ctx)
		if err != nil {
			return nil, err
		}
		return cachedGameweek{value: item, exists: exists}, nil
	})
	if err != nil {
		return gameweek.Gameweek{}, false, err
	}
	cached, _ := v.(cachedGameweek)
	return cached.value, cached.exists, nil
}

func (r *GameweekRepository) GetByID(ctx context.Context, id int) (gameweek.Gameweek, bool, error) {
	return r.next.GetByID(ctx, id)
}

func (r *GameweekRepository) List(ctx context.Context) ([]gameweek.Gameweek, error) {
	return r.next.List(ctx)
}

func (r *GameweekRepository) Upsert(ctx context.Context, items []gameweek.Gameweek) error {
	if err := r.next.Upsert(ctx, items); err != nil {
		return err
	}
	r.cache.Delete(ctx, gameweekCurrentKey)
	return nil
}

func (r *GameweekRepository) MarkRanksFinalized(ctx context.Context, id int) error {
	return r.next.MarkRanksFinalized(ctx, id)
}

type cachedGameweek struct {
	value  gameweek.Gameweek
	exists bool
}

// TeamRepository decorates a team.Repository, caching the full team list:
// the Premier League club set changes at most once a season.
type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

const teamListKey = "team:list"

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	v, err := r.cache.GetOrLoad(ctx, teamListKey, func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]team.Team(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	items, _ := v.([]team.Team)
	return append([]team.Team(nil), items...), nil
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	return r.next.GetByID(ctx, teamID)
}

func (r *TeamRepository) Upsert(ctx context.Context, items []team.Team) error {
	if err := r.next.Upsert(ctx, items); err != nil {
		return err
	}
	r.cache.Delete(ctx, teamListKey)
	return nil
}

// PlayerRepository decorates a player.Repository, caching the full player
// list consumers poll each refresh tick to resolve picks into names/costs.
type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store) *PlayerRepository {
	return &PlayerRepository{next: next, cache: cache}
}

const playerListKey = "player:list"

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	v, err := r.cache.GetOrLoad(ctx, playerListKey, func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]player.Player(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	items, _ := v.([]player.Player)
	return append([]player.Player(nil), items...), nil
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []string) ([]player.Player, error) {
	return r.next.GetByIDs(ctx, playerIDs)
}

func (r *PlayerRepository) Upsert(ctx context.Context, items []player.Player) error {
	if err := r.next.Upsert(ctx, items); err != nil {
		return err
	}
	r.cache.Delete(ctx, playerListKey)
	return nil
}

func (r *PlayerRepository) SyncOwnership(ctx context.Context, items []player.Player) error {
	if err := r.next.SyncOwnership(ctx, items); err != nil {
		return err
	}
	r.cache.Delete(ctx, playerListKey)
	return nil
}

// LeagueRepository decorates a league.Repository, caching the tracked
// mini-league list and per-id lookups; membership and standings stay
// uncached since both change every deadline batch run.
type LeagueRepository struct {
	next  league.Repository
	cache *basecache.Store
}

func NewLeagueRepository(next league.Repository, cache *basecache.Store) *LeagueRepository {
	return &LeagueRepository{next: next, cache: cache}
}

const leagueListKey = "league:list"

func (r *LeagueRepository) List(ctx context.Context) ([]league.MiniLeague, error) {
	v, err := r.cache.GetOrLoad(ctx, leagueListKey, func(ctx context.Context) (any, error) {
		items, err := r.next.List(ctx)
		if err != nil {
			return nil, err
		}
		return append([]league.MiniLeague(nil), items...), nil
	})
	if err != nil {
		return nil, err
	}
	items, _ := v.([]league.MiniLeague)
	return append([]league.MiniLeague(nil), items...), nil
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.MiniLeague, bool, error) {
	key := "league:id:" + leagueID
	v, err := r.cache.GetOrLoad(ctx, key, func(ctx context.Context) (any, error) {
		item, exists, err := r.next.GetByID(ctx, leagueID)
		if err != nil {
			return nil, err
		}
		return cachedLeagueByID{value: item, exists: exists}, nil
	})
	if err != nil {
		return league.MiniLeague{}, false, err
	}
	cached, _ := v.(cachedLeagueByID)
	return cached.value, cached.exists, nil
}

func (r *LeagueRepository) ListMembers(ctx context.Context, leagueID string) ([]league.Member, error) {
	return r.next.ListMembers(ctx, leagueID)
}

func (r *LeagueRepository) ListAllMemberManagerIDs(ctx context.Context) ([]string, error) {
	return r.next.ListAllMemberManagerIDs(ctx)
}

func (r *LeagueRepository) ReplaceStandings(ctx context.Context, leagueID string, gameweekID int, rows []league.Standing) error {
	return r.next.ReplaceStandings(ctx, leagueID, gameweekID, rows)
}

func (r *LeagueRepository) ListStandings(ctx context.Context, leagueID string, gameweekID int) ([]league.Standing, error) {
	return r.next.ListStandings(ctx, leagueID, gameweekID)
}

func (r *LeagueRepository) ReplacePlayerWhitelist(ctx context.Context, leagueID string, gameweekID int, playerIDs []string) error {
	return r.next.ReplacePlayerWhitelist(ctx, leagueID, gameweekID, playerIDs)
}

type cachedLeagueByID struct {
	value  league.MiniLeague
	exists bool
}
