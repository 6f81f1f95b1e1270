package fplapi

import "time"

// Bootstrap is the trimmed shape of /bootstrap-static/: only the fields the
// orchestrator consumes. Unknown upstream fields are ignored.
type Bootstrap struct {
	Events   []BootstrapEvent  `json:"events"`
	Teams    []BootstrapTeam   `json:"teams"`
	Elements []BootstrapElement `json:"elements"`
}

type BootstrapEvent struct {
	ID             int        `json:"id"`
	Name           string     `json:"name"`
	DeadlineTime   time.Time  `json:"deadline_time"`
	ReleaseTime    *time.Time `json:"release_time"`
	IsCurrent      bool       `json:"is_current"`
	IsNext         bool       `json:"is_next"`
	IsPrevious     bool       `json:"is_previous"`
	Finished       bool       `json:"finished"`
	DataChecked    bool       `json:"data_checked"`
}

type BootstrapTeam struct {
	ID              int    `json:"id"`
	ShortName       string `json:"short_name"`
	Name            string `json:"name"`
	Strength        int    `json:"strength"`
	StrengthHome    int    `json:"strength_overall_home"`
	StrengthAway    int    `json:"strength_overall_away"`
}

type BootstrapElement struct {
	ID                int     `json:"id"`
	TeamID            int     `json:"team"`
	ElementType       int     `json:"element_type"`
	WebName           string  `json:"web_name"`
	NowCost           int     `json:"now_cost"`
	SelectedByPercent string  `json:"selected_by_percent"`
}

// Fixture mirrors one element of /fixtures/.
type Fixture struct {
	ID                  int    `json:"id"`
	Event               *int   `json:"event"`
	TeamH               int    `json:"team_h"`
	TeamA               int    `json:"team_a"`
	KickoffTime         time.Time `json:"kickoff_time"`
	Started             bool   `json:"started"`
	FinishedProvisional bool   `json:"finished_provisional"`
	Finished            bool   `json:"finished"`
	Minutes             int    `json:"minutes"`
	TeamHScore          *int   `json:"team_h_score"`
	TeamAScore          *int   `json:"team_a_score"`
}

// EventLive is the decoded shape of /event/{gw}/live.
type EventLive struct {
	Elements []EventLiveElement `json:"elements"`
}

type EventLiveElement struct {
	ID    int                `json:"id"`
	Stats EventLiveElementStats `json:"stats"`
}

type EventLiveElementStats struct {
	Minutes               int     `json:"minutes"`
	TotalPoints           int     `json:"total_points"`
	BPS                   int     `json:"bps"`
	Bonus                 int     `json:"bonus"`
	GoalsScored           int     `json:"goals_scored"`
	Assists               int     `json:"assists"`
	CleanSheets           int     `json:"clean_sheets"`
	Saves                 int     `json:"saves"`
	DefensiveContribution int     `json:"defensive_contribution"`
	YellowCards           int     `json:"yellow_cards"`
	RedCards              int     `json:"red_cards"`
	ExpectedGoals         string  `json:"expected_goals"`
	ExpectedAssists       string  `json:"expected_assists"`
	ExpectedGoalInvolvements string `json:"expected_goal_involvements"`
	ExpectedGoalsConceded string  `json:"expected_goals_conceded"`
	Influence             string  `json:"influence"`
	Creativity            string  `json:"creativity"`
	Threat                string  `json:"threat"`
	ICTIndex              string  `json:"ict_index"`
}

// ElementSummary is the decoded shape of /element-summary/{player_id}/.
type ElementSummary struct {
	History []ElementSummaryHistory `json:"history"`
}

type ElementSummaryHistory struct {
	Round       int `json:"round"`
	FixtureID   int `json:"fixture"`
	OpponentTeam int `json:"opponent_team"`
	WasHome     bool `json:"was_home"`
	EventLiveElementStats
}

// Entry is the decoded shape of /entry/{manager_id}/.
type Entry struct {
	ID                int     `json:"id"`
	PlayerFirstName   string  `json:"player_first_name"`
	PlayerLastName    string  `json:"player_last_name"`
	Name              string  `json:"name"`
	LastDeadlineValue float64 `json:"last_deadline_value"`
	LastDeadlineBank  float64 `json:"last_deadline_bank"`
}

// EntryHistory is the decoded shape of /entry/{manager_id}/history/.
type EntryHistory struct {
	Current []EntryHistoryEvent `json:"current"`
}

type EntryHistoryEvent struct {
	Event              int `json:"event"`
	TotalPoints        int `json:"total_points"`
	OverallRank        int `json:"overall_rank"`
	Value              int `json:"value"`
	Bank               int `json:"bank"`
	EventTransfers     int `json:"event_transfers"`
	EventTransfersCost int `json:"event_transfers_cost"`
}

// EntryPicks is the decoded shape of /entry/{manager_id}/event/{gw}/picks/.
type EntryPicks struct {
	ActiveChip     *string         `json:"active_chip"`
	AutomaticSubs  []AutomaticSub  `json:"automatic_subs"`
	EntryHistory   EntryHistoryEvent `json:"entry_history"`
	Picks          []EntryPick     `json:"picks"`
}

type AutomaticSub struct {
	ElementOut int `json:"element_out"`
	ElementIn  int `json:"element_in"`
}

type EntryPick struct {
	Element    int  `json:"element"`
	Position   int  `json:"position"`
	Multiplier int  `json:"multiplier"`
	IsCaptain  bool `json:"is_captain"`
	IsVice     bool `json:"is_vice_captain"`
}

// EntryTransfer is one element of /entry/{manager_id}/transfers/.
type EntryTransfer struct {
	ElementIn      int   `json:"element_in"`
	ElementInCost  int   `json:"element_in_cost"`
	ElementOut     int   `json:"element_out"`
	ElementOutCost int   `json:"element_out_cost"`
	Event          int   `json:"event"`
	Time           time.Time `json:"time"`
}

// LeagueStandings is the decoded shape of
// /leagues-classic/{league_id}/standings/.
type LeagueStandings struct {
	Standings LeagueStandingsPage `json:"standings"`
}

type LeagueStandingsPage struct {
	HasNext bool                  `json:"has_next"`
	Page    int                   `json:"page"`
	Results []LeagueStandingEntry `json:"results"`
}

type LeagueStandingEntry struct {
	Entry       int    `json:"entry"`
	EntryName   string `json:"entry_name"`
	PlayerName  string `json:"player_name"`
	Rank        int    `json:"rank"`
	LastRank    int    `json:"last_rank"`
	Total       int    `json:"total"`
}
