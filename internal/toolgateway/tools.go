package toolgateway

import (
	"time"

	"github.com/fyrsmithlabs/courtside/internal/agent"
)

// Tool names in the static catalog.
const (
	ToolGameMarkets  = "get_game_markets"
	ToolGameSchedule = "get_game_schedule"
	ToolTeamStats    = "get_team_stats"
)

// GameMarketsArgs is the argument schema for get_game_markets.
type GameMarketsArgs struct {
	GameID string `json:"game_id" validate:"required,numeric"`
}

// GameScheduleArgs is the argument schema for get_game_schedule.
type GameScheduleArgs struct {
	GameID string `json:"game_id" validate:"required,numeric"`
}

// TeamStatsArgs is the argument schema for get_team_stats.
type TeamStatsArgs struct {
	TeamID string `json:"team_id" validate:"required"`
	Season string `json:"season" validate:"omitempty,numeric"`
}

// MarketBook is the decoded result of get_game_markets.
type MarketBook struct {
	GameID        string  `json:"game_id"`
	HomeMoneyline int     `json:"home_moneyline"`
	AwayMoneyline int     `json:"away_moneyline"`
	Spread        float64 `json:"spread"`
	Total         float64 `json:"total"`
	Provider      string  `json:"provider,omitempty"`
}

// GameSchedule is the decoded result of get_game_schedule.
type GameSchedule struct {
	GameID       string    `json:"game_id"`
	Venue        string    `json:"venue"`
	Start        time.Time `json:"start"`
	HomeRestDays int       `json:"home_rest_days"`
	AwayRestDays int       `json:"away_rest_days"`
	Broadcast    string    `json:"broadcast,omitempty"`
}

// TeamStats is the decoded result of get_team_stats.
type TeamStats struct {
	TeamID        string  `json:"team_id"`
	Season        string  `json:"season"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	PointsFor     float64 `json:"points_for"`
	PointsAgainst float64 `json:"points_against"`
}

// toolSpec binds a catalog entry to its upstream endpoint, argument schema,
// and result shape.
type toolSpec struct {
	endpoint  string
	newArgs   func() any
	newResult func() any
}

// catalog is the fixed tool catalog. Tools outside this table do not exist
// as far as the gateway is concerned.
var catalog = map[string]toolSpec{
	ToolGameMarkets: {
		endpoint:  "markets",
		newArgs:   func() any { return new(GameMarketsArgs) },
		newResult: func() any { return new(MarketBook) },
	},
	ToolGameSchedule: {
		endpoint:  "schedule",
		newArgs:   func() any { return new(GameScheduleArgs) },
		newResult: func() any { return new(GameSchedule) },
	},
	ToolTeamStats: {
		endpoint:  "teams/stats",
		newArgs:   func() any { return new(TeamStatsArgs) },
		newResult: func() any { return new(TeamStats) },
	},
}

// capabilities is the static per-agent tool whitelist. Each specialist maps
// to exactly one set, fixed at compile time.
var capabilities = map[agent.ID]map[string]bool{
	agent.MarketExpert: {
		ToolGameMarkets: true,
	},
	agent.ScheduleExpert: {
		ToolGameSchedule: true,
	},
	agent.StatsExpert: {
		ToolTeamStats:    true,
		ToolGameSchedule: true,
	},
}

// Capabilities returns the tool names agent id may call.
func Capabilities(id agent.ID) []string {
	set := capabilities[id]
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	return out
}

// Allowed reports whether id may call tool.
func Allowed(id agent.ID, tool string) bool {
	return capabilities[id][tool]
}
