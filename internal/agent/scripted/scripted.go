// Package scripted provides rules-backed specialist implementations driven
// entirely by whitelisted tool calls. They keep the orchestration engine
// runnable and testable end to end without a language model; deployments
// backing specialists with a generation engine register their own Invokers
// instead.
package scripted

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/courtside/internal/agent"
	"github.com/fyrsmithlabs/courtside/internal/toolgateway"
)

// Invoker is a scripted specialist bound to one identity. All data access
// goes through the tool gateway under that identity, so capability
// enforcement applies exactly as it would for any other implementation.
type Invoker struct {
	id      agent.ID
	gateway *toolgateway.Gateway
	logger  *zap.Logger
}

// New creates a scripted invoker for the given specialist identity.
func New(id agent.ID, gateway *toolgateway.Gateway, logger *zap.Logger) (*Invoker, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("unknown agent id %q", id)
	}
	if gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &Invoker{id: id, gateway: gateway, logger: logger}, nil
}

// RegisterAll registers a scripted invoker for every known specialist.
func RegisterAll(reg *agent.Registry, gateway *toolgateway.Gateway, logger *zap.Logger) error {
	for _, id := range agent.KnownIDs() {
		inv, err := New(id, gateway, logger)
		if err != nil {
			return err
		}
		reg.Register(id, inv)
	}
	return nil
}

// Invoke runs the specialist. Tool-layer errors propagate unchanged so the
// executor can classify them; failures inside the specialist's own logic
// are reported as *agent.ExecutionError.
func (v *Invoker) Invoke(ctx context.Context, instruction string, slice agent.ContextSlice) (agent.Output, error) {
	v.logger.Debug("specialist invoked",
		zap.String("agent", string(v.id)),
		zap.String("instruction", instruction),
		zap.String("game_id", slice.Game.GameID),
	)

	switch v.id {
	case agent.MarketExpert:
		return v.assessMarkets(ctx, slice)
	case agent.ScheduleExpert:
		return v.assessSchedule(ctx, slice)
	case agent.StatsExpert:
		return v.assessStats(ctx, slice)
	}
	return agent.Output{}, &agent.ExecutionError{Agent: v.id, Err: fmt.Errorf("no script for agent")}
}

func (v *Invoker) assessMarkets(ctx context.Context, slice agent.ContextSlice) (agent.Output, error) {
	res, err := v.gateway.CallTool(ctx, v.id, toolgateway.Call{
		Tool: toolgateway.ToolGameMarkets,
		Args: map[string]string{"game_id": slice.Game.GameID},
	})
	if err != nil {
		return agent.Output{}, err
	}
	book, ok := res.Payload.(*toolgateway.MarketBook)
	if !ok {
		return agent.Output{}, &agent.ExecutionError{Agent: v.id, Err: fmt.Errorf("unexpected payload type %T", res.Payload)}
	}

	implied := impliedProbability(book.HomeMoneyline)
	edge := slice.BaselineEstimate - implied

	summary := fmt.Sprintf(
		"Market prices %s at %+d (implied %.1f%% home win); model baseline is %.1f%%, an edge of %+.1f points.",
		slice.Game.HomeTeam, book.HomeMoneyline, implied*100, slice.BaselineEstimate*100, edge*100,
	)
	return agent.Output{
		Summary: summary,
		Data: map[string]string{
			"home_moneyline": fmt.Sprintf("%d", book.HomeMoneyline),
			"away_moneyline": fmt.Sprintf("%d", book.AwayMoneyline),
			"spread":         fmt.Sprintf("%.1f", book.Spread),
			"total":          fmt.Sprintf("%.1f", book.Total),
			"implied_home":   fmt.Sprintf("%.3f", implied),
		},
	}, nil
}

func (v *Invoker) assessSchedule(ctx context.Context, slice agent.ContextSlice) (agent.Output, error) {
	res, err := v.gateway.CallTool(ctx, v.id, toolgateway.Call{
		Tool: toolgateway.ToolGameSchedule,
		Args: map[string]string{"game_id": slice.Game.GameID},
	})
	if err != nil {
		return agent.Output{}, err
	}
	sched, ok := res.Payload.(*toolgateway.GameSchedule)
	if !ok {
		return agent.Output{}, &agent.ExecutionError{Agent: v.id, Err: fmt.Errorf("unexpected payload type %T", res.Payload)}
	}

	restDiff := sched.HomeRestDays - sched.AwayRestDays
	var restNote string
	switch {
	case restDiff > 0:
		restNote = fmt.Sprintf("%s holds a %d-day rest advantage", slice.Game.HomeTeam, restDiff)
	case restDiff < 0:
		restNote = fmt.Sprintf("%s holds a %d-day rest advantage", slice.Game.AwayTeam, -restDiff)
	default:
		restNote = "both teams are on equal rest"
	}

	return agent.Output{
		Summary: fmt.Sprintf("Game at %s: %s.", sched.Venue, restNote),
		Data: map[string]string{
			"venue":          sched.Venue,
			"home_rest_days": fmt.Sprintf("%d", sched.HomeRestDays),
			"away_rest_days": fmt.Sprintf("%d", sched.AwayRestDays),
		},
	}, nil
}

func (v *Invoker) assessStats(ctx context.Context, slice agent.ContextSlice) (agent.Output, error) {
	home, err := v.fetchTeamStats(ctx, slice.Game.HomeTeam)
	if err != nil {
		return agent.Output{}, err
	}
	away, err := v.fetchTeamStats(ctx, slice.Game.AwayTeam)
	if err != nil {
		return agent.Output{}, err
	}

	return agent.Output{
		Summary: fmt.Sprintf(
			"%s are %d-%d, %s are %d-%d; net points per game favor %s.",
			slice.Game.HomeTeam, home.Wins, home.Losses,
			slice.Game.AwayTeam, away.Wins, away.Losses,
			netPointsLeader(slice, home, away),
		),
		Data: map[string]string{
			"home_record": fmt.Sprintf("%d-%d", home.Wins, home.Losses),
			"away_record": fmt.Sprintf("%d-%d", away.Wins, away.Losses),
		},
	}, nil
}

func (v *Invoker) fetchTeamStats(ctx context.Context, teamID string) (*toolgateway.TeamStats, error) {
	res, err := v.gateway.CallTool(ctx, v.id, toolgateway.Call{
		Tool: toolgateway.ToolTeamStats,
		Args: map[string]string{"team_id": teamID},
	})
	if err != nil {
		return nil, err
	}
	stats, ok := res.Payload.(*toolgateway.TeamStats)
	if !ok {
		return nil, &agent.ExecutionError{Agent: v.id, Err: fmt.Errorf("unexpected payload type %T", res.Payload)}
	}
	return stats, nil
}

func netPointsLeader(slice agent.ContextSlice, home, away *toolgateway.TeamStats) string {
	if home.PointsFor-home.PointsAgainst >= away.PointsFor-away.PointsAgainst {
		return slice.Game.HomeTeam
	}
	return slice.Game.AwayTeam
}

// impliedProbability converts an American moneyline into a win probability.
func impliedProbability(moneyline int) float64 {
	if moneyline < 0 {
		m := float64(-moneyline)
		return m / (m + 100)
	}
	return 100 / (float64(moneyline) + 100)
}
