package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	"github.com/sirupsen/logrus"
)

const (
	// GameThresholdRuleID is the type of the game metadata threshold tribute
	GameThresholdRuleID = "game_threshold"
)

// threshold parameter keys
const (
	paramMinSiteRating     = "min_site_rating"
	paramMinGamersWithGame = "min_gamers_with_game"
	paramMinEstimate       = "min_estimate"
	paramMinGamerscore     = "min_gamerscore"
	paramMinRatio          = "min_ratio"
)

type gameCheck struct {
	key  string
	min  float64
	read func(g contest.Game) (float64, bool)
}

// GameThresholdRule is met when one completed game reaches every configured
// minimum at once.
type GameThresholdRule struct {
	config rule.RuleConfig
	checks []gameCheck
}

// NewGameThresholdRule creates a threshold tribute. At least one minimum must
// be configured.
func NewGameThresholdRule(config rule.RuleConfig) (*GameThresholdRule, error) {
	readers := []struct {
		key  string
		read func(g contest.Game) (float64, bool)
	}{
		{paramMinSiteRating, func(g contest.Game) (float64, bool) { return g.SiteRating, true }},
		{paramMinGamersWithGame, func(g contest.Game) (float64, bool) { return float64(g.GamersWithGame), true }},
		{paramMinEstimate, func(g contest.Game) (float64, bool) {
			if g.FullCompletionEstimate == nil {
				return 0, false
			}
			return *g.FullCompletionEstimate, true
		}},
		{paramMinGamerscore, func(g contest.Game) (float64, bool) { return float64(g.Gamerscore), true }},
		{paramMinRatio, func(g contest.Game) (float64, bool) { return g.SiteRatio, true }},
	}

	r := &GameThresholdRule{config: config}
	for _, reader := range readers {
		if !config.Has(reader.key) {
			continue
		}
		r.checks = append(r.checks, gameCheck{
			key:  reader.key,
			min:  config.GetFloat(reader.key, 0),
			read: reader.read,
		})
	}

	if len(r.checks) == 0 {
		return nil, fmt.Errorf("rule %s: no thresholds configured", config.ID)
	}

	logrus.Infof("creating game threshold rule %s with %d checks", config.ID, len(r.checks))

	return r, nil
}

// ID returns the rule identifier.
func (r *GameThresholdRule) ID() string {
	return r.config.ID
}

// Name returns the rule name.
func (r *GameThresholdRule) Name() string {
	return "Game Threshold Tribute"
}

// Config returns the rule configuration.
func (r *GameThresholdRule) Config() rule.RuleConfig {
	return r.config
}

func (r *GameThresholdRule) satisfied(g contest.Game) bool {
	for _, check := range r.checks {
		v, ok := check.read(g)
		if !ok || v < check.min {
			return false
		}
	}
	return true
}

// Evaluate looks for one completion meeting all thresholds.
func (r *GameThresholdRule) Evaluate(ctx context.Context, subject *rule.Subject) (bool, *rule.Trigger, error) {
	for _, c := range subject.Completions {
		if c.Game == nil || !r.satisfied(*c.Game) {
			continue
		}
		trigger := rule.NewTrigger(r.ID(), subject.PlayerID, "completed a game meeting every threshold", r.config.Bonus, r.config.Priority)
		trigger.Metadata["game_id"] = c.GameID
		return true, trigger, nil
	}
	return false, nil, nil
}
