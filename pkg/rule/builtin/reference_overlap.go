package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	"github.com/sirupsen/logrus"
)

const (
	// ReferenceOverlapRuleID is the type of the shared-completion tribute
	ReferenceOverlapRuleID = "reference_overlap"
)

// ReferenceOverlapRule is met when the player completed a game that one of
// the reference players has also completed at any time. A reference player
// meets it with any of their own qualifying completions.
type ReferenceOverlapRule struct {
	config    rule.RuleConfig
	playerIDs []int
}

// NewReferenceOverlapRule creates a reference overlap tribute.
func NewReferenceOverlapRule(config rule.RuleConfig) (*ReferenceOverlapRule, error) {
	ids := config.GetIntSlice("player_ids")
	if len(ids) == 0 {
		return nil, fmt.Errorf("rule %s: player_ids is required", config.ID)
	}

	logrus.Infof("creating reference overlap rule %s with reference players %v", config.ID, ids)

	return &ReferenceOverlapRule{config: config, playerIDs: ids}, nil
}

// ID returns the rule identifier.
func (r *ReferenceOverlapRule) ID() string {
	return r.config.ID
}

// Name returns the rule name.
func (r *ReferenceOverlapRule) Name() string {
	return "Reference Overlap Tribute"
}

// Config returns the rule configuration.
func (r *ReferenceOverlapRule) Config() rule.RuleConfig {
	return r.config
}

// Evaluate loads each reference player's completed games lazily, after
// checking the subject has completions at all.
func (r *ReferenceOverlapRule) Evaluate(ctx context.Context, subject *rule.Subject) (bool, *rule.Trigger, error) {
	if len(subject.Completions) == 0 {
		return false, nil, nil
	}
	if subject.Lookup == nil {
		return false, nil, fmt.Errorf("rule %s needs a completion lookup", r.ID())
	}

	for _, refID := range r.playerIDs {
		completed, err := subject.Lookup.CompletedGameIDs(ctx, int64(refID))
		if err != nil {
			return false, nil, fmt.Errorf("failed to load reference player %d: %w", refID, err)
		}
		for _, c := range subject.Completions {
			if completed[c.GameID] {
				trigger := rule.NewTrigger(r.ID(), subject.PlayerID, "completed a game shared with a reference player", r.config.Bonus, r.config.Priority)
				trigger.Metadata["game_id"] = c.GameID
				trigger.Metadata["reference_player"] = refID
				return true, trigger, nil
			}
		}
	}

	return false, nil, nil
}
