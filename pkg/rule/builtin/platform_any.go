package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	"github.com/sirupsen/logrus"
)

const (
	// PlatformAnyRuleID is the type of the platform membership tribute
	PlatformAnyRuleID = "platform_any"
)

// PlatformAnyRule is met when any completion was played on one of the
// configured platforms.
type PlatformAnyRule struct {
	config    rule.RuleConfig
	platforms map[contest.Platform]bool
}

// NewPlatformAnyRule creates a platform tribute. Unknown platform names fail.
func NewPlatformAnyRule(config rule.RuleConfig) (*PlatformAnyRule, error) {
	names := config.GetStringSlice("platforms")
	if len(names) == 0 {
		return nil, fmt.Errorf("rule %s: platforms is required", config.ID)
	}

	platforms := make(map[contest.Platform]bool, len(names))
	for _, name := range names {
		p, ok := contest.ParsePlatform(name)
		if !ok {
			return nil, fmt.Errorf("rule %s: unknown platform %q", config.ID, name)
		}
		platforms[p] = true
	}

	logrus.Infof("creating platform rule %s with %d platforms", config.ID, len(platforms))

	return &PlatformAnyRule{config: config, platforms: platforms}, nil
}

// ID returns the rule identifier.
func (r *PlatformAnyRule) ID() string {
	return r.config.ID
}

// Name returns the rule name.
func (r *PlatformAnyRule) Name() string {
	return "Platform Tribute"
}

// Config returns the rule configuration.
func (r *PlatformAnyRule) Config() rule.RuleConfig {
	return r.config
}

// Evaluate checks the completions' platforms.
func (r *PlatformAnyRule) Evaluate(ctx context.Context, subject *rule.Subject) (bool, *rule.Trigger, error) {
	for _, c := range subject.Completions {
		if r.platforms[c.Platform] {
			trigger := rule.NewTrigger(r.ID(), subject.PlayerID, "completed a game on a tribute platform", r.config.Bonus, r.config.Priority)
			trigger.Metadata["game_id"] = c.GameID
			trigger.Metadata["platform"] = string(c.Platform)
			return true, trigger, nil
		}
	}
	return false, nil, nil
}
