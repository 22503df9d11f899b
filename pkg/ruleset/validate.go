package ruleset

import (
	"fmt"
	"strings"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/rule"
)

// Validate validates the configuration for common errors.
func (c *Config) Validate() error {
	if c.Contest.Start.IsZero() {
		return fmt.Errorf("contest start date is required")
	}

	// Check for duplicate rule IDs
	ruleIDs := make(map[string]bool)
	for _, r := range c.Rules {
		if r.ID == "" {
			return fmt.Errorf("rule with empty ID found")
		}
		if ruleIDs[r.ID] {
			return fmt.Errorf("duplicate rule ID: %s", r.ID)
		}
		ruleIDs[r.ID] = true

		if r.Type == "" {
			return fmt.Errorf("rule %s has empty type", r.ID)
		}
	}

	challenges := make(map[int]bool)
	for _, m := range c.Months {
		if m.Challenge <= 0 {
			return fmt.Errorf("month %q has no challenge number", m.Name)
		}
		if challenges[m.Challenge] {
			return fmt.Errorf("duplicate challenge number: %d", m.Challenge)
		}
		challenges[m.Challenge] = true

		if !m.From.Before(m.To) {
			return fmt.Errorf("challenge %d: window start must be before end", m.Challenge)
		}
		for _, t := range m.Tiers {
			if t.Multiplier < 0 {
				return fmt.Errorf("challenge %d: negative tier multiplier", m.Challenge)
			}
		}

		// Validate that all tribute references exist
		for _, id := range m.Tributes {
			if !ruleIDs[id] {
				return fmt.Errorf("challenge %d references unknown rule: %s", m.Challenge, id)
			}
		}

		if err := m.Community.validate(); err != nil {
			return fmt.Errorf("challenge %d: %w", m.Challenge, err)
		}
	}

	for i, job := range c.OddJobs {
		if len(job.Genres) == 0 {
			return fmt.Errorf("odd job %d (%s) has no genres", i, job.Name)
		}
	}

	for category := range c.YearlyChallenges {
		switch category {
		case contest.YearlyCommunityStar, contest.YearlySignature, contest.YearlyRetirement:
		default:
			return fmt.Errorf("unknown yearly challenge category: %s", category)
		}
	}

	if _, err := c.RandomPlatforms(); err != nil {
		return err
	}
	if c.RandomChallenge.MaxEstimate < 0 {
		return fmt.Errorf("random challenge max_estimate must not be negative")
	}

	return nil
}

func (g *CommunityGoal) validate() error {
	if g == nil {
		return nil
	}
	switch g.Kind {
	case CommunityTugOfWar:
		if g.Goal <= 0 {
			return fmt.Errorf("tug_of_war community goal needs a positive goal")
		}
	case CommunityPopularGames:
		if g.Games <= 0 {
			return fmt.Errorf("popular_games community goal needs a positive games count")
		}
	default:
		return fmt.Errorf("unknown community goal kind: %q", g.Kind)
	}
	return nil
}

// ValidateWiring validates that the rule table is correctly wired.
// It checks that every enabled rule in config has a registered instance,
// which catches forgotten rule type factories and typos in types.
func ValidateWiring(ruleRegistry *rule.Registry, config *Config) error {
	var errors []string

	for _, rc := range config.Rules {
		if !rc.Enabled {
			continue
		}

		if r := ruleRegistry.Get(rc.ID); r == nil {
			errors = append(errors, fmt.Sprintf("rule '%s' (type=%s) is enabled in config but not registered", rc.ID, rc.Type))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("rule table wiring validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}
