package builtin

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	"github.com/sirupsen/logrus"
)

const (
	// GenreAnyRuleID is the type of the genre tribute
	GenreAnyRuleID = "genre_any"
)

// GenreAnyRule is met when a completed game carries any configured genre.
type GenreAnyRule struct {
	config   rule.RuleConfig
	genreIDs []int
}

// NewGenreAnyRule creates a genre tribute.
func NewGenreAnyRule(config rule.RuleConfig) (*GenreAnyRule, error) {
	ids := config.GetIntSlice("genre_ids")
	if len(ids) == 0 {
		return nil, fmt.Errorf("rule %s: genre_ids is required", config.ID)
	}

	logrus.Infof("creating genre rule %s with genres %v", config.ID, ids)

	return &GenreAnyRule{config: config, genreIDs: ids}, nil
}

// ID returns the rule identifier.
func (r *GenreAnyRule) ID() string {
	return r.config.ID
}

// Name returns the rule name.
func (r *GenreAnyRule) Name() string {
	return "Genre Tribute"
}

// Config returns the rule configuration.
func (r *GenreAnyRule) Config() rule.RuleConfig {
	return r.config
}

// Evaluate checks game genres.
func (r *GenreAnyRule) Evaluate(ctx context.Context, subject *rule.Subject) (bool, *rule.Trigger, error) {
	for _, c := range subject.Completions {
		if c.Game == nil {
			continue
		}
		for _, id := range r.genreIDs {
			if c.Game.HasGenre(id) {
				trigger := rule.NewTrigger(r.ID(), subject.PlayerID, "completed a game in a tribute genre", r.config.Bonus, r.config.Priority)
				trigger.Metadata["game_id"] = c.GameID
				trigger.Metadata["genre_id"] = id
				return true, trigger, nil
			}
		}
	}
	return false, nil, nil
}
