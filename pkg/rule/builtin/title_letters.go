package builtin

import (
	"context"
	"fmt"
	"strings"

	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	"github.com/sirupsen/logrus"
)

const (
	// TitleLettersRuleID is the type of the spell-a-word tribute
	TitleLettersRuleID = "title_letters"
)

// TitleLettersRule is met when the letters of a word can be taken from the
// titles of the completed games. Each title letter is used at most once and
// configured suffixes are removed from titles first.
type TitleLettersRule struct {
	config   rule.RuleConfig
	letters  []rune
	suffixes []string
}

// NewTitleLettersRule creates a title letters tribute.
func NewTitleLettersRule(config rule.RuleConfig) (*TitleLettersRule, error) {
	word := strings.ToLower(config.GetString("letters", ""))
	if word == "" {
		return nil, fmt.Errorf("rule %s: letters is required", config.ID)
	}

	logrus.Infof("creating title letters rule %s for %q", config.ID, word)

	return &TitleLettersRule{
		config:   config,
		letters:  []rune(word),
		suffixes: config.GetStringSlice("remove_suffixes"),
	}, nil
}

// ID returns the rule identifier.
func (r *TitleLettersRule) ID() string {
	return r.config.ID
}

// Name returns the rule name.
func (r *TitleLettersRule) Name() string {
	return "Title Letters Tribute"
}

// Config returns the rule configuration.
func (r *TitleLettersRule) Config() rule.RuleConfig {
	return r.config
}

func (r *TitleLettersRule) normalize(title string) []rune {
	for _, s := range r.suffixes {
		title = strings.ReplaceAll(title, s, "")
	}
	return []rune(strings.ToLower(title))
}

// Evaluate consumes required letters title by title, in completion order.
func (r *TitleLettersRule) Evaluate(ctx context.Context, subject *rule.Subject) (bool, *rule.Trigger, error) {
	remaining := append([]rune(nil), r.letters...)

	for _, c := range subject.Completions {
		if c.Game == nil {
			continue
		}
		available := r.normalize(c.Game.Title)

		kept := remaining[:0]
		for _, want := range remaining {
			if i := indexRune(available, want); i >= 0 {
				available = append(available[:i], available[i+1:]...)
				continue
			}
			kept = append(kept, want)
		}
		remaining = kept

		if len(remaining) == 0 {
			trigger := rule.NewTrigger(r.ID(), subject.PlayerID, "spelled the tribute word from game titles", r.config.Bonus, r.config.Priority)
			trigger.Metadata["letters"] = string(r.letters)
			return true, trigger, nil
		}
	}

	return false, nil, nil
}

func indexRune(s []rune, r rune) int {
	for i, c := range s {
		if c == r {
			return i
		}
	}
	return -1
}
