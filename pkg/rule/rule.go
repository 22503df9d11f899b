package rule

import (
	"context"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
)

// Rule is one tribute condition of a monthly challenge. A met tribute adds
// its bonus to the multiplier of every completion the player scores that month.
type Rule interface {
	ID() string
	Name() string

	// Evaluate reports whether the subject meets the tribute. An error means
	// the rule could not decide, not that the tribute was missed.
	Evaluate(ctx context.Context, subject *Subject) (bool, *Trigger, error)

	Config() RuleConfig
}

// CompletionLookup gives rules access to completions outside the subject,
// such as a reference player's finished games.
type CompletionLookup interface {
	CompletedGameIDs(ctx context.Context, playerID int64) (map[int]bool, error)
}

// Subject is what a rule is evaluated against: one player's completions
// for one challenge, each with its Game loaded.
type Subject struct {
	PlayerID    int64
	Challenge   int
	Completions []contest.Completion
	Lookup      CompletionLookup
}

// Trigger is a met tribute. Metadata carries rule-specific detail for the
// month's recap, e.g. the matched games.
type Trigger struct {
	RuleID    string
	PlayerID  int64
	Timestamp time.Time
	Reason    string
	Bonus     float64
	Metadata  map[string]interface{}
	Priority  int
}

func NewTrigger(ruleID string, playerID int64, reason string, bonus float64, priority int) *Trigger {
	return &Trigger{
		RuleID:    ruleID,
		PlayerID:  playerID,
		Timestamp: time.Now(),
		Reason:    reason,
		Bonus:     bonus,
		Metadata:  make(map[string]interface{}),
		Priority:  priority,
	}
}

// WithMetadata sets one metadata key.
func (t *Trigger) WithMetadata(key string, value interface{}) *Trigger {
	t.Metadata[key] = value
	return t
}

// TotalBonus sums the bonus of every trigger.
func TotalBonus(triggers []*Trigger) float64 {
	var total float64
	for _, t := range triggers {
		total += t.Bonus
	}
	return total
}
