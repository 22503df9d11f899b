package rule

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// Engine runs a month's tribute rules against one player.
type Engine struct {
	registry *Registry
}

func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Evaluate returns the tributes the subject meets among tributeIDs, highest
// priority first. Ties keep the month's order. The first rule error aborts
// the evaluation and no triggers are returned.
func (e *Engine) Evaluate(ctx context.Context, subject *Subject, tributeIDs []string) ([]*Trigger, error) {
	if subject == nil {
		return nil, nil
	}

	tributes := e.registry.Tributes(tributeIDs)
	if len(tributes) == 0 {
		logrus.Debugf("challenge %d has no enabled tributes", subject.Challenge)
		return nil, nil
	}

	var met []*Trigger
	for _, tribute := range tributes {
		ok, trigger, err := tribute.Evaluate(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("tribute %s for player %d: %w", tribute.ID(), subject.PlayerID, err)
		}
		if !ok || trigger == nil {
			continue
		}
		logrus.Debugf("player %d met tribute %s: %s", subject.PlayerID, tribute.ID(), trigger.Reason)
		met = append(met, trigger)
	}

	slices.SortStableFunc(met, func(a, b *Trigger) int {
		return cmp.Compare(b.Priority, a.Priority)
	})
	return met, nil
}
