package rule

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"
)

// RuleFactory builds a rule from its row in the rule table.
type RuleFactory func(config RuleConfig) (Rule, error)

var (
	factoriesMu sync.RWMutex
	factories   = map[string]RuleFactory{}
)

// RegisterRuleType makes a rule type available to the rule table. Registering
// a type again replaces its factory.
func RegisterRuleType(ruleType string, factory RuleFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[ruleType] = factory
}

// RuleTypes lists the registered rule types, sorted.
func RuleTypes() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	return slices.Sorted(maps.Keys(factories))
}

// CreateRule builds the rule for config. A disabled row yields (nil, nil).
func CreateRule(config RuleConfig) (Rule, error) {
	if !config.Enabled {
		logrus.Debugf("tribute rule %s is disabled", config.ID)
		return nil, nil
	}

	factoriesMu.RLock()
	factory, ok := factories[config.Type]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown rule type %q (known: %v)", config.Type, RuleTypes())
	}
	return factory(config)
}

// RegisterRules builds every row of the rule table and registers the enabled
// ones. Nothing is registered unless every row builds; the returned error
// names each failing row.
func RegisterRules(registry *Registry, configs []RuleConfig) error {
	var (
		built []Rule
		errs  []error
	)
	for _, config := range configs {
		r, err := CreateRule(config)
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: %w", config.ID, err))
			continue
		}
		if r != nil {
			built = append(built, r)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for _, r := range built {
		if err := registry.Register(r); err != nil {
			return err
		}
	}
	logrus.Infof("registered %d of %d tribute rules", len(built), len(configs))
	return nil
}
