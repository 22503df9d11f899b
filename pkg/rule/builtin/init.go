package builtin

import (
	"github.com/AccelByte/extend-completion-contest/pkg/rule"
)

// RegisterRules registers all built-in tribute rule types with the factory.
func RegisterRules() {
	rule.RegisterRuleType(PlatformAnyRuleID, func(config rule.RuleConfig) (rule.Rule, error) {
		return NewPlatformAnyRule(config)
	})

	rule.RegisterRuleType(GameThresholdRuleID, func(config rule.RuleConfig) (rule.Rule, error) {
		return NewGameThresholdRule(config)
	})

	rule.RegisterRuleType(TitleLettersRuleID, func(config rule.RuleConfig) (rule.Rule, error) {
		return NewTitleLettersRule(config)
	})

	rule.RegisterRuleType(ReferenceOverlapRuleID, func(config rule.RuleConfig) (rule.Rule, error) {
		return NewReferenceOverlapRule(config)
	})

	rule.RegisterRuleType(GenreAnyRuleID, func(config rule.RuleConfig) (rule.Rule, error) {
		return NewGenreAnyRule(config)
	})
}
