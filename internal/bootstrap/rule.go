// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	ruleBuiltin "github.com/AccelByte/extend-completion-contest/pkg/rule/builtin"
	"github.com/AccelByte/extend-completion-contest/pkg/ruleset"
	"github.com/sirupsen/logrus"
)

// InitRuleEngine creates the tribute rule engine from the rule table.
//
// ============================================================
// DEVELOPER: Register custom tribute rule types here.
// ============================================================
// Tribute rules decide whether a completion earns a month's extra
// multiplier (platform, reference player overlap, title letters,
// game thresholds, genres).
//
// Steps to add a new tribute rule:
// 1. Create your rule in pkg/rule/builtin/
// 2. Implement the Rule interface
// 3. Register the rule type in pkg/rule/builtin/init.go
// 4. Add the rule to config/contest.yaml and list its id under a
//    month's tributes
// ============================================================
func InitRuleEngine(config *ruleset.Config) (*rule.Engine, *rule.Registry, error) {
	ruleBuiltin.RegisterRules()

	registry := rule.NewRegistry()
	if err := rule.RegisterRules(registry, config.Rules); err != nil {
		return nil, nil, fmt.Errorf("failed to register rules (types: %v): %w", rule.RuleTypes(), err)
	}

	// Every enabled rule in the table must have a registered instance.
	if err := ruleset.ValidateWiring(registry, config); err != nil {
		return nil, nil, err
	}
	logrus.Info("rule table wiring validation passed")

	engine := rule.NewEngine(registry)
	logrus.Infof("initialized rule engine with tributes %v", registry.IDs())

	return engine, registry, nil
}
