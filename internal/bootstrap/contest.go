// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package bootstrap

import (
	"fmt"

	"github.com/AccelByte/extend-completion-contest/pkg/challenge"
	"github.com/AccelByte/extend-completion-contest/pkg/datasync"
	"github.com/AccelByte/extend-completion-contest/pkg/leaderboard"
	"github.com/AccelByte/extend-completion-contest/pkg/monthly"
	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	"github.com/AccelByte/extend-completion-contest/pkg/ruleset"
	"github.com/AccelByte/extend-completion-contest/pkg/scoring"
	"github.com/AccelByte/extend-completion-contest/pkg/source"
	"github.com/AccelByte/extend-completion-contest/pkg/state"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/sirupsen/logrus"
)

// Contest holds the contest services built from one rule table.
type Contest struct {
	Config       *ruleset.Config
	Scorer       scoring.Engine
	Synchronizer *datasync.Synchronizer
	Months       []*monthly.Evaluator
	Aggregator   *leaderboard.Aggregator
	Assigner     *challenge.Assigner
}

// Month returns the evaluator of a monthly challenge.
func (c *Contest) Month(challenge int) (*monthly.Evaluator, error) {
	for _, e := range c.Months {
		if e.Month().Challenge == challenge {
			return e, nil
		}
	}
	return nil, fmt.Errorf("no monthly challenge %d in the rule table", challenge)
}

// InitContest builds every contest service over a shared store and locker.
// Each configured month gets its own evaluator on the same rule engine.
func InitContest(
	st *store.Store,
	locker *state.Locker,
	config *ruleset.Config,
	engine *rule.Engine,
	fetcher source.Fetcher,
	syncConfig datasync.Config,
) (*Contest, error) {
	scorer := config.Scorer()
	qualifier := config.Qualifier()

	months := make([]*monthly.Evaluator, 0, len(config.Months))
	for _, m := range config.Months {
		months = append(months, monthly.NewEvaluator(st, locker, engine, scorer, qualifier, m))
	}
	logrus.Infof("initialized %d monthly challenge evaluators", len(months))

	assigner, err := challenge.NewAssigner(st, locker, config)
	if err != nil {
		return nil, fmt.Errorf("failed to init random challenge assigner: %w", err)
	}

	return &Contest{
		Config:       config,
		Scorer:       scorer,
		Synchronizer: datasync.NewSynchronizer(st, locker, fetcher, scorer, syncConfig),
		Months:       months,
		Aggregator:   leaderboard.NewAggregator(st, locker, config),
		Assigner:     assigner,
	}, nil
}
