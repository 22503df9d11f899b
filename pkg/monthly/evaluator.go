// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package monthly rebuilds monthly challenge recaps from a month rule table.
package monthly

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/metrics"
	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	"github.com/AccelByte/extend-completion-contest/pkg/ruleset"
	"github.com/AccelByte/extend-completion-contest/pkg/scoring"
	"github.com/AccelByte/extend-completion-contest/pkg/state"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/sirupsen/logrus"
)

// Locker takes run-scoped locks.
type Locker interface {
	Acquire(ctx context.Context, name string) (*state.Lock, error)
}

// Result is the outcome of one monthly recompute.
type Result struct {
	Challenge         int                    `json:"challenge"`
	Recaps            []contest.MonthlyRecap `json:"recaps"`
	Exclusions        int                    `json:"exclusions"`
	CommunityProgress int                    `json:"communityProgress"`
	CommunityReached  bool                   `json:"communityReached"`
}

// Evaluator scores one monthly challenge.
type Evaluator struct {
	store     *store.Store
	locker    Locker
	engine    *rule.Engine
	scorer    scoring.Engine
	qualifier contest.Qualifier
	month     ruleset.MonthConfig
}

// NewEvaluator creates an evaluator for one month rule table.
func NewEvaluator(st *store.Store, locker Locker, engine *rule.Engine, scorer scoring.Engine, qualifier contest.Qualifier, month ruleset.MonthConfig) *Evaluator {
	return &Evaluator{
		store:     st,
		locker:    locker,
		engine:    engine,
		scorer:    scorer,
		qualifier: qualifier,
		month:     month,
	}
}

// Month returns the rule table.
func (e *Evaluator) Month() ruleset.MonthConfig {
	return e.month
}

type playerGame struct {
	playerID int64
	gameID   int
}

// Evaluate clears and rebuilds the month's recaps and exclusion rules for
// players in one transaction. Players are ranked by total points, ties kept
// in player id order.
func (e *Evaluator) Evaluate(ctx context.Context, players []contest.Player) (result *Result, err error) {
	if err := e.qualifier.Validate(); err != nil {
		return nil, err
	}

	lock, err := e.locker.Acquire(ctx, state.RunLockName(fmt.Sprintf("monthly:%d", e.month.Challenge)))
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(context.Background()); rerr != nil {
			logrus.Warnf("failed to release monthly lock: %v", rerr)
		}
	}()

	start := time.Now()
	defer func() { metrics.ObserveRecompute("monthly", start, err) }()

	roster := append([]contest.Player(nil), players...)
	sort.SliceStable(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	err = e.store.Transaction(ctx, func(tx *store.Store) error {
		var terr error
		result, terr = e.rebuild(ctx, tx, roster)
		return terr
	})
	if err != nil {
		return nil, fmt.Errorf("monthly challenge %d recompute failed: %w", e.month.Challenge, err)
	}

	logrus.Infof("challenge %d recomputed: %d recaps, %d exclusions, community=%d",
		e.month.Challenge, len(result.Recaps), result.Exclusions, result.CommunityProgress)
	return result, nil
}

func (e *Evaluator) rebuild(ctx context.Context, tx *store.Store, roster []contest.Player) (*Result, error) {
	challenge := e.month.Challenge

	if err := tx.DeleteRecaps(ctx, challenge); err != nil {
		return nil, err
	}
	if err := tx.DeleteExclusions(ctx, challenge); err != nil {
		return nil, err
	}

	prior, err := tx.Exclusions(ctx)
	if err != nil {
		return nil, err
	}
	excluded := make(map[playerGame]bool, len(prior))
	for _, x := range prior {
		excluded[playerGame{x.PlayerID, x.GameID}] = true
	}

	window, err := tx.CompletionsBetween(ctx, e.month.From, e.month.To)
	if err != nil {
		return nil, err
	}
	byPlayer := make(map[int64][]contest.Completion)
	for _, c := range window {
		byPlayer[c.PlayerID] = append(byPlayer[c.PlayerID], c)
	}

	result := &Result{Challenge: challenge}
	var exclusions []contest.ExclusionRule

	for _, p := range roster {
		var scored []contest.Completion
		for _, c := range byPlayer[p.ID] {
			if c.Game == nil || excluded[playerGame{p.ID, c.GameID}] {
				continue
			}
			if !e.qualifier.Qualifies(c, *c.Game, p.RegisteredAt) {
				continue
			}
			if c.Game.Gamerscore < e.month.MinGamerscore {
				continue
			}
			scored = append(scored, c)
		}

		recap, rules, err := e.scorePlayer(ctx, tx, p, scored)
		if err != nil {
			return nil, err
		}
		exclusions = append(exclusions, rules...)
		result.Recaps = append(result.Recaps, recap)
	}

	if goal := e.month.Community; goal != nil {
		result.CommunityProgress = e.communityProgress(window, goal)
		result.CommunityReached = communityReached(goal, result.CommunityProgress)
		for i := range result.Recaps {
			result.Recaps[i].CommunityBonus = result.CommunityProgress
			if result.CommunityReached && result.Recaps[i].Participation {
				result.Recaps[i].TotalPoints += goal.Bonus
			}
		}
	}

	sort.SliceStable(result.Recaps, func(i, j int) bool {
		return result.Recaps[i].TotalPoints > result.Recaps[j].TotalPoints
	})
	for i := range result.Recaps {
		result.Recaps[i].Rank = i + 1
	}

	if err := tx.InsertExclusions(ctx, exclusions); err != nil {
		return nil, err
	}
	if err := tx.InsertRecaps(ctx, result.Recaps); err != nil {
		return nil, err
	}
	result.Exclusions = len(exclusions)

	return result, nil
}

// scorePlayer applies tributes and tiers to a player's scored completions.
func (e *Evaluator) scorePlayer(ctx context.Context, tx *store.Store, p contest.Player, scored []contest.Completion) (contest.MonthlyRecap, []contest.ExclusionRule, error) {
	recap := contest.MonthlyRecap{
		Challenge:     e.month.Challenge,
		PlayerID:      p.ID,
		Gamertag:      p.Gamertag,
		Completions:   len(scored),
		Participation: len(scored) > 0,
		Tributes:      []string{},
	}

	triggers, err := e.engine.Evaluate(ctx, &rule.Subject{
		PlayerID:    p.ID,
		Challenge:   e.month.Challenge,
		Completions: scored,
		Lookup:      tx,
	}, e.month.Tributes)
	if err != nil {
		return recap, nil, err
	}
	bonus := rule.TotalBonus(triggers)
	for _, t := range triggers {
		recap.Tributes = append(recap.Tributes, t.RuleID)
	}

	exclusions := make([]contest.ExclusionRule, 0, len(scored))
	for _, c := range scored {
		value := e.scorer.Value(c, *c.Game)
		recap.BasePoints += value
		recap.TotalPoints += int(math.Floor(float64(value) * (e.month.Multiplier(c.Game.Gamerscore) + bonus)))
		recap.AchievementCount += c.AchievementCount
		if e.month.IsBonusGame(c.GameID) {
			recap.AchievementCount += c.AchievementCount * e.month.BonusGames.AchievementMultiplier
		}

		exclusions = append(exclusions, contest.ExclusionRule{
			Challenge: e.month.Challenge,
			PlayerID:  p.ID,
			GameID:    c.GameID,
		})
	}

	return recap, exclusions, nil
}

// Leaderboard returns the month's recaps by rank.
func (e *Evaluator) Leaderboard(ctx context.Context) ([]contest.MonthlyRecap, error) {
	return e.store.Recaps(ctx, e.month.Challenge)
}
