// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package leaderboard rolls completions, sub-challenges and monthly recaps up
// into the yearly ranked table.
package leaderboard

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/metrics"
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

// Aggregator rebuilds the yearly table.
type Aggregator struct {
	store     *store.Store
	locker    Locker
	scorer    scoring.Engine
	qualifier contest.Qualifier
	config    *ruleset.Config
}

// NewAggregator creates an aggregator for the contest rule table.
func NewAggregator(st *store.Store, locker Locker, config *ruleset.Config) *Aggregator {
	return &Aggregator{
		store:     st,
		locker:    locker,
		scorer:    config.Scorer(),
		qualifier: config.Qualifier(),
		config:    config,
	}
}

// Recalculate replaces the yearly table for players in one transaction and
// returns the ranked rows.
func (a *Aggregator) Recalculate(ctx context.Context, players []contest.Player) (stats []contest.YearlyStat, err error) {
	if err := a.qualifier.Validate(); err != nil {
		return nil, err
	}

	lock, err := a.locker.Acquire(ctx, state.RunLockName("yearly"))
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(context.Background()); rerr != nil {
			logrus.Warnf("failed to release yearly lock: %v", rerr)
		}
	}()

	start := time.Now()
	defer func() { metrics.ObserveRecompute("yearly", start, err) }()

	roster := append([]contest.Player(nil), players...)
	sort.SliceStable(roster, func(i, j int) bool { return roster[i].ID < roster[j].ID })

	err = a.store.Transaction(ctx, func(tx *store.Store) error {
		var terr error
		stats, terr = a.rebuild(ctx, tx, roster)
		return terr
	})
	if err != nil {
		return nil, fmt.Errorf("yearly recompute failed: %w", err)
	}

	logrus.Infof("yearly leaderboard recomputed for %d players", len(stats))
	return stats, nil
}

func (a *Aggregator) rebuild(ctx context.Context, tx *store.Store, roster []contest.Player) ([]contest.YearlyStat, error) {
	previous, err := tx.YearlyStats(ctx)
	if err != nil {
		return nil, err
	}
	previousRank := make(map[int64]int, len(previous))
	for _, s := range previous {
		previousRank[s.PlayerID] = s.Rank
	}

	recapTotals, err := tx.RecapTotals(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]contest.YearlyStat, 0, len(roster))
	for _, p := range roster {
		stat, err := a.playerStat(ctx, tx, p)
		if err != nil {
			return nil, err
		}
		stat.BonusPoints += recapTotals[p.ID]
		stat.TotalPoints = stat.BasePoints + stat.BonusPoints
		stats = append(stats, stat)
	}

	if err := tx.ReplaceYearlyStats(ctx, stats); err != nil {
		return nil, err
	}

	ranked, err := tx.YearlyStats(ctx)
	if err != nil {
		return nil, err
	}
	byRoster := make(map[int64]int, len(roster))
	for i, p := range roster {
		byRoster[p.ID] = i
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalPoints != ranked[j].TotalPoints {
			return ranked[i].TotalPoints > ranked[j].TotalPoints
		}
		return byRoster[ranked[i].PlayerID] < byRoster[ranked[j].PlayerID]
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
		if prev, ok := previousRank[ranked[i].PlayerID]; ok && prev > 0 {
			ranked[i].RankMovement = prev - ranked[i].Rank
		} else {
			ranked[i].RankMovement = 0
		}
	}

	if err := tx.ReplaceYearlyStats(ctx, ranked); err != nil {
		return nil, err
	}
	return ranked, nil
}

// playerStat computes everything but the recap totals for one player.
func (a *Aggregator) playerStat(ctx context.Context, tx *store.Store, p contest.Player) (contest.YearlyStat, error) {
	stat := contest.YearlyStat{PlayerID: p.ID, Gamertag: p.Gamertag}

	qualifying, err := a.qualifyingCompletions(ctx, tx, p)
	if err != nil {
		return stat, err
	}

	var ratioSum, estimateSum float64
	var estimates int
	for _, c := range qualifying {
		g := c.Game
		ratioSum += g.SiteRatio
		stat.HighestRatio = math.Max(stat.HighestRatio, g.SiteRatio)
		if g.FullCompletionEstimate != nil {
			estimateSum += *g.FullCompletionEstimate
			estimates++
			stat.HighestEstimate = math.Max(stat.HighestEstimate, *g.FullCompletionEstimate)
		}
		stat.BasePoints += a.scorer.Value(c, *g)
	}

	stat.Completions = len(qualifying)
	if stat.Completions > 0 {
		stat.AverageRatio = ratioSum / float64(stat.Completions)
		stat.AveragePoints = float64(stat.BasePoints) / float64(stat.Completions)
	}
	if estimates > 0 {
		stat.AverageEstimate = estimateSum / float64(estimates)
	}

	randomBonus, err := a.randomChallengeBonus(ctx, tx, p, qualifying)
	if err != nil {
		return stat, err
	}
	stat.BonusPoints += randomBonus

	if contest.AllOddJobsDone(contest.MatchOddJobs(a.config.OddJobs, qualifying)) {
		stat.BonusPoints += a.config.OddJobBonus
	}

	approved, _, err := tx.YearlyChallengeCounts(ctx, p.ID)
	if err != nil {
		return stat, err
	}
	for category, threshold := range a.config.YearlyChallenges {
		if threshold.Count > 0 && approved[category] == threshold.Count {
			stat.BonusPoints += threshold.Bonus
		}
	}

	return stat, nil
}

func (a *Aggregator) qualifyingCompletions(ctx context.Context, st *store.Store, p contest.Player) ([]contest.Completion, error) {
	completed, err := st.CompletedGames(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	qualifying := completed[:0]
	for _, c := range completed {
		if c.Game != nil && a.qualifier.Qualifies(c, *c.Game, p.RegisteredAt) {
			qualifying = append(qualifying, c)
		}
	}
	return qualifying, nil
}

// randomChallengeBonus scores completions of issued games finished after
// their issue date.
func (a *Aggregator) randomChallengeBonus(ctx context.Context, tx *store.Store, p contest.Player, qualifying []contest.Completion) (int, error) {
	issues, err := tx.Issues(ctx, p.ID)
	if err != nil {
		return 0, err
	}
	if len(issues) == 0 {
		return 0, nil
	}

	byGame := make(map[int]contest.Completion, len(qualifying))
	for _, c := range qualifying {
		byGame[c.GameID] = c
	}

	multiplier := a.config.RandomChallenge.CompletionMultiplier
	bonus := 0
	for _, issue := range issues {
		if issue.Rerolled || issue.Placeholder() {
			continue
		}
		c, ok := byGame[*issue.GameID]
		if !ok || c.CompletionDate.Before(issue.IssuedAt) {
			continue
		}
		bonus += int(math.Floor(float64(a.scorer.Value(c, *c.Game)) * multiplier))
	}
	return bonus, nil
}

// Standings returns the persisted yearly table by rank.
func (a *Aggregator) Standings(ctx context.Context) ([]contest.YearlyStat, error) {
	return a.store.YearlyStats(ctx)
}
