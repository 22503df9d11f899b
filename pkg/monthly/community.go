// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package monthly

import (
	"math"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/ruleset"
)

// communityProgress measures a community goal over every completion in the
// month window, independent of registration dates and exclusion rules.
func (e *Evaluator) communityProgress(window []contest.Completion, goal *ruleset.CommunityGoal) int {
	switch goal.Kind {
	case ruleset.CommunityTugOfWar:
		return e.tugOfWar(window, goal)
	case ruleset.CommunityPopularGames:
		return e.popularGames(window, goal)
	}
	return 0
}

func (e *Evaluator) counts(c contest.Completion) bool {
	return c.Game != nil &&
		e.qualifier.InContest(c) &&
		e.qualifier.GameEligible(*c.Game) &&
		c.Game.Gamerscore >= e.month.MinGamerscore
}

// tugOfWar is the community's weighted achievements, plus bonus game
// achievements, minus the reference players' achievements.
func (e *Evaluator) tugOfWar(window []contest.Completion, goal *ruleset.CommunityGoal) int {
	reference := make(map[int64]bool, len(goal.ReferencePlayers))
	for _, id := range goal.ReferencePlayers {
		reference[id] = true
	}

	weight := goal.Weight
	if weight <= 0 {
		weight = 1
	}

	var community, bonus, opposition int
	for _, c := range window {
		if !e.counts(c) {
			continue
		}
		if reference[c.PlayerID] {
			opposition += c.AchievementCount
			continue
		}
		community += c.AchievementCount
		if e.month.IsBonusGame(c.GameID) {
			bonus += c.AchievementCount * e.month.BonusGames.AchievementMultiplier
		}
	}

	return int(math.Floor(float64(community)*weight)) + bonus - opposition
}

// popularGames counts games completed by more than MinCompletions players.
func (e *Evaluator) popularGames(window []contest.Completion, goal *ruleset.CommunityGoal) int {
	completions := make(map[int]int)
	for _, c := range window {
		if c.Game == nil || !e.qualifier.GameEligible(*c.Game) {
			continue
		}
		completions[c.GameID]++
	}

	popular := 0
	for _, n := range completions {
		if n > goal.MinCompletions {
			popular++
		}
	}
	return popular
}

func communityReached(goal *ruleset.CommunityGoal, progress int) bool {
	switch goal.Kind {
	case ruleset.CommunityPopularGames:
		return progress >= goal.Games
	default:
		return progress >= goal.Goal
	}
}
