// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package contest

import (
	"strings"
	"time"
)

// Qualifier decides whether a completion counts toward contest scoring.
type Qualifier struct {
	ContestStart    time.Time
	ExcludedGameIDs map[int]struct{}
	// ExcludedTitles are matched case-insensitively as substrings.
	ExcludedTitles []string
}

// NewQualifier builds a Qualifier from plain lists.
func NewQualifier(start time.Time, gameIDs []int, titles []string) Qualifier {
	excluded := make(map[int]struct{}, len(gameIDs))
	for _, id := range gameIDs {
		excluded[id] = struct{}{}
	}
	return Qualifier{
		ContestStart:    start,
		ExcludedGameIDs: excluded,
		ExcludedTitles:  titles,
	}
}

// Validate fails when no contest start date is configured.
func (q Qualifier) Validate() error {
	if q.ContestStart.IsZero() {
		return InvalidStatef("no contest start date registered")
	}
	return nil
}

// GameEligible reports whether the game is not globally excluded.
func (q Qualifier) GameEligible(g Game) bool {
	if _, ok := q.ExcludedGameIDs[g.ID]; ok {
		return false
	}
	title := strings.ToLower(g.Title)
	for _, t := range q.ExcludedTitles {
		if t != "" && strings.Contains(title, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

// InContest reports whether the completion date falls on or after the contest
// start. Incomplete records never qualify.
func (q Qualifier) InContest(c Completion) bool {
	return c.CompletionDate != nil && !c.CompletionDate.Before(q.ContestStart)
}

// Qualifies applies the full predicate: completed on or after the contest
// start, no earlier than the day before registration, and on an eligible game.
func (q Qualifier) Qualifies(c Completion, g Game, registeredAt time.Time) bool {
	if !q.InContest(c) {
		return false
	}
	if c.CompletionDate.Before(registeredAt.AddDate(0, 0, -1)) {
		return false
	}
	return q.GameEligible(g)
}
