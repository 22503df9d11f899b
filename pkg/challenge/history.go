// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package challenge

import (
	"context"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
)

// Status is the state of one issue.
type Status string

const (
	StatusPlaceholder Status = "Placeholder"
	StatusIssued      Status = "Issued"
	StatusCompleted   Status = "Completed"
	StatusRerolled    Status = "Rerolled"
)

// IssueStatus derives an issue's state from the player's record for its game.
// A completion only counts when dated on or after the issue.
func IssueStatus(issue contest.RandomChallengeIssue, completion *contest.Completion) Status {
	switch {
	case issue.Rerolled:
		return StatusRerolled
	case issue.Placeholder():
		return StatusPlaceholder
	case completion != nil && completion.CompletionDate != nil && !completion.CompletionDate.Before(issue.IssuedAt):
		return StatusCompleted
	default:
		return StatusIssued
	}
}

// Entry is one issue in a player's history.
type Entry struct {
	Issue  contest.RandomChallengeIssue `json:"issue"`
	Status Status                       `json:"status"`
	Game   *contest.Game                `json:"game,omitempty"`
}

// History lists a player's issues oldest first with their current state.
func (a *Assigner) History(ctx context.Context, playerID int64) ([]Entry, error) {
	if _, err := a.store.Player(ctx, playerID); err != nil {
		return nil, err
	}
	issues, err := a.store.Issues(ctx, playerID)
	if err != nil {
		return nil, err
	}
	completed, err := a.store.CompletedGames(ctx, playerID)
	if err != nil {
		return nil, err
	}
	byGame := make(map[int]*contest.Completion, len(completed))
	for i := range completed {
		byGame[completed[i].GameID] = &completed[i]
	}

	entries := make([]Entry, 0, len(issues))
	for _, issue := range issues {
		entry := Entry{Issue: issue}
		var completion *contest.Completion
		if !issue.Placeholder() {
			completion = byGame[*issue.GameID]
			if completion != nil {
				entry.Game = completion.Game
			} else if g, err := a.store.Game(ctx, *issue.GameID); err == nil {
				entry.Game = g
			}
		}
		entry.Status = IssueStatus(issue, completion)
		entries = append(entries, entry)
	}
	return entries, nil
}
