// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package leaderboard

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
)

// Alphabet lists the distinct leading letters of a player's qualifying titles.
type Alphabet struct {
	Letters []string `json:"letters"`
	Missing []string `json:"missing"`
}

// CategoryProgress counts yearly sub-challenge submissions.
type CategoryProgress struct {
	Approved  int  `json:"approved"`
	Pending   int  `json:"pending"`
	Threshold int  `json:"threshold"`
	Achieved  bool `json:"achieved"`
}

// Participation summarizes a player's monthly participation and yearly
// sub-challenges.
type Participation struct {
	Months     int                                         `json:"months"`
	Challenges []int                                       `json:"challenges"`
	Categories map[contest.YearlyCategory]CategoryProgress `json:"categories"`
}

// Progress bundles every per-player progress report.
type Progress struct {
	Player        contest.Player         `json:"player"`
	Alphabet      Alphabet               `json:"alphabet"`
	OddJobs       []contest.OddJobResult `json:"oddJobs"`
	Participation Participation          `json:"participation"`
}

// AlphabetProgress reports which letters lead a qualifying completion title.
func (a *Aggregator) AlphabetProgress(ctx context.Context, playerID int64) (*Alphabet, error) {
	p, err := a.store.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	qualifying, err := a.qualifyingCompletions(ctx, a.store, *p)
	if err != nil {
		return nil, err
	}
	return alphabet(qualifying), nil
}

func alphabet(completions []contest.Completion) *Alphabet {
	seen := make(map[rune]bool)
	for _, c := range completions {
		for _, r := range strings.TrimSpace(c.Game.Title) {
			if unicode.IsLetter(r) && r < unicode.MaxASCII {
				seen[unicode.ToUpper(r)] = true
			}
			break
		}
	}

	out := &Alphabet{Letters: []string{}, Missing: []string{}}
	for r := 'A'; r <= 'Z'; r++ {
		if seen[r] {
			out.Letters = append(out.Letters, string(r))
		} else {
			out.Missing = append(out.Missing, string(r))
		}
	}
	return out
}

// OddJobProgress matches the configured odd jobs against qualifying
// completions, earliest first.
func (a *Aggregator) OddJobProgress(ctx context.Context, playerID int64) ([]contest.OddJobResult, error) {
	p, err := a.store.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	qualifying, err := a.qualifyingCompletions(ctx, a.store, *p)
	if err != nil {
		return nil, err
	}
	return contest.MatchOddJobs(a.config.OddJobs, qualifying), nil
}

// ParticipationProgress counts months the player took part in and their
// yearly sub-challenge submissions per category.
func (a *Aggregator) ParticipationProgress(ctx context.Context, playerID int64) (*Participation, error) {
	if _, err := a.store.Player(ctx, playerID); err != nil {
		return nil, err
	}

	recaps, err := a.store.PlayerRecaps(ctx, playerID)
	if err != nil {
		return nil, err
	}
	out := &Participation{Challenges: []int{}, Categories: make(map[contest.YearlyCategory]CategoryProgress)}
	for _, r := range recaps {
		if r.Participation {
			out.Months++
			out.Challenges = append(out.Challenges, r.Challenge)
		}
	}
	sort.Ints(out.Challenges)

	approved, pending, err := a.store.YearlyChallengeCounts(ctx, playerID)
	if err != nil {
		return nil, err
	}
	for category, threshold := range a.config.YearlyChallenges {
		out.Categories[category] = CategoryProgress{
			Approved:  approved[category],
			Pending:   pending[category],
			Threshold: threshold.Count,
			Achieved:  threshold.Count > 0 && approved[category] == threshold.Count,
		}
	}
	return out, nil
}

// Progress collects every report for one player.
func (a *Aggregator) Progress(ctx context.Context, playerID int64) (*Progress, error) {
	p, err := a.store.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}
	qualifying, err := a.qualifyingCompletions(ctx, a.store, *p)
	if err != nil {
		return nil, err
	}
	participation, err := a.ParticipationProgress(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return &Progress{
		Player:        *p,
		Alphabet:      *alphabet(qualifying),
		OddJobs:       contest.MatchOddJobs(a.config.OddJobs, qualifying),
		Participation: *participation,
	}, nil
}
