// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package challenge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/ruleset"
	"github.com/AccelByte/extend-completion-contest/pkg/state"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/AccelByte/extend-completion-contest/pkg/store/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/go-cmp/cmp"
)

var now = time.Date(2024, time.August, 15, 12, 0, 0, 0, time.UTC)

// fixedRand always picks the same index, bounded by n.
type fixedRand struct{ index int }

func (r fixedRand) Intn(n int) int { return r.index % n }

func testConfig(minPool int) *ruleset.Config {
	return &ruleset.Config{
		Contest: ruleset.ContestConfig{
			Start:      storetest.Date(2024, time.January, 1),
			Exclusions: ruleset.ExclusionConfig{Titles: []string{"(Demo)"}},
		},
		RandomChallenge: ruleset.RandomChallengeConfig{
			MaxEstimate:  40,
			Platforms:    []string{"xbox-one", "xbox-360"},
			MinPoolSize:  minPool,
			CooldownDays: 25,
		},
	}
}

type fixture struct {
	store  *store.Store
	locker *state.Locker
}

func setup(t *testing.T) *fixture {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return &fixture{store: storetest.New(t), locker: state.NewLocker(client, time.Minute)}
}

func (f *fixture) assigner(t *testing.T, minPool int, index int) *Assigner {
	a, err := NewAssigner(f.store, f.locker, testConfig(minPool),
		WithRand(fixedRand{index}), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewAssigner() error = %v", err)
	}
	return a
}

// seedBacklog gives player 1 four eligible open games (ids 1-4) and one of
// each kind of ineligible game.
func seedBacklog(t *testing.T, s *store.Store) {
	storetest.SeedPlayer(t, s, 1, "alice", storetest.Date(2024, time.January, 1))

	open := func(g contest.Game, c contest.Completion) {
		if g.FullCompletionEstimate == nil {
			g.FullCompletionEstimate = storetest.Float(20)
		}
		if g.GamersCompleted == 0 {
			g.GamersCompleted = 10
		}
		if g.SiteRatio == 0 {
			g.SiteRatio = 1
		}
		if g.Title == "" {
			g.Title = "Game"
		}
		storetest.SeedGame(t, s, g)
		c.PlayerID = 1
		c.GameID = g.ID
		if c.Platform == "" {
			c.Platform = contest.PlatformXboxOne
		}
		storetest.SeedCompletion(t, s, c)
	}

	for id := 1; id <= 4; id++ {
		open(contest.Game{ID: id}, contest.Completion{})
	}

	open(contest.Game{ID: 20, FullCompletionEstimate: storetest.Float(41)}, contest.Completion{})
	open(contest.Game{ID: 21, Unobtainable: true}, contest.Completion{})
	open(contest.Game{ID: 22}, contest.Completion{NotForContests: true})
	open(contest.Game{ID: 23}, contest.Completion{Ownership: contest.OwnershipNoLongerHave})
	open(contest.Game{ID: 24}, contest.Completion{Platform: contest.PlatformAndroid})
	open(contest.Game{ID: 25, GamersCompleted: -1}, contest.Completion{})
	open(contest.Game{ID: 26, Title: "Racer (Demo)"}, contest.Completion{})
	open(contest.Game{ID: 27}, contest.Completion{CompletionDate: storetest.DatePtr(2024, time.March, 1)})
}

func TestAssign_Issue(t *testing.T) {
	f := setup(t)
	seedBacklog(t, f.store)

	result, err := f.assigner(t, 3, 1).Assign(context.Background(), Request{PlayerID: 1})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	if result.PoolSize != 4 {
		t.Errorf("PoolSize = %d, expected 4", result.PoolSize)
	}
	if result.Issue.GameID == nil || *result.Issue.GameID != 2 {
		t.Fatalf("GameID = %v, expected 2", result.Issue.GameID)
	}
	if result.Issue.Challenge != 1 || !result.Issue.IssuedAt.Equal(now) {
		t.Errorf("Issue = %+v, expected challenge 1 issued now", result.Issue)
	}
	if result.Game == nil || result.Game.ID != 2 || result.Points != 20 {
		t.Errorf("Game = %+v, Points = %d, expected game 2 worth 20", result.Game, result.Points)
	}

	// The held game leaves the pool and the next challenge number follows.
	second, err := f.assigner(t, 3, 1).Assign(context.Background(), Request{PlayerID: 1})
	if err != nil {
		t.Fatalf("second Assign() error = %v", err)
	}
	if second.PoolSize != 3 || *second.Issue.GameID != 3 || second.Issue.Challenge != 2 {
		t.Errorf("second issue = %+v pool=%d, expected game 3 challenge 2 pool 3", second.Issue, second.PoolSize)
	}
}

func TestAssign_Reroll(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedBacklog(t, f.store)

	first, err := f.assigner(t, 3, 0).Assign(ctx, Request{PlayerID: 1})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}

	rerolled, err := f.assigner(t, 3, 0).Assign(ctx, Request{PlayerID: 1, RerollGameID: first.Issue.GameID})
	if err != nil {
		t.Fatalf("reroll Assign() error = %v", err)
	}

	if rerolled.Issue.PreviousGameID == nil || *rerolled.Issue.PreviousGameID != 1 {
		t.Errorf("PreviousGameID = %v, expected 1", rerolled.Issue.PreviousGameID)
	}
	if rerolled.Issue.Challenge != first.Issue.Challenge {
		t.Errorf("Challenge = %d, expected reused %d", rerolled.Issue.Challenge, first.Issue.Challenge)
	}
	if *rerolled.Issue.GameID == 1 {
		t.Error("reroll issued the rerolled game again")
	}

	issues, err := f.store.Issues(ctx, 1)
	if err != nil {
		t.Fatalf("Issues() error = %v", err)
	}
	if len(issues) != 2 || !issues[0].Rerolled || issues[0].RerollDate == nil || issues[1].Rerolled {
		t.Errorf("issues = %+v, expected first rerolled and second active", issues)
	}

	// The original issue is no longer active.
	_, err = f.assigner(t, 3, 0).Assign(ctx, Request{PlayerID: 1, RerollGameID: first.Issue.GameID})
	if !errors.Is(err, contest.ErrInvalidState) {
		t.Errorf("second reroll error = %v, expected ErrInvalidState", err)
	}
}

func TestAssign_PlaceholderLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedBacklog(t, f.store)

	placeholder, err := f.assigner(t, 50, 0).Assign(ctx, Request{PlayerID: 1})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if !placeholder.Issue.Placeholder() || placeholder.PoolSize != 4 || placeholder.Issue.Challenge != 1 {
		t.Fatalf("placeholder = %+v pool=%d", placeholder.Issue, placeholder.PoolSize)
	}

	// Retrying with a pool still too small snoozes the same row.
	later := now.Add(48 * time.Hour)
	snoozer, err := NewAssigner(f.store, f.locker, testConfig(50),
		WithRand(fixedRand{0}), WithClock(func() time.Time { return later }))
	if err != nil {
		t.Fatalf("NewAssigner() error = %v", err)
	}
	snoozed, err := snoozer.Assign(ctx, Request{PlayerID: 1, RetryPlaceholder: true})
	if err != nil {
		t.Fatalf("retry Assign() error = %v", err)
	}
	if snoozed.Issue.ID != placeholder.Issue.ID || !snoozed.Issue.IssuedAt.Equal(later) {
		t.Errorf("snoozed = %+v, expected placeholder %d moved to %v", snoozed.Issue, placeholder.Issue.ID, later)
	}

	issues, err := f.store.Issues(ctx, 1)
	if err != nil {
		t.Fatalf("Issues() error = %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("len(issues) = %d, expected 1 after snooze", len(issues))
	}

	// With a big enough pool the placeholder is superseded.
	issued, err := f.assigner(t, 3, 0).Assign(ctx, Request{PlayerID: 1, RetryPlaceholder: true})
	if err != nil {
		t.Fatalf("retry Assign() error = %v", err)
	}
	if issued.Issue.Placeholder() || issued.Issue.Challenge != 1 {
		t.Errorf("retried issue = %+v, expected game with challenge 1", issued.Issue)
	}

	issues, err = f.store.Issues(ctx, 1)
	if err != nil {
		t.Fatalf("Issues() error = %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("len(issues) = %d, expected 2", len(issues))
	}
	for _, issue := range issues {
		if issue.ID == placeholder.Issue.ID && !issue.Rerolled {
			t.Errorf("placeholder %+v not superseded", issue)
		}
	}
}

func TestAssign_RetryWithoutPlaceholder(t *testing.T) {
	f := setup(t)
	seedBacklog(t, f.store)

	_, err := f.assigner(t, 3, 0).Assign(context.Background(), Request{PlayerID: 1, RetryPlaceholder: true})
	if !errors.Is(err, contest.ErrInvalidState) {
		t.Errorf("Assign() error = %v, expected ErrInvalidState", err)
	}
}

func TestAssign_UnknownPlayer(t *testing.T) {
	f := setup(t)

	_, err := f.assigner(t, 3, 0).Assign(context.Background(), Request{PlayerID: 99})
	if !errors.Is(err, contest.ErrNotFound) {
		t.Errorf("Assign() error = %v, expected ErrNotFound", err)
	}
}

func TestAssign_RandomPlayerCooldown(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedBacklog(t, f.store)
	storetest.SeedPlayer(t, f.store, 2, "bob", storetest.Date(2024, time.January, 1))
	storetest.SeedPlayer(t, f.store, 3, "carol", storetest.Date(2024, time.January, 1))

	recent := contest.RandomChallengeIssue{PlayerID: 1, GameID: storetest.Int(1), Challenge: 1, IssuedAt: now.AddDate(0, 0, -10)}
	old := contest.RandomChallengeIssue{PlayerID: 2, GameID: storetest.Int(1), Challenge: 1, IssuedAt: now.AddDate(0, 0, -30)}
	for _, issue := range []*contest.RandomChallengeIssue{&recent, &old} {
		if err := f.store.SaveIssue(ctx, issue); err != nil {
			t.Fatalf("SaveIssue() error = %v", err)
		}
	}

	a := f.assigner(t, 50, 0)
	picked, err := a.pickPlayer(ctx)
	if err != nil {
		t.Fatalf("pickPlayer() error = %v", err)
	}
	if picked != 2 {
		t.Errorf("pickPlayer() = %d, expected 2", picked)
	}

	picked, err = f.assigner(t, 50, 1).pickPlayer(ctx)
	if err != nil {
		t.Fatalf("pickPlayer() error = %v", err)
	}
	if picked != 3 {
		t.Errorf("pickPlayer() = %d, expected 3", picked)
	}

	result, err := a.Assign(ctx, Request{})
	if err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if result.Issue.PlayerID != 2 || result.Issue.Challenge != 2 {
		t.Errorf("Issue = %+v, expected player 2 challenge 2", result.Issue)
	}
}

func TestAssign_AllInCooldown(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	storetest.SeedPlayer(t, f.store, 1, "alice", storetest.Date(2024, time.January, 1))
	if err := f.store.SaveIssue(ctx, &contest.RandomChallengeIssue{PlayerID: 1, Challenge: 1, IssuedAt: now.AddDate(0, 0, -1)}); err != nil {
		t.Fatalf("SaveIssue() error = %v", err)
	}

	_, err := f.assigner(t, 50, 0).Assign(ctx, Request{})
	if !errors.Is(err, contest.ErrInvalidState) {
		t.Errorf("Assign() error = %v, expected ErrInvalidState", err)
	}
}

func TestAssign_Locked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedBacklog(t, f.store)

	held, err := f.locker.Acquire(ctx, state.PlayerLockName("assign", 1))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release(ctx)

	_, err = f.assigner(t, 3, 0).Assign(ctx, Request{PlayerID: 1})
	if !errors.Is(err, state.ErrLocked) {
		t.Errorf("Assign() error = %v, expected ErrLocked", err)
	}
}

func TestNewAssigner_BadPlatform(t *testing.T) {
	config := testConfig(3)
	config.RandomChallenge.Platforms = []string{"dreamcast"}
	if _, err := NewAssigner(nil, nil, config); err == nil {
		t.Error("NewAssigner() expected error for unknown platform")
	}
}

func TestIssueStatus(t *testing.T) {
	issued := storetest.Date(2024, time.August, 1)
	game := storetest.Int(7)

	tests := []struct {
		name       string
		issue      contest.RandomChallengeIssue
		completion *contest.Completion
		expected   Status
	}{
		{"placeholder", contest.RandomChallengeIssue{IssuedAt: issued}, nil, StatusPlaceholder},
		{"rerolled", contest.RandomChallengeIssue{GameID: game, IssuedAt: issued, Rerolled: true}, nil, StatusRerolled},
		{"open", contest.RandomChallengeIssue{GameID: game, IssuedAt: issued}, nil, StatusIssued},
		{"completed before issue", contest.RandomChallengeIssue{GameID: game, IssuedAt: issued},
			&contest.Completion{CompletionDate: storetest.DatePtr(2024, time.July, 1)}, StatusIssued},
		{"completed", contest.RandomChallengeIssue{GameID: game, IssuedAt: issued},
			&contest.Completion{CompletionDate: storetest.DatePtr(2024, time.August, 9)}, StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IssueStatus(tt.issue, tt.completion); got != tt.expected {
				t.Errorf("IssueStatus() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestHistory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedBacklog(t, f.store)

	a := f.assigner(t, 3, 0)
	if _, err := a.Assign(ctx, Request{PlayerID: 1}); err != nil {
		t.Fatalf("Assign() error = %v", err)
	}
	if _, err := a.Assign(ctx, Request{PlayerID: 1, RerollGameID: storetest.Int(1)}); err != nil {
		t.Fatalf("reroll Assign() error = %v", err)
	}

	// Complete the second issued game after the issue date.
	storetest.SeedCompletion(t, f.store, contest.Completion{
		PlayerID:       1,
		GameID:         2,
		Platform:       contest.PlatformXboxOne,
		CompletionDate: storetest.DatePtr(2024, time.August, 20),
	})

	entries, err := a.History(ctx, 1)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	statuses := make([]Status, len(entries))
	for i, e := range entries {
		statuses[i] = e.Status
	}
	if diff := cmp.Diff([]Status{StatusRerolled, StatusCompleted}, statuses); diff != "" {
		t.Errorf("statuses mismatch (-expected +got):\n%s", diff)
	}
	if entries[0].Game == nil || entries[0].Game.ID != 1 {
		t.Errorf("entries[0].Game = %+v, expected game 1", entries[0].Game)
	}
}

// interleavedRand runs before once, on its first draw, then always picks 0.
type interleavedRand struct{ before func() }

func (r *interleavedRand) Intn(n int) int {
	if f := r.before; f != nil {
		r.before = nil
		f()
	}
	return 0
}

func TestAssign_RandomPickRechecksCooldownUnderLock(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedBacklog(t, f.store)

	r := &interleavedRand{}
	a, err := NewAssigner(f.store, f.locker, testConfig(3),
		WithRand(r), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewAssigner() error = %v", err)
	}

	// A second random pick completes between the first one's draw and its lock.
	var inner *Result
	var innerErr error
	r.before = func() { inner, innerErr = a.Assign(ctx, Request{}) }

	_, err = a.Assign(ctx, Request{})
	if innerErr != nil {
		t.Fatalf("interleaved Assign() error = %v", innerErr)
	}
	if inner.Issue.PlayerID != 1 || inner.Issue.Challenge != 1 {
		t.Errorf("interleaved Issue = %+v, expected player 1 challenge 1", inner.Issue)
	}
	if !errors.Is(err, contest.ErrInvalidState) {
		t.Errorf("Assign() error = %v, expected ErrInvalidState", err)
	}

	issues, err := f.store.Issues(ctx, 1)
	if err != nil {
		t.Fatalf("Issues() error = %v", err)
	}
	if len(issues) != 1 {
		t.Errorf("player 1 has %d issues, expected 1 inside the cooldown", len(issues))
	}
}

func TestAssign_ExplicitPlayerIgnoresCooldown(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedBacklog(t, f.store)

	a := f.assigner(t, 3, 0)
	for i := 1; i <= 2; i++ {
		result, err := a.Assign(ctx, Request{PlayerID: 1})
		if err != nil {
			t.Fatalf("Assign() #%d error = %v", i, err)
		}
		if result.Issue.Challenge != i {
			t.Errorf("Assign() #%d challenge = %d, expected %d", i, result.Issue.Challenge, i)
		}
	}
}

func TestAssign_ConcurrentRandomPicks(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	seedBacklog(t, f.store)
	const players = 4
	for id := int64(2); id <= players; id++ {
		storetest.SeedPlayer(t, f.store, id, fmt.Sprintf("player%d", id), storetest.Date(2024, time.January, 1))
	}

	// Default random source, shared by every request.
	a, err := NewAssigner(f.store, f.locker, testConfig(3), WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewAssigner() error = %v", err)
	}

	const requests = 8
	var wg sync.WaitGroup
	errs := make([]error, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := a.pickPlayer(ctx); err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = a.Assign(ctx, Request{})
		}(i)
	}
	wg.Wait()

	issued := 0
	for i, err := range errs {
		switch {
		case err == nil:
			issued++
		case errors.Is(err, contest.ErrInvalidState), errors.Is(err, state.ErrLocked):
		default:
			t.Errorf("request %d error = %v", i, err)
		}
	}

	total := 0
	for id := int64(1); id <= players; id++ {
		issues, err := f.store.Issues(ctx, id)
		if err != nil {
			t.Fatalf("Issues(%d) error = %v", id, err)
		}
		if len(issues) > 1 {
			t.Errorf("player %d has %d issues inside the cooldown, expected at most 1", id, len(issues))
		}
		total += len(issues)
	}
	if total != issued {
		t.Errorf("stored issues = %d, successful requests = %d", total, issued)
	}
	if issued == 0 {
		t.Error("no request issued a challenge")
	}
}
