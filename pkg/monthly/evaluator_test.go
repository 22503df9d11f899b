// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package monthly

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/rule"
	"github.com/AccelByte/extend-completion-contest/pkg/rule/builtin"
	"github.com/AccelByte/extend-completion-contest/pkg/ruleset"
	"github.com/AccelByte/extend-completion-contest/pkg/scoring"
	"github.com/AccelByte/extend-completion-contest/pkg/state"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/AccelByte/extend-completion-contest/pkg/store/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/go-cmp/cmp"
)

var contestStart = storetest.Date(2024, time.January, 1)

func august() ruleset.MonthConfig {
	return ruleset.MonthConfig{
		Challenge:     8,
		Name:          "August",
		From:          storetest.Date(2024, time.August, 1),
		To:            storetest.Date(2024, time.September, 1),
		MinGamerscore: 1001,
		Tiers: []ruleset.Tier{
			{MinGamerscore: 1750, Multiplier: 0.60},
			{MinGamerscore: 1001, Multiplier: 0.20},
		},
		Tributes: []string{"retro"},
	}
}

type fixture struct {
	store  *store.Store
	locker *state.Locker
	redis  *miniredis.Miniredis
}

func setup(t *testing.T) *fixture {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return &fixture{
		store:  storetest.New(t),
		locker: state.NewLocker(client, time.Minute),
		redis:  mr,
	}
}

func (f *fixture) evaluator(t *testing.T, month ruleset.MonthConfig, rules ...rule.Rule) *Evaluator {
	registry := rule.NewRegistry()
	for _, r := range rules {
		if err := registry.Register(r); err != nil {
			t.Fatalf("failed to register rule: %v", err)
		}
	}
	return NewEvaluator(f.store, f.locker, rule.NewEngine(registry), scoring.NewEngine(1500),
		contest.NewQualifier(contestStart, nil, nil), month)
}

func retroRule(t *testing.T) rule.Rule {
	r, err := builtin.NewPlatformAnyRule(rule.RuleConfig{
		ID:         "retro",
		Type:       builtin.PlatformAnyRuleID,
		Enabled:    true,
		Bonus:      0.05,
		Parameters: map[string]interface{}{"platforms": []string{"xbox-360"}},
	})
	if err != nil {
		t.Fatalf("failed to create retro rule: %v", err)
	}
	return r
}

// seedGame creates a game whose value on xbox-one equals estimate.
func seedGame(t *testing.T, s *store.Store, id, gamerscore int, estimate float64) {
	storetest.SeedGame(t, s, contest.Game{
		ID:                     id,
		Title:                  "Game",
		Gamerscore:             gamerscore,
		SiteRatio:              1,
		FullCompletionEstimate: storetest.Float(estimate),
	})
}

func complete(t *testing.T, s *store.Store, playerID int64, gameID int, platform contest.Platform, day int, achievements int) {
	storetest.SeedCompletion(t, s, contest.Completion{
		PlayerID:         playerID,
		GameID:           gameID,
		Platform:         platform,
		CompletionDate:   storetest.DatePtr(2024, time.August, day),
		AchievementCount: achievements,
	})
}

func seedRoster(t *testing.T, s *store.Store) []contest.Player {
	registered := storetest.Date(2024, time.January, 1)
	return []contest.Player{
		storetest.SeedPlayer(t, s, 1, "alice", registered),
		storetest.SeedPlayer(t, s, 2, "bob", registered),
		storetest.SeedPlayer(t, s, 3, "carol", registered),
	}
}

type standing struct {
	PlayerID int64
	Total    int
	Rank     int
}

func standings(recaps []contest.MonthlyRecap) []standing {
	out := make([]standing, len(recaps))
	for i, r := range recaps {
		out[i] = standing{r.PlayerID, r.TotalPoints, r.Rank}
	}
	return out
}

func TestEvaluate_TiersAndRanking(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	players := seedRoster(t, f.store)

	seedGame(t, f.store, 10, 2000, 100)
	seedGame(t, f.store, 11, 1200, 200)
	seedGame(t, f.store, 12, 500, 300)
	complete(t, f.store, 1, 10, contest.PlatformXboxOne, 5, 50)
	complete(t, f.store, 2, 11, contest.PlatformXboxOne, 10, 30)
	complete(t, f.store, 2, 12, contest.PlatformXboxOne, 11, 20)

	result, err := f.evaluator(t, august(), retroRule(t)).Evaluate(ctx, players)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// alice: 100 * 0.60, bob: 200 * 0.20, game 12 is under the gamerscore floor.
	expected := []standing{{1, 60, 1}, {2, 40, 2}, {3, 0, 3}}
	if diff := cmp.Diff(expected, standings(result.Recaps)); diff != "" {
		t.Errorf("standings mismatch (-expected +got):\n%s", diff)
	}
	if result.Exclusions != 2 {
		t.Errorf("Exclusions = %d, expected 2", result.Exclusions)
	}

	bob := result.Recaps[1]
	if bob.Completions != 1 || bob.AchievementCount != 30 || bob.BasePoints != 200 {
		t.Errorf("bob recap = %+v", bob)
	}
	if result.Recaps[2].Participation {
		t.Error("carol Participation = true, expected false")
	}

	stored, err := f.evaluator(t, august()).Leaderboard(ctx)
	if err != nil {
		t.Fatalf("Leaderboard() error = %v", err)
	}
	if diff := cmp.Diff(expected, standings(stored)); diff != "" {
		t.Errorf("stored standings mismatch (-expected +got):\n%s", diff)
	}
}

func TestEvaluate_Tribute(t *testing.T) {
	f := setup(t)
	players := seedRoster(t, f.store)

	seedGame(t, f.store, 11, 1200, 200)
	complete(t, f.store, 2, 11, contest.PlatformXbox360, 10, 30)

	result, err := f.evaluator(t, august(), retroRule(t)).Evaluate(context.Background(), players)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	bob := result.Recaps[0]
	if bob.PlayerID != 2 {
		t.Fatalf("leader = %d, expected bob", bob.PlayerID)
	}
	if diff := cmp.Diff([]string{"retro"}, bob.Tributes); diff != "" {
		t.Errorf("Tributes mismatch (-expected +got):\n%s", diff)
	}
	// value 551 on xbox-360, multiplier 0.20 + 0.05 tribute
	if bob.BasePoints != 551 || bob.TotalPoints != 137 {
		t.Errorf("bob points = %d/%d, expected 551/137", bob.BasePoints, bob.TotalPoints)
	}
}

func TestEvaluate_Idempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	players := seedRoster(t, f.store)

	seedGame(t, f.store, 10, 2000, 100)
	complete(t, f.store, 1, 10, contest.PlatformXboxOne, 5, 50)

	e := f.evaluator(t, august())
	first, err := e.Evaluate(ctx, players)
	if err != nil {
		t.Fatalf("first Evaluate() error = %v", err)
	}
	second, err := e.Evaluate(ctx, players)
	if err != nil {
		t.Fatalf("second Evaluate() error = %v", err)
	}

	if diff := cmp.Diff(standings(first.Recaps), standings(second.Recaps)); diff != "" {
		t.Errorf("recompute changed standings (-first +second):\n%s", diff)
	}
	n, err := f.store.CountExclusions(ctx, 8)
	if err != nil {
		t.Fatalf("CountExclusions() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountExclusions() = %d, expected 1", n)
	}
}

func TestEvaluate_ExcludedByOtherChallenge(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	players := seedRoster(t, f.store)

	seedGame(t, f.store, 10, 2000, 100)
	complete(t, f.store, 1, 10, contest.PlatformXboxOne, 5, 50)

	if err := f.store.InsertExclusions(ctx, []contest.ExclusionRule{{Challenge: 2, PlayerID: 1, GameID: 10}}); err != nil {
		t.Fatalf("InsertExclusions() error = %v", err)
	}

	result, err := f.evaluator(t, august()).Evaluate(ctx, players)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.Recaps[0].TotalPoints != 0 || result.Recaps[0].Completions != 0 {
		t.Errorf("excluded completion scored: %+v", result.Recaps[0])
	}
}

func TestEvaluate_RegisteredLate(t *testing.T) {
	f := setup(t)
	late := storetest.SeedPlayer(t, f.store, 9, "late", storetest.Date(2024, time.August, 20))

	seedGame(t, f.store, 10, 2000, 100)
	complete(t, f.store, 9, 10, contest.PlatformXboxOne, 18, 50)
	seedGame(t, f.store, 11, 2000, 100)
	complete(t, f.store, 9, 11, contest.PlatformXboxOne, 19, 50)

	result, err := f.evaluator(t, august()).Evaluate(context.Background(), []contest.Player{late})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	// The day before registration still counts.
	if result.Recaps[0].Completions != 1 {
		t.Errorf("Completions = %d, expected 1", result.Recaps[0].Completions)
	}
}

func TestEvaluate_TugOfWar(t *testing.T) {
	f := setup(t)
	players := seedRoster(t, f.store)

	month := august()
	month.BonusGames = ruleset.BonusGames{GameIDs: []int{11}, AchievementMultiplier: 2}
	month.Community = &ruleset.CommunityGoal{
		Kind:             ruleset.CommunityTugOfWar,
		ReferencePlayers: []int64{3},
		Weight:           1.5,
		Goal:             100,
		Bonus:            1000,
	}

	seedGame(t, f.store, 10, 2000, 100)
	seedGame(t, f.store, 11, 1200, 200)
	complete(t, f.store, 1, 10, contest.PlatformXboxOne, 5, 50)
	complete(t, f.store, 2, 11, contest.PlatformXboxOne, 10, 30)
	complete(t, f.store, 3, 10, contest.PlatformXboxOne, 12, 50)

	result, err := f.evaluator(t, month).Evaluate(context.Background(), players)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// floor(80 * 1.5) + 30 * 2 - 50
	if result.CommunityProgress != 130 || !result.CommunityReached {
		t.Fatalf("community = %d reached=%v, expected 130 reached", result.CommunityProgress, result.CommunityReached)
	}

	totals := make(map[int64]int)
	for _, r := range result.Recaps {
		totals[r.PlayerID] = r.TotalPoints
		if r.CommunityBonus != 130 {
			t.Errorf("player %d CommunityBonus = %d, expected 130", r.PlayerID, r.CommunityBonus)
		}
	}
	if totals[1] != 1060 || totals[2] != 1040 || totals[3] != 1060 {
		t.Errorf("totals = %v", totals)
	}

	bob := result.Recaps[2]
	if bob.PlayerID != 2 || bob.AchievementCount != 90 {
		t.Errorf("bob recap = %+v, expected bonus game achievements tripled", bob)
	}
}

func TestEvaluate_PopularGames(t *testing.T) {
	f := setup(t)
	players := seedRoster(t, f.store)

	month := august()
	month.Community = &ruleset.CommunityGoal{
		Kind:           ruleset.CommunityPopularGames,
		MinCompletions: 1,
		Games:          1,
		Bonus:          500,
	}

	seedGame(t, f.store, 10, 2000, 100)
	complete(t, f.store, 1, 10, contest.PlatformXboxOne, 5, 50)
	complete(t, f.store, 2, 10, contest.PlatformXboxOne, 6, 50)

	result, err := f.evaluator(t, month).Evaluate(context.Background(), players)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result.CommunityProgress != 1 || !result.CommunityReached {
		t.Fatalf("community = %d reached=%v, expected 1 reached", result.CommunityProgress, result.CommunityReached)
	}
	if result.Recaps[2].TotalPoints != 0 {
		t.Errorf("non-participant received community bonus: %+v", result.Recaps[2])
	}
	if result.Recaps[0].TotalPoints != 560 {
		t.Errorf("leader TotalPoints = %d, expected 560", result.Recaps[0].TotalPoints)
	}
}

func TestEvaluate_Locked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	held, err := f.locker.Acquire(ctx, state.RunLockName("monthly:8"))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release(ctx)

	_, err = f.evaluator(t, august()).Evaluate(ctx, nil)
	if !errors.Is(err, state.ErrLocked) {
		t.Errorf("Evaluate() error = %v, expected ErrLocked", err)
	}
}

func TestEvaluate_NoContestStart(t *testing.T) {
	f := setup(t)
	e := NewEvaluator(f.store, f.locker, rule.NewEngine(rule.NewRegistry()), scoring.NewEngine(0),
		contest.Qualifier{}, august())

	_, err := e.Evaluate(context.Background(), nil)
	if !errors.Is(err, contest.ErrInvalidState) {
		t.Errorf("Evaluate() error = %v, expected ErrInvalidState", err)
	}
}

type failingRule struct{}

func (failingRule) ID() string              { return "broken" }
func (failingRule) Name() string            { return "Broken" }
func (failingRule) Config() rule.RuleConfig { return rule.RuleConfig{ID: "broken", Enabled: true} }
func (failingRule) Evaluate(ctx context.Context, subject *rule.Subject) (bool, *rule.Trigger, error) {
	return false, nil, errors.New("lookup failed")
}

func TestEvaluate_RollsBackOnError(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	players := seedRoster(t, f.store)

	seedGame(t, f.store, 10, 2000, 100)
	complete(t, f.store, 1, 10, contest.PlatformXboxOne, 5, 50)

	if _, err := f.evaluator(t, august()).Evaluate(ctx, players); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	month := august()
	month.Tributes = []string{"broken"}
	if _, err := f.evaluator(t, month, failingRule{}).Evaluate(ctx, players); err == nil {
		t.Fatal("Evaluate() expected error from failing tribute")
	}

	recaps, err := f.store.Recaps(ctx, 8)
	if err != nil {
		t.Fatalf("Recaps() error = %v", err)
	}
	if len(recaps) != 3 || recaps[0].TotalPoints != 60 {
		t.Errorf("previous recaps not kept after failed recompute: %+v", recaps)
	}
}
