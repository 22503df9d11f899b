// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package challenge issues and rerolls random challenge games.
package challenge

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/metrics"
	"github.com/AccelByte/extend-completion-contest/pkg/ruleset"
	"github.com/AccelByte/extend-completion-contest/pkg/scoring"
	"github.com/AccelByte/extend-completion-contest/pkg/state"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/sirupsen/logrus"
)

// Locker takes per-player locks.
type Locker interface {
	Acquire(ctx context.Context, name string) (*state.Lock, error)
}

// Rand picks pool and player indexes. Assign calls it from concurrent
// requests, so implementations must be safe for concurrent use.
type Rand interface {
	Intn(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

func newLockedRand(seed int64) *lockedRand {
	return &lockedRand{src: rand.New(rand.NewSource(seed))}
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

// Request selects the player and the assignment mode. A zero PlayerID picks
// a random player outside the cooldown window.
type Request struct {
	PlayerID         int64 `json:"playerId"`
	RerollGameID     *int  `json:"rerollGameId,omitempty"`
	RetryPlaceholder bool  `json:"retryPlaceholder"`
}

// Result is the issue written by Assign.
type Result struct {
	Issue    contest.RandomChallengeIssue `json:"issue"`
	PoolSize int                          `json:"poolSize"`
	Game     *contest.Game                `json:"game,omitempty"`
	Points   int                          `json:"points"`
}

// Assigner issues random challenge games.
type Assigner struct {
	store     *store.Store
	locker    Locker
	scorer    scoring.Engine
	qualifier contest.Qualifier
	policy    ruleset.RandomChallengeConfig
	platforms map[contest.Platform]bool
	rand      Rand
	now       func() time.Time
}

// Option configures an Assigner.
type Option func(*Assigner)

// WithRand replaces the random source.
func WithRand(r Rand) Option {
	return func(a *Assigner) { a.rand = r }
}

// WithClock replaces the clock.
func WithClock(now func() time.Time) Option {
	return func(a *Assigner) { a.now = now }
}

// NewAssigner creates an assigner for the contest's random challenge policy.
func NewAssigner(st *store.Store, locker Locker, config *ruleset.Config, opts ...Option) (*Assigner, error) {
	platforms, err := config.RandomPlatforms()
	if err != nil {
		return nil, err
	}

	a := &Assigner{
		store:     st,
		locker:    locker,
		scorer:    config.Scorer(),
		qualifier: config.Qualifier(),
		policy:    config.RandomChallenge,
		platforms: make(map[contest.Platform]bool, len(platforms)),
		rand:      newLockedRand(time.Now().UnixNano()),
		now:       time.Now,
	}
	for _, p := range platforms {
		a.platforms[p] = true
	}
	if a.policy.MinPoolSize <= 0 {
		a.policy.MinPoolSize = ruleset.DefaultMinPoolSize
	}
	if a.policy.CooldownDays <= 0 {
		a.policy.CooldownDays = ruleset.DefaultCooldownDays
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Assign issues, rerolls or retries a random challenge for one player.
func (a *Assigner) Assign(ctx context.Context, req Request) (*Result, error) {
	playerID := req.PlayerID
	if playerID == 0 {
		picked, err := a.pickPlayer(ctx)
		if err != nil {
			return nil, err
		}
		playerID = picked
	}

	lock, err := a.locker.Acquire(ctx, state.PlayerLockName("assign", playerID))
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(context.Background()); rerr != nil {
			logrus.Warnf("failed to release assign lock for player %d: %v", playerID, rerr)
		}
	}()

	player, err := a.store.Player(ctx, playerID)
	if err != nil {
		return nil, err
	}

	var result *Result
	var outcome string
	err = a.store.Transaction(ctx, func(tx *store.Store) error {
		var terr error
		result, outcome, terr = a.assign(ctx, tx, *player, req)
		return terr
	})
	if err != nil {
		metrics.RandomChallengesTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.RandomChallengesTotal.WithLabelValues(outcome).Inc()
	logrus.Infof("random challenge %s for player %d: challenge=%d pool=%d",
		outcome, playerID, result.Issue.Challenge, result.PoolSize)
	return result, nil
}

// pickPlayer draws a player whose latest active issue is past the cooldown.
func (a *Assigner) pickPlayer(ctx context.Context) (int64, error) {
	players, err := a.store.Players(ctx)
	if err != nil {
		return 0, err
	}
	latest, err := a.store.LatestActiveIssues(ctx)
	if err != nil {
		return 0, err
	}

	now := a.now()
	var eligible []int64
	for _, p := range players {
		if issue, ok := latest[p.ID]; ok && a.coolingDown(issue, now) {
			continue
		}
		eligible = append(eligible, p.ID)
	}
	if len(eligible) == 0 {
		return 0, contest.InvalidStatef("every player is within the %d day cooldown", a.policy.CooldownDays)
	}
	return eligible[a.rand.Intn(len(eligible))], nil
}

func (a *Assigner) assign(ctx context.Context, tx *store.Store, player contest.Player, req Request) (*Result, string, error) {
	now := a.now()

	issues, err := tx.Issues(ctx, player.ID)
	if err != nil {
		return nil, "", err
	}

	// A random pick is made before the player lock is held; another request
	// may have issued to the same player since.
	if req.PlayerID == 0 {
		if last := latestActive(issues); last != nil && a.coolingDown(*last, now) {
			return nil, "", contest.InvalidStatef("player %d was issued challenge %d within the %d day cooldown",
				player.ID, last.Challenge, a.policy.CooldownDays)
		}
	}

	issue := contest.RandomChallengeIssue{
		PlayerID:  player.ID,
		Challenge: nextChallenge(issues),
		IssuedAt:  now,
	}
	outcome := "issued"

	var placeholder *contest.RandomChallengeIssue
	switch {
	case req.RerollGameID != nil:
		held := activeIssueFor(issues, *req.RerollGameID)
		if held == nil {
			return nil, "", contest.InvalidStatef("player %d holds no active challenge for game %d", player.ID, *req.RerollGameID)
		}
		held.Rerolled = true
		held.RerollDate = &now
		if err := tx.SaveIssue(ctx, held); err != nil {
			return nil, "", err
		}
		issue.PreviousGameID = req.RerollGameID
		issue.Challenge = held.Challenge
		outcome = "rerolled"

	case req.RetryPlaceholder:
		placeholder = latestPlaceholder(issues)
		if placeholder == nil {
			return nil, "", contest.InvalidStatef("player %d has no placeholder challenge to retry", player.ID)
		}
	}

	held := heldGames(issues)
	if req.RerollGameID != nil {
		held[*req.RerollGameID] = true
	}
	pool, err := a.pool(ctx, tx, player, held)
	if err != nil {
		return nil, "", err
	}
	issue.PoolSize = len(pool)

	if len(pool) < a.policy.MinPoolSize {
		if placeholder != nil {
			placeholder.IssuedAt = now
			placeholder.PoolSize = len(pool)
			if err := tx.SaveIssue(ctx, placeholder); err != nil {
				return nil, "", err
			}
			return &Result{Issue: *placeholder, PoolSize: len(pool)}, "snoozed", nil
		}
		if req.RerollGameID == nil {
			issue.Challenge = nextChallenge(issues)
		}
		if err := tx.SaveIssue(ctx, &issue); err != nil {
			return nil, "", err
		}
		return &Result{Issue: issue, PoolSize: len(pool)}, "placeholder", nil
	}

	if placeholder != nil {
		placeholder.Rerolled = true
		placeholder.RerollDate = &now
		if err := tx.SaveIssue(ctx, placeholder); err != nil {
			return nil, "", err
		}
		issue.Challenge = placeholder.Challenge
		outcome = "retried"
	}

	picked := pool[a.rand.Intn(len(pool))]
	gameID := picked.GameID
	issue.GameID = &gameID
	if err := tx.SaveIssue(ctx, &issue); err != nil {
		return nil, "", err
	}

	return &Result{
		Issue:    issue,
		PoolSize: len(pool),
		Game:     picked.Game,
		Points:   a.scorer.Value(picked, *picked.Game),
	}, outcome, nil
}

// pool returns the player's open games eligible for a random challenge,
// ordered by game id.
func (a *Assigner) pool(ctx context.Context, tx *store.Store, player contest.Player, held map[int]bool) ([]contest.Completion, error) {
	open, err := tx.OpenGames(ctx, player.ID)
	if err != nil {
		return nil, err
	}
	completed, err := tx.CompletedGameIDs(ctx, player.ID)
	if err != nil {
		return nil, err
	}

	var pool []contest.Completion
	for _, c := range open {
		if c.Game == nil || completed[c.GameID] || held[c.GameID] {
			continue
		}
		if a.poolEligible(c, *c.Game) {
			pool = append(pool, c)
		}
	}
	return pool, nil
}

func (a *Assigner) poolEligible(c contest.Completion, g contest.Game) bool {
	if g.GamersCompleted <= 0 || g.Unobtainable || c.NotForContests {
		return false
	}
	if c.Ownership == contest.OwnershipNoLongerHave {
		return false
	}
	if g.FullCompletionEstimate == nil || *g.FullCompletionEstimate > a.policy.MaxEstimate {
		return false
	}
	if len(a.platforms) > 0 && !a.platforms[c.Platform] {
		return false
	}
	return a.qualifier.GameEligible(g)
}

// coolingDown reports whether issue still blocks a random pick at now.
func (a *Assigner) coolingDown(issue contest.RandomChallengeIssue, now time.Time) bool {
	return issue.IssuedAt.After(now.AddDate(0, 0, -a.policy.CooldownDays))
}

// latestActive expects issues ordered by issue time.
func latestActive(issues []contest.RandomChallengeIssue) *contest.RandomChallengeIssue {
	for i := len(issues) - 1; i >= 0; i-- {
		if issues[i].Active() {
			return &issues[i]
		}
	}
	return nil
}

func nextChallenge(issues []contest.RandomChallengeIssue) int {
	max := 0
	for _, i := range issues {
		if i.Challenge > max {
			max = i.Challenge
		}
	}
	return max + 1
}

func heldGames(issues []contest.RandomChallengeIssue) map[int]bool {
	held := make(map[int]bool)
	for _, i := range issues {
		if i.Active() && !i.Placeholder() {
			held[*i.GameID] = true
		}
	}
	return held
}

func activeIssueFor(issues []contest.RandomChallengeIssue, gameID int) *contest.RandomChallengeIssue {
	for i := len(issues) - 1; i >= 0; i-- {
		issue := issues[i]
		if issue.Active() && !issue.Placeholder() && *issue.GameID == gameID {
			return &issues[i]
		}
	}
	return nil
}

func latestPlaceholder(issues []contest.RandomChallengeIssue) *contest.RandomChallengeIssue {
	for i := len(issues) - 1; i >= 0; i-- {
		if issues[i].Active() && issues[i].Placeholder() {
			return &issues[i]
		}
	}
	return nil
}
