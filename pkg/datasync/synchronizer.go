// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package datasync pulls players' game collections from the external source
// into the completion store.
package datasync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/metrics"
	"github.com/AccelByte/extend-completion-contest/pkg/parser"
	"github.com/AccelByte/extend-completion-contest/pkg/scoring"
	"github.com/AccelByte/extend-completion-contest/pkg/source"
	"github.com/AccelByte/extend-completion-contest/pkg/state"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultConcurrency = 4
	DefaultMaxPages    = 50
	DefaultMaxRetries  = 3
)

// Locker takes run-scoped locks.
type Locker interface {
	Acquire(ctx context.Context, name string) (*state.Lock, error)
}

// Config bounds a sync run.
type Config struct {
	Concurrency int
	MaxPages    int
	MaxRetries  int
}

// Synchronizer fetches, parses and upserts players' completion records.
type Synchronizer struct {
	store      *store.Store
	locker     Locker
	fetcher    source.Fetcher
	parser     *parser.Parser
	scorer     scoring.Engine
	config     Config
	newBackOff func() backoff.BackOff
	now        func() time.Time
}

// Option configures a Synchronizer.
type Option func(*Synchronizer)

// WithBackOff replaces the per-fetch retry policy.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(s *Synchronizer) { s.newBackOff = fn }
}

// WithClock replaces the clock used for run timestamps and relative dates.
func WithClock(now func() time.Time) Option {
	return func(s *Synchronizer) {
		s.now = now
		s.parser = parser.NewWithClock(now)
	}
}

// NewSynchronizer creates a synchronizer. Zero concurrency or page limits and
// a negative retry count use the defaults.
func NewSynchronizer(st *store.Store, locker Locker, fetcher source.Fetcher, scorer scoring.Engine, config Config, opts ...Option) *Synchronizer {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	if config.MaxPages <= 0 {
		config.MaxPages = DefaultMaxPages
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = DefaultMaxRetries
	}

	s := &Synchronizer{
		store:   st,
		locker:  locker,
		fetcher: fetcher,
		parser:  parser.New(),
		scorer:  scorer,
		config:  config,
		newBackOff: func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		},
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync fetches every player under opts and records one SyncRun. A failed
// player is recorded and skipped. Cancelling ctx stops the run before the
// next player starts; the players already running finish.
func (s *Synchronizer) Sync(ctx context.Context, players []contest.Player, profile contest.SyncProfile, opts source.Options) (*contest.SyncRun, error) {
	for _, p := range players {
		if p.ExternalID == 0 {
			return nil, contest.InvalidStatef("player %d (%s) has no external id", p.ID, p.Gamertag)
		}
	}

	lock, err := s.locker.Acquire(ctx, state.RunLockName("sync"))
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := lock.Release(context.Background()); rerr != nil {
			logrus.Warnf("failed to release sync lock: %v", rerr)
		}
	}()
	// A run can outlast the lock TTL; renewal stops before the release above.
	stopRenewal := lock.KeepAlive(context.WithoutCancel(ctx))
	defer stopRenewal()

	run := &contest.SyncRun{
		RunID:       uuid.NewString(),
		Profile:     profile,
		Start:       s.now(),
		PlayerCount: len(players),
		Failures:    []contest.PlayerFailure{},
	}
	logrus.Infof("sync run %s started: profile=%s players=%d", run.RunID, profile, len(players))

	// Work on started players outlives cancellation.
	work := context.WithoutCancel(ctx)

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(s.config.Concurrency)

	for _, p := range players {
		if ctx.Err() != nil {
			break
		}
		p := p
		g.Go(func() error {
			if ctx.Err() != nil {
				metrics.SyncPlayersTotal.WithLabelValues(string(profile), "skipped").Inc()
				return nil
			}

			dropped, err := s.syncPlayer(work, p, opts)

			mu.Lock()
			defer mu.Unlock()
			run.DroppedFragments += dropped
			if err != nil {
				logrus.Errorf("sync run %s: player %d failed: %v", run.RunID, p.ID, err)
				run.Failures = append(run.Failures, contest.PlayerFailure{PlayerID: p.ID, Error: err.Error()})
				metrics.SyncPlayersTotal.WithLabelValues(string(profile), "failed").Inc()
				return nil
			}
			run.SyncedPlayers++
			metrics.SyncPlayersTotal.WithLabelValues(string(profile), "synced").Inc()
			return nil
		})
	}
	_ = g.Wait()

	run.Cancelled = ctx.Err() != nil
	run.End = s.now()

	if err := s.store.CreateSyncRun(work, run); err != nil {
		return nil, err
	}

	logrus.Infof("sync run %s finished: synced=%d failed=%d dropped=%d cancelled=%v",
		run.RunID, run.SyncedPlayers, len(run.Failures), run.DroppedFragments, run.Cancelled)
	return run, nil
}

// syncPlayer walks the player's pages and returns the number of dropped rows.
func (s *Synchronizer) syncPlayer(ctx context.Context, p contest.Player, opts source.Options) (int, error) {
	dropped := 0
	for page := 1; page <= s.config.MaxPages; page++ {
		result, err := s.fetch(ctx, p, page, opts)
		if err != nil {
			return dropped, err
		}

		for _, row := range result.Rows {
			g, c, err := parseRow(s.parser, p.ID, row)
			if err != nil {
				var pe *parser.ParseError
				if !errors.As(err, &pe) {
					return dropped, err
				}
				dropped++
				metrics.DroppedFragmentsTotal.WithLabelValues(pe.Field).Inc()
				logrus.Warnf("dropping row for player %d: %v", p.ID, err)
				continue
			}

			c.Points = s.scorer.Value(*c, *g)
			if err := s.store.UpsertGame(ctx, g); err != nil {
				return dropped, err
			}
			if err := s.store.UpsertCompletion(ctx, c); err != nil {
				return dropped, err
			}
		}

		if !result.HasMore {
			break
		}
	}

	return dropped, s.store.MarkSynced(ctx, p.ID, s.now())
}

// fetch retries a page while the source reports itself unavailable.
func (s *Synchronizer) fetch(ctx context.Context, p contest.Player, page int, opts source.Options) (*source.Page, error) {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(s.newBackOff(), uint64(s.config.MaxRetries)),
		ctx,
	)

	var result *source.Page
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		r, err := s.fetcher.FetchFragments(ctx, p.ExternalID, page, opts)
		if err != nil {
			if errors.Is(err, contest.ErrSourceUnavailable) {
				logrus.Warnf("fetch page %d for player %d failed (attempt %d): %v", page, p.ID, attempt, err)
				return err
			}
			return backoff.Permanent(err)
		}
		result = r
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("page %d after %d attempts: %w", page, attempt, err)
	}
	return result, nil
}

// Runs returns the most recent sync runs.
func (s *Synchronizer) Runs(ctx context.Context, limit int) ([]contest.SyncRun, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.SyncRuns(ctx, limit)
}
