// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package storetest provides an in-memory store for package tests.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
)

var seq atomic.Int64

// New returns a migrated store backed by a private in-memory sqlite database.
func New(t testing.TB) *store.Store {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, seq.Add(1))

	db, err := store.Open(store.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := store.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return store.New(db)
}

// Date returns midnight UTC on the given day.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DatePtr returns a pointer to Date(y, m, d).
func DatePtr(y int, m time.Month, d int) *time.Time {
	t := Date(y, m, d)
	return &t
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// SeedPlayer creates a player registered at the given time.
func SeedPlayer(t testing.TB, s *store.Store, id int64, gamertag string, registered time.Time) contest.Player {
	t.Helper()
	p := contest.Player{ID: id, Gamertag: gamertag, ExternalID: int(id) * 100, RegisteredAt: registered}
	if err := s.CreatePlayer(context.Background(), &p); err != nil {
		t.Fatalf("failed to seed player %d: %v", id, err)
	}
	return p
}

// SeedGame creates a game together with its genre tags.
func SeedGame(t testing.TB, s *store.Store, g contest.Game) contest.Game {
	t.Helper()
	ctx := context.Background()
	genres := g.Genres
	g.Genres = nil
	if err := s.UpsertGame(ctx, &g); err != nil {
		t.Fatalf("failed to seed game %d: %v", g.ID, err)
	}
	if len(genres) > 0 {
		if err := s.SetGameGenres(ctx, g.ID, genres); err != nil {
			t.Fatalf("failed to tag game %d: %v", g.ID, err)
		}
		g.Genres = genres
	}
	return g
}

// SeedCompletion stores a completion record.
func SeedCompletion(t testing.TB, s *store.Store, c contest.Completion) {
	t.Helper()
	c.Game = nil
	if err := s.UpsertCompletion(context.Background(), &c); err != nil {
		t.Fatalf("failed to seed completion (%d, %d): %v", c.PlayerID, c.GameID, err)
	}
}
