// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package datasync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/AccelByte/extend-completion-contest/pkg/parser"
	"github.com/AccelByte/extend-completion-contest/pkg/scoring"
	"github.com/AccelByte/extend-completion-contest/pkg/source"
	"github.com/AccelByte/extend-completion-contest/pkg/state"
	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/AccelByte/extend-completion-contest/pkg/store/storetest"
	"github.com/alicebob/miniredis/v2"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var now = time.Date(2024, time.August, 15, 9, 30, 0, 0, time.UTC)

func gameRow(id int, platform, gamerscore, completed string) source.Row {
	return source.Row{
		source.ColumnRowID:        fmt.Sprintf(`<tr id="tdPlatform_%d">`, id),
		source.ColumnTitle:        fmt.Sprintf(`<td><a href="/game/Game-%d/achievements?gamerid=1">Game &amp; %d</a></td>`, id, id),
		source.ColumnPlatform:     fmt.Sprintf(`<td><img alt="%s"></td>`, platform),
		source.ColumnAchievements: "<td>10 / 50</td>",
		source.ColumnGamerscore:   "<td>" + gamerscore + "</td>",
		source.ColumnRatio:        "<td>2.00</td>",
		source.ColumnFullEstimate: "<td>10-12h</td>",
		source.ColumnCompleted:    "<td>" + completed + "</td>",
		source.ColumnOwnership:    `<td><img alt="Owned"></td>`,
	}
}

// fakeFetcher serves canned pages per external id. Failures counts the
// number of leading calls per id that report the source unavailable.
type fakeFetcher struct {
	mu       sync.Mutex
	pages    map[int][]*source.Page
	failures map[int]int
	calls    map[int]int
	onFetch  func(externalID int)
}

func (f *fakeFetcher) FetchFragments(ctx context.Context, externalID int, page int, opts source.Options) (*source.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.calls == nil {
		f.calls = make(map[int]int)
	}
	f.calls[externalID]++
	if f.onFetch != nil {
		f.onFetch(externalID)
	}
	if f.failures[externalID] > 0 {
		f.failures[externalID]--
		return nil, contest.SourceUnavailablef("gamer %d: connection refused", externalID)
	}
	pages := f.pages[externalID]
	if page > len(pages) {
		return &source.Page{}, nil
	}
	return pages[page-1], nil
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

func (f *fixture) synchronizer(fetcher source.Fetcher, concurrency int) *Synchronizer {
	return NewSynchronizer(f.store, f.locker, fetcher, scoring.NewEngine(1500),
		Config{Concurrency: concurrency, MaxPages: 5, MaxRetries: 2},
		WithClock(func() time.Time { return now }),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
}

func TestSync(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	registered := storetest.Date(2024, time.January, 1)
	alice := storetest.SeedPlayer(t, f.store, 1, "alice", registered)
	bob := storetest.SeedPlayer(t, f.store, 2, "bob", registered)

	fetcher := &fakeFetcher{
		pages: map[int][]*source.Page{
			100: {
				{Rows: []source.Row{
					gameRow(101, "Xbox One", "1,000 / 1,000", "12 Aug 24"),
					gameRow(999, "Dreamcast", "10 / 100", ""),
				}, HasMore: true},
				{Rows: []source.Row{gameRow(102, "Xbox 360", "250 / 1,000", "")}},
			},
		},
		failures: map[int]int{200: 10},
	}

	run, err := f.synchronizer(fetcher, 2).Sync(ctx, []contest.Player{alice, bob}, contest.SyncProfileFull, source.Options{})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}

	if run.PlayerCount != 2 || run.SyncedPlayers != 1 || run.DroppedFragments != 1 || run.Cancelled {
		t.Errorf("run = %+v", run)
	}
	if len(run.Failures) != 1 || run.Failures[0].PlayerID != 2 {
		t.Errorf("Failures = %+v, expected bob only", run.Failures)
	}
	if fetcher.calls[200] != 3 {
		t.Errorf("bob fetch attempts = %d, expected 3", fetcher.calls[200])
	}
	if run.RunID == "" || !run.Start.Equal(now) || !run.End.Equal(now) {
		t.Errorf("run metadata = %+v", run)
	}

	completed, err := f.store.CompletedGames(ctx, 1)
	if err != nil {
		t.Fatalf("CompletedGames() error = %v", err)
	}
	if len(completed) != 1 {
		t.Fatalf("len(completed) = %d, expected 1", len(completed))
	}
	c := completed[0]
	if c.GameID != 101 || c.Points != 33 || c.Gamerscore != 1000 || c.AchievementCount != 10 || c.Ownership != contest.OwnershipOwned {
		t.Errorf("completion = %+v", c)
	}
	if c.Game == nil || c.Game.Title != "Game & 101" || c.Game.AchievementCount != 50 || c.Game.URL == nil || *c.Game.URL != "/game/Game-101/" {
		t.Errorf("game = %+v", c.Game)
	}

	open, err := f.store.OpenGames(ctx, 1)
	if err != nil {
		t.Fatalf("OpenGames() error = %v", err)
	}
	if len(open) != 1 || open[0].GameID != 102 || open[0].Platform != contest.PlatformXbox360 {
		t.Errorf("open games = %+v, expected game 102 on xbox-360", open)
	}

	players, err := f.store.Players(ctx)
	if err != nil {
		t.Fatalf("Players() error = %v", err)
	}
	if players[0].LastSync == nil || players[1].LastSync != nil {
		t.Errorf("LastSync = %v / %v, expected only alice synced", players[0].LastSync, players[1].LastSync)
	}

	runs, err := f.synchronizer(fetcher, 1).Runs(ctx, 5)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 || runs[0].RunID != run.RunID {
		t.Errorf("Runs() = %+v, expected the recorded run", runs)
	}
	if diff := cmp.Diff(run.Failures, runs[0].Failures); diff != "" {
		t.Errorf("stored failures mismatch (-run +stored):\n%s", diff)
	}
}

func TestSync_RetriesTransientFailure(t *testing.T) {
	f := setup(t)
	alice := storetest.SeedPlayer(t, f.store, 1, "alice", storetest.Date(2024, time.January, 1))

	fetcher := &fakeFetcher{
		pages: map[int][]*source.Page{
			100: {{Rows: []source.Row{gameRow(101, "Xbox One", "1,000 / 1,000", "12 Aug 24")}}},
		},
		failures: map[int]int{100: 2},
	}

	run, err := f.synchronizer(fetcher, 1).Sync(context.Background(), []contest.Player{alice}, contest.SyncProfileFull, source.Options{})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if run.SyncedPlayers != 1 || len(run.Failures) != 0 {
		t.Errorf("run = %+v, expected alice synced after retries", run)
	}
}

func TestSync_MissingExternalID(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ghost := contest.Player{ID: 5, Gamertag: "ghost"}
	_, err := f.synchronizer(&fakeFetcher{}, 1).Sync(ctx, []contest.Player{ghost}, contest.SyncProfileFull, source.Options{})
	if !errors.Is(err, contest.ErrInvalidState) {
		t.Fatalf("Sync() error = %v, expected ErrInvalidState", err)
	}

	runs, err := f.store.SyncRuns(ctx, 5)
	if err != nil {
		t.Fatalf("SyncRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("len(runs) = %d, expected no run recorded", len(runs))
	}
}

func TestSync_CancelledBetweenPlayers(t *testing.T) {
	f := setup(t)

	registered := storetest.Date(2024, time.January, 1)
	players := []contest.Player{
		storetest.SeedPlayer(t, f.store, 1, "alice", registered),
		storetest.SeedPlayer(t, f.store, 2, "bob", registered),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fetcher := &fakeFetcher{
		pages: map[int][]*source.Page{
			100: {{Rows: []source.Row{gameRow(101, "Xbox One", "1,000 / 1,000", "12 Aug 24")}}},
			200: {{Rows: []source.Row{gameRow(101, "Xbox One", "1,000 / 1,000", "12 Aug 24")}}},
		},
		onFetch: func(int) { cancel() },
	}

	run, err := f.synchronizer(fetcher, 1).Sync(ctx, players, contest.SyncProfileFull, source.Options{})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !run.Cancelled {
		t.Error("Cancelled = false, expected true")
	}
	if run.SyncedPlayers != 1 || fetcher.calls[200] != 0 {
		t.Errorf("run = %+v, bob calls = %d, expected only alice synced", run, fetcher.calls[200])
	}

	runs, err := f.store.SyncRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("SyncRuns() error = %v", err)
	}
	if len(runs) != 1 || !runs[0].Cancelled {
		t.Errorf("stored runs = %+v, expected one cancelled run", runs)
	}
}

func TestSync_Locked(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	held, err := f.locker.Acquire(ctx, state.RunLockName("sync"))
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer held.Release(ctx)

	_, err = f.synchronizer(&fakeFetcher{}, 1).Sync(ctx, nil, contest.SyncProfileFull, source.Options{})
	if !errors.Is(err, state.ErrLocked) {
		t.Errorf("Sync() error = %v, expected ErrLocked", err)
	}
}

func TestSync_RenewsRunLockDuringLongFetch(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	f := &fixture{store: storetest.New(t), locker: state.NewLocker(client, 150*time.Millisecond)}
	alice := storetest.SeedPlayer(t, f.store, 1, "alice", storetest.Date(2024, time.January, 1))

	key := "completion_contest:lock:" + state.RunLockName("sync")
	renewed := false
	fetcher := &fakeFetcher{onFetch: func(int) {
		// Nearly expire the lock and wait for the run to renew it.
		mr.SetTTL(key, time.Millisecond)
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if mr.TTL(key) == 150*time.Millisecond {
				renewed = true
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}}

	run, err := f.synchronizer(fetcher, 1).Sync(context.Background(), []contest.Player{alice}, contest.SyncProfileFull, source.Options{})
	if err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if !renewed {
		t.Error("run lock was not renewed while the fetch was in flight")
	}
	if run.SyncedPlayers != 1 {
		t.Errorf("SyncedPlayers = %d, expected 1", run.SyncedPlayers)
	}
	if mr.Exists(key) {
		t.Error("run lock still held after Sync()")
	}
}

func TestParseRow(t *testing.T) {
	p := parser.NewWithClock(func() time.Time { return now })

	g, c, err := parseRow(p, 7, gameRow(101, "Xbox 360", "250 / 1,000", "Yesterday"))
	if err != nil {
		t.Fatalf("parseRow() error = %v", err)
	}
	if g.ID != 101 || g.Gamerscore != 1000 || g.SiteRatio != 2 || *g.FullCompletionEstimate != 12 {
		t.Errorf("game = %+v", g)
	}
	expected := storetest.Date(2024, time.August, 14)
	if c.PlayerID != 7 || c.Gamerscore != 250 || c.CompletionDate == nil || !c.CompletionDate.Equal(expected) {
		t.Errorf("completion = %+v", c)
	}

	tests := []struct {
		name  string
		row   source.Row
		field string
	}{
		{"unknown platform", gameRow(101, "Dreamcast", "", ""), parser.FieldPlatform},
		{"bad date", gameRow(101, "Xbox One", "", "someday"), parser.FieldDate},
		{"bad gamerscore", gameRow(101, "Xbox One", "lots", ""), parser.FieldGamerscore},
		{"no game id", source.Row{source.ColumnPlatform: `<td><img alt="Xbox One"></td>`}, parser.FieldGameID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseRow(p, 7, tt.row)
			var pe *parser.ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("parseRow() error = %v, expected *ParseError", err)
			}
			if pe.Field != tt.field {
				t.Errorf("Field = %s, expected %s", pe.Field, tt.field)
			}
		})
	}
}

func TestProfileOptions(t *testing.T) {
	opts, err := ProfileOptions(contest.SyncProfileLastMonthsCompleted, now, nil)
	if err != nil {
		t.Fatalf("ProfileOptions() error = %v", err)
	}
	if opts.UnlockCutoff == nil || !opts.UnlockCutoff.Equal(storetest.Date(2024, time.June, 30)) {
		t.Errorf("UnlockCutoff = %v, expected 2024-06-30", opts.UnlockCutoff)
	}
	if opts.ContestStatus != source.ContestAll || opts.Timezone != source.TimezoneEST {
		t.Errorf("options = %+v", opts)
	}

	if got := lastMonthsCutoff(storetest.Date(2024, time.January, 10)); !got.Equal(storetest.Date(2023, time.November, 30)) {
		t.Errorf("lastMonthsCutoff(January) = %v, expected 2023-11-30", got)
	}

	opts, err = ProfileOptions(contest.SyncProfileIncompleteOnly, now, nil)
	if err != nil || opts.CompletionStatus != source.CompletionIncomplete {
		t.Errorf("IncompleteOnly options = %+v, %v", opts, err)
	}

	if _, err := ProfileOptions(contest.SyncProfileCustom, now, nil); !errors.Is(err, contest.ErrInvalidState) {
		t.Errorf("Custom without options error = %v, expected ErrInvalidState", err)
	}

	custom := source.Options{Platforms: []contest.Platform{contest.PlatformWindows}}
	opts, err = ProfileOptions(contest.SyncProfileCustom, now, &custom)
	if err != nil {
		t.Fatalf("ProfileOptions(Custom) error = %v", err)
	}
	if diff := cmp.Diff(custom, opts); diff != "" {
		t.Errorf("custom options mismatch (-expected +got):\n%s", diff)
	}
}

func TestParseProfile(t *testing.T) {
	p, err := ParseProfile("lastmonthscompleted")
	if err != nil || p != contest.SyncProfileLastMonthsCompleted {
		t.Errorf("ParseProfile() = %s, %v", p, err)
	}
	if _, err := ParseProfile("weekly"); !errors.Is(err, contest.ErrInvalidState) {
		t.Errorf("ParseProfile(weekly) error = %v, expected ErrInvalidState", err)
	}
}

func TestSelectPlayers(t *testing.T) {
	synced := now
	players := []contest.Player{{ID: 1}, {ID: 2, LastSync: &synced}}

	if got := SelectPlayers(contest.SyncProfileFull, players); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("SelectPlayers(Full) = %+v, expected never-synced player", got)
	}
	if got := SelectPlayers(contest.SyncProfileLastMonthsCompleted, players); len(got) != 2 {
		t.Errorf("SelectPlayers(LastMonthsCompleted) = %d players, expected 2", len(got))
	}
}
