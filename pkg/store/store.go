// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package store persists contest state with gorm. A Store returned inside
// Transaction is bound to that transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const batchSize = 200

// Store reads and writes contest tables.
type Store struct {
	db *gorm.DB
}

// New wraps a gorm connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return Ping(ctx, s.db)
}

// Transaction runs fn in one database transaction. Any error rolls back
// every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Store{db: db})
	})
}

func (s *Store) with(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// Players

// CreatePlayer registers a player.
func (s *Store) CreatePlayer(ctx context.Context, p *contest.Player) error {
	if err := s.with(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

// Players returns every player ordered by id.
func (s *Store) Players(ctx context.Context) ([]contest.Player, error) {
	var players []contest.Player
	if err := s.with(ctx).Order("id").Find(&players).Error; err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	return players, nil
}

// Player returns one player or contest.ErrNotFound.
func (s *Store) Player(ctx context.Context, id int64) (*contest.Player, error) {
	var p contest.Player
	err := s.with(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, contest.NotFoundf("player %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player %d: %w", id, err)
	}
	return &p, nil
}

// MarkSynced records the time a player's sync finished.
func (s *Store) MarkSynced(ctx context.Context, playerID int64, at time.Time) error {
	return s.with(ctx).Model(&contest.Player{}).Where("id = ?", playerID).Update("last_sync", at).Error
}

// Games and completions

// UpsertGame inserts a game or refreshes its metadata. Genre links are kept.
func (s *Store) UpsertGame(ctx context.Context, g *contest.Game) error {
	err := s.with(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(g).Error
	if err != nil {
		return fmt.Errorf("failed to upsert game %d: %w", g.ID, err)
	}
	return nil
}

// SetGameGenres replaces a game's genre tags, creating genres as needed.
func (s *Store) SetGameGenres(ctx context.Context, gameID int, genres []contest.Genre) error {
	if len(genres) > 0 {
		err := s.with(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&genres).Error
		if err != nil {
			return fmt.Errorf("failed to create genres: %w", err)
		}
	}
	game := contest.Game{ID: gameID}
	return s.with(ctx).Model(&game).Association("Genres").Replace(genres)
}

// UpsertCompletion inserts or replaces the record for (PlayerID, GameID).
func (s *Store) UpsertCompletion(ctx context.Context, c *contest.Completion) error {
	err := s.with(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "player_id"}, {Name: "game_id"}},
		UpdateAll: true,
	}).Create(c).Error
	if err != nil {
		return fmt.Errorf("failed to upsert completion (%d, %d): %w", c.PlayerID, c.GameID, err)
	}
	return nil
}

func (s *Store) completions(ctx context.Context) *gorm.DB {
	return s.with(ctx).Preload("Game").Preload("Game.Genres")
}

// CompletionsBetween returns every completion dated in [from, to), ordered
// by player then completion date.
func (s *Store) CompletionsBetween(ctx context.Context, from, to time.Time) ([]contest.Completion, error) {
	var out []contest.Completion
	err := s.completions(ctx).
		Where("completion_date >= ? AND completion_date < ?", from, to).
		Order("player_id, completion_date, game_id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completions in window: %w", err)
	}
	return out, nil
}

// CompletedGames returns a player's completed records ordered by date.
func (s *Store) CompletedGames(ctx context.Context, playerID int64) ([]contest.Completion, error) {
	var out []contest.Completion
	err := s.completions(ctx).
		Where("player_id = ? AND completion_date IS NOT NULL", playerID).
		Order("completion_date, game_id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completed games for player %d: %w", playerID, err)
	}
	return out, nil
}

// OpenGames returns a player's records without a completion date.
func (s *Store) OpenGames(ctx context.Context, playerID int64) ([]contest.Completion, error) {
	var out []contest.Completion
	err := s.completions(ctx).
		Where("player_id = ? AND completion_date IS NULL", playerID).
		Order("game_id").
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open games for player %d: %w", playerID, err)
	}
	return out, nil
}

// CompletedGameIDs returns the set of games the player has completed.
func (s *Store) CompletedGameIDs(ctx context.Context, playerID int64) (map[int]bool, error) {
	var ids []int
	err := s.with(ctx).Model(&contest.Completion{}).
		Where("player_id = ? AND completion_date IS NOT NULL", playerID).
		Pluck("game_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list completed game ids for player %d: %w", playerID, err)
	}
	set := make(map[int]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// Game returns one game with genres or contest.ErrNotFound.
func (s *Store) Game(ctx context.Context, id int) (*contest.Game, error) {
	var g contest.Game
	err := s.with(ctx).Preload("Genres").First(&g, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, contest.NotFoundf("game %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	return &g, nil
}

// Exclusions

// Exclusions returns every exclusion rule.
func (s *Store) Exclusions(ctx context.Context) ([]contest.ExclusionRule, error) {
	var out []contest.ExclusionRule
	if err := s.with(ctx).Order("id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list exclusions: %w", err)
	}
	return out, nil
}

// CountExclusions returns the number of exclusion rules for a challenge.
func (s *Store) CountExclusions(ctx context.Context, challenge int) (int64, error) {
	var n int64
	err := s.with(ctx).Model(&contest.ExclusionRule{}).Where("challenge = ?", challenge).Count(&n).Error
	return n, err
}

// DeleteExclusions removes every exclusion rule for a challenge.
func (s *Store) DeleteExclusions(ctx context.Context, challenge int) error {
	err := s.with(ctx).Where("challenge = ?", challenge).Delete(&contest.ExclusionRule{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear exclusions for challenge %d: %w", challenge, err)
	}
	return nil
}

// InsertExclusions stores exclusion rules.
func (s *Store) InsertExclusions(ctx context.Context, rules []contest.ExclusionRule) error {
	if len(rules) == 0 {
		return nil
	}
	if err := s.with(ctx).CreateInBatches(&rules, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert exclusions: %w", err)
	}
	return nil
}

// Monthly recaps

// DeleteRecaps removes every recap row for a challenge.
func (s *Store) DeleteRecaps(ctx context.Context, challenge int) error {
	err := s.with(ctx).Where("challenge = ?", challenge).Delete(&contest.MonthlyRecap{}).Error
	if err != nil {
		return fmt.Errorf("failed to clear recaps for challenge %d: %w", challenge, err)
	}
	return nil
}

// InsertRecaps stores recap rows.
func (s *Store) InsertRecaps(ctx context.Context, recaps []contest.MonthlyRecap) error {
	if len(recaps) == 0 {
		return nil
	}
	if err := s.with(ctx).CreateInBatches(&recaps, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert recaps: %w", err)
	}
	return nil
}

// Recaps returns a challenge's recap rows by rank.
func (s *Store) Recaps(ctx context.Context, challenge int) ([]contest.MonthlyRecap, error) {
	var out []contest.MonthlyRecap
	err := s.with(ctx).Where("challenge = ?", challenge).Order("rank, player_id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recaps for challenge %d: %w", challenge, err)
	}
	return out, nil
}

// PlayerRecaps returns all of a player's recap rows by challenge.
func (s *Store) PlayerRecaps(ctx context.Context, playerID int64) ([]contest.MonthlyRecap, error) {
	var out []contest.MonthlyRecap
	err := s.with(ctx).Where("player_id = ?", playerID).Order("challenge").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recaps for player %d: %w", playerID, err)
	}
	return out, nil
}

// RecapTotals sums every challenge's recap total per player.
func (s *Store) RecapTotals(ctx context.Context) (map[int64]int, error) {
	var rows []struct {
		PlayerID int64
		Total    int
	}
	err := s.with(ctx).Model(&contest.MonthlyRecap{}).
		Select("player_id, SUM(total_points) AS total").
		Group("player_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum recap totals: %w", err)
	}
	totals := make(map[int64]int, len(rows))
	for _, r := range rows {
		totals[r.PlayerID] = r.Total
	}
	return totals, nil
}

// Yearly stats

// YearlyStats returns the yearly table by rank.
func (s *Store) YearlyStats(ctx context.Context) ([]contest.YearlyStat, error) {
	var out []contest.YearlyStat
	if err := s.with(ctx).Order("rank, player_id").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list yearly stats: %w", err)
	}
	return out, nil
}

// ReplaceYearlyStats swaps the whole yearly table for stats.
func (s *Store) ReplaceYearlyStats(ctx context.Context, stats []contest.YearlyStat) error {
	db := s.with(ctx)
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&contest.YearlyStat{}).Error; err != nil {
		return fmt.Errorf("failed to clear yearly stats: %w", err)
	}
	if len(stats) == 0 {
		return nil
	}
	if err := db.CreateInBatches(&stats, batchSize).Error; err != nil {
		return fmt.Errorf("failed to insert yearly stats: %w", err)
	}
	return nil
}

// Yearly challenges

// AddYearlyChallenge stores a yearly sub-challenge submission.
func (s *Store) AddYearlyChallenge(ctx context.Context, c *contest.YearlyChallenge) error {
	if err := s.with(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to add yearly challenge: %w", err)
	}
	return nil
}

// YearlyChallengeCounts returns approved and pending counts per category.
func (s *Store) YearlyChallengeCounts(ctx context.Context, playerID int64) (approved, pending map[contest.YearlyCategory]int, err error) {
	var rows []struct {
		Category contest.YearlyCategory
		Approved bool
		Count    int
	}
	err = s.with(ctx).Model(&contest.YearlyChallenge{}).
		Select("category, approved, COUNT(*) AS count").
		Where("player_id = ?", playerID).
		Group("category, approved").
		Scan(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count yearly challenges for player %d: %w", playerID, err)
	}
	approved = make(map[contest.YearlyCategory]int)
	pending = make(map[contest.YearlyCategory]int)
	for _, r := range rows {
		if r.Approved {
			approved[r.Category] += r.Count
		} else {
			pending[r.Category] += r.Count
		}
	}
	return approved, pending, nil
}

// Random challenge issues

// Issues returns a player's issues, oldest first.
func (s *Store) Issues(ctx context.Context, playerID int64) ([]contest.RandomChallengeIssue, error) {
	var out []contest.RandomChallengeIssue
	err := s.with(ctx).Where("player_id = ?", playerID).Order("issued_at, id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list issues for player %d: %w", playerID, err)
	}
	return out, nil
}

// LatestActiveIssues returns each player's most recent non-rerolled issue.
func (s *Store) LatestActiveIssues(ctx context.Context) (map[int64]contest.RandomChallengeIssue, error) {
	var all []contest.RandomChallengeIssue
	err := s.with(ctx).Where("rerolled = ?", false).Order("issued_at, id").Find(&all).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active issues: %w", err)
	}
	latest := make(map[int64]contest.RandomChallengeIssue)
	for _, issue := range all {
		latest[issue.PlayerID] = issue
	}
	return latest, nil
}

// SaveIssue inserts or updates an issue.
func (s *Store) SaveIssue(ctx context.Context, issue *contest.RandomChallengeIssue) error {
	if err := s.with(ctx).Save(issue).Error; err != nil {
		return fmt.Errorf("failed to save issue for player %d: %w", issue.PlayerID, err)
	}
	return nil
}

// Sync runs

// CreateSyncRun stores a run summary.
func (s *Store) CreateSyncRun(ctx context.Context, run *contest.SyncRun) error {
	if err := s.with(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("failed to record sync run: %w", err)
	}
	return nil
}

// SyncRuns returns the most recent runs first.
func (s *Store) SyncRuns(ctx context.Context, limit int) ([]contest.SyncRun, error) {
	var out []contest.SyncRun
	if err := s.with(ctx).Order("start DESC, id DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	return out, nil
}
