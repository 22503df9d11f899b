// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package source fetches raw game collection fragments for a player.
package source

import (
	"context"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
)

// CompletionStatus filters rows by completion state.
type CompletionStatus string

const (
	CompletionAll        CompletionStatus = "all"
	CompletionComplete   CompletionStatus = "complete"
	CompletionIncomplete CompletionStatus = "incomplete"
)

// ContestStatus filters rows by the not-for-contests flag.
type ContestStatus string

const (
	ContestNone ContestStatus = ""
	ContestAll  ContestStatus = "all"
)

// Timezone is the timezone the source renders dates in.
type Timezone string

const (
	TimezoneUTC Timezone = "UTC"
	TimezoneEST Timezone = "EST"
)

// Options narrow a fetch.
type Options struct {
	CompletionStatus CompletionStatus
	UnlockCutoff     *time.Time
	ContestStatus    ContestStatus
	Timezone         Timezone
	Platforms        []contest.Platform
}

// Column identifies a fragment within a row.
type Column string

const (
	ColumnRowID           Column = "row_id"
	ColumnTitle           Column = "title"
	ColumnPlatform        Column = "platform"
	ColumnAchievements    Column = "achievements"
	ColumnGamerscore      Column = "gamerscore"
	ColumnTrueAchievement Column = "trueachievement"
	ColumnRatio           Column = "ratio"
	ColumnOwnership       Column = "ownership"
	ColumnNotForContests  Column = "not_for_contests"
	ColumnUnobtainables   Column = "unobtainables"
	ColumnStarted         Column = "started"
	ColumnCompleted       Column = "completed"
	ColumnLastUnlock      Column = "last_unlock"
	ColumnPublisher       Column = "publisher"
	ColumnDeveloper       Column = "developer"
	ColumnReleaseDate     Column = "release_date"
	ColumnGamersWithGame  Column = "gamers_with_game"
	ColumnGamersCompleted Column = "gamers_completed"
	ColumnBaseEstimate    Column = "base_estimate"
	ColumnFullEstimate    Column = "full_estimate"
	ColumnSiteRating      Column = "site_rating"
	ColumnServerClosure   Column = "server_closure"
	ColumnInstallSize     Column = "install_size"
)

// Row is one game's raw fragments keyed by column.
type Row map[Column]string

// Page is one page of rows.
type Page struct {
	Rows    []Row
	HasMore bool
}

// Fetcher fetches one page of fragments for a player. Transport failures
// wrap contest.ErrSourceUnavailable.
type Fetcher interface {
	FetchFragments(ctx context.Context, externalID int, page int, opts Options) (*Page, error)
}
