// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/contest"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured database. Query logs go through logrus and
// only report slow queries and errors.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newQueryLogger(logrus.WithField("component", "store")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	logrus.Infof("connected to %s database", driver)
	return db, nil
}

// Migrate creates or updates every contest table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&contest.Player{},
		&contest.Genre{},
		&contest.Game{},
		&contest.Completion{},
		&contest.ExclusionRule{},
		&contest.MonthlyRecap{},
		&contest.YearlyStat{},
		&contest.RandomChallengeIssue{},
		&contest.SyncRun{},
		&contest.YearlyChallenge{},
	)
}

// Ping checks the underlying connection.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}
