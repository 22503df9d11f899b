// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestQueryLogger_Trace(t *testing.T) {
	query := func() (string, int64) { return "SELECT * FROM players", 3 }

	tests := []struct {
		name      string
		level     logger.LogLevel
		elapsed   time.Duration
		err       error
		expected  int
		wantLevel logrus.Level
	}{
		{name: "failed query", level: logger.Warn, err: errors.New("no such table"), expected: 1, wantLevel: logrus.ErrorLevel},
		{name: "record not found", level: logger.Warn, err: gorm.ErrRecordNotFound},
		{name: "slow query", level: logger.Warn, elapsed: 2 * DefaultSlowQuery, expected: 1, wantLevel: logrus.WarnLevel},
		{name: "fast query", level: logger.Warn},
		{name: "silent", level: logger.Silent, err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log, hook := test.NewNullLogger()
			l := newQueryLogger(log).LogMode(tt.level)

			l.Trace(context.Background(), time.Now().Add(-tt.elapsed), query, tt.err)

			if len(hook.Entries) != tt.expected {
				t.Fatalf("entries = %d, expected %d", len(hook.Entries), tt.expected)
			}
			if tt.expected == 0 {
				return
			}
			entry := hook.LastEntry()
			if entry.Level != tt.wantLevel {
				t.Errorf("level = %v, expected %v", entry.Level, tt.wantLevel)
			}
			if entry.Data["sql"] != "SELECT * FROM players" || entry.Data["rows"] != int64(3) {
				t.Errorf("fields = %v", entry.Data)
			}
		})
	}
}

func TestOpen_UsesQueryLogger(t *testing.T) {
	db, err := Open(DriverSQLite, "file:querylogger?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	if _, ok := db.Config.Logger.(*queryLogger); !ok {
		t.Errorf("Logger = %T, expected *queryLogger", db.Config.Logger)
	}
}
