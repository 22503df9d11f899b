// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package store

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultSlowQuery is the duration above which a query is logged as slow.
const DefaultSlowQuery = time.Second

// queryLogger routes gorm's query log through logrus so it shares the
// process's formatter and level.
type queryLogger struct {
	log   logrus.FieldLogger
	level logger.LogLevel
	slow  time.Duration
}

func newQueryLogger(log logrus.FieldLogger) *queryLogger {
	return &queryLogger{log: log, level: logger.Warn, slow: DefaultSlowQuery}
}

func (l *queryLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level
	return &cp
}

func (l *queryLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		l.log.Infof(msg, args...)
	}
}

func (l *queryLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		l.log.Warnf(msg, args...)
	}
}

func (l *queryLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		l.log.Errorf(msg, args...)
	}
}

// Trace logs failed queries, then slow ones. Missing records are not errors.
func (l *queryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	entry := func() *logrus.Entry {
		sql, rows := fc()
		return l.log.WithFields(logrus.Fields{
			"sql":     sql,
			"rows":    rows,
			"elapsed": elapsed.String(),
		})
	}

	switch {
	case err != nil && l.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		entry().WithError(err).Error("query failed")
	case l.slow > 0 && elapsed > l.slow && l.level >= logger.Warn:
		entry().Warn("slow query")
	case l.level >= logger.Info:
		entry().Debug("query")
	}
}
