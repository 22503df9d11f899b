// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package contest

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a player, game or registration lookup misses.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation cannot proceed from the
	// current persisted state.
	ErrInvalidState = errors.New("invalid state")

	// ErrSourceUnavailable is returned when the external data source cannot be
	// reached. It is retryable.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// InvalidStatef wraps ErrInvalidState with a formatted message.
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidState, fmt.Sprintf(format, args...))
}

// SourceUnavailablef wraps ErrSourceUnavailable with a formatted message.
func SourceUnavailablef(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSourceUnavailable, fmt.Sprintf(format, args...))
}
