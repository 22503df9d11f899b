// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognizedEnum is wrapped when an extracted token names no known value.
	ErrUnrecognizedEnum = errors.New("unrecognized enum value")

	// ErrMissingMarker is wrapped when a fragment lacks the expected marker or quote.
	ErrMissingMarker = errors.New("missing marker")

	// ErrUnknownUnit is wrapped when a size carries an unrecognized unit letter.
	ErrUnknownUnit = errors.New("unknown unit")

	errMissingSlash = errors.New("missing slash separator")
)

// ParseError reports a malformed fragment for one field.
type ParseError struct {
	Field string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s from %q: %v", e.Field, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func newError(field, raw string, err error) error {
	return &ParseError{Field: field, Raw: raw, Err: err}
}
