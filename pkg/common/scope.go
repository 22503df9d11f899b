// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package common

import (
	"context"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "completion-contest"

// Scope is one traced unit of work, an API request or a CLI command. Log
// carries the trace id and whatever player or challenge the work is about.
type Scope struct {
	Ctx     context.Context
	TraceID string
	Log     *logrus.Entry

	span trace.Span
}

// GetScopeFromContext opens a span named name under the span ctx carries.
func GetScopeFromContext(ctx context.Context, name string) *Scope {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	traceID := span.SpanContext().TraceID().String()
	return &Scope{
		Ctx:     ctx,
		TraceID: traceID,
		Log:     logrus.WithField("traceID", traceID),
		span:    span,
	}
}

func (s *Scope) Finish() {
	s.span.End()
}

// TraceError marks the span failed.
func (s *Scope) TraceError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// Tag sets a string attribute on the span and a field on Log.
func (s *Scope) Tag(key, value string) *Scope {
	s.span.SetAttributes(attribute.String(key, value))
	s.Log = s.Log.WithField(key, value)
	return s
}

func (s *Scope) WithPlayer(playerID int64) *Scope {
	s.span.SetAttributes(attribute.Int64("contest.player_id", playerID))
	s.Log = s.Log.WithField("playerID", playerID)
	return s
}

func (s *Scope) WithChallenge(challenge int) *Scope {
	s.span.SetAttributes(attribute.Int("contest.challenge", challenge))
	s.Log = s.Log.WithField("challenge", challenge)
	return s
}
