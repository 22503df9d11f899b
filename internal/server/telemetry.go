// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"fmt"

	"github.com/AccelByte/extend-completion-contest/pkg/common"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/propagators/b3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Propagator accepts both B3 headers from Zipkin-instrumented callers and
// W3C trace context.
func Propagator() propagation.TextMapPropagator {
	return propagation.NewCompositeTextMapPropagator(
		b3.New(b3.WithInjectEncoding(b3.B3MultipleHeader|b3.B3SingleHeader)),
		propagation.TraceContext{},
		propagation.Baggage{},
	)
}

// SetupTelemetry installs the global tracer provider and propagator. Spans
// go to endpoint when it is set; otherwise they only carry trace ids into the
// logs. The returned func flushes pending spans.
func SetupTelemetry(ctx context.Context, serviceName, environment string, id int, endpoint string) (func(context.Context) error, error) {
	tp, err := common.NewTracerProvider(serviceName, environment, int64(id), endpoint)
	if err != nil {
		return nil, fmt.Errorf("tracer provider: %w", err)
	}
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(Propagator())

	if endpoint == "" {
		logrus.Infof("tracing %s/%s without an exporter", serviceName, environment)
	} else {
		logrus.Infof("tracing %s/%s to %s", serviceName, environment, endpoint)
	}

	return tp.Shutdown, nil
}
