// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// DefaultProbeTimeout bounds one round of dependency probes.
const DefaultProbeTimeout = 2 * time.Second

// Probe checks one dependency.
type Probe func(ctx context.Context) error

type namedProbe struct {
	name  string
	probe Probe
}

// HealthChecker probes the lock store and the other dependencies the
// contest engine needs, in registration order.
type HealthChecker struct {
	probes  []namedProbe
	timeout time.Duration
}

// NewHealthChecker starts with a Redis ping probe.
func NewHealthChecker(client *redis.Client) *HealthChecker {
	h := &HealthChecker{timeout: DefaultProbeTimeout}
	h.AddProbe("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
	return h
}

// AddProbe appends a named dependency check.
func (h *HealthChecker) AddProbe(name string, probe Probe) {
	h.probes = append(h.probes, namedProbe{name: name, probe: probe})
}

// Check runs every probe and reports all failing dependencies together.
func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	var errs []error
	for _, p := range h.probes {
		if err := p.probe(ctx); err != nil {
			logrus.Warnf("dependency %s unhealthy: %v", p.name, err)
			errs = append(errs, fmt.Errorf("%s: %w", p.name, err))
		}
	}
	return errors.Join(errs...)
}
