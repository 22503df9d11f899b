// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

// Package metrics defines the contest engine's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "completion_contest"

var (
	// SyncPlayersTotal counts synced players by outcome (synced, failed, skipped).
	SyncPlayersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_players_total",
			Help:      "Players processed by the completion synchronizer",
		},
		[]string{"profile", "outcome"},
	)

	// DroppedFragmentsTotal counts fragment rows dropped on parse errors.
	DroppedFragmentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_fragments_total",
			Help:      "Fragment rows dropped because a field failed to parse",
		},
		[]string{"field"},
	)

	// RecomputeDuration observes monthly and yearly recompute runs.
	RecomputeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recompute_duration_seconds",
			Help:      "Duration of leaderboard recomputes",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "status"},
	)

	// RandomChallengesTotal counts random challenge assignments by outcome.
	RandomChallengesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "random_challenges_total",
			Help:      "Random challenge assignments",
		},
		[]string{"outcome"},
	)
)

// Collectors returns every collector for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		SyncPlayersTotal,
		DroppedFragmentsTotal,
		RecomputeDuration,
		RandomChallengesTotal,
	}
}

// ObserveRecompute records a recompute's duration with its error status.
func ObserveRecompute(kind string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	RecomputeDuration.WithLabelValues(kind, status).Observe(time.Since(start).Seconds())
}
