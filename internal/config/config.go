// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import "time"

// Config is the process configuration, read from the environment (and an
// optional .env file) by Load. Validate covers the cross-field rules.
type Config struct {
	// Listeners and process identity
	GRPCPort    int    `env:"GRPC_PORT" envDefault:"6565"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8000"`
	MetricsPort int    `env:"METRICS_PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"CompletionContest"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis holds run and player locks
	RedisHost       string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort       string        `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword   string        `env:"REDIS_PASSWORD"`
	RedisMaxRetries int           `env:"REDIS_MAX_RETRIES" envDefault:"5"`
	LockTTL         time.Duration `env:"LOCK_TTL" envDefault:"10m"`

	// Completion store (sqlite or postgres)
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"contest.db"`

	// Contest rule table
	ContestConfigPath string `env:"CONTEST_CONFIG_PATH" envDefault:"config/contest.yaml"`

	// External data source
	SourceBaseURL  string        `env:"SOURCE_BASE_URL" envDefault:"https://www.trueachievements.com"`
	SourceTimeout  time.Duration `env:"SOURCE_TIMEOUT" envDefault:"30s"`
	SourceMaxPages int           `env:"SOURCE_MAX_PAGES" envDefault:"50"`

	// Collection sync
	SyncConcurrency int `env:"SYNC_CONCURRENCY" envDefault:"4"`
	SyncMaxRetries  int `env:"SYNC_MAX_RETRIES" envDefault:"3"`

	// Tracing
	OtelEnabled    bool   `env:"OTEL_ENABLED" envDefault:"true"`
	ZipkinEndpoint string `env:"ZIPKIN_ENDPOINT"`
}
