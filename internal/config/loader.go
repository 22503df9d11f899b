// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package config

import (
	"fmt"

	"github.com/AccelByte/extend-completion-contest/pkg/store"
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Load reads configuration from environment variables.
// It attempts to load from .env file first (for local development),
// then parses environment variables into the Config struct.
func Load() (*Config, error) {
	// In production (Docker/K8s), environment variables are injected directly
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file loaded: %v", err)
	} else {
		logrus.Infof("loaded environment variables from .env file")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config from environment: %w", err)
	}

	return cfg, nil
}

// Validate performs custom validation on the configuration.
func (c *Config) Validate() error {
	ports := map[string]int{
		"GRPC_PORT":    c.GRPCPort,
		"HTTP_PORT":    c.HTTPPort,
		"METRICS_PORT": c.MetricsPort,
	}
	seen := make(map[int]string, len(ports))
	for name, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s: %d (must be 1-65535)", name, port)
		}
		if other, ok := seen[port]; ok {
			return fmt.Errorf("%s and %s both use port %d", name, other, port)
		}
		seen[port] = name
	}

	switch c.DBDriver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("invalid DB_DRIVER: %q (must be %s or %s)", c.DBDriver, store.DriverSQLite, store.DriverPostgres)
	}
	if c.DBDSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.SourceBaseURL == "" {
		return fmt.Errorf("SOURCE_BASE_URL is required")
	}
	if c.SourceTimeout <= 0 {
		return fmt.Errorf("SOURCE_TIMEOUT must be positive")
	}
	if c.SyncConcurrency < 1 {
		return fmt.Errorf("SYNC_CONCURRENCY must be at least 1")
	}
	if c.SyncMaxRetries < 0 {
		return fmt.Errorf("SYNC_MAX_RETRIES must not be negative")
	}
	if c.LockTTL <= 0 {
		return fmt.Errorf("LOCK_TTL must be positive")
	}

	return nil
}
