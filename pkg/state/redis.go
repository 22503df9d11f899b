// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	// KeyPrefix is the prefix for all contest lock keys
	KeyPrefix = "completion_contest:lock:"
)

// RedisOptions configures the Redis connection.
type RedisOptions struct {
	Host       string
	Port       string
	Password   string
	MaxRetries int
}

// InitRedisClient initializes and returns a Redis client with retry logic
func InitRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	addr := opts.Host + ":" + opts.Port
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     opts.Password,
		DB:           0, // use default DB
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	maxRetries := opts.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(maxRetries-1)),
		ctx,
	)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if _, err := client.Ping(ctx).Result(); err != nil {
			logrus.Warnf("Redis connection failed (attempt %d/%d): %v, retrying...", attempt, maxRetries, err)
			return err
		}
		return nil
	}, policy)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s after %d attempts: %w", addr, attempt, err)
	}

	logrus.Infof("connected to Redis at %s (attempt %d/%d)", addr, attempt, maxRetries)
	return client, nil
}

// makeKey creates a Redis key for a lock name
func makeKey(name string) string {
	return fmt.Sprintf("%s%s", KeyPrefix, name)
}
