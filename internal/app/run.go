// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// ShutdownTimeout bounds the graceful shutdown of servers.
const ShutdownTimeout = 30 * time.Second

// Run starts the servers and blocks until a shutdown signal is received.
func (a *App) Run(ctx context.Context) error {
	if err := a.grpcServer.Start(ctx); err != nil {
		return err
	}
	if err := a.httpServer.Start(ctx); err != nil {
		return err
	}
	if err := a.metricsServer.Start(ctx); err != nil {
		return err
	}

	logrus.Info("completion contest serving")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logrus.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

type stopper interface {
	Shutdown(ctx context.Context) error
}

// Shutdown stops the listeners, then closes Redis and the store, then flushes
// spans. Each step runs even if an earlier one failed.
func (a *App) Shutdown(ctx context.Context) error {
	servers := map[string]stopper{}
	if a.grpcServer != nil {
		servers["grpc"] = a.grpcServer
	}
	if a.httpServer != nil {
		servers["http"] = a.httpServer
	}
	if a.metricsServer != nil {
		servers["metrics"] = a.metricsServer
	}
	for _, name := range []string{"grpc", "http", "metrics"} {
		srv, ok := servers[name]
		if !ok {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			logrus.Errorf("%s server shutdown: %v", name, err)
		}
	}

	a.Close()

	if a.shutdownTelemetry != nil {
		if err := a.shutdownTelemetry(ctx); err != nil {
			logrus.Errorf("flush spans: %v", err)
		}
	}
	logrus.Info("completion contest stopped")
	return nil
}

// Close releases the Redis and database connections.
func (a *App) Close() {
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			logrus.Errorf("Redis close error: %v", err)
		}
		a.redisClient = nil
	}
	if a.store != nil {
		if sqlDB, err := a.store.DB().DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logrus.Errorf("database close error: %v", err)
			}
		}
		a.store = nil
	}
}
