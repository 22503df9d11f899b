// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MetricsServer exposes the contest collectors for Prometheus scraping.
type MetricsServer struct {
	port     int
	endpoint string
	registry *prometheus.Registry
	server   *http.Server
}

func NewMetricsServer(port int, endpoint string) *MetricsServer {
	return &MetricsServer{port: port, endpoint: endpoint}
}

// Setup builds a private registry holding the runtime collectors, build info
// and pkg/metrics (sync outcomes, dropped fragments, recompute durations,
// random challenge outcomes).
func (m *MetricsServer) Setup() error {
	m.registry = prometheus.NewRegistry()

	all := append([]prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	}, metrics.Collectors()...)
	for _, c := range all {
		if err := m.registry.Register(c); err != nil {
			return fmt.Errorf("register collector: %w", err)
		}
	}

	mux := http.NewServeMux()
	mux.Handle(m.endpoint, promhttp.InstrumentMetricHandler(m.registry,
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
			Registry:          m.registry,
			EnableOpenMetrics: true,
		}),
	))

	m.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", m.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return nil
}

// Start binds the port before returning so a taken port fails startup.
func (m *MetricsServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", m.server.Addr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", m.server.Addr, err)
	}
	logrus.Infof("metrics listening on %s%s", lis.Addr(), m.endpoint)

	go func() {
		if err := m.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Errorf("metrics server stopped: %v", err)
		}
	}()
	return nil
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
