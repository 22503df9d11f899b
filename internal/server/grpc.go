// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/AccelByte/extend-completion-contest/pkg/common"
	"github.com/AccelByte/extend-completion-contest/pkg/handler"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// DefaultHealthInterval is how often dependency health is re-probed.
const DefaultHealthInterval = 10 * time.Second

// GRPCServer serves the gRPC health service. Its status follows the
// dependency health checker.
type GRPCServer struct {
	server   *grpc.Server
	health   *health.Server
	checker  handler.HealthChecker
	port     int
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

func NewGRPCServer(port int, checker handler.HealthChecker) *GRPCServer {
	return &GRPCServer{
		port:     port,
		checker:  checker,
		interval: DefaultHealthInterval,
	}
}

// Setup builds the server with logrus call logging, otel spans, the health
// service and reflection. The contest API itself is served over HTTP.
func (s *GRPCServer) Setup() error {
	logger := common.InterceptorLogger(logrus.WithField("server", "grpc"))
	s.server = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(logging.UnaryServerInterceptor(logger)),
		grpc.ChainStreamInterceptor(logging.StreamServerInterceptor(logger)),
	)

	s.health = health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.server, s.health)
	reflection.Register(s.server)
	return nil
}

// Probe checks dependencies once and publishes the resulting status.
func (s *GRPCServer) Probe(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	status := grpc_health_v1.HealthCheckResponse_SERVING
	if s.checker != nil {
		if err := s.checker.Check(ctx); err != nil {
			status = grpc_health_v1.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	return status
}

// Start publishes an initial health status, then serves and re-probes every
// interval until Shutdown.
func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("grpc listen on %d: %w", s.port, err)
	}
	logrus.Infof("grpc health listening on %s: %s", lis.Addr(), s.Probe(ctx))

	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.watch(s.stop, s.done)

	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logrus.Errorf("grpc server stopped: %v", err)
		}
	}()
	return nil
}

func (s *GRPCServer) watch(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Probe(context.Background())
		}
	}
}

// Shutdown stops the watcher, flips every service to NOT_SERVING and drains
// in-flight calls. Draining gives up when ctx ends.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	if s.stop != nil {
		close(s.stop)
		<-s.done
		s.stop = nil
	}
	s.health.Shutdown()

	drained := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(drained)
	}()
	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return ctx.Err()
	}
}
