package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	httpapi "github.com/helix-works/skillflow/internal/api/http"
	"github.com/helix-works/skillflow/internal/config"
	"github.com/helix-works/skillflow/pkg/gateway"
	"github.com/helix-works/skillflow/pkg/logger"
)

// Serve starts the HTTP API server and the gRPC health endpoint, and shuts
// both down when ctx is cancelled.
func Serve(ctx context.Context, cfg *config.Config, handlers *httpapi.Handlers) error {
	wg := &sync.WaitGroup{}

	if cfg.Server.GRPC.Addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runGRPC(ctx, cfg.Server.GRPC.Addr); err != nil {
				logger.Errorf("gRPC server error: %v", err)
			}
		}()
	}

	if cfg.Server.HTTP.Addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runHTTP(ctx, cfg.Server.HTTP.Addr, handlers); err != nil {
				logger.Errorf("HTTP server error: %v", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down servers...")
	wg.Wait()

	return nil
}

// runGRPC starts the gRPC server with the standard health service.
func runGRPC(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s, healthServer)

	logger.Infof("gRPC server listening on %s", addr)

	go func() {
		<-ctx.Done()
		logger.Info("Stopping gRPC server...")
		healthServer.Shutdown()
		s.GracefulStop()
	}()

	if err := s.Serve(lis); err != nil {
		return fmt.Errorf("gRPC server failed: %w", err)
	}
	return nil
}

// runHTTP starts the HTTP server with the gateway mux and access logging.
func runHTTP(ctx context.Context, addr string, handlers *httpapi.Handlers) error {
	gw := gateway.New()
	gw.Use(accessLog)
	handlers.Register(gw)

	srv := &http.Server{
		Addr:    addr,
		Handler: gw,
	}

	go func() {
		<-ctx.Done()
		logger.Info("Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("HTTP shutdown: %v", err)
		}
	}()

	logger.Infof("HTTP server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("HTTP server failed: %w", err)
	}
	return nil
}

// accessLog logs one line per request.
func accessLog(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next(w, r)
		logger.Infof("%s %s %v", r.Method, r.URL.Path, time.Since(start))
	}
}
