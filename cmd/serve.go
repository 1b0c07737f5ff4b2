package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpapi "github.com/helix-works/skillflow/internal/api/http"
	"github.com/helix-works/skillflow/internal/config"
	"github.com/helix-works/skillflow/internal/history"
	"github.com/helix-works/skillflow/internal/server"
	"github.com/helix-works/skillflow/internal/skill"
	"github.com/helix-works/skillflow/internal/tool"
	"github.com/helix-works/skillflow/internal/tracer"
	"github.com/helix-works/skillflow/pkg/logger"
)

var (
	addrHTTP, addrGrpc string
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the skill engine server",
	Long:  `Start the HTTP API and gRPC health servers for the skill engine`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if addrHTTP != "" {
			cfg.Server.HTTP.Addr = addrHTTP
		}
		if addrGrpc != "" {
			cfg.Server.GRPC.Addr = addrGrpc
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

		svc, err := initService(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize service: %w", err)
		}

		handlers := httpapi.NewHandlers(svc, cfg.History.DefaultLimit)

		go func() {
			if err := server.Serve(ctx, cfg, handlers); err != nil {
				logger.Errorf("Server error: %v", err)
				cancel()
			}
		}()

		sig := <-quit
		logger.Infof("Received signal %s, shutting down...", sig.String())
		cancel()

		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&addrHTTP, "addr-http", "", "HTTP server address (overrides config file)")
	serveCmd.Flags().StringVar(&addrGrpc, "addr-grpc", "", "gRPC server address (overrides config file)")

	_ = viper.BindPFlag("server.http.addr", serveCmd.Flags().Lookup("addr-http"))
	_ = viper.BindPFlag("server.grpc.addr", serveCmd.Flags().Lookup("addr-grpc"))

	rootCmd.AddCommand(serveCmd)
}

// initService wires the tool registry, engine, history store, and skill
// registry into the service facade.
func initService(cfg *config.Config) (*skill.Service, error) {
	tools := tool.NewRegistry()
	if err := tool.RegisterBuiltins(tools); err != nil {
		return nil, err
	}

	var tr tracer.ExecutionTracer = tracer.Noop()
	if cfg.Engine.Tracing.Enabled {
		tr = tracer.NewLogTracer(cfg.Engine.Tracing.Level)
	}

	var store skill.HistoryStore
	switch cfg.History.StoreType {
	case "memory":
		store = history.NewMemoryStore()
	case "file":
		fileStore, err := history.NewFileStore(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to create history store: %w", err)
		}
		store = fileStore
	default:
		return nil, fmt.Errorf("unsupported history store type: %s", cfg.History.StoreType)
	}

	engine := skill.NewEngine(tools, tr, cfg.Engine.RetryCeiling)
	registry := skill.NewRegistry()
	svc := skill.NewService(registry, engine, store)

	if cfg.Skills.Dir != "" {
		loaded := skill.NewLoader(cfg.Skills.Dir).Bootstrap(svc)
		logger.Infof("Loaded %d skill definition(s) from %s", loaded, cfg.Skills.Dir)
	}

	return svc, nil
}
