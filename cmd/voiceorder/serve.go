package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/voiceorder/internal/backend"
	"github.com/GriffinCanCode/voiceorder/internal/broker"
	"github.com/GriffinCanCode/voiceorder/internal/cart"
	"github.com/GriffinCanCode/voiceorder/internal/catalog"
	"github.com/GriffinCanCode/voiceorder/internal/config"
	"github.com/GriffinCanCode/voiceorder/internal/metrics"
	"github.com/GriffinCanCode/voiceorder/internal/orchestrator"
	"github.com/GriffinCanCode/voiceorder/internal/resilience"
	"github.com/GriffinCanCode/voiceorder/internal/server"
	"github.com/GriffinCanCode/voiceorder/internal/tools"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr, grpcAddr, catalogFile string
		memoryCart                  bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the UI server and session manager",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := root.cfg
			if cmd.Flags().Changed("addr") {
				cfg.HTTPAddr = addr
			}
			if cmd.Flags().Changed("grpc-addr") {
				cfg.GRPCAddr = grpcAddr
			}
			if cmd.Flags().Changed("catalog") {
				cfg.CatalogFile = catalogFile
			}
			if cmd.Flags().Changed("memory-cart") {
				cfg.MemoryCart = memoryCart
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (HTTP_ADDR)")
	cmd.Flags().StringVar(&grpcAddr, "grpc-addr", "", "gRPC health listen address (GRPC_ADDR)")
	cmd.Flags().StringVar(&catalogFile, "catalog", "", "serve the menu from a YAML/JSON file (CATALOG_FILE)")
	cmd.Flags().BoolVar(&memoryCart, "memory-cart", false, "keep the cart in process (MEMORY_CART)")
	return cmd
}

// collaborators builds the broker, catalog source and cart for cfg.
func collaborators(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (orchestrator.Deps, error) {
	api := backend.New(cfg.BackendURL, cfg.BackendToken, nil)
	breaker := func(name string, c resilience.Config) *resilience.Breaker {
		return resilience.New(name, c).WithHook(m.BreakerHook)
	}

	var src catalog.Source = catalog.NewHTTPSource(api, cfg.CatalogCacheTTL, breaker("catalog", resilience.CatalogConfig()))
	if cfg.CatalogFile != "" {
		src = catalog.NewFileSource(cfg.CatalogFile)
	}

	var br broker.Broker = broker.NewHTTPBroker(api, cfg.Model, cfg.CredentialTTL, breaker("broker", resilience.BrokerConfig()))
	if cfg.GeminiAPIKey != "" {
		gb, err := broker.NewGenAIBroker(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.CredentialTTL)
		if err != nil {
			return orchestrator.Deps{}, err
		}
		br = gb
	}

	var c tools.Cart = cart.NewClient(api, breaker("cart", resilience.CartConfig()))
	if cfg.MemoryCart {
		c = cart.NewMemory()
	}

	return orchestrator.Deps{Catalog: src, Broker: br, Cart: c, Metrics: m}, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	m := metrics.New()
	deps, err := collaborators(ctx, cfg, m)
	if err != nil {
		return err
	}
	mgr := orchestrator.New(cfg, deps)

	grpcServer, health := server.NewGRPCServer()
	srv := server.New(mgr, server.Options{Metrics: m.Handler(), Health: health})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// connect requests block until the session opens
		WriteTimeout: orchestrator.ConnectTimeout + 10*time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	go func() {
		slog.Info("voiceorder starting", "http", cfg.HTTPAddr, "grpc", cfg.GRPCAddr,
			"backend", cfg.BackendURL, "model", cfg.Model)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err = <-errCh:
		slog.Error("server error", "error", err)
	}

	slog.Info("shutting down...")
	mgr.Disconnect()
	srv.Close()
	health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		slog.Error("http shutdown error", "error", serr)
	}
	grpcServer.GracefulStop()
	slog.Info("shutdown complete")
	return err
}
