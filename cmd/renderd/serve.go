package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirislabs/renderd"
	"github.com/mirislabs/renderd/internal/config"
	"github.com/mirislabs/renderd/internal/logging"
	"github.com/mirislabs/renderd/internal/metrics"
	httpAdapter "github.com/mirislabs/renderd/pkg/adapters/http"
	"github.com/mirislabs/renderd/pkg/adapters/kit"
	"github.com/mirislabs/renderd/pkg/adapters/preview"
	redisAdapter "github.com/mirislabs/renderd/pkg/adapters/redis"
	"github.com/mirislabs/renderd/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP render gateway",
	Long:  `Starts the render gateway, exposing open_stage and render as a JSON API over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cmd.Flags().Changed("listen") {
			cfg.Listen, _ = cmd.Flags().GetString("listen")
		}
		if cmd.Flags().Changed("renderer") {
			cfg.Renderer.Backend, _ = cmd.Flags().GetString("renderer")
			if err := cfg.Validate(); err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
		}

		if err := runServer(cfg); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

// newService builds the gateway core from the configuration: renderer
// backend, frame store, writer output, and metrics hooks.
func newService(cfg *config.Config, m *metrics.Metrics) (*renderd.Service, error) {
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	var renderer ports.Renderer
	switch cfg.Renderer.Backend {
	case config.BackendKit:
		opts, err := cfg.Renderer.KitOptions()
		if err != nil {
			return nil, err
		}
		kitOpts := []kit.Option{
			kit.WithLogger(logger),
			kit.WithOutputDir(cfg.OutputDir),
		}
		if opts.OutputDir != "" {
			kitOpts = append(kitOpts, kit.WithOutputDir(opts.OutputDir))
		}
		if opts.TimeoutSeconds > 0 {
			kitOpts = append(kitOpts, kit.WithTimeout(time.Duration(opts.TimeoutSeconds)*time.Second))
		}
		renderer = kit.New(opts.BaseURL, kitOpts...)
	case config.BackendPreview:
		renderer = preview.New()
	default:
		return nil, fmt.Errorf("unknown renderer backend %q", cfg.Renderer.Backend)
	}

	svcOpts := []renderd.Option{
		renderd.WithLogger(logger),
		renderd.WithOutputDir(cfg.OutputDir),
		renderd.WithLifecycleHooks(m.Hooks()),
	}

	if cfg.Cache.Backend == config.CacheRedis {
		store := redisAdapter.New(
			cfg.Cache.Redis.Addr,
			cfg.Cache.Redis.Password,
			cfg.Cache.Redis.DB,
			redisAdapter.WithTTL(cfg.Cache.TTL.Std()),
			redisAdapter.WithPrefix(cfg.Cache.Redis.Prefix),
		)
		svcOpts = append(svcOpts, renderd.WithFrameStore(store))
	}

	return renderd.New(renderer, svcOpts...), nil
}

// runServer runs the HTTP server until a signal arrives or it fails.
func runServer(cfg *config.Config) error {
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))
	m := metrics.New(cfg.Renderer.Backend)

	svc, err := newService(cfg, m)
	if err != nil {
		return err
	}
	defer svc.Close()

	handler := httpAdapter.NewHandler(svc,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetrics(m.Handler()),
	)

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: handler,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("render gateway listening",
			"address", srv.Addr,
			"renderer", cfg.Renderer.Backend,
			"cache", cfg.Cache.Backend,
			"docs", "http://localhost"+srv.Addr+"/docs")
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("listen on %s: %w", cfg.Listen, err)

	case sig := <-shutdown:
		logger.Info("starting shutdown", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "error", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		logger.Info("render gateway stopped")
		return nil
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("listen", "l", "", "Bind address (overrides config, default :8011)")
	serveCmd.Flags().StringP("renderer", "r", "", "Renderer backend: 'kit' or 'preview' (overrides config)")
}
