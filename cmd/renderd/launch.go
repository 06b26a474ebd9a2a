package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mirislabs/renderd/internal/config"
	"github.com/mirislabs/renderd/internal/logging"
	"github.com/mirislabs/renderd/pkg/adapters/kit"
	"github.com/mirislabs/renderd/pkg/adapters/launcher"
)

var launchCmd = &cobra.Command{
	Use:   "launch",
	Short: "Launch the host renderer, then serve",
	Long: `Starts the configured host renderer process (launch.command in the config
file), waits until its control endpoint answers, then runs the gateway in
front of it. The host is stopped again when the gateway shuts down.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		noWindow, _ := cmd.Flags().GetBool("no-window")
		readyTimeout, _ := cmd.Flags().GetDuration("ready-timeout")

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if cfg.Launch.Command == "" {
			fmt.Println("launch.command is not configured")
			os.Exit(1)
		}

		logger := logging.New(logging.ParseLevel(cfg.LogLevel))

		host, err := launcher.New(cfg.Launch.Command, hostArgs(cfg.Launch.Args, noWindow),
			launcher.WithWorkDir(cfg.Launch.WorkDir),
			launcher.WithLogger(logger),
		)
		if err != nil {
			fmt.Printf("Launcher error: %v\n", err)
			os.Exit(1)
		}

		ctx := context.Background()
		if err := host.Start(ctx); err != nil {
			fmt.Printf("Could not start host: %v\n", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = host.Stop(stopCtx)
		}()

		opts, err := cfg.Renderer.KitOptions()
		if err != nil {
			fmt.Printf("Renderer options error: %v\n", err)
			os.Exit(1)
		}
		if err := waitForHost(ctx, opts.BaseURL, readyTimeout, logger.Info); err != nil {
			fmt.Printf("Host did not become ready: %v\n", err)
			os.Exit(1)
		}

		if err := runServer(cfg); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

// hostArgs builds the host command line without aliasing the config's slice.
func hostArgs(args []string, noWindow bool) []string {
	out := append([]string(nil), args...)
	if noWindow {
		out = append(out, "--no-window")
	}
	return out
}

// waitForHost polls the host control endpoint until it answers.
func waitForHost(ctx context.Context, baseURL string, timeout time.Duration, logf func(string, ...any)) error {
	client := kit.New(baseURL)
	defer client.Close()

	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx)
		cancel()
		if err == nil {
			logf("host is ready", "attempts", attempt)
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("gave up after %s: %w", timeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

func init() {
	rootCmd.AddCommand(launchCmd)
	launchCmd.Flags().Bool("no-window", false, "Pass --no-window to the host (headless rendering)")
	launchCmd.Flags().Duration("ready-timeout", 2*time.Minute, "How long to wait for the host control endpoint")
}
