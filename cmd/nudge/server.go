package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/nudge-sh/nudge/internal/api"
	"github.com/nudge-sh/nudge/internal/app"
	"github.com/nudge-sh/nudge/internal/classify"
	"github.com/nudge-sh/nudge/internal/config"
	"github.com/nudge-sh/nudge/internal/notes"
	"github.com/nudge-sh/nudge/internal/notify"
	"github.com/nudge-sh/nudge/internal/schedule"
	"github.com/nudge-sh/nudge/internal/state"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the nudge daemon (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running nudge daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show nudge daemon status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "nudge.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func durationOr(raw string, fallback time.Duration, name string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		slog.Warn("invalid duration, using default", "key", name, "value", raw, "default", fallback, "error", err)
		return fallback
	}
	return d
}

func buildSource(cfg config.Config) (notes.Source, error) {
	switch cfg.Notes.Source {
	case "applenotes":
		return notes.NewNoteStoreSource(cfg.Notes.StorePath), nil
	case "dir":
		return notes.NewDirSource(cfg.Notes.Dir), nil
	default:
		return nil, fmt.Errorf("unknown notes source %q (want \"applenotes\" or \"dir\")", cfg.Notes.Source)
	}
}

func buildClassifier(cfg config.Config) (*classify.Classifier, error) {
	if cfg.Rules.Path == "" {
		return classify.Default(), nil
	}
	c, err := classify.Load(cfg.Rules.Path)
	if err != nil {
		return nil, fmt.Errorf("loading category rules: %w", err)
	}
	return c, nil
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "nudge version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Ensure API token exists in platform secret store.
	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Write PID file. Check if the daemon is already running via health
	// endpoint.
	dataDir := filepath.Dir(cfg.State.Path)
	pidPath := pidFilePath(dataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("nudge is already running (PID %d)", pid)
			return fmt.Errorf("daemon already running (PID %d)", pid)
		}
		printWarning("nudge is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("daemon already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Assemble the reminder pipeline.
	src, err := buildSource(cfg)
	if err != nil {
		return err
	}
	classifier, err := buildClassifier(cfg)
	if err != nil {
		return err
	}
	scheduler := schedule.New(classifier,
		durationOr(cfg.Schedule.GlobalGap, schedule.DefaultGlobalGap, "schedule.global_gap"),
		durationOr(cfg.Schedule.TaskCooldown, schedule.DefaultTaskCooldown, "schedule.task_cooldown"),
	)
	stateStore := state.NewStore(cfg.State.Path)

	coord := app.New(src, classifier, scheduler, stateStore, notify.New(), app.Options{
		Folder:             cfg.Notes.Folder,
		CheckInterval:      durationOr(cfg.Schedule.CheckInterval, time.Minute, "schedule.check_interval"),
		RefreshInterval:    durationOr(cfg.Schedule.RefreshInterval, 10*time.Minute, "schedule.refresh_interval"),
		ManualCountsGlobal: cfg.Schedule.ManualCountsGlobal,
	})

	// Build HTTP handler and server. A /quit request cancels the run
	// context, which takes the same shutdown path as a signal.
	handler := api.NewHandler(api.Deps{
		Coordinator: coord,
		Token:       apiToken,
		Quit:        stop,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Start the reminder loop.
	go func() {
		if err := coord.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("reminder loop error", "error", err)
		}
	}()

	// Build and start MCP server (stdio transport in a goroutine).
	mcpSrv := api.NewMCPServer(coord, version)
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "nudge listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(filepath.Dir(cfg.State.Path))
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("nudge is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop nudge (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to nudge (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Daemon", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Daemon", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Daemon", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Notes source", "%s (folder %q)", cfg.Notes.Source, cfg.Notes.Folder)
	printStatus("State file", "%s", cfg.State.Path)

	// Show the live snapshot if the daemon is up.
	if resp != nil && resp.StatusCode == 200 {
		if client, err := newAPIClient(); err == nil {
			statusResp, err := client.get(context.Background(), "/status")
			if err == nil {
				var st struct {
					TaskCount      int    `json:"task_count"`
					Degraded       bool   `json:"degraded"`
					LastRefresh    string `json:"last_refresh"`
					LastReminderAt string `json:"last_reminder_at"`
				}
				if decodeJSON(statusResp, &st) == nil {
					printStatus("Open tasks", "%d", st.TaskCount)
					if st.Degraded {
						printWarning("note store unreachable, task set may be stale")
					}
					if st.LastRefresh != "" {
						printStatus("Last refresh", "%s", st.LastRefresh)
					}
					if st.LastReminderAt != "" {
						printStatus("Last reminder", "%s", st.LastReminderAt)
					}
				}
			}
		}
	}

	return nil
}
