package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/querydesk/internal/dashboard"
	"github.com/user/querydesk/internal/scheduler"
	"github.com/user/querydesk/internal/types"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the querydesk daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "querydesk.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	store, hist, err := newSession(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err = store.ScanSources(ctx); err != nil {
		slog.Warn("initial source scan failed", "error", err)
	}

	slog.Info("querydesk started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"backend", cfg.Backend.BaseURL,
		"pid_file", pidPath,
	)

	// Scheduler: re-run saved queries and persist the outcome to history.
	schedStore := newScheduleStore(cfg)
	sched := scheduler.New(schedStore, func(sq *types.ScheduledQuery) {
		if sq.Source != "" && (!store.Connected() || store.ActiveSource() != sq.Source) {
			if ok, err := store.Connect(ctx, sq.Source); err != nil || !ok {
				slog.Error("scheduled connect failed",
					"schedule", sq.Name, "source", sq.Source, "error", err)
				return
			}
		}
		outcome := store.SubmitQuery(ctx, sq.Query, true, sq.Source, cfg.Backend.UseLangGraph)
		if outcome.Kind == types.OutcomeSuccess {
			slog.Info("scheduled query ran", "schedule", sq.Name)
		} else {
			slog.Error("scheduled query failed",
				"schedule", sq.Name, "error", outcome.ErrorMessage())
		}
	})
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started")

	// Read-only dashboard API
	if cfg.HTTP.Enabled {
		srv := dashboard.NewServer(store, hist)
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: srv,
		}
		go func() {
			slog.Info("dashboard server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("dashboard server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
