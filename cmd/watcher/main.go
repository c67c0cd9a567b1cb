package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/tv_tracker/internal/browser"
	"github.com/dgnsrekt/tv_tracker/internal/config"
	"github.com/dgnsrekt/tv_tracker/internal/msg"
	"github.com/dgnsrekt/tv_tracker/internal/storage"
	"github.com/dgnsrekt/tv_tracker/internal/track"
	"github.com/dgnsrekt/tv_tracker/internal/watch"
)

func main() {
	cfg, err := config.LoadWatcher()
	if err != nil {
		slog.Error("failed to load watcher config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("watcher config loaded",
		"cdp_url", cfg.CDPURL(),
		"tab_filter", cfg.TabURLFilter,
		"hub_ws_url", cfg.HubWSURL,
		"data_dir", cfg.DataDir,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.LaunchBrowser {
		launcher := browser.NewLauncher(browser.Config{
			CDPAddress: cfg.CDPAddress,
			CDPPort:    cfg.CDPPort,
			StartURL:   cfg.StartURL,
			ProfileDir: filepath.Join(cfg.DataDir, "browser_profile"),
			LogFileDir: filepath.Join(cfg.DataDir, "browser_logs"),
		})
		if err := launcher.Launch(ctx); err != nil {
			slog.Error("failed to launch browser", "error", err)
			os.Exit(1)
		}
		defer launcher.Stop()
	}

	memory, err := storage.NewMemoryFile(filepath.Join(cfg.DataDir, "memory.json"))
	if err != nil {
		slog.Error("failed to open symbol memory", "error", err)
		os.Exit(1)
	}
	memoryDone := make(chan struct{})
	defer close(memoryDone)
	go func() {
		if err := memory.Watch(memoryDone); err != nil {
			slog.Warn("symbol memory watch stopped", "error", err)
		}
	}()

	client := msg.NewClient(cfg.HubWSURL)
	defer client.Close()

	startedAt := time.Now().UTC()
	shots := watch.NewShotCapture(client)
	tracker := track.NewTracker(watch.NewHubSink(client), memory, shots, config.LogInterval, nil)
	watcher := watch.NewWatcher(cfg, tracker)
	shots.Attach(watcher)

	client.OnForceReport = watcher.ForceFlush
	client.StateFn = func() msg.State {
		st := tracker.Status()
		return msg.State{
			Symbol:        st.Symbol,
			SessionActive: st.SessionActive,
			DrawingCount:  st.DrawingCount,
			ConnectedAt:   startedAt,
		}
	}
	go client.Run(ctx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	watcher.Run(ctx)
	slog.Info("watcher stopped")
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
