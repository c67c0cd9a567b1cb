package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/tv_tracker/internal/api"
	"github.com/dgnsrekt/tv_tracker/internal/bus"
	"github.com/dgnsrekt/tv_tracker/internal/config"
	"github.com/dgnsrekt/tv_tracker/internal/hub"
	"github.com/dgnsrekt/tv_tracker/internal/netutil"
	"github.com/dgnsrekt/tv_tracker/internal/storage"
)

func main() {
	cfg, err := config.LoadHub()
	if err != nil {
		slog.Error("failed to load hub config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	slog.Info("hub config loaded",
		"bind_addr", cfg.BindAddr,
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	logs, err := storage.NewLogStore(filepath.Join(cfg.DataDir, "activity.json"))
	if err != nil {
		slog.Error("failed to open activity log", "error", err)
		os.Exit(1)
	}
	reports, err := storage.NewReportStore(filepath.Join(cfg.DataDir, "reports.json"))
	if err != nil {
		slog.Error("failed to open report store", "error", err)
		os.Exit(1)
	}
	memory, err := storage.NewMemoryFile(filepath.Join(cfg.DataDir, "memory.json"))
	if err != nil {
		slog.Error("failed to open symbol memory", "error", err)
		os.Exit(1)
	}
	shots, err := storage.NewShotStore(filepath.Join(cfg.DataDir, "screenshots"))
	if err != nil {
		slog.Error("failed to open screenshot store", "error", err)
		os.Exit(1)
	}

	archiveDir := filepath.Join(cfg.DataDir, "archive")
	entryArchive := storage.NewArchive(archiveDir, "entries", 256, cfg.ArchiveSizeMB)
	reportArchive := storage.NewArchive(archiveDir, "reports", 64, cfg.ArchiveSizeMB)
	defer func() {
		_ = entryArchive.Close()
		_ = reportArchive.Close()
	}()

	broker := bus.NewBroker()
	svc := hub.NewService(logs, reports, memory, shots, broker, entryArchive, reportArchive)

	router := http.NewServeMux()
	router.HandleFunc("/ws", svc.HandleWS)
	router.Handle("/", api.NewServer(svc))

	srv := &http.Server{Addr: bindAddr, Handler: router}

	go func() {
		slog.Info("hub listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("hub server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("hub shutdown failed", "error", err)
	}
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
