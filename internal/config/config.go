// Package config reads both binaries' settings from environment variables,
// with an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Detection timing. One consistent set, shared by every deployment.
const (
	// PollInterval is how often the watcher snapshots the page for symbol
	// and price changes.
	PollInterval = 2 * time.Second
	// InitDelay is how long the watcher waits after attach before the
	// first snapshot, so the page can settle.
	InitDelay = 3 * time.Second
	// LogInterval is the global debounce between accepted log entries.
	LogInterval = 750 * time.Millisecond
	// PointerSettle is how long the page script waits after a pointer
	// release before reporting it, so late DOM mutations win.
	PointerSettle = 250 * time.Millisecond
)

// WatcherConfig holds configuration for the page watcher binary.
type WatcherConfig struct {
	CDPAddress    string
	CDPPort       int
	TabURLFilter  string
	HubWSURL      string
	DataDir       string
	LaunchBrowser bool
	StartURL      string
	LogLevel      string
	LogFile       string
}

// LoadWatcher reads watcher configuration from environment variables and an
// optional .env file.
func LoadWatcher() (*WatcherConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &WatcherConfig{
		CDPAddress:    getEnvOrDefault("CHROMIUM_CDP_ADDRESS", "127.0.0.1"),
		CDPPort:       getEnvIntOrDefault("CHROMIUM_CDP_PORT", 9220),
		TabURLFilter:  getEnvOrDefault("WATCHER_TAB_URL_FILTER", "tradingview.com"),
		HubWSURL:      getEnvOrDefault("WATCHER_HUB_WS_URL", "ws://127.0.0.1:8188/ws"),
		DataDir:       getEnvOrDefault("TRACKER_DATA_DIR", "./tracker_data"),
		LaunchBrowser: getEnvBoolOrDefault("WATCHER_LAUNCH_BROWSER", false),
		StartURL:      getEnvOrDefault("WATCHER_START_URL", "https://www.tradingview.com/chart/"),
		LogLevel:      strings.ToLower(getEnvOrDefault("WATCHER_LOG_LEVEL", "info")),
		LogFile:       getEnvOrDefault("WATCHER_LOG_FILE", "logs/tv_watcher.log"),
	}
	return cfg, nil
}

// CDPURL returns the CDP HTTP endpoint used by the chromedp remote
// allocator.
func (c *WatcherConfig) CDPURL() string {
	return fmt.Sprintf("http://%s:%d", c.CDPAddress, c.CDPPort)
}

// HubConfig holds configuration for the hub binary.
type HubConfig struct {
	BindAddr         string
	PortCandidates   []string
	PortAutoFallback bool
	DataDir          string
	ArchiveSizeMB    int
	LogLevel         string
	LogFile          string
}

// LoadHub reads hub configuration from environment variables and an
// optional .env file.
func LoadHub() (*HubConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := &HubConfig{
		BindAddr:         getEnvOrDefault("HUB_BIND_ADDR", "127.0.0.1:8188"),
		PortAutoFallback: getEnvBoolOrDefault("HUB_PORT_AUTO_FALLBACK", true),
		DataDir:          getEnvOrDefault("TRACKER_DATA_DIR", "./tracker_data"),
		ArchiveSizeMB:    getEnvIntOrDefault("HUB_ARCHIVE_MAX_SIZE_MB", 50),
		LogLevel:         strings.ToLower(getEnvOrDefault("HUB_LOG_LEVEL", "info")),
		LogFile:          getEnvOrDefault("HUB_LOG_FILE", "logs/tv_hub.log"),
	}
	for _, addr := range strings.Split(getEnvOrDefault("HUB_PORT_CANDIDATES", "127.0.0.1:8189,127.0.0.1:8190"), ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			cfg.PortCandidates = append(cfg.PortCandidates, addr)
		}
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
