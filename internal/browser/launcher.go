package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"
)

const (
	cdpReadyTimeout = 15 * time.Second
	cdpPollInterval = 250 * time.Millisecond
	stopGracePeriod = 5 * time.Second
)

// Config holds the launch parameters for a debugging-enabled browser.
type Config struct {
	CDPAddress string
	CDPPort    int
	StartURL   string
	ProfileDir string
	LogFileDir string
	WindowSize string
}

// Launcher owns an optional local browser process. When the configured CDP
// port is already serving, Launch is a no-op and the watcher attaches to the
// existing browser instead.
type Launcher struct {
	cfg     Config
	cmd     *exec.Cmd
	spawned bool
}

func NewLauncher(cfg Config) *Launcher {
	if cfg.WindowSize == "" {
		cfg.WindowSize = "1920,1080"
	}
	return &Launcher{cfg: cfg}
}

func findBrowser() (string, error) {
	for _, name := range []string{"chromium-browser", "chromium", "google-chrome"} {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		macPath := "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
		if _, err := os.Stat(macPath); err == nil {
			return macPath, nil
		}
	}
	return "", fmt.Errorf("no chromium or chrome binary found on PATH")
}

func portListening(address string, port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("%s:%d", address, port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Launch starts a browser with remote debugging enabled, pointed at the
// configured start URL, and blocks until the CDP endpoint answers.
func (l *Launcher) Launch(ctx context.Context) error {
	if portListening(l.cfg.CDPAddress, l.cfg.CDPPort) {
		slog.Info("browser already serving CDP, attaching to it",
			"address", l.cfg.CDPAddress, "port", l.cfg.CDPPort)
		return nil
	}

	browserPath, err := findBrowser()
	if err != nil {
		return err
	}

	for _, dir := range []string{l.cfg.ProfileDir, l.cfg.LogFileDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	args := []string{
		fmt.Sprintf("--remote-debugging-port=%d", l.cfg.CDPPort),
		fmt.Sprintf("--remote-debugging-address=%s", l.cfg.CDPAddress),
		fmt.Sprintf("--user-data-dir=%s", l.cfg.ProfileDir),
		fmt.Sprintf("--window-size=%s", l.cfg.WindowSize),
		"--no-first-run",
		"--no-default-browser-check",
		"--disable-session-crashed-bubble",
		"--disable-dev-shm-usage",
	}
	if l.cfg.StartURL != "" {
		args = append(args, l.cfg.StartURL)
	}

	l.cmd = exec.Command(browserPath, args...)
	l.cmd.Stdout = os.Stdout
	l.cmd.Stderr = os.Stderr

	if err := l.cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", browserPath, err)
	}
	l.spawned = true
	slog.Info("browser launched", "path", browserPath, "pid", l.cmd.Process.Pid)

	if err := l.awaitDebugger(ctx); err != nil {
		l.Stop()
		return err
	}
	return nil
}

// awaitDebugger polls /json/version until the debugging endpoint responds.
func (l *Launcher) awaitDebugger(ctx context.Context) error {
	url := fmt.Sprintf("http://%s:%d/json/version", l.cfg.CDPAddress, l.cfg.CDPPort)
	deadline := time.After(cdpReadyTimeout)
	ticker := time.NewTicker(cdpPollInterval)
	defer ticker.Stop()

	client := &http.Client{Timeout: time.Second}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("CDP endpoint %s not ready after %s", url, cdpReadyTimeout)
		case <-ticker.C:
			resp, err := client.Get(url)
			if err != nil {
				continue
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				slog.Info("CDP endpoint ready", "url", url)
				return nil
			}
		}
	}
}

// Running reports whether Launch spawned a browser process of its own.
func (l *Launcher) Running() bool {
	return l.spawned
}

// Stop terminates a spawned browser, escalating from SIGTERM to SIGKILL.
// Browsers the launcher merely attached to are left alone.
func (l *Launcher) Stop() {
	if !l.spawned || l.cmd == nil || l.cmd.Process == nil {
		return
	}
	slog.Info("stopping browser", "pid", l.cmd.Process.Pid)
	_ = l.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_ = l.cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(stopGracePeriod):
		slog.Warn("browser ignored SIGTERM, killing", "pid", l.cmd.Process.Pid)
		_ = l.cmd.Process.Kill()
		<-done
	}
	l.spawned = false
}
