package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

// MemoryFile persists per-symbol memory (last seen price, note) as a single
// JSON object file. The watcher and the hub share the file through the data
// directory: the hub writes notes through its API, the watcher writes last
// views and reloads on change via fsnotify.
type MemoryFile struct {
	path string

	mu          sync.RWMutex
	symbols     map[string]activity.SymbolMemory
	ignoreUntil time.Time
}

// NewMemoryFile loads symbol memory from path; a missing or malformed file
// starts empty.
func NewMemoryFile(path string) (*MemoryFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("memory file: mkdir: %w", err)
	}

	m := &MemoryFile{path: path, symbols: make(map[string]activity.SymbolMemory)}
	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *MemoryFile) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("memory file: read: %w", err)
	}

	symbols := make(map[string]activity.SymbolMemory)
	if err := json.Unmarshal(data, &symbols); err != nil {
		slog.Warn("symbol memory corrupt, starting empty", "path", m.path, "error", err)
		return nil
	}
	m.symbols = symbols
	return nil
}

// Memory returns the stored memory for symbol.
func (m *MemoryFile) Memory(symbol string) (activity.SymbolMemory, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.symbols[symbol]
	return mem, ok
}

// SetMemory stores the memory for symbol and persists. Write failures are
// logged, not returned; tracking must not stall on a full disk.
func (m *MemoryFile) SetMemory(symbol string, mem activity.SymbolMemory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.symbols[symbol] = mem
	if err := m.persist(); err != nil {
		slog.Error("symbol memory persist failed", "error", err)
	}
}

// SetNote attaches a note to symbol, creating the memory entry if needed.
// An empty note removes it.
func (m *MemoryFile) SetNote(symbol, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem := m.symbols[symbol]
	mem.Note = note
	m.symbols[symbol] = mem
	return m.persist()
}

// All returns a copy of every symbol's memory.
func (m *MemoryFile) All() map[string]activity.SymbolMemory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]activity.SymbolMemory, len(m.symbols))
	for k, v := range m.symbols {
		out[k] = v
	}
	return out
}

// Watch reloads the file when another process rewrites it. Blocks until ctx
// is done; run it in its own goroutine.
func (m *MemoryFile) Watch(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("memory file: watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and atomic writers replace the file,
	// which would silently drop a watch on the path itself.
	if err := watcher.Add(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("memory file: watch: %w", err)
	}

	for {
		select {
		case <-done:
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Name != m.path || !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			m.mu.Lock()
			if time.Now().Before(m.ignoreUntil) {
				m.mu.Unlock()
				continue
			}
			if err := m.load(); err != nil {
				slog.Warn("symbol memory reload failed", "error", err)
			} else {
				slog.Debug("symbol memory reloaded", "symbols", len(m.symbols))
			}
			m.mu.Unlock()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("memory file watch error", "error", err)
		}
	}
}

// persist is called with the lock held. Own writes are masked from the
// watcher for a beat so they do not trigger a useless reload.
func (m *MemoryFile) persist() error {
	data, err := json.MarshalIndent(m.symbols, "", "  ")
	if err != nil {
		return fmt.Errorf("memory file: marshal: %w", err)
	}
	m.ignoreUntil = time.Now().Add(500 * time.Millisecond)
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("memory file: write: %w", err)
	}
	return nil
}
