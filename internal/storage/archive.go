package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Archive appends every entry and report to date-organized JSONL files.
// The capped stores above serve the API; the archive is the full history
// and is never read back by the hub.
type Archive struct {
	baseDir   string
	stream    string
	maxSizeMB int

	writeCh chan any
	done    chan struct{}
	wg      sync.WaitGroup

	mu          sync.Mutex
	currentDate string
	out         *lumberjack.Logger
}

// NewArchive starts an async archive writer for one stream, e.g. "entries"
// or "reports". Records land under baseDir/<date>/<stream>.jsonl.
func NewArchive(baseDir, stream string, bufferSize, maxSizeMB int) *Archive {
	a := &Archive{
		baseDir:   baseDir,
		stream:    stream,
		maxSizeMB: maxSizeMB,
		writeCh:   make(chan any, bufferSize),
		done:      make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writeLoop()
	return a
}

// Append queues a record. Never blocks; a full buffer drops the record
// with a warning.
func (a *Archive) Append(record any) {
	select {
	case a.writeCh <- record:
	case <-a.done:
	default:
		slog.Warn("archive buffer full, dropping record", "stream", a.stream)
	}
}

// Close flushes pending records and closes the file.
func (a *Archive) Close() error {
	close(a.done)

	timeout := time.After(5 * time.Second)
drain:
	for {
		select {
		case record := <-a.writeCh:
			a.writeRecord(record)
		case <-timeout:
			slog.Warn("archive close timeout, records may be lost", "stream", a.stream)
			break drain
		default:
			break drain
		}
	}
	a.wg.Wait()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.out != nil {
		return a.out.Close()
	}
	return nil
}

func (a *Archive) writeLoop() {
	defer a.wg.Done()
	for {
		select {
		case record := <-a.writeCh:
			a.writeRecord(record)
		case <-a.done:
			return
		}
	}
}

func (a *Archive) writeRecord(record any) {
	data, err := json.Marshal(record)
	if err != nil {
		slog.Error("archive marshal failed", "stream", a.stream, "error", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	date := time.Now().UTC().Format("2006-01-02")
	if date != a.currentDate || a.out == nil {
		a.rotateForDate(date)
	}
	if a.out == nil {
		return
	}

	if _, err := a.out.Write(append(data, '\n')); err != nil {
		slog.Error("archive write failed", "stream", a.stream, "error", err)
	}
}

func (a *Archive) rotateForDate(date string) {
	if a.out != nil {
		a.out.Close()
	}

	dir := filepath.Join(a.baseDir, date)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("archive mkdir failed", "dir", dir, "error", err)
		a.out = nil
		return
	}

	filename := filepath.Join(dir, fmt.Sprintf("%s.jsonl", a.stream))
	a.out = &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    a.maxSizeMB,
		MaxBackups: 100,
		MaxAge:     30,
		LocalTime:  false,
	}
	a.currentDate = date
	slog.Info("archive file opened", "file", filename)
}
