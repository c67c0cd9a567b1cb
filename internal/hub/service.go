// Package hub receives watcher traffic, persists it, and serves it back
// through the HTTP API and the SSE bus.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
	"github.com/dgnsrekt/tv_tracker/internal/bus"
	"github.com/dgnsrekt/tv_tracker/internal/export"
	"github.com/dgnsrekt/tv_tracker/internal/msg"
	"github.com/dgnsrekt/tv_tracker/internal/storage"
)

const stateTimeout = 3 * time.Second

// State is the hub's aggregate status answer.
type State struct {
	WatcherConnected bool       `json:"watcher_connected"`
	WatcherSince     *time.Time `json:"watcher_since,omitempty"`
	LogCount         int        `json:"log_count"`
	ReportCount      int        `json:"report_count"`
	SSEClients       int        `json:"sse_clients"`
	Watcher          *msg.State `json:"watcher,omitempty"`
}

// Service owns all hub-side state. One watcher connection at a time; a new
// watcher replaces a stale one.
type Service struct {
	logs    *storage.LogStore
	reports *storage.ReportStore
	memory  *storage.MemoryFile
	shots   *storage.ShotStore
	broker  *bus.Broker

	entryArchive  *storage.Archive
	reportArchive *storage.Archive

	mu           sync.Mutex
	watcher      net.Conn
	watcherSince time.Time
	stateWaiters []chan msg.State
}

// NewService wires the hub. Archives may be nil to disable the JSONL
// history.
func NewService(logs *storage.LogStore, reports *storage.ReportStore, memory *storage.MemoryFile, shots *storage.ShotStore, broker *bus.Broker, entryArchive, reportArchive *storage.Archive) *Service {
	return &Service{
		logs:          logs,
		reports:       reports,
		memory:        memory,
		shots:         shots,
		broker:        broker,
		entryArchive:  entryArchive,
		reportArchive: reportArchive,
	}
}

// Broker exposes the fanout for the SSE endpoint.
func (s *Service) Broker() *bus.Broker { return s.broker }

// HandleWS upgrades the watcher connection and serves it until it drops.
func (s *Service) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		slog.Warn("watcher upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.mu.Lock()
	if s.watcher != nil {
		slog.Warn("replacing existing watcher connection", "remote", r.RemoteAddr)
		s.watcher.Close()
	}
	s.watcher = conn
	s.watcherSince = time.Now()
	s.mu.Unlock()

	slog.Info("watcher connected", "remote", r.RemoteAddr)
	s.publish(bus.KindWatcherOnline, `{}`)

	go s.readLoop(conn)
}

func (s *Service) readLoop(conn net.Conn) {
	defer func() {
		s.mu.Lock()
		if s.watcher == conn {
			s.watcher = nil
		}
		s.mu.Unlock()
		conn.Close()
		slog.Info("watcher disconnected")
		s.publish(bus.KindWatcherOffline, `{}`)
	}()

	for {
		data, err := wsutil.ReadClientText(conn)
		if err != nil {
			return
		}

		var env msg.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			slog.Warn("bad frame from watcher", "error", err)
			continue
		}
		s.dispatch(env)
	}
}

func (s *Service) dispatch(env msg.Envelope) {
	switch env.Type {
	case msg.TypeLogActivity:
		if env.Entry == nil {
			return
		}
		if err := s.logs.Add(*env.Entry); err != nil {
			slog.Error("entry persist failed", "error", err)
		}
		if s.entryArchive != nil {
			s.entryArchive.Append(env.Entry)
		}
		s.publishJSON(bus.KindEntry, env.Entry)

	case msg.TypeSessionReport:
		if env.Report == nil {
			return
		}
		if err := s.reports.Add(*env.Report); err != nil {
			slog.Error("report persist failed", "error", err)
		}
		if s.reportArchive != nil {
			s.reportArchive.Append(env.Report)
		}
		s.publishJSON(bus.KindReport, env.Report)

	case msg.TypeSaveScreenshot:
		if env.Screenshot == nil {
			return
		}
		s.saveScreenshot(*env.Screenshot)

	case msg.TypeState:
		if env.State == nil {
			return
		}
		s.deliverState(*env.State)

	default:
		slog.Debug("unknown frame from watcher", "type", env.Type)
	}
}

func (s *Service) saveScreenshot(shot msg.Screenshot) {
	meta := storage.ShotMeta{
		ID:      uuid.NewString(),
		Symbol:  shot.Symbol,
		Tool:    shot.Tool,
		Price:   shot.Price,
		Format:  "png",
		TakenAt: shot.TakenAt,
	}
	if err := s.shots.Save(meta, shot.Data); err != nil {
		slog.Error("screenshot save failed", "symbol", shot.Symbol, "error", err)
		return
	}
	s.publishJSON(bus.KindScreenshot, meta)
}

func (s *Service) deliverState(state msg.State) {
	s.mu.Lock()
	waiters := s.stateWaiters
	s.stateWaiters = nil
	s.mu.Unlock()
	for _, ch := range waiters {
		ch <- state
	}
}

// sendToWatcher delivers one envelope to the connected watcher.
func (s *Service) sendToWatcher(env msg.Envelope) error {
	s.mu.Lock()
	conn := s.watcher
	s.mu.Unlock()
	if conn == nil {
		return newError(CodeWatcherOffline, "no watcher connected", nil)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("hub: marshal: %w", err)
	}
	if err := wsutil.WriteServerText(conn, data); err != nil {
		return newError(CodeWatcherOffline, "watcher send failed", err)
	}
	return nil
}

func (s *Service) publish(kind, payload string) {
	s.broker.Publish(bus.Event{Kind: kind, Payload: payload})
}

func (s *Service) publishJSON(kind string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("bus payload marshal failed", "kind", kind, "error", err)
		return
	}
	s.publish(kind, string(data))
}

// ListLogs returns recent entries, newest first.
func (s *Service) ListLogs(ctx context.Context, symbol string, kind string, limit int) ([]activity.Event, error) {
	f := storage.LogFilter{Symbol: symbol, Limit: limit}
	if kind != "" {
		k, ok := activity.ParseKind(kind)
		if !ok {
			return nil, newError(CodeValidation, fmt.Sprintf("unknown entry kind %q", kind), nil)
		}
		f.Kind = k
	}
	return s.logs.List(f), nil
}

// ClearLogs wipes the retained activity log. The archive is untouched.
func (s *Service) ClearLogs(ctx context.Context) error {
	if err := s.logs.Clear(); err != nil {
		return newError(CodeStorageFailure, "clear activity log", err)
	}
	return nil
}

// ListReports returns session reports, newest first.
func (s *Service) ListReports(ctx context.Context, symbol string) ([]activity.SessionReport, error) {
	return s.reports.List(symbol), nil
}

// GetReport returns one report by ID.
func (s *Service) GetReport(ctx context.Context, id string) (activity.SessionReport, error) {
	r, ok := s.reports.Get(id)
	if !ok {
		return activity.SessionReport{}, newError(CodeNotFound, fmt.Sprintf("report not found: %s", id), nil)
	}
	return r, nil
}

// ForceReport asks the watcher to close and report its active session.
func (s *Service) ForceReport(ctx context.Context) error {
	return s.sendToWatcher(msg.Envelope{Type: msg.TypeForceReport})
}

// ExportCSV renders the retained log chronologically.
func (s *Service) ExportCSV(ctx context.Context) ([]byte, error) {
	data, err := export.CSV(s.logs.All())
	if err == export.ErrNoData {
		return nil, newError(CodeNoData, "no data to export", err)
	}
	return data, err
}

// ExportMarkdown renders the retained reports chronologically.
func (s *Service) ExportMarkdown(ctx context.Context) ([]byte, error) {
	reports := s.reports.List("")
	// List is newest first; exports read better oldest first.
	for i, j := 0, len(reports)-1; i < j; i, j = i+1, j-1 {
		reports[i], reports[j] = reports[j], reports[i]
	}
	data, err := export.Markdown(reports)
	if err == export.ErrNoData {
		return nil, newError(CodeNoData, "no data to export", err)
	}
	return data, err
}

// GetMemory returns the stored memory for a symbol.
func (s *Service) GetMemory(ctx context.Context, symbol string) (activity.SymbolMemory, error) {
	mem, ok := s.memory.Memory(symbol)
	if !ok {
		return activity.SymbolMemory{}, newError(CodeNotFound, fmt.Sprintf("no memory for symbol %s", symbol), nil)
	}
	return mem, nil
}

// GetNote returns the note attached to a symbol.
func (s *Service) GetNote(ctx context.Context, symbol string) (string, error) {
	mem, ok := s.memory.Memory(symbol)
	if !ok || mem.Note == "" {
		return "", newError(CodeNotFound, fmt.Sprintf("no note for symbol %s", symbol), nil)
	}
	return mem.Note, nil
}

// SetNote attaches a note to a symbol.
func (s *Service) SetNote(ctx context.Context, symbol, note string) error {
	if symbol == "" {
		return newError(CodeValidation, "symbol required", nil)
	}
	if err := s.memory.SetNote(symbol, note); err != nil {
		return newError(CodeStorageFailure, "save note", err)
	}
	return nil
}

// DeleteNote removes a symbol's note.
func (s *Service) DeleteNote(ctx context.Context, symbol string) error {
	if err := s.memory.SetNote(symbol, ""); err != nil {
		return newError(CodeStorageFailure, "delete note", err)
	}
	return nil
}

// ListScreenshots returns screenshot metadata, optionally per symbol.
func (s *Service) ListScreenshots(ctx context.Context, symbol string) ([]storage.ShotMeta, error) {
	return s.shots.List(symbol)
}

// ReadScreenshot returns the raw image bytes and format for an ID.
func (s *Service) ReadScreenshot(ctx context.Context, id string) ([]byte, string, error) {
	data, format, err := s.shots.ReadImage(id)
	if err != nil {
		return nil, "", newError(CodeNotFound, err.Error(), nil)
	}
	return data, format, nil
}

// GetState reports hub status plus, when a watcher is connected, the
// watcher's own state fetched over the message channel.
func (s *Service) GetState(ctx context.Context) (State, error) {
	s.mu.Lock()
	connected := s.watcher != nil
	since := s.watcherSince
	s.mu.Unlock()

	state := State{
		WatcherConnected: connected,
		LogCount:         s.logs.Len(),
		ReportCount:      s.reports.Len(),
		SSEClients:       s.broker.ClientCount(),
	}
	if !connected {
		return state, nil
	}
	state.WatcherSince = &since

	ch := make(chan msg.State, 1)
	s.mu.Lock()
	s.stateWaiters = append(s.stateWaiters, ch)
	s.mu.Unlock()

	if err := s.sendToWatcher(msg.Envelope{Type: msg.TypeGetState}); err != nil {
		return state, nil
	}

	select {
	case st := <-ch:
		state.Watcher = &st
	case <-time.After(stateTimeout):
		slog.Debug("watcher state timed out")
	case <-ctx.Done():
	}
	return state, nil
}
