// Package watch attaches to a running browser over CDP and feeds page
// observations into the detection core.
package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"github.com/dgnsrekt/tv_tracker/internal/config"
	"github.com/dgnsrekt/tv_tracker/internal/detect"
	"github.com/dgnsrekt/tv_tracker/internal/track"
)

const (
	reattachDelay   = 5 * time.Second
	evalTimeout     = 5 * time.Second
	eventBufferSize = 64
)

// pageEvent is the decoded payload of one binding call from the page.
type pageEvent struct {
	Type    string        `json:"type"`
	Added   []detect.Node `json:"added"`
	Removed []detect.Node `json:"removed"`
	Cursor  string        `json:"cursor"`
	Visible bool          `json:"visible"`
}

// Watcher owns the CDP attachment and the single-threaded event loop that
// drives the tracker. All page failures degrade to missed detections, never
// to errors reaching the caller.
type Watcher struct {
	cfg     *config.WatcherConfig
	tracker *track.Tracker

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc

	events chan pageEvent
}

// NewWatcher creates a watcher for the configured browser and tab filter.
func NewWatcher(cfg *config.WatcherConfig, tracker *track.Tracker) *Watcher {
	return &Watcher{
		cfg:     cfg,
		tracker: tracker,
		events:  make(chan pageEvent, eventBufferSize),
	}
}

// Run attaches and processes page events until ctx is cancelled, reattaching
// whenever the tab or browser goes away. Blocks.
func (w *Watcher) Run(ctx context.Context) {
	for {
		if err := w.attach(ctx); err != nil {
			slog.Warn("attach failed", "error", err)
		} else {
			w.loop(ctx)
			w.flush()
		}
		w.detach()

		select {
		case <-ctx.Done():
			return
		case <-time.After(reattachDelay):
		}
	}
}

// attach connects to the browser, picks the first matching chart tab, and
// installs the page script and binding.
func (w *Watcher) attach(ctx context.Context) error {
	w.allocCtx, w.allocCancel = chromedp.NewRemoteAllocator(context.Background(), w.cfg.CDPURL())

	tempCtx, tempCancel := chromedp.NewContext(w.allocCtx)
	defer tempCancel()
	if err := chromedp.Run(tempCtx); err != nil {
		return fmt.Errorf("connect browser: %w", err)
	}

	targets, err := chromedp.Targets(tempCtx)
	if err != nil {
		return fmt.Errorf("enumerate targets: %w", err)
	}

	var tab *target.Info
	for _, t := range targets {
		if t.Type == "page" && w.matchesTabURL(t.URL) {
			tab = t
			break
		}
	}
	if tab == nil {
		return fmt.Errorf("no tab matching %q", w.cfg.TabURLFilter)
	}

	w.tabCtx, w.tabCancel = chromedp.NewContext(w.allocCtx, chromedp.WithTargetID(tab.TargetID))

	err = chromedp.Run(w.tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := runtime.AddBinding(bindingName).Do(ctx); err != nil {
				return err
			}
			// Survive SPA reloads and full navigations.
			_, err := page.AddScriptToEvaluateOnNewDocument(bootstrapJS).Do(ctx)
			return err
		}),
		chromedp.Evaluate(bootstrapJS, nil),
	)
	if err != nil {
		return fmt.Errorf("install page script: %w", err)
	}

	chromedp.ListenTarget(w.tabCtx, w.onTargetEvent)
	slog.Info("attached to chart tab", "target_id", tab.TargetID, "url", truncateURL(tab.URL))
	return nil
}

// onTargetEvent forwards binding calls into the event channel. Never blocks
// the CDP event goroutine; overflow drops the batch.
func (w *Watcher) onTargetEvent(ev any) {
	bc, ok := ev.(*runtime.EventBindingCalled)
	if !ok || bc.Name != bindingName {
		return
	}

	var pe pageEvent
	if err := json.Unmarshal([]byte(bc.Payload), &pe); err != nil {
		slog.Debug("bad page event payload", "error", err)
		return
	}

	select {
	case w.events <- pe:
	default:
		slog.Debug("page event dropped, buffer full", "type", pe.Type)
	}
}

// loop is the single goroutine that touches the tracker.
func (w *Watcher) loop(ctx context.Context) {
	select {
	case <-time.After(config.InitDelay):
	case <-ctx.Done():
		return
	case <-w.tabCtx.Done():
		return
	}

	ticker := time.NewTicker(config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.tabCtx.Done():
			slog.Warn("chart tab went away")
			return
		case <-ticker.C:
			if snap, err := w.snapshot(); err == nil {
				w.tracker.OnTick(snap)
			} else {
				slog.Debug("snapshot failed", "error", err)
			}
		case pe := <-w.events:
			w.handleEvent(pe)
		}
	}
}

func (w *Watcher) handleEvent(pe pageEvent) {
	switch pe.Type {
	case "mutations":
		snap, err := w.snapshot()
		if err != nil {
			return
		}
		w.tracker.OnChangeBatch(snap, detect.ChangeBatch{Added: pe.Added, Removed: pe.Removed})
	case "pointerdown":
		w.tracker.OnPointerDown(pe.Cursor)
	case "pointerup":
		snap, err := w.snapshot()
		if err != nil {
			snap = detect.PageSnapshot{CursorStyle: pe.Cursor}
		}
		w.tracker.OnPointerUp(snap)
	case "visibility":
		snap, _ := w.snapshot()
		w.tracker.OnVisibility(snap, pe.Visible)
	case "flush":
		snap, _ := w.snapshot()
		w.tracker.Flush(snap)
	default:
		slog.Debug("unknown page event", "type", pe.Type)
	}
}

// snapshot evaluates the probe script and decodes the result.
func (w *Watcher) snapshot() (detect.PageSnapshot, error) {
	if w.tabCtx == nil {
		return detect.PageSnapshot{}, errors.New("not attached")
	}
	ctx, cancel := context.WithTimeout(w.tabCtx, evalTimeout)
	defer cancel()

	var raw string
	if err := chromedp.Run(ctx, chromedp.Evaluate(probeJS, &raw)); err != nil {
		return detect.PageSnapshot{}, err
	}
	var snap detect.PageSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return detect.PageSnapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, nil
}

// Screenshot captures the visible page as PNG.
func (w *Watcher) Screenshot() ([]byte, error) {
	if w.tabCtx == nil {
		return nil, errors.New("not attached")
	}
	ctx, cancel := context.WithTimeout(w.tabCtx, evalTimeout)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// ForceFlush closes the active session on demand, from the hub's
// FORCE_REPORT request. Runs on the caller's goroutine; the tracker call is
// funneled through the event channel to stay single-threaded.
func (w *Watcher) ForceFlush() {
	select {
	case w.events <- pageEvent{Type: "flush"}:
	default:
	}
}

func (w *Watcher) flush() {
	snap, _ := w.snapshot()
	w.tracker.Flush(snap)
}

func (w *Watcher) detach() {
	if w.tabCancel != nil {
		w.tabCancel()
		w.tabCancel = nil
		w.tabCtx = nil
	}
	if w.allocCancel != nil {
		w.allocCancel()
		w.allocCancel = nil
	}
}

func (w *Watcher) matchesTabURL(url string) bool {
	if w.cfg.TabURLFilter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(url), strings.ToLower(w.cfg.TabURLFilter))
}

func truncateURL(url string) string {
	if len(url) > 120 {
		return url[:120] + "..."
	}
	return url
}
