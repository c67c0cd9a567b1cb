package watch

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
	"github.com/dgnsrekt/tv_tracker/internal/msg"
)

// HubSink delivers tracker output to the hub over the message channel.
type HubSink struct {
	client *msg.Client
}

func NewHubSink(client *msg.Client) *HubSink {
	return &HubSink{client: client}
}

func (s *HubSink) Alive() bool {
	return s.client.Alive()
}

func (s *HubSink) LogActivity(e activity.Event) {
	s.client.Send(msg.Envelope{Type: msg.TypeLogActivity, Entry: &e})
}

func (s *HubSink) ReportSession(r activity.SessionReport) {
	s.client.Send(msg.Envelope{Type: msg.TypeSessionReport, Report: &r})
}

// screenshotter is the slice of Watcher the capture path needs.
type screenshotter interface {
	Screenshot() ([]byte, error)
}

// ShotCapture implements the tracker's screenshot hook: grab the page,
// ship it to the hub, hand the filename back for the log entry. The
// watcher is attached after construction because the tracker is built
// first.
type ShotCapture struct {
	client  *msg.Client
	shooter screenshotter
}

func NewShotCapture(client *msg.Client) *ShotCapture {
	return &ShotCapture{client: client}
}

// Attach sets the screenshot source. Capture is a no-op until then.
func (c *ShotCapture) Attach(shooter screenshotter) {
	c.shooter = shooter
}

// Capture takes and ships one screenshot, returning its filename or ""
// when capture failed. Failures only cost the screenshot, never the entry.
func (c *ShotCapture) Capture(symbol, tool, price string) string {
	if c.shooter == nil {
		return ""
	}
	data, err := c.shooter.Screenshot()
	if err != nil {
		slog.Debug("screenshot capture failed", "symbol", symbol, "error", err)
		return ""
	}

	now := time.Now()
	filename := fmt.Sprintf("%s_%s.png", sanitizeName(symbol), now.Format("20060102_150405"))
	c.client.Send(msg.Envelope{Type: msg.TypeSaveScreenshot, Screenshot: &msg.Screenshot{
		Symbol:   symbol,
		Filename: filename,
		Tool:     tool,
		Price:    price,
		TakenAt:  now,
		Data:     data,
	}})
	return filename
}

// sanitizeName keeps filenames portable; exchange prefixes like "BIST:"
// contain a colon.
func sanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
