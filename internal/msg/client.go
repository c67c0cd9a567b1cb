package msg

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

const redialInterval = 5 * time.Second

// Client is the watcher side of the hub connection. Delivery is fire and
// forget: a frame that cannot be sent is logged and dropped, and the client
// redials in the background until its context is cancelled. Alive gates the
// detection core, so entries produced while the hub is down are suppressed
// rather than queued.
type Client struct {
	url string

	// Hub-initiated requests. Both may be nil.
	OnForceReport func()
	StateFn       func() State

	mu   sync.Mutex
	conn net.Conn
}

// NewClient creates a client for the hub's /ws endpoint. Call Run to
// connect.
func NewClient(url string) *Client {
	return &Client{url: url}
}

// Run dials the hub and keeps the connection alive until ctx is cancelled.
// Blocks; run it in its own goroutine.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.connect(ctx); err != nil {
			slog.Debug("hub dial failed", "url", c.url, "error", err)
		} else {
			slog.Info("connected to hub", "url", c.url)
			c.readLoop(ctx)
			slog.Warn("hub connection lost", "url", c.url)
		}

		select {
		case <-ctx.Done():
			c.Close()
			return
		case <-time.After(redialInterval):
		}
	}
}

func (c *Client) connect(ctx context.Context) error {
	conn, _, _, err := ws.Dial(ctx, c.url)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	return nil
}

// Alive reports whether the hub connection is currently up.
func (c *Client) Alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Close tears down the connection. Run's redial loop exits on context
// cancellation, not on Close.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// Send delivers one envelope to the hub. Failures drop the frame and mark
// the connection dead for the redial loop to repair.
func (c *Client) Send(env Envelope) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		slog.Debug("frame dropped, hub not connected", "type", env.Type)
		return
	}

	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("frame marshal failed", "type", env.Type, "error", err)
		return
	}

	c.mu.Lock()
	err = wsutil.WriteClientText(conn, data)
	c.mu.Unlock()
	if err != nil {
		slog.Debug("frame send failed", "type", env.Type, "error", err)
		c.Close()
	}
}

// readLoop handles hub-initiated requests until the connection drops.
func (c *Client) readLoop(ctx context.Context) {
	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return
		}

		data, err := wsutil.ReadServerText(conn)
		if err != nil {
			c.Close()
			return
		}

		var env Envelope
		if json.Unmarshal(data, &env) != nil {
			continue
		}

		switch env.Type {
		case TypeForceReport:
			if c.OnForceReport != nil {
				c.OnForceReport()
			}
		case TypeGetState:
			if c.StateFn != nil {
				state := c.StateFn()
				c.Send(Envelope{Type: TypeState, State: &state})
			}
		default:
			slog.Debug("unknown frame from hub", "type", env.Type)
		}

		select {
		case <-ctx.Done():
			c.Close()
			return
		default:
		}
	}
}
