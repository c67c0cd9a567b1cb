// Package msg defines the WebSocket wire protocol between the page watcher
// and the hub. Every frame is a single JSON Envelope; the Type field selects
// which payload pointer is populated.
package msg

import (
	"time"

	"github.com/dgnsrekt/tv_tracker/internal/activity"
)

// Message types carried in Envelope.Type.
const (
	TypeLogActivity    = "LOG_ACTIVITY"
	TypeSessionReport  = "SESSION_REPORT"
	TypeSaveScreenshot = "SAVE_SCREENSHOT"
	TypeForceReport    = "FORCE_REPORT"
	TypeGetState       = "GET_STATE"
	TypeState          = "STATE"
)

// Envelope is one wire frame. Exactly one payload field matching Type is
// set; unknown types are dropped by both peers.
type Envelope struct {
	Type       string                  `json:"type"`
	Entry      *activity.Event         `json:"entry,omitempty"`
	Report     *activity.SessionReport `json:"report,omitempty"`
	Screenshot *Screenshot             `json:"screenshot,omitempty"`
	State      *State                  `json:"state,omitempty"`
}

// Screenshot carries one captured chart image to the hub for storage.
type Screenshot struct {
	Symbol   string    `json:"symbol"`
	Filename string    `json:"filename"`
	Tool     string    `json:"tool"`
	Price    string    `json:"price"`
	TakenAt  time.Time `json:"taken_at"`
	Data     []byte    `json:"data"`
}

// State is the watcher's answer to a GET_STATE request.
type State struct {
	Symbol        string    `json:"symbol"`
	SessionActive bool      `json:"session_active"`
	DrawingCount  int       `json:"drawing_count"`
	ConnectedAt   time.Time `json:"connected_at"`
}
