package activity

import "time"

// DrawingRecord is one drawing captured inside a session.
type DrawingRecord struct {
	Tool       string    `json:"tool"`
	Price      string    `json:"price"`
	Time       time.Time `json:"time"`
	Screenshot string    `json:"screenshot,omitempty"`
}

// SessionReport summarizes one closed symbol session. Never mutated after
// creation.
type SessionReport struct {
	ID             string          `json:"id"`
	Symbol         string          `json:"symbol"`
	StartedAt      time.Time       `json:"started_at"`
	EndedAt        time.Time       `json:"ended_at"`
	DrawingCount   int             `json:"drawing_count"`
	IndicatorCount int             `json:"indicator_count"`
	ToolsUsed      []string        `json:"tools_used"`
	Indicators     []string        `json:"indicators"`
	TimeframesSeen []string        `json:"timeframes_seen"`
	Drawings       []DrawingRecord `json:"drawings"`
}

// SymbolMemory is the persisted last-view record for one symbol. Note is
// set only by explicit user action through the hub API.
type SymbolMemory struct {
	LastSeenAt time.Time `json:"last_seen_at"`
	LastPrice  string    `json:"last_price"`
	Note       string    `json:"note,omitempty"`
}
