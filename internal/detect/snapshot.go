package detect

// PageSnapshot is one observation of the host page's signal surfaces.
// It is rebuilt on every poll tick and never persisted.
type PageSnapshot struct {
	TitleText     string `json:"title"`
	LegendText    string `json:"legend"`
	ToolbarLabel  string `json:"toolbar"`
	LastPriceText string `json:"last_price"`
	URL           string `json:"url"`
	CursorStyle   string `json:"cursor"`
	Focused       bool   `json:"focused"`
	Visible       bool   `json:"visible"`
}

// Node is the distilled shape of one DOM node from a mutation batch. The
// page-side bootstrap flattens the attributes the classifier cares about so
// no live DOM access is needed here.
type Node struct {
	Tag       string `json:"tag,omitempty"`
	ClassName string `json:"class,omitempty"`
	DataName  string `json:"data_name,omitempty"`
	DataValue string `json:"data_value,omitempty"`
	Ancestors string `json:"ancestors,omitempty"`
	Label     string `json:"label,omitempty"`
}

// ChangeBatch is one MutationObserver delivery. Nodes appear in the order
// the underlying notification delivered them.
type ChangeBatch struct {
	Added   []Node `json:"added"`
	Removed []Node `json:"removed"`
}
