package entity

import "time"

// EventType distinguishes messages on the control/status channel.
type EventType string

const (
	EventProgress EventType = "progressUpdate"
	EventTerminal EventType = "terminal"
)

// ProgressEvent is emitted once per page.
type ProgressEvent struct {
	CurrentPage int `json:"currentPage"`
	TotalPages  int `json:"totalPages"`
}

// Percent returns the page progress as a percentage.
func (p ProgressEvent) Percent() float64 {
	if p.TotalPages <= 0 {
		return 0
	}
	return float64(p.CurrentPage) / float64(p.TotalPages) * 100
}

// TerminalEvent closes a run.
type TerminalEvent struct {
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
	Message    string `json:"message,omitempty"`
	ExportPath string `json:"exportPath,omitempty"`
}

// Event is the envelope published to status sinks.
type Event struct {
	Type      EventType      `json:"type"`
	RunID     string         `json:"run_id"`
	Progress  *ProgressEvent `json:"data,omitempty"`
	Terminal  *TerminalEvent `json:"result,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
