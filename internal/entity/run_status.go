package entity

import (
	"strconv"
	"time"
)

// RunState is the lifecycle state of a traversal run.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunStopped   RunState = "stopped"
	RunFailed    RunState = "failed"
)

// Terminal reports whether no further transitions happen without a new start.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunStopped || s == RunFailed
}

// RunStatus is the echo of the controller's user-facing state.
type RunStatus struct {
	RunID        string     `json:"run_id,omitempty"`
	State        RunState   `json:"state"`
	Message      string     `json:"message"`
	CurrentPage  int        `json:"current_page"`
	TotalPages   int        `json:"total_pages"`
	Progress     float64    `json:"progress"` // percent, 0-100
	Records      int        `json:"records"`
	IsProcessing bool       `json:"is_processing"`
	Error        string     `json:"error,omitempty"`
	ExportPath   string     `json:"export_path,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
