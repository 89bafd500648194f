package response

import "time"

type ExtractResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	RunID   string `json:"run_id"`
}

type StopResponse struct {
	Stopping bool   `json:"stopping"`
	Message  string `json:"message"`
}

type ExportResponse struct {
	Path string `json:"path"`
}

// StatusResponse is a DTO for the run status, mirroring entity.RunStatus.
type StatusResponse struct {
	RunID        string     `json:"run_id,omitempty"`
	State        string     `json:"state"` // "idle", "running", "completed", "stopped", "failed"
	Message      string     `json:"message"`
	CurrentPage  int        `json:"current_page"`
	TotalPages   int        `json:"total_pages"`
	Progress     float64    `json:"progress"`
	Records      int        `json:"records"`
	IsProcessing bool       `json:"is_processing"`
	Error        string     `json:"error,omitempty"`
	ExportPath   string     `json:"export_path,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
