package request

// ExtractRequest starts a run. Restart discards the partial progress of a
// stopped or failed run instead of resuming it.
type ExtractRequest struct {
	Restart bool `json:"restart"`
}
