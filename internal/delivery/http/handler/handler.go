package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/user/applicant-harvester/internal/delivery/http/request"
	"github.com/user/applicant-harvester/internal/delivery/http/response"
	"github.com/user/applicant-harvester/internal/entity"
	"github.com/user/applicant-harvester/internal/usecase"
)

// EventSource is the in-process event stream behind /api/events.
type EventSource interface {
	Subscribe() (<-chan entity.Event, func())
	Last() (entity.Event, bool)
}

type Handler struct {
	extractor usecase.Extractor
	events    EventSource
	logger    *zap.Logger
}

func NewHandler(extractor usecase.Extractor, events EventSource, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		extractor: extractor,
		events:    events,
		logger:    logger,
	}
}

func (h *Handler) HandleExtract(w http.ResponseWriter, r *http.Request) {
	var req request.ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	runID, err := h.extractor.Extract(r.Context(), req.Restart)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrAlreadyRunning):
			h.writeJSONError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, usecase.ErrWrongPage):
			h.writeJSONError(w, err.Error(), http.StatusPreconditionFailed)
		default:
			h.logger.Error("failed to start extraction", zap.Error(err))
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.ExtractResponse{
		Status:  "success",
		Message: "Extraction started",
		RunID:   runID,
	})
}

func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	resp := response.StopResponse{Stopping: h.extractor.Stop()}
	if resp.Stopping {
		resp.Message = "Extraction will stop after the current applicant"
	} else {
		resp.Message = "No extraction in progress"
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, toStatusResponse(h.extractor.Status(r.Context())))
}

func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	path, err := h.extractor.ExportCollected(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrNothingToExport) {
			h.writeJSONError(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("export failed", zap.Error(err))
		h.writeJSONError(w, "Export failed", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.ExportResponse{Path: path})
}

// HandleEvents streams run events as Server-Sent Events. The current status and
// the most recent event are sent first so a reconnecting client can restore its view.
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeJSONError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	events, unsubscribe := h.events.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, "status", toStatusResponse(h.extractor.Status(r.Context()))); err != nil {
		return
	}
	if last, ok := h.events.Last(); ok {
		if err := writeSSE(w, string(last.Type), last); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := writeSSE(w, string(ev.Type), ev); err != nil {
				h.logger.Debug("event stream closed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeSSE(w io.Writer, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}

func toStatusResponse(s entity.RunStatus) response.StatusResponse {
	return response.StatusResponse{
		RunID:        s.RunID,
		State:        string(s.State),
		Message:      s.Message,
		CurrentPage:  s.CurrentPage,
		TotalPages:   s.TotalPages,
		Progress:     s.Progress,
		Records:      s.Records,
		IsProcessing: s.IsProcessing,
		Error:        s.Error,
		ExportPath:   s.ExportPath,
		StartedAt:    s.StartedAt,
		FinishedAt:   s.FinishedAt,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
