package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/user/applicant-harvester/internal/entity"
	"github.com/user/applicant-harvester/internal/repository"
	"github.com/user/applicant-harvester/pkg/metrics"
)

var (
	ErrWrongPage       = errors.New("please navigate to the LinkedIn hiring jobs page")
	ErrNoApplications  = errors.New("no applications found on the page")
	ErrNothingToExport = errors.New("no collected applicants to export")
)

// DefaultRequiredPathPattern matches the applicant view of a job posting.
const DefaultRequiredPathPattern = `linkedin\.com/hiring/jobs`

const (
	msgProcessing = "Processing..."
	msgStopping   = "Stopping after the current applicant..."
	msgExported   = "Data successfully exported! Check your downloads."
	msgStopEmpty  = "Stopped before any applicant was collected."
)

// Extractor is the control surface exposed to delivery layers.
type Extractor interface {
	Extract(ctx context.Context, restart bool) (string, error)
	Stop() bool
	Status(ctx context.Context) entity.RunStatus
	ExportCollected(ctx context.Context) (string, error)
}

// ExtractionController relays start/stop/restart commands to the traversal
// engine and reports progress and outcomes through the event publisher.
type ExtractionController struct {
	engine      *TraversalEngine
	page        repository.HiringPage
	exporter    repository.Exporter
	publisher   repository.EventPublisher
	statusRepo  repository.StatusRepository
	runRepo     repository.RunRepository
	pathPattern *regexp.Regexp
	logger      *zap.Logger
	newID       func() string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// statusMu serializes status updates, including their store writes.
	statusMu sync.Mutex

	mu          sync.Mutex
	active      bool
	stopPending bool // Stop arrived before the engine started its run
	current     entity.RunStatus
}

// ControllerDeps groups the collaborators of an ExtractionController.
// StatusRepo and RunRepo are optional.
type ControllerDeps struct {
	Engine      *TraversalEngine
	Page        repository.HiringPage
	Exporter    repository.Exporter
	Publisher   repository.EventPublisher
	StatusRepo  repository.StatusRepository
	RunRepo     repository.RunRepository
	PathPattern string
	Logger      *zap.Logger
}

// NewExtractionController validates the path pattern and builds the controller.
func NewExtractionController(deps ControllerDeps) (*ExtractionController, error) {
	pattern := deps.PathPattern
	if pattern == "" {
		pattern = DefaultRequiredPathPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid required path pattern %q: %w", pattern, err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &ExtractionController{
		engine:      deps.Engine,
		page:        deps.Page,
		exporter:    deps.Exporter,
		publisher:   deps.Publisher,
		statusRepo:  deps.StatusRepo,
		runRepo:     deps.RunRepo,
		pathPattern: re,
		logger:      logger,
		newID:       uuid.NewString,
		ctx:         ctx,
		cancel:      cancel,
		current:     entity.RunStatus{State: entity.RunIdle},
	}, nil
}

// Extract checks the page precondition and starts a run in the background.
// restart discards partial progress from a previous stopped or failed run.
func (c *ExtractionController) Extract(ctx context.Context, restart bool) (string, error) {
	c.mu.Lock()
	if c.active {
		c.mu.Unlock()
		return "", ErrAlreadyRunning
	}
	c.active = true
	c.stopPending = false
	c.mu.Unlock()

	runID, err := c.begin(ctx, restart)
	if err != nil {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
		return "", err
	}
	return runID, nil
}

func (c *ExtractionController) begin(ctx context.Context, restart bool) (string, error) {
	addr, err := c.page.CurrentURL(ctx)
	if err != nil {
		return "", fmt.Errorf("reading active page address: %w", err)
	}

	runID := c.newID()
	if !c.pathPattern.MatchString(addr) {
		c.logger.Warn("extract rejected, wrong page", zap.String("url", addr))
		c.finish(ctx, runID, entity.RunFailed, entity.TerminalEvent{Success: false, Error: ErrWrongPage.Error()}, 0)
		return "", ErrWrongPage
	}

	now := time.Now()
	c.setStatus(ctx, entity.RunStatus{
		RunID:        runID,
		State:        entity.RunRunning,
		Message:      msgProcessing,
		IsProcessing: true,
		StartedAt:    &now,
	})

	c.wg.Add(1)
	go c.run(runID, restart)
	c.logger.Info("extraction started", zap.String("run_id", runID), zap.Bool("restart", restart))
	return runID, nil
}

func (c *ExtractionController) run(runID string, restart bool) {
	defer c.wg.Done()
	defer func() {
		c.mu.Lock()
		c.active = false
		c.mu.Unlock()
	}()

	ctx := c.ctx
	result, err := c.engine.Run(ctx, RunOptions{
		RunID:   runID,
		Restart: restart,
		OnProgress: func(p entity.ProgressEvent) {
			c.onProgress(ctx, runID, p)
		},
	})

	// Shutdown may have cancelled c.ctx; the terminal report still goes out.
	reportCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err != nil {
		records := 0
		if result != nil {
			records = len(result.Records)
		}
		c.finish(reportCtx, runID, entity.RunFailed, entity.TerminalEvent{Success: false, Error: err.Error()}, records)
		return
	}

	if result.State == entity.RunStopped && len(result.Records) == 0 {
		c.finish(reportCtx, runID, entity.RunStopped, entity.TerminalEvent{Success: true, Message: msgStopEmpty}, 0)
		return
	}
	if len(result.Records) == 0 {
		c.finish(reportCtx, runID, entity.RunFailed, entity.TerminalEvent{Success: false, Error: ErrNoApplications.Error()}, 0)
		return
	}

	path, err := c.exportRecords(reportCtx, result.Records)
	if err != nil {
		c.finish(reportCtx, runID, entity.RunFailed, entity.TerminalEvent{Success: false, Error: err.Error()}, len(result.Records))
		return
	}

	message := msgExported
	if result.State == entity.RunStopped {
		message = fmt.Sprintf("Stopped early after %d applicants; partial data exported.", len(result.Records))
	}
	c.finish(reportCtx, runID, result.State, entity.TerminalEvent{Success: true, Message: message, ExportPath: path}, len(result.Records))
}

func (c *ExtractionController) onProgress(ctx context.Context, runID string, p entity.ProgressEvent) {
	c.mu.Lock()
	pending := c.stopPending
	c.stopPending = false
	c.mu.Unlock()

	if pending {
		c.engine.RequestStop()
	}

	records := len(c.engine.Snapshot().Records)
	c.updateStatus(ctx, func(status *entity.RunStatus) bool {
		status.CurrentPage = p.CurrentPage
		status.TotalPages = p.TotalPages
		status.Progress = p.Percent()
		status.Records = records
		status.Message = fmt.Sprintf("Processing page %d of %d", p.CurrentPage, p.TotalPages)
		return true
	})

	c.publish(ctx, entity.Event{Type: entity.EventProgress, RunID: runID, Progress: &p, Timestamp: time.Now()})
}

func (c *ExtractionController) finish(ctx context.Context, runID string, state entity.RunState, outcome entity.TerminalEvent, records int) {
	now := time.Now()
	c.updateStatus(ctx, func(status *entity.RunStatus) bool {
		status.RunID = runID
		status.State = state
		status.IsProcessing = false
		status.Records = records
		status.FinishedAt = &now
		status.ExportPath = outcome.ExportPath
		status.Error = outcome.Error
		if outcome.Success {
			status.Message = outcome.Message
			status.Progress = 100
		} else {
			status.Message = "Error: " + outcome.Error
		}
		return true
	})

	c.publish(ctx, entity.Event{Type: entity.EventTerminal, RunID: runID, Terminal: &outcome, Timestamp: now})
	c.logger.Info("extraction finished",
		zap.String("run_id", runID),
		zap.String("state", string(state)),
		zap.Bool("success", outcome.Success),
		zap.String("error", outcome.Error),
	)
}

// Stop requests cooperative cancellation of the active run.
func (c *ExtractionController) Stop() bool {
	if !c.engine.RequestStop() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.active {
			return false
		}
		c.stopPending = true
		return true
	}
	// The run may already have reported its outcome; a terminal status is kept.
	c.updateStatus(c.ctx, func(status *entity.RunStatus) bool {
		if status.State.Terminal() {
			return false
		}
		status.Message = msgStopping
		return true
	})
	return true
}

// Status returns the latest run status, falling back to the stored echo
// when this process has not run anything yet.
func (c *ExtractionController) Status(ctx context.Context) entity.RunStatus {
	c.mu.Lock()
	status := c.current
	c.mu.Unlock()

	if status.RunID == "" && c.statusRepo != nil {
		stored, found, err := c.statusRepo.GetStatus(ctx)
		if err != nil {
			c.logger.Warn("failed to read stored status", zap.Error(err))
		} else if found {
			return stored
		}
	}
	return status
}

// ExportCollected exports whatever the engine has collected so far. It is how
// partial results of a stopped or failed run are recovered.
func (c *ExtractionController) ExportCollected(ctx context.Context) (string, error) {
	records := c.engine.Snapshot().Records
	if len(records) == 0 {
		return "", ErrNothingToExport
	}
	return c.exportRecords(ctx, records)
}

// Close cancels any in-flight run and waits for it to report.
func (c *ExtractionController) Close() {
	c.cancel()
	c.wg.Wait()
}

// Wait blocks until the active run, if any, has reported its outcome.
func (c *ExtractionController) Wait() {
	c.wg.Wait()
}

func (c *ExtractionController) exportRecords(ctx context.Context, records []*entity.ApplicantRecord) (string, error) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, r.Row())
	}
	path, err := c.exporter.Export(ctx, entity.ExportHeaders, rows)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	return path, nil
}

// updateStatus applies mutate to a copy of the current status and stores the
// result unless mutate returns false.
func (c *ExtractionController) updateStatus(ctx context.Context, mutate func(*entity.RunStatus) bool) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()

	c.mu.Lock()
	status := c.current
	c.mu.Unlock()
	if !mutate(&status) {
		return
	}
	c.storeStatus(ctx, status)
}

// setStatus replaces the current status.
func (c *ExtractionController) setStatus(ctx context.Context, status entity.RunStatus) {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	c.storeStatus(ctx, status)
}

func (c *ExtractionController) storeStatus(ctx context.Context, status entity.RunStatus) {
	c.mu.Lock()
	c.current = status
	c.mu.Unlock()

	if c.statusRepo != nil {
		if err := c.statusRepo.SetStatus(ctx, status); err != nil {
			c.logger.Warn("failed to store status", zap.Error(err))
			metrics.StoreErrors.WithLabelValues("status").Inc()
		}
	}
	if c.runRepo != nil && status.RunID != "" && (status.State == entity.RunRunning || status.State.Terminal()) {
		if err := c.runRepo.SaveRun(ctx, &status); err != nil {
			c.logger.Warn("failed to store run", zap.Error(err))
			metrics.StoreErrors.WithLabelValues("runs").Inc()
		}
	}
}

func (c *ExtractionController) publish(ctx context.Context, event entity.Event) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, event); err != nil {
		c.logger.Warn("failed to publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
