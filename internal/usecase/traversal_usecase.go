package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/user/applicant-harvester/internal/entity"
	"github.com/user/applicant-harvester/internal/experience"
	"github.com/user/applicant-harvester/internal/repository"
	"github.com/user/applicant-harvester/pkg/metrics"
)

var (
	ErrAlreadyRunning            = errors.New("a traversal run is already in progress")
	ErrPaginationControlNotFound = errors.New("pagination control not found")
	ErrAffordanceNotFound        = errors.New("element not found within retry budget")
)

// PaginationError is the fatal fault raised when the next page cannot be reached.
type PaginationError struct {
	Page int
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("next page button not found after checking ellipsis for page %d", e.Page)
}

func (e *PaginationError) Unwrap() error {
	return ErrPaginationControlNotFound
}

// TraversalConfig holds the page size, fixed delays and retry budgets of a run.
type TraversalConfig struct {
	PageSize           int
	SettleDelay        time.Duration
	AffordanceAttempts int
	AffordanceInterval time.Duration
	InterItemDelay     time.Duration
	EllipsisDelay      time.Duration
	PageSettleDelay    time.Duration
}

// DefaultTraversalConfig mirrors the timings the applicant view needs in practice.
func DefaultTraversalConfig() TraversalConfig {
	return TraversalConfig{
		PageSize:           25,
		SettleDelay:        500 * time.Millisecond,
		AffordanceAttempts: 3,
		AffordanceInterval: 3 * time.Second,
		InterItemDelay:     time.Second,
		EllipsisDelay:      2500 * time.Millisecond,
		PageSettleDelay:    2 * time.Second,
	}
}

// TraversalState is owned by the engine for the duration of a run.
type TraversalState struct {
	CurrentPage   int
	TotalPages    int
	NextItem      int // item index on CurrentPage a resumed run continues from
	Records       []*entity.ApplicantRecord
	StopRequested bool
	Restart       bool
}

// RunOptions parameterise a single traversal run.
type RunOptions struct {
	RunID      string
	Restart    bool
	OnProgress func(entity.ProgressEvent)
}

// RunResult is what a finished run hands back to the controller.
type RunResult struct {
	State       entity.RunState
	Records     []*entity.ApplicantRecord
	CurrentPage int
	TotalPages  int
}

// TraversalEngine walks the paginated applicant list item by item.
type TraversalEngine struct {
	page       repository.HiringPage
	summarizer *experience.Summarizer
	dispatcher repository.ResumeDispatcher
	records    repository.ApplicantRepository
	cfg        TraversalConfig
	logger     *zap.Logger

	running atomic.Bool
	stop    atomic.Bool

	mu    sync.Mutex
	state entity.RunState
	ts    TraversalState
}

// NewTraversalEngine wires the engine. records and dispatcher may be nil.
func NewTraversalEngine(
	page repository.HiringPage,
	summarizer *experience.Summarizer,
	dispatcher repository.ResumeDispatcher,
	records repository.ApplicantRepository,
	cfg TraversalConfig,
	logger *zap.Logger,
) *TraversalEngine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultTraversalConfig().PageSize
	}
	if cfg.AffordanceAttempts <= 0 {
		cfg.AffordanceAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if summarizer == nil {
		summarizer = experience.NewSummarizer(logger)
	}
	return &TraversalEngine{
		page:       page,
		summarizer: summarizer,
		dispatcher: dispatcher,
		records:    records,
		cfg:        cfg,
		logger:     logger,
		state:      entity.RunIdle,
	}
}

// State returns the engine's state machine value.
func (e *TraversalEngine) State() entity.RunState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Running reports whether a run is in flight.
func (e *TraversalEngine) Running() bool {
	return e.running.Load()
}

// Snapshot returns a copy of the traversal state.
func (e *TraversalEngine) Snapshot() TraversalState {
	e.mu.Lock()
	defer e.mu.Unlock()
	ts := e.ts
	ts.Records = append([]*entity.ApplicantRecord(nil), e.ts.Records...)
	ts.StopRequested = e.stop.Load()
	return ts
}

// RequestStop asks the active run to end at the next item or page boundary.
// It reports whether a run was active.
func (e *TraversalEngine) RequestStop() bool {
	if !e.running.Load() {
		return false
	}
	e.stop.Store(true)
	return true
}

// Run performs one traversal. Only one run may be active at a time; a second
// call returns ErrAlreadyRunning. A stopped run returns its partial records
// with state RunStopped and a nil error.
func (e *TraversalEngine) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	defer e.running.Store(false)
	e.stop.Store(false)

	e.mu.Lock()
	resumable := e.state == entity.RunStopped || e.state == entity.RunFailed
	if opts.Restart || !resumable {
		e.ts = TraversalState{}
	}
	e.ts.Restart = opts.Restart
	e.state = entity.RunRunning
	e.mu.Unlock()

	log := e.logger.With(zap.String("run_id", opts.RunID), zap.Bool("restart", opts.Restart))
	log.Info("traversal started")
	started := time.Now()

	err := e.traverse(ctx, opts, log)

	final := entity.RunCompleted
	switch {
	case err != nil:
		final = entity.RunFailed
	case e.stop.Load():
		final = entity.RunStopped
	}

	e.mu.Lock()
	e.state = final
	e.ts.StopRequested = e.stop.Load()
	result := &RunResult{
		State:       final,
		Records:     compactRecords(e.ts.Records),
		CurrentPage: e.ts.CurrentPage,
		TotalPages:  e.ts.TotalPages,
	}
	e.mu.Unlock()

	metrics.RunsTotal.WithLabelValues(string(final)).Inc()
	metrics.RunDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		log.Error("traversal failed", zap.Error(err), zap.Int("records", len(result.Records)))
		return result, err
	}
	log.Info("traversal finished",
		zap.String("state", string(final)),
		zap.Int("records", len(result.Records)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (e *TraversalEngine) traverse(ctx context.Context, opts RunOptions, log *zap.Logger) error {
	if err := e.page.WaitReady(ctx); err != nil {
		return fmt.Errorf("applicant page not ready: %w", err)
	}

	current, total, err := e.readPagination(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	startItem := 0
	if !opts.Restart && e.ts.CurrentPage == current && e.ts.NextItem > 0 {
		startItem = e.ts.NextItem
	}
	e.ts.CurrentPage, e.ts.TotalPages, e.ts.NextItem = current, total, startItem
	e.mu.Unlock()

	log.Info("pagination resolved", zap.Int("current_page", current), zap.Int("total_pages", total), zap.Int("start_item", startItem))

	for page := current; page <= total; page++ {
		if e.stop.Load() {
			return nil
		}

		e.mu.Lock()
		e.ts.CurrentPage = page
		e.ts.NextItem = startItem
		e.mu.Unlock()

		if opts.OnProgress != nil {
			opts.OnProgress(entity.ProgressEvent{CurrentPage: page, TotalPages: total})
		}

		count := e.itemsOnPage(ctx, page == total, log)
		log.Debug("processing page", zap.Int("page", page), zap.Int("items", count))

		for i := startItem; i < count; i++ {
			if e.stop.Load() {
				log.Info("stop requested", zap.Int("page", page), zap.Int("item", i))
				return nil
			}
			if err := e.processItem(ctx, opts.RunID, i, count, log); err != nil {
				return err
			}
			e.mu.Lock()
			e.ts.NextItem = i + 1
			e.mu.Unlock()
		}
		startItem = 0
		metrics.PagesProcessed.Inc()

		if page < total {
			if e.stop.Load() {
				return nil
			}
			if err := e.advancePage(ctx, page, log); err != nil {
				return err
			}
			if err := sleep(ctx, e.cfg.PageSettleDelay); err != nil {
				return err
			}
		}
	}
	return nil
}

var (
	totalPagesPattern  = regexp.MustCompile(`of\s+(\d+)`)
	currentPagePattern = regexp.MustCompile(`(\d+)\s+of`)
)

// readPagination parses the "Page X of Y" indicator. No indicator means a single page.
func (e *TraversalEngine) readPagination(ctx context.Context) (current, total int, err error) {
	text, found, err := e.page.PaginationState(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("reading pagination indicator: %w", err)
	}
	return ParsePageState(text, found)
}

// ParsePageState extracts the current and total page numbers from the indicator text.
func ParsePageState(text string, found bool) (current, total int, err error) {
	if !found {
		return 1, 1, nil
	}
	m := totalPagesPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, fmt.Errorf("unreadable pagination indicator %q", text)
	}
	total, _ = strconv.Atoi(m[1])
	if total < 1 {
		total = 1
	}
	current = 1
	if m := currentPagePattern.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
			current = n
		}
	}
	if current > total {
		current = total
	}
	return current, total, nil
}

// itemsOnPage returns the fixed page size, except on the final page where the
// rendered cards are counted so a short last page is not over-walked.
func (e *TraversalEngine) itemsOnPage(ctx context.Context, last bool, log *zap.Logger) int {
	if !last {
		return e.cfg.PageSize
	}

	var (
		count    int
		countErr error
	)
	err := poll(ctx, e.cfg.AffordanceAttempts, e.cfg.AffordanceInterval, func() (bool, error) {
		n, err := e.page.ApplicantCount(ctx)
		countErr = err
		if err != nil {
			return false, err
		}
		count = n
		return n > 0, nil
	})
	if ctx.Err() != nil {
		return 0
	}
	if err != nil && countErr != nil {
		log.Warn("could not count applicants on last page, assuming full page", zap.Error(err))
		return e.cfg.PageSize
	}
	if count > e.cfg.PageSize {
		count = e.cfg.PageSize
	}
	return count
}

// processItem visits one applicant. Per-item faults become sentinel values;
// only context cancellation is returned.
func (e *TraversalEngine) processItem(ctx context.Context, runID string, index, count int, log *zap.Logger) error {
	card, found, err := e.page.Applicant(ctx, index)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil || !found {
		log.Info("skipping applicant element that is not rendered", zap.Int("index", index), zap.Error(err))
		metrics.ApplicantsProcessed.WithLabelValues("skipped").Inc()
		return nil
	}

	e.mu.Lock()
	record := entity.NewApplicantRecord(len(e.ts.Records) + 1)
	e.mu.Unlock()
	if card.Name != "" {
		record.Name = card.Name
	}
	if card.Location != "" {
		record.Location = card.Location
	}
	if card.AppliedAgo != "" {
		record.AppliedAgo = card.AppliedAgo
	}
	record.ResumeURL = entity.ResumeUnavailable

	itemLog := log.With(zap.Int("serial", record.SerialNumber), zap.String("name", record.Name))

	if card.HasProfile {
		if err := e.visitProfile(ctx, record, index, count, itemLog); err != nil {
			return err
		}
	} else {
		itemLog.Info("applicant has no profile link")
	}

	record.CollectedAt = time.Now()
	e.mu.Lock()
	e.ts.Records = append(e.ts.Records, record)
	e.mu.Unlock()
	metrics.ApplicantsProcessed.WithLabelValues("collected").Inc()

	if e.records != nil {
		if err := e.records.Save(ctx, runID, record); err != nil {
			itemLog.Warn("failed to persist applicant record", zap.Error(err))
			metrics.StoreErrors.WithLabelValues("applicants").Inc()
		}
	}

	return sleep(ctx, e.cfg.InterItemDelay)
}

func (e *TraversalEngine) visitProfile(ctx context.Context, record *entity.ApplicantRecord, index, count int, log *zap.Logger) error {
	opened, err := e.page.OpenApplicant(ctx, index)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		log.Warn("could not open applicant profile", zap.Error(err))
		return nil
	}
	if !opened {
		log.Info("applicant profile link is no longer rendered")
		return nil
	}

	if err := sleep(ctx, e.cfg.SettleDelay); err != nil {
		return err
	}

	href, err := e.waitForDownloadLink(ctx)
	switch {
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		log.Info("download link not found", zap.Error(err))
		metrics.ResumeDispatches.WithLabelValues("unavailable").Inc()
	default:
		record.ResumeURL = href
		if e.dispatcher != nil && e.dispatcher.Dispatch(ctx, href, record.SerialNumber, record.Name) {
			record.DownloadStatus = entity.DownloadInitiated
			metrics.ResumeDispatches.WithLabelValues("initiated").Inc()
		} else {
			record.DownloadStatus = entity.DownloadFailed
			metrics.ResumeDispatches.WithLabelValues("failed").Inc()
			log.Warn("resume download could not be issued", zap.String("url", href))
		}
	}

	html, err := e.page.DetailHTML(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn("could not read detail pane", zap.Error(err))
		record.ApplyExperience(experience.ErrorSummary)
	} else {
		record.ApplyExperience(e.summarizer.SummarizeHTML(html))
	}

	// Pre-select the next applicant so its detail pane is loading during the inter-item delay.
	if index < count-1 {
		if _, err := e.page.OpenApplicant(ctx, index+1); err != nil && ctx.Err() == nil {
			log.Debug("pre-click of next applicant failed", zap.Error(err))
		}
	}
	return nil
}

func (e *TraversalEngine) waitForDownloadLink(ctx context.Context) (string, error) {
	if err := e.page.WaitReady(ctx); err != nil {
		return "", err
	}
	var href string
	err := poll(ctx, e.cfg.AffordanceAttempts, e.cfg.AffordanceInterval, func() (bool, error) {
		h, found, err := e.page.DownloadLink(ctx)
		if err != nil {
			return false, err
		}
		href = h
		return found && h != "", nil
	})
	return href, err
}

// advancePage clicks the control for page current+1, expanding a trailing
// ellipsis when the number is collapsed. Failure here is fatal for the run.
func (e *TraversalEngine) advancePage(ctx context.Context, current int, log *zap.Logger) error {
	target := current + 1

	buttons, err := e.page.PageButtons(ctx)
	if err != nil {
		return fmt.Errorf("reading pagination controls: %w", err)
	}
	next, ok := findPageButton(buttons, target)

	if !ok {
		log.Info("next page button not visible, looking for ellipsis", zap.Int("target_page", target))
		if ellipsis, found := findEllipsisAfter(buttons, current); found {
			if err := e.page.ClickPageButton(ctx, ellipsis.Index); err != nil {
				return fmt.Errorf("expanding pagination ellipsis: %w", err)
			}
			if err := sleep(ctx, e.cfg.EllipsisDelay); err != nil {
				return err
			}
			buttons, err = e.page.PageButtons(ctx)
			if err != nil {
				return fmt.Errorf("reading pagination controls: %w", err)
			}
			next, ok = findPageButton(buttons, target)
		}
	}

	if !ok {
		return &PaginationError{Page: target}
	}

	if err := e.page.ClickPageButton(ctx, next.Index); err != nil {
		return fmt.Errorf("clicking page %d: %w", target, err)
	}
	log.Info("moved to next page", zap.Int("page", target))
	return nil
}

func pageNumber(label string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(label))
	return n, err == nil
}

func isEllipsis(label string) bool {
	l := strings.TrimSpace(label)
	return l == "…" || l == "..."
}

func findPageButton(buttons []repository.PageButton, page int) (repository.PageButton, bool) {
	for _, b := range buttons {
		if n, ok := pageNumber(b.Label); ok && n == page {
			return b, true
		}
	}
	return repository.PageButton{}, false
}

// findEllipsisAfter returns the first ellipsis positioned after the current page's control.
func findEllipsisAfter(buttons []repository.PageButton, current int) (repository.PageButton, bool) {
	currentPos := -1
	if b, ok := findPageButton(buttons, current); ok {
		currentPos = b.Position
	}
	for _, b := range buttons {
		if isEllipsis(b.Label) && b.Position > currentPos {
			return b, true
		}
	}
	return repository.PageButton{}, false
}

func compactRecords(records []*entity.ApplicantRecord) []*entity.ApplicantRecord {
	out := make([]*entity.ApplicantRecord, 0, len(records))
	for _, r := range records {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// poll calls check up to attempts times, sleeping interval between failed
// attempts. It returns ErrAffordanceNotFound when the budget is exhausted.
func poll(ctx context.Context, attempts int, interval time.Duration, check func() (bool, error)) error {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		ok, err := check()
		if ok {
			return nil
		}
		lastErr = err
		if attempt < attempts {
			if err := sleep(ctx, interval); err != nil {
				return err
			}
		}
	}
	if lastErr != nil {
		return fmt.Errorf("%w after %d attempts: %v", ErrAffordanceNotFound, attempts, lastErr)
	}
	return fmt.Errorf("%w after %d attempts", ErrAffordanceNotFound, attempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
