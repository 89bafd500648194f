package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/applicant-harvester/internal/entity"
)

type controllerFixture struct {
	page      *fakePage
	engine    *TraversalEngine
	exporter  *fakeExporter
	publisher *fakePublisher
	store     *fakeStatusRepo
	ctrl      *ExtractionController
}

func newControllerFixture(t *testing.T, page *fakePage, pageSize int) *controllerFixture {
	t.Helper()
	f := &controllerFixture{
		page:      page,
		exporter:  &fakeExporter{},
		publisher: &fakePublisher{},
		store:     &fakeStatusRepo{},
	}
	f.engine = NewTraversalEngine(page, testSummarizer(), &fakeDispatcher{}, nil, testConfig(pageSize), nil)

	ctrl, err := NewExtractionController(ControllerDeps{
		Engine:     f.engine,
		Page:       page,
		Exporter:   f.exporter,
		Publisher:  f.publisher,
		StatusRepo: f.store,
		RunRepo:    f.store,
	})
	require.NoError(t, err)
	ctrl.newID = func() string { return "run-42" }
	t.Cleanup(ctrl.Close)
	f.ctrl = ctrl
	return f
}

func TestNewExtractionController_InvalidPattern(t *testing.T) {
	_, err := NewExtractionController(ControllerDeps{PathPattern: "("})
	assert.Error(t, err)
}

func TestExtract_RejectsWrongPage(t *testing.T) {
	page := newFakePage(cards("Ada"))
	page.url = "https://www.linkedin.com/feed/"
	f := newControllerFixture(t, page, 25)

	_, err := f.ctrl.Extract(context.Background(), false)
	require.ErrorIs(t, err, ErrWrongPage)

	term := f.publisher.terminal()
	require.NotNil(t, term)
	assert.False(t, term.Success)
	assert.Equal(t, ErrWrongPage.Error(), term.Error)

	status := f.ctrl.Status(context.Background())
	assert.Equal(t, entity.RunFailed, status.State)
	assert.False(t, status.IsProcessing)
	assert.Equal(t, 0, f.exporter.calls)
	assert.Equal(t, entity.RunIdle, f.engine.State())
}

func TestExtract_CompletedRunIsExported(t *testing.T) {
	f := newControllerFixture(t, newFakePage(cards("Ada", "Ben"), cards("Cy")), 2)

	runID, err := f.ctrl.Extract(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "run-42", runID)
	f.ctrl.Wait()

	assert.Equal(t, 1, f.exporter.calls)
	assert.Equal(t, entity.ExportHeaders, f.exporter.headers)
	require.Len(t, f.exporter.rows, 3)
	assert.Equal(t, []string{
		"1", "Ada", "Berlin", "2d ago", "https://files.example.test/resume/Ada",
		"4.0", "Engineer", "Acme", "Engineer at Acme (2020 – Present)",
	}, f.exporter.rows[0])

	term := f.publisher.terminal()
	require.NotNil(t, term)
	assert.True(t, term.Success)
	assert.Equal(t, msgExported, term.Message)
	assert.Equal(t, "/tmp/exports/LinkedIn_Resumes.xlsx", term.ExportPath)

	var progress []entity.ProgressEvent
	for _, e := range f.publisher.events {
		if e.Type == entity.EventProgress {
			assert.Equal(t, "run-42", e.RunID)
			progress = append(progress, *e.Progress)
		}
	}
	assert.Equal(t, []entity.ProgressEvent{
		{CurrentPage: 1, TotalPages: 2},
		{CurrentPage: 2, TotalPages: 2},
	}, progress)

	status := f.ctrl.Status(context.Background())
	assert.Equal(t, entity.RunCompleted, status.State)
	assert.Equal(t, 3, status.Records)
	assert.Equal(t, float64(100), status.Progress)
	assert.NotNil(t, status.FinishedAt)

	stored, found, err := f.store.GetStatus(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entity.RunCompleted, stored.State)

	require.NotEmpty(t, f.store.runs)
	assert.Equal(t, entity.RunRunning, f.store.runs[0].State)
	assert.Equal(t, entity.RunCompleted, f.store.runs[len(f.store.runs)-1].State)
}

func TestExtract_NoApplications(t *testing.T) {
	f := newControllerFixture(t, newFakePage(cards()), 25)

	_, err := f.ctrl.Extract(context.Background(), false)
	require.NoError(t, err)
	f.ctrl.Wait()

	term := f.publisher.terminal()
	require.NotNil(t, term)
	assert.False(t, term.Success)
	assert.Equal(t, ErrNoApplications.Error(), term.Error)
	assert.Equal(t, 0, f.exporter.calls)
}

func TestExtract_StoppedRunExportsPartialResults(t *testing.T) {
	page := newFakePage(cards("Ada", "Ben", "Cy"))
	f := newControllerFixture(t, page, 3)
	page.onApplicant = func(_, i int) {
		if i == 0 {
			f.ctrl.Stop()
		}
	}

	_, err := f.ctrl.Extract(context.Background(), false)
	require.NoError(t, err)
	f.ctrl.Wait()

	require.Len(t, f.exporter.rows, 1)
	term := f.publisher.terminal()
	require.NotNil(t, term)
	assert.True(t, term.Success)
	assert.Contains(t, term.Message, "Stopped early after 1 applicants")
	assert.Equal(t, entity.RunStopped, f.ctrl.Status(context.Background()).State)
}

func TestExtract_StopBeforeFirstApplicantIsNotAFailure(t *testing.T) {
	page := newFakePage(cards("Ada", "Ben"))
	page.gate = make(chan struct{})
	f := newControllerFixture(t, page, 2)

	_, err := f.ctrl.Extract(context.Background(), false)
	require.NoError(t, err)
	require.Eventually(t, f.engine.Running, time.Second, 5*time.Millisecond)
	require.True(t, f.ctrl.Stop())
	close(page.gate)
	f.ctrl.Wait()

	term := f.publisher.terminal()
	require.NotNil(t, term)
	assert.True(t, term.Success)
	assert.Empty(t, term.Error)
	assert.Equal(t, msgStopEmpty, term.Message)
	assert.Zero(t, f.exporter.calls)

	status := f.ctrl.Status(context.Background())
	assert.Equal(t, entity.RunStopped, status.State)
	assert.False(t, status.IsProcessing)
}

func TestStop_KeepsTerminalStatus(t *testing.T) {
	page := newFakePage(cards("Ada"))
	page.gate = make(chan struct{})
	f := newControllerFixture(t, page, 1)

	_, err := f.ctrl.Extract(context.Background(), false)
	require.NoError(t, err)
	require.Eventually(t, f.engine.Running, time.Second, 5*time.Millisecond)

	// The run reported its outcome between the engine accepting the stop
	// and the controller updating the status.
	f.ctrl.updateStatus(context.Background(), func(s *entity.RunStatus) bool {
		s.State = entity.RunCompleted
		s.IsProcessing = false
		s.Message = msgExported
		return true
	})

	require.True(t, f.ctrl.Stop())
	status := f.ctrl.Status(context.Background())
	assert.Equal(t, entity.RunCompleted, status.State)
	assert.Equal(t, msgExported, status.Message)

	stored, found, err := f.store.GetStatus(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, entity.RunCompleted, stored.State)
	assert.False(t, stored.IsProcessing)

	close(page.gate)
	f.ctrl.Wait()
}

func TestExtract_FailedRunKeepsResultsForExport(t *testing.T) {
	page := newFakePage(cards("Ada"), cards("Ben"))
	page.brokenPagination = true
	f := newControllerFixture(t, page, 1)

	_, err := f.ctrl.Extract(context.Background(), false)
	require.NoError(t, err)
	f.ctrl.Wait()

	term := f.publisher.terminal()
	require.NotNil(t, term)
	assert.False(t, term.Success)
	assert.Contains(t, term.Error, "next page button not found")
	assert.Equal(t, 0, f.exporter.calls)

	status := f.ctrl.Status(context.Background())
	assert.Equal(t, entity.RunFailed, status.State)
	assert.Equal(t, 1, status.Records)

	path, err := f.ctrl.ExportCollected(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, path)
	require.Len(t, f.exporter.rows, 1)
	assert.Equal(t, "Ada", f.exporter.rows[0][1])
}

func TestExtract_ExportFailure(t *testing.T) {
	f := newControllerFixture(t, newFakePage(cards("Ada")), 1)
	f.exporter.err = errors.New("disk full")

	_, err := f.ctrl.Extract(context.Background(), false)
	require.NoError(t, err)
	f.ctrl.Wait()

	term := f.publisher.terminal()
	require.NotNil(t, term)
	assert.False(t, term.Success)
	assert.Contains(t, term.Error, "disk full")
	assert.Equal(t, entity.RunFailed, f.ctrl.Status(context.Background()).State)
}

func TestExtract_AlreadyRunning(t *testing.T) {
	page := newFakePage(cards("Ada"))
	page.gate = make(chan struct{})
	f := newControllerFixture(t, page, 1)

	_, err := f.ctrl.Extract(context.Background(), false)
	require.NoError(t, err)

	_, err = f.ctrl.Extract(context.Background(), true)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	status := f.ctrl.Status(context.Background())
	assert.True(t, status.IsProcessing)
	assert.Equal(t, entity.RunRunning, status.State)

	close(page.gate)
	f.ctrl.Wait()
	assert.Equal(t, entity.RunCompleted, f.ctrl.Status(context.Background()).State)
}

func TestStop_WithoutRun(t *testing.T) {
	f := newControllerFixture(t, newFakePage(cards("Ada")), 1)
	assert.False(t, f.ctrl.Stop())
}

func TestStop_BeforeEngineStartsIsRemembered(t *testing.T) {
	f := newControllerFixture(t, newFakePage(cards("Ada")), 1)
	f.ctrl.mu.Lock()
	f.ctrl.active = true
	f.ctrl.mu.Unlock()

	assert.True(t, f.ctrl.Stop())
	f.ctrl.mu.Lock()
	defer f.ctrl.mu.Unlock()
	assert.True(t, f.ctrl.stopPending)
}

func TestExportCollected_NothingCollected(t *testing.T) {
	f := newControllerFixture(t, newFakePage(cards("Ada")), 1)
	_, err := f.ctrl.ExportCollected(context.Background())
	assert.ErrorIs(t, err, ErrNothingToExport)
}

func TestStatus_FallsBackToStoredEcho(t *testing.T) {
	f := newControllerFixture(t, newFakePage(cards("Ada")), 1)
	finished := time.Date(2024, time.May, 2, 10, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.SetStatus(context.Background(), entity.RunStatus{
		RunID:      "run-7",
		State:      entity.RunCompleted,
		Records:    12,
		FinishedAt: &finished,
	}))

	status := f.ctrl.Status(context.Background())
	assert.Equal(t, "run-7", status.RunID)
	assert.Equal(t, 12, status.Records)
}

func TestClose_CancelsActiveRun(t *testing.T) {
	page := newFakePage(cards("Ada"))
	page.gate = make(chan struct{})
	f := newControllerFixture(t, page, 1)

	_, err := f.ctrl.Extract(context.Background(), false)
	require.NoError(t, err)
	f.ctrl.Close()

	term := f.publisher.terminal()
	require.NotNil(t, term)
	assert.False(t, term.Success)
	assert.Contains(t, term.Error, context.Canceled.Error())
}
