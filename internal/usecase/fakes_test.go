package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/user/applicant-harvester/internal/entity"
	"github.com/user/applicant-harvester/internal/experience"
	"github.com/user/applicant-harvester/internal/repository"
)

const hiringURL = "https://www.linkedin.com/hiring/jobs/4012/applicants/9/detail/"

const detailFixture = `
<html><body><div class="detail">
<section>
  <h3>Experience</h3>
  <ul>
    <li>
      <div class="t-14 t-black">Engineer</div>
      <div class="t-14 t-black--light">Acme</div>
      <div class="t-12 t-black--light"><span aria-hidden="true">2020 – Present</span></div>
    </li>
  </ul>
</section>
</div></body></html>`

// fakePage simulates the applicant list, its detail pane and the pagination strip.
type fakePage struct {
	mu sync.Mutex

	url       string
	pages     [][]repository.ApplicantCard
	current   int
	selected  int
	expanded  bool
	indicator string

	noIndicator      bool
	collapseAfter    int // pages after this one hide behind an ellipsis until it is expanded
	brokenPagination bool
	strip            []string // fixed pagination labels; expanding an ellipsis reveals nothing
	missing          map[int]bool
	noResume         map[string]bool

	gate        chan struct{}
	onApplicant func(page, index int)

	clicks []string
	opened []int
}

func newFakePage(pages ...[]repository.ApplicantCard) *fakePage {
	return &fakePage{
		url:      hiringURL,
		pages:    pages,
		current:  1,
		selected: -1,
		missing:  map[int]bool{},
		noResume: map[string]bool{},
	}
}

func cards(names ...string) []repository.ApplicantCard {
	out := make([]repository.ApplicantCard, len(names))
	for i, n := range names {
		out[i] = repository.ApplicantCard{Name: n, Location: "Berlin", AppliedAgo: "2d ago", HasProfile: true}
	}
	return out
}

func (f *fakePage) CurrentURL(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}

func (f *fakePage) WaitReady(ctx context.Context) error {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (f *fakePage) PaginationState(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.noIndicator {
		return "", false, nil
	}
	if f.indicator != "" {
		return f.indicator, true, nil
	}
	return fmt.Sprintf("Page %d of %d", f.current, len(f.pages)), true, nil
}

func (f *fakePage) currentCards() []repository.ApplicantCard {
	if f.current < 1 || f.current > len(f.pages) {
		return nil
	}
	return f.pages[f.current-1]
}

func (f *fakePage) ApplicantCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.currentCards()), nil
}

func (f *fakePage) Applicant(_ context.Context, index int) (repository.ApplicantCard, bool, error) {
	f.mu.Lock()
	hook, page := f.onApplicant, f.current
	f.mu.Unlock()
	if hook != nil {
		hook(page, index)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	cs := f.currentCards()
	if index >= len(cs) || f.missing[index] {
		return repository.ApplicantCard{}, false, nil
	}
	return cs[index], true, nil
}

func (f *fakePage) OpenApplicant(_ context.Context, index int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs := f.currentCards()
	if index >= len(cs) {
		return false, nil
	}
	f.selected = index
	f.opened = append(f.opened, index)
	return cs[index].HasProfile, nil
}

func (f *fakePage) DownloadLink(context.Context) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cs := f.currentCards()
	if f.selected < 0 || f.selected >= len(cs) {
		return "", false, nil
	}
	name := cs[f.selected].Name
	if f.noResume[name] {
		return "", false, nil
	}
	return "https://files.example.test/resume/" + name, true, nil
}

func (f *fakePage) DetailHTML(context.Context) (string, error) {
	return detailFixture, nil
}

func (f *fakePage) buttonsLocked() []repository.PageButton {
	total := len(f.pages)
	var labels []string
	switch {
	case f.strip != nil:
		labels = f.strip
	case f.brokenPagination:
		labels = []string{strconv.Itoa(f.current)}
	case f.collapseAfter > 0 && !f.expanded && total > f.collapseAfter+1:
		for p := 1; p <= f.collapseAfter; p++ {
			labels = append(labels, strconv.Itoa(p))
		}
		labels = append(labels, "…", strconv.Itoa(total))
	default:
		for p := 1; p <= total; p++ {
			labels = append(labels, strconv.Itoa(p))
		}
	}
	buttons := make([]repository.PageButton, len(labels))
	for i, l := range labels {
		buttons[i] = repository.PageButton{Index: i, Label: l, Position: i}
	}
	return buttons
}

func (f *fakePage) PageButtons(context.Context) ([]repository.PageButton, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buttonsLocked(), nil
}

func (f *fakePage) ClickPageButton(_ context.Context, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	buttons := f.buttonsLocked()
	if index < 0 || index >= len(buttons) {
		return errors.New("button detached")
	}
	label := buttons[index].Label
	f.clicks = append(f.clicks, label)
	if label == "…" {
		f.expanded = true
		return nil
	}
	n, err := strconv.Atoi(label)
	if err != nil {
		return err
	}
	f.current = n
	f.selected = -1
	return nil
}

type dispatchCall struct {
	URL    string
	Serial int
	Name   string
}

type fakeDispatcher struct {
	mu    sync.Mutex
	fail  bool
	calls []dispatchCall
}

func (d *fakeDispatcher) Dispatch(_ context.Context, url string, serial int, name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{URL: url, Serial: serial, Name: name})
	return !d.fail
}

type fakeRecordStore struct {
	mu    sync.Mutex
	saved map[string][]*entity.ApplicantRecord
}

func (s *fakeRecordStore) Save(_ context.Context, runID string, r *entity.ApplicantRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = map[string][]*entity.ApplicantRecord{}
	}
	s.saved[runID] = append(s.saved[runID], r)
	return nil
}

func (s *fakeRecordStore) FindByRun(_ context.Context, runID string) ([]*entity.ApplicantRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved[runID], nil
}

type fakeExporter struct {
	mu      sync.Mutex
	err     error
	headers []string
	rows    [][]string
	calls   int
}

func (e *fakeExporter) Export(_ context.Context, headers []string, rows [][]string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.err != nil {
		return "", e.err
	}
	e.headers, e.rows = headers, rows
	return "/tmp/exports/LinkedIn_Resumes.xlsx", nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []entity.Event
}

func (p *fakePublisher) Publish(_ context.Context, e entity.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *fakePublisher) terminal() *entity.TerminalEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.events) - 1; i >= 0; i-- {
		if p.events[i].Type == entity.EventTerminal {
			return p.events[i].Terminal
		}
	}
	return nil
}

type fakeStatusRepo struct {
	mu     sync.Mutex
	status *entity.RunStatus
	runs   []entity.RunStatus
}

func (r *fakeStatusRepo) SetStatus(_ context.Context, s entity.RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = &s
	return nil
}

func (r *fakeStatusRepo) GetStatus(context.Context) (entity.RunStatus, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status == nil {
		return entity.RunStatus{}, false, nil
	}
	return *r.status, true, nil
}

func (r *fakeStatusRepo) SaveRun(_ context.Context, s *entity.RunStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, *s)
	return nil
}

func testConfig(pageSize int) TraversalConfig {
	return TraversalConfig{PageSize: pageSize, AffordanceAttempts: 2}
}

func testSummarizer() *experience.Summarizer {
	s := experience.NewSummarizer(nil)
	s.Now = func() time.Time { return time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC) }
	return s
}

func names(records []*entity.ApplicantRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}

func serials(records []*entity.ApplicantRecord) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.SerialNumber
	}
	return out
}
