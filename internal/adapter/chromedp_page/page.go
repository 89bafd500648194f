package chromedp_page

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/applicant-harvester/internal/repository"
)

const (
	callTimeout  = 15 * time.Second
	readyTimeout = 60 * time.Second
	readyPoll    = 200 * time.Millisecond
)

// Page implements repository.HiringPage on a chromedp tab. Every call
// re-queries the DOM; nothing is cached between calls.
type Page struct {
	session *Session
	logger  *zap.Logger
}

// NewPage wraps an open session.
func NewPage(session *Session, logger *zap.Logger) repository.HiringPage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Page{session: session, logger: logger}
}

func (p *Page) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := p.session.run(ctx, callTimeout, chromedp.Location(&location)); err != nil {
		return "", fmt.Errorf("failed to read tab location: %w", err)
	}
	return location, nil
}

// WaitReady waits for document.readyState to reach "complete".
func (p *Page) WaitReady(ctx context.Context) error {
	deadline := time.Now().Add(readyTimeout)
	for {
		var state string
		if err := p.session.run(ctx, callTimeout, chromedp.Evaluate(readyStateScript, &state)); err != nil {
			return fmt.Errorf("failed to read document state: %w", err)
		}
		if state == "complete" {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("document still %q after %s", state, readyTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPoll):
		}
	}
}

func (p *Page) PaginationState(ctx context.Context) (string, bool, error) {
	var res struct {
		Found bool   `json:"found"`
		Text  string `json:"text"`
	}
	if err := p.session.run(ctx, callTimeout, chromedp.Evaluate(paginationStateScript(), &res)); err != nil {
		return "", false, fmt.Errorf("failed to read pagination state: %w", err)
	}
	return res.Text, res.Found, nil
}

func (p *Page) ApplicantCount(ctx context.Context) (int, error) {
	var n int
	if err := p.session.run(ctx, callTimeout, chromedp.Evaluate(applicantCountScript(), &n)); err != nil {
		return 0, fmt.Errorf("failed to count applicants: %w", err)
	}
	return n, nil
}

func (p *Page) Applicant(ctx context.Context, index int) (repository.ApplicantCard, bool, error) {
	var res struct {
		Found      bool   `json:"found"`
		Name       string `json:"name"`
		Location   string `json:"location"`
		AppliedAgo string `json:"appliedAgo"`
		HasProfile bool   `json:"hasProfile"`
	}
	if err := p.session.run(ctx, callTimeout, chromedp.Evaluate(applicantScript(index), &res)); err != nil {
		return repository.ApplicantCard{}, false, fmt.Errorf("failed to read applicant %d: %w", index, err)
	}
	if !res.Found {
		return repository.ApplicantCard{}, false, nil
	}
	return repository.ApplicantCard{
		Name:       res.Name,
		Location:   res.Location,
		AppliedAgo: res.AppliedAgo,
		HasProfile: res.HasProfile,
	}, true, nil
}

func (p *Page) OpenApplicant(ctx context.Context, index int) (bool, error) {
	var opened bool
	if err := p.session.run(ctx, callTimeout, chromedp.Evaluate(openApplicantScript(index), &opened)); err != nil {
		return false, fmt.Errorf("failed to open applicant %d: %w", index, err)
	}
	return opened, nil
}

func (p *Page) DownloadLink(ctx context.Context) (string, bool, error) {
	var href string
	if err := p.session.run(ctx, callTimeout, chromedp.Evaluate(downloadLinkScript(), &href)); err != nil {
		return "", false, fmt.Errorf("failed to read download link: %w", err)
	}
	return href, href != "", nil
}

func (p *Page) DetailHTML(ctx context.Context) (string, error) {
	var html string
	if err := p.session.run(ctx, callTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("failed to read detail pane: %w", err)
	}
	return html, nil
}

func (p *Page) PageButtons(ctx context.Context) ([]repository.PageButton, error) {
	var res []struct {
		Index    int    `json:"index"`
		Label    string `json:"label"`
		Position int    `json:"position"`
	}
	if err := p.session.run(ctx, callTimeout, chromedp.Evaluate(pageButtonsScript(), &res)); err != nil {
		return nil, fmt.Errorf("failed to list pagination buttons: %w", err)
	}
	buttons := make([]repository.PageButton, len(res))
	for i, b := range res {
		buttons[i] = repository.PageButton{Index: b.Index, Label: b.Label, Position: b.Position}
	}
	return buttons, nil
}

func (p *Page) ClickPageButton(ctx context.Context, index int) error {
	var clicked bool
	if err := p.session.run(ctx, callTimeout, chromedp.Evaluate(clickPageButtonScript(index), &clicked)); err != nil {
		return fmt.Errorf("failed to click pagination button %d: %w", index, err)
	}
	if !clicked {
		return fmt.Errorf("pagination button %d is no longer rendered", index)
	}
	p.logger.Debug("clicked pagination button", zap.Int("index", index))
	return nil
}
