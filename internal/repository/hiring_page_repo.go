package repository

import "context"

// ApplicantCard is what the applicant list shows for one candidate.
type ApplicantCard struct {
	Name       string
	Location   string
	AppliedAgo string
	HasProfile bool
}

// PageButton is one control of the pagination strip.
type PageButton struct {
	Index    int    // position in the list of pagination buttons, used to click it
	Label    string // page number or the ellipsis glyph
	Position int    // position of the enclosing <li> among its siblings
}

// HiringPage drives the live applicant view of the recruiting site.
// Implementations must re-resolve elements on every call; callers never
// hold handles across waits.
type HiringPage interface {
	// CurrentURL returns the address of the active page.
	CurrentURL(ctx context.Context) (string, error)
	// WaitReady blocks until the document has finished loading.
	WaitReady(ctx context.Context) error
	// PaginationState returns the "Page X of Y" indicator text, if present.
	PaginationState(ctx context.Context) (text string, found bool, err error)
	// ApplicantCount returns how many applicant cards are currently rendered.
	ApplicantCount(ctx context.Context) (int, error)
	// Applicant reads the card at index; found is false if it is not rendered.
	Applicant(ctx context.Context, index int) (card ApplicantCard, found bool, err error)
	// OpenApplicant clicks the card's profile link without letting it navigate.
	OpenApplicant(ctx context.Context, index int) (bool, error)
	// DownloadLink returns the href of the resume download affordance, if shown.
	DownloadLink(ctx context.Context) (href string, found bool, err error)
	// DetailHTML returns the markup of the applicant detail pane.
	DetailHTML(ctx context.Context) (string, error)
	// PageButtons lists the pagination controls.
	PageButtons(ctx context.Context) ([]PageButton, error)
	// ClickPageButton dispatches a click on the button at PageButton.Index.
	ClickPageButton(ctx context.Context, index int) error
}
