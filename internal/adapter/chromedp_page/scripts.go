package chromedp_page

import (
	"encoding/json"
	"fmt"
)

// Selectors of the recruiter applicant view.
const (
	ApplicantSelector   = `.artdeco-list .hiring-applicants__list-item[data-view-name="job-applicant-list-profile-card"]`
	PageStateSelector   = `.artdeco-pagination__page-state`
	PageButtonSelector  = `.artdeco-pagination__indicator--number button`
	DownloadSelector    = `a[aria-label*="Download"]`
	NameSelector        = `.hiring-people-card__title`
	LocationSelector    = `.artdeco-entity-lockup__metadata + .artdeco-entity-lockup__metadata`
	AppliedAgoSelector  = `.display-flex.t-black--light span`
	ProfileLinkSelector = `a.ember-view`
)

const readyStateScript = `document.readyState`

// js renders a Go string as a JavaScript string literal.
func js(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func paginationStateScript() string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelector(%s);
	return el ? {found: true, text: el.textContent.trim()} : {found: false, text: ""};
})()`, js(PageStateSelector))
}

func applicantCountScript() string {
	return fmt.Sprintf(`document.querySelectorAll(%s).length`, js(ApplicantSelector))
}

func applicantScript(index int) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelectorAll(%s)[%d];
	if (!el) return {found: false};
	const text = (sel) => (el.querySelector(sel)?.textContent || "").trim();
	return {
		found: true,
		name: text(%s),
		location: text(%s),
		appliedAgo: text(%s),
		hasProfile: !!el.querySelector(%s),
	};
})()`, js(ApplicantSelector), index, js(NameSelector), js(LocationSelector), js(AppliedAgoSelector), js(ProfileLinkSelector))
}

// openApplicantScript dispatches a synthetic click on the profile link with
// navigation suppressed, so the detail pane loads in place.
func openApplicantScript(index int) string {
	return fmt.Sprintf(`(() => {
	const el = document.querySelectorAll(%s)[%d];
	const link = el && el.querySelector(%s);
	if (!link) return false;
	link.addEventListener("click", (e) => e.preventDefault(), {once: true});
	link.dispatchEvent(new MouseEvent("click", {bubbles: true, cancelable: true, view: window}));
	return true;
})()`, js(ApplicantSelector), index, js(ProfileLinkSelector))
}

func downloadLinkScript() string {
	return fmt.Sprintf(`(() => {
	const a = document.querySelector(%s);
	return a && a.href ? a.href : "";
})()`, js(DownloadSelector))
}

// pageButtonsScript reports each button's label and the index of its <li>
// among its siblings, which is what ellipsis placement is judged by.
func pageButtonsScript() string {
	return fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map((b, i) => {
	const li = b.closest("li");
	const position = li && li.parentNode ? Array.from(li.parentNode.children).indexOf(li) : i;
	return {index: i, label: (b.querySelector("span")?.textContent || "").trim(), position: position};
})`, js(PageButtonSelector))
}

func clickPageButtonScript(index int) string {
	return fmt.Sprintf(`(() => {
	const b = document.querySelectorAll(%s)[%d];
	if (!b) return false;
	b.click();
	return true;
})()`, js(PageButtonSelector), index)
}
