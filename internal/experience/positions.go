package experience

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/user/applicant-harvester/internal/entity"
)

// Selectors locating the experience section inside the applicant detail pane.
const (
	sectionHeading   = "Experience"
	itemSelector     = "ul > li"
	roleSelector     = ".t-14.t-black"
	companySelector  = ".t-14.t-black--light"
	durationSelector = `.t-12.t-black--light span[aria-hidden="true"]`
)

const (
	unknownRole     = "Unknown Role"
	unknownCompany  = "Unknown Company"
	unknownDuration = "Unknown Duration"
)

// ParsePositions extracts the listed positions from detail pane HTML.
// found is false when the page has no Experience section at all.
func ParsePositions(html string) (positions []entity.ExperiencePosition, found bool, err error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse detail pane: %w", err)
	}

	var section *goquery.Selection
	doc.Find("section").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		heading := s.Find("h3").First()
		if heading.Length() > 0 && strings.TrimSpace(heading.Text()) == sectionHeading {
			section = s
			return false
		}
		return true
	})
	if section == nil {
		return nil, false, nil
	}

	section.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		p := entity.ExperiencePosition{
			Role:     textOr(item.Find(roleSelector), unknownRole),
			Company:  textOr(item.Find(companySelector), unknownCompany),
			Duration: textOr(item.Find(durationSelector), unknownDuration),
		}
		p.IsPresent = strings.Contains(p.Duration, presentToken)
		positions = append(positions, p)
	})

	return positions, true, nil
}

func textOr(s *goquery.Selection, fallback string) string {
	if s.Length() == 0 {
		return fallback
	}
	if text := strings.TrimSpace(s.First().Text()); text != "" {
		return text
	}
	return fallback
}
