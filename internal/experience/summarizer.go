package experience

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/user/applicant-harvester/internal/entity"
)

// HistorySeparator joins the per-position history entries.
const HistorySeparator = " | "

var (
	// NoExperience is returned when a candidate lists no positions.
	NoExperience = entity.ExperienceSummary{
		YearsOfExperience: entity.ZeroYears,
		CurrentRole:       entity.NotEmployed,
		CurrentCompany:    entity.NotEmployed,
		ExperienceString:  entity.NoExperienceListed,
	}

	// ErrorSummary replaces the result when summarizing fails.
	ErrorSummary = entity.ExperienceSummary{
		YearsOfExperience: entity.ZeroYears,
		CurrentRole:       "Error processing role",
		CurrentCompany:    "Error processing company",
		ExperienceString:  "Error processing experience",
	}
)

// Summarizer turns positions into an ExperienceSummary. It never fails:
// errors and panics map to ErrorSummary so one candidate cannot abort a batch.
type Summarizer struct {
	Now    func() time.Time
	logger *zap.Logger
}

// NewSummarizer returns a Summarizer using the wall clock.
func NewSummarizer(logger *zap.Logger) *Summarizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Summarizer{Now: time.Now, logger: logger}
}

// Summarize aggregates the given positions.
func (s *Summarizer) Summarize(positions []entity.ExperiencePosition) (summary entity.ExperienceSummary) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("experience summary failed", zap.Any("panic", r))
			summary = ErrorSummary
		}
	}()

	if len(positions) == 0 {
		return NoExperience
	}

	durations := make([]string, len(positions))
	history := make([]string, len(positions))
	for i, p := range positions {
		durations[i] = p.Duration
		history[i] = fmt.Sprintf("%s at %s (%s)", p.Role, p.Company, p.Duration)
	}

	summary = entity.ExperienceSummary{
		YearsOfExperience: YearsFromMonths(TotalMonths(durations, s.Now().Year())),
		CurrentRole:       entity.NotEmployed,
		CurrentCompany:    entity.NotEmployed,
		ExperienceString:  strings.Join(history, HistorySeparator),
	}
	for _, p := range positions {
		if p.IsPresent {
			summary.CurrentRole = p.Role
			summary.CurrentCompany = p.Company
			break
		}
	}
	return summary
}

// SummarizeHTML parses the detail pane and summarizes the positions found there.
func (s *Summarizer) SummarizeHTML(html string) entity.ExperienceSummary {
	positions, found, err := ParsePositions(html)
	if err != nil {
		s.logger.Warn("could not read experience section", zap.Error(err))
		return ErrorSummary
	}
	if !found {
		return NoExperience
	}
	return s.Summarize(positions)
}
