package repository

import (
	"context"

	"github.com/user/applicant-harvester/internal/entity"
)

// ApplicantRepository persists collected applicant rows per run.
type ApplicantRepository interface {
	// Save stores one record. Saving the same (run, serial) again overwrites it.
	Save(ctx context.Context, runID string, record *entity.ApplicantRecord) error
	// FindByRun returns a run's records ordered by serial number.
	FindByRun(ctx context.Context, runID string) ([]*entity.ApplicantRecord, error)
}

// RunRepository keeps the history of traversal runs.
type RunRepository interface {
	// SaveRun creates or updates the run row from its status.
	SaveRun(ctx context.Context, status *entity.RunStatus) error
}
