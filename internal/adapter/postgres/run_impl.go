package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/user/applicant-harvester/internal/entity"
)

// RunRepoImpl keeps one row per traversal run.
type RunRepoImpl struct {
	db DBTX
}

// NewRunRepo creates a new instance of RunRepoImpl.
func NewRunRepo(db DBTX) *RunRepoImpl {
	return &RunRepoImpl{db: db}
}

// SaveRun creates or updates the run row from its status.
func (r *RunRepoImpl) SaveRun(ctx context.Context, status *entity.RunStatus) error {
	id, err := uuid.Parse(status.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", status.RunID, err)
	}

	query := `
		INSERT INTO harvest_runs (id, state, started_at, finished_at, error, records)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			started_at = COALESCE(harvest_runs.started_at, EXCLUDED.started_at),
			finished_at = EXCLUDED.finished_at,
			error = EXCLUDED.error,
			records = EXCLUDED.records;
	`
	_, err = r.db.Exec(ctx, query,
		id,
		string(status.State),
		status.StartedAt,
		status.FinishedAt,
		status.Error,
		status.Records,
	)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", status.RunID, err)
	}
	return nil
}
