package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/user/applicant-harvester/internal/entity"
)

// ApplicantRepoImpl implements repository.ApplicantRepository on PostgreSQL.
type ApplicantRepoImpl struct {
	db DBTX
}

// NewApplicantRepo creates a new instance of ApplicantRepoImpl.
func NewApplicantRepo(db DBTX) *ApplicantRepoImpl {
	return &ApplicantRepoImpl{db: db}
}

// Save upserts one record keyed by (run, serial number).
func (r *ApplicantRepoImpl) Save(ctx context.Context, runID string, rec *entity.ApplicantRecord) error {
	id, err := uuid.Parse(runID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	query := `
		INSERT INTO applicants (run_id, serial_number, name, location, applied_ago, resume_url,
			years_of_experience, current_role, current_company, experience_string, download_status, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id, serial_number) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			applied_ago = EXCLUDED.applied_ago,
			resume_url = EXCLUDED.resume_url,
			years_of_experience = EXCLUDED.years_of_experience,
			current_role = EXCLUDED.current_role,
			current_company = EXCLUDED.current_company,
			experience_string = EXCLUDED.experience_string,
			download_status = EXCLUDED.download_status,
			collected_at = EXCLUDED.collected_at;
	`
	_, err = r.db.Exec(ctx, query,
		id,
		rec.SerialNumber,
		rec.Name,
		rec.Location,
		rec.AppliedAgo,
		rec.ResumeURL,
		rec.YearsOfExperience,
		rec.CurrentRole,
		rec.CurrentCompany,
		rec.ExperienceString,
		string(rec.DownloadStatus),
		rec.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save applicant %d: %w", rec.SerialNumber, err)
	}
	return nil
}

// FindByRun returns a run's records ordered by serial number.
func (r *ApplicantRepoImpl) FindByRun(ctx context.Context, runID string) ([]*entity.ApplicantRecord, error) {
	id, err := uuid.Parse(runID)
	if err != nil {
		return nil, fmt.Errorf("invalid run id %q: %w", runID, err)
	}

	query := `
		SELECT serial_number, name, location, applied_ago, resume_url, years_of_experience,
			current_role, current_company, experience_string, download_status, collected_at
		FROM applicants
		WHERE run_id = $1
		ORDER BY serial_number ASC;
	`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*entity.ApplicantRecord
	for rows.Next() {
		var (
			rec    entity.ApplicantRecord
			status string
		)
		if err := rows.Scan(
			&rec.SerialNumber,
			&rec.Name,
			&rec.Location,
			&rec.AppliedAgo,
			&rec.ResumeURL,
			&rec.YearsOfExperience,
			&rec.CurrentRole,
			&rec.CurrentCompany,
			&rec.ExperienceString,
			&status,
			&rec.CollectedAt,
		); err != nil {
			return nil, err
		}
		rec.DownloadStatus = entity.DownloadStatus(status)
		records = append(records, &rec)
	}
	return records, rows.Err()
}
