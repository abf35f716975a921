package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/geo"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const jobPostingColumns = `id, employer_id, title, company, description,
	COALESCE(requirements, '{}'), COALESCE(benefits, '{}'), salary_min, salary_max, job_type, category,
	urgent, featured, latitude, longitude, COALESCE(location_text, ''), location_source,
	status, published_at, expires_at, created_at, updated_at`

type jobPostingRepo struct {
	db *pgxpool.Pool
}

func NewJobPostingRepository(db *pgxpool.Pool) domain.JobPostingRepository {
	return &jobPostingRepo{db: db}
}

func (r *jobPostingRepo) Create(ctx context.Context, job *domain.JobPosting) error {
	query := `INSERT INTO job_postings (employer_id, title, company, description, requirements, benefits,
		salary_min, salary_max, job_type, category, urgent, featured, latitude, longitude,
		location_text, location_source, status, published_at, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id`
	return r.db.QueryRow(ctx, query,
		job.EmployerID, job.Title, job.Company, job.Description,
		pq.Array(nonNil(job.Requirements)), pq.Array(nonNil(job.Benefits)),
		job.SalaryMin, job.SalaryMax, job.JobType, job.Category, job.Urgent, job.Featured,
		job.Latitude, job.Longitude, job.LocationText, job.LocationSource,
		job.Status, job.PublishedAt, job.ExpiresAt, job.CreatedAt, job.UpdatedAt,
	).Scan(&job.ID)
}

func (r *jobPostingRepo) GetByID(ctx context.Context, id string) (*domain.JobPosting, error) {
	query := fmt.Sprintf(`SELECT %s FROM job_postings WHERE id = $1`, jobPostingColumns)
	job, err := scanJobPosting(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// Update writes every editable column. Status changes go through UpdateStatus.
func (r *jobPostingRepo) Update(ctx context.Context, job *domain.JobPosting) error {
	query := `UPDATE job_postings SET title = $1, company = $2, description = $3, requirements = $4,
		benefits = $5, salary_min = $6, salary_max = $7, job_type = $8, category = $9, urgent = $10,
		featured = $11, latitude = $12, longitude = $13, location_text = $14, location_source = $15,
		expires_at = $16, updated_at = $17
		WHERE id = $18`
	tag, err := r.db.Exec(ctx, query,
		job.Title, job.Company, job.Description,
		pq.Array(nonNil(job.Requirements)), pq.Array(nonNil(job.Benefits)),
		job.SalaryMin, job.SalaryMax, job.JobType, job.Category, job.Urgent,
		job.Featured, job.Latitude, job.Longitude, job.LocationText, job.LocationSource,
		job.ExpiresAt, job.UpdatedAt,
		job.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateStatus sets the status; a nil publishedAt keeps the stored value.
func (r *jobPostingRepo) UpdateStatus(ctx context.Context, id string, status domain.JobPostingStatus, publishedAt *time.Time) error {
	query := `UPDATE job_postings SET status = $1, published_at = COALESCE($2, published_at), updated_at = NOW() WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, status, publishedAt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobPostingRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM job_postings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByEmployer returns the employer's postings, newest first.
func (r *jobPostingRepo) ListByEmployer(ctx context.Context, employerID string, f domain.JobPostingFilter) ([]domain.JobPosting, int64, error) {
	where := "employer_id = $1"
	args := []interface{}{employerID}
	if f.Status != nil {
		where += " AND status = $2"
		args = append(args, *f.Status)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM job_postings WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	query := fmt.Sprintf(`SELECT %s FROM job_postings WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		jobPostingColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, f.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	jobs := []domain.JobPosting{}
	for rows.Next() {
		job, err := scanJobPosting(rows)
		if err != nil {
			return nil, 0, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// FindWithinDistance calls the find_jobs_within_distance database function,
// which returns published postings ordered by distance.
func (r *jobPostingRepo) FindWithinDistance(ctx context.Context, origin geo.Coordinate, radiusKm float64, limit int) ([]domain.NearbyJob, error) {
	query := fmt.Sprintf(`SELECT %s, distance_km FROM find_jobs_within_distance($1, $2, $3, $4)`, jobPostingColumns)
	rows, err := r.db.Query(ctx, query, origin.Latitude, origin.Longitude, radiusKm, limit)
	if err != nil {
		return nil, fmt.Errorf("find_jobs_within_distance: %w", err)
	}
	defer rows.Close()

	jobs := []domain.NearbyJob{}
	for rows.Next() {
		var nj domain.NearbyJob
		if err := rows.Scan(append(jobPostingDest(&nj.JobPosting), &nj.DistanceKm)...); err != nil {
			return nil, err
		}
		jobs = append(jobs, nj)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return jobs, nil
}

func jobPostingDest(j *domain.JobPosting) []interface{} {
	return []interface{}{
		&j.ID, &j.EmployerID, &j.Title, &j.Company, &j.Description,
		pq.Array(&j.Requirements), pq.Array(&j.Benefits), &j.SalaryMin, &j.SalaryMax, &j.JobType, &j.Category,
		&j.Urgent, &j.Featured, &j.Latitude, &j.Longitude, &j.LocationText, &j.LocationSource,
		&j.Status, &j.PublishedAt, &j.ExpiresAt, &j.CreatedAt, &j.UpdatedAt,
	}
}

func scanJobPosting(row pgx.Row) (domain.JobPosting, error) {
	var j domain.JobPosting
	err := row.Scan(jobPostingDest(&j)...)
	return j, err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
