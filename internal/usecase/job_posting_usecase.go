package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/apperror"
	"rigger-connect-backend/pkg/geo"
	"rigger-connect-backend/pkg/logger"
	"rigger-connect-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const locationRequiredMessage = "Job location is required"

// AddressLabeler turns coordinates into a display address.
type AddressLabeler interface {
	ReverseGeocode(ctx context.Context, lat, lng float64, preferred string) string
}

type jobPostingUsecase struct {
	repo     domain.JobPostingRepository
	validate *validator.Validate
	labeler  AddressLabeler
	now      func() time.Time
}

// NewJobPostingUsecase wires the job posting rules. labeler may be nil; then a
// posting with coordinates but no location text keeps the text empty.
func NewJobPostingUsecase(repo domain.JobPostingRepository, validate *validator.Validate, labeler AddressLabeler) domain.JobPostingUsecase {
	return &jobPostingUsecase{
		repo:     repo,
		validate: validate,
		labeler:  labeler,
		now:      time.Now,
	}
}

// Create stores a new posting as a draft.
func (u *jobPostingUsecase) Create(ctx context.Context, employerID string, in domain.JobPostingInput) (*domain.JobPosting, error) {
	if employerID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}

	in = normalizeJobInput(in)
	if err := u.validateInput(in); err != nil {
		return nil, err
	}
	in = u.fillLocationText(ctx, in)

	now := u.now()
	job := &domain.JobPosting{
		EmployerID: employerID,
		Status:     domain.JobStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyInput(job, in)

	if err := u.repo.Create(ctx, job); err != nil {
		logger.Log.Error("failed to create job posting", "employer_id", employerID, "error", err)
		return nil, apperror.Internal(err)
	}
	return job, nil
}

// Update merges the patch onto the stored posting and revalidates the result.
func (u *jobPostingUsecase) Update(ctx context.Context, employerID, id string, patch domain.JobPostingPatch) (*domain.JobPosting, error) {
	job, err := u.owned(ctx, employerID, id)
	if err != nil {
		return nil, err
	}

	in := normalizeJobInput(patch.Apply(job.Input()))
	if err := u.validateInput(in); err != nil {
		return nil, err
	}
	// Text describing the old position is stale once the pin moves.
	if patch.LocationText == nil && movedPin(job.Latitude, job.Longitude, in.Latitude, in.Longitude) {
		in.LocationText = ""
	}
	in = u.fillLocationText(ctx, in)

	applyInput(job, in)
	job.UpdatedAt = u.now()
	if err := u.repo.Update(ctx, job); err != nil {
		return nil, u.repoError(err, "update")
	}
	return job, nil
}

func (u *jobPostingUsecase) Publish(ctx context.Context, employerID, id string) (*domain.JobPosting, error) {
	job, err := u.owned(ctx, employerID, id)
	if err != nil {
		return nil, err
	}
	if job.Status == domain.JobStatusPublished {
		return job, nil
	}

	publishedAt := u.now()
	if err := u.repo.UpdateStatus(ctx, id, domain.JobStatusPublished, &publishedAt); err != nil {
		return nil, u.repoError(err, "publish")
	}
	job.Status = domain.JobStatusPublished
	job.PublishedAt = &publishedAt
	job.UpdatedAt = publishedAt
	return job, nil
}

func (u *jobPostingUsecase) Archive(ctx context.Context, employerID, id string) (*domain.JobPosting, error) {
	job, err := u.owned(ctx, employerID, id)
	if err != nil {
		return nil, err
	}
	if err := u.repo.UpdateStatus(ctx, id, domain.JobStatusArchived, nil); err != nil {
		return nil, u.repoError(err, "archive")
	}
	job.Status = domain.JobStatusArchived
	job.UpdatedAt = u.now()
	return job, nil
}

func (u *jobPostingUsecase) Delete(ctx context.Context, employerID, id string) error {
	if _, err := u.owned(ctx, employerID, id); err != nil {
		return err
	}
	if err := u.repo.Delete(ctx, id); err != nil {
		return u.repoError(err, "delete")
	}
	return nil
}

// GetPublished hides drafts and archived postings from the public.
func (u *jobPostingUsecase) GetPublished(ctx context.Context, id string) (*domain.JobPosting, error) {
	job, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, u.repoError(err, "get")
	}
	if job.Status != domain.JobStatusPublished {
		return nil, apperror.NotFound("Job posting not found")
	}
	return job, nil
}

func (u *jobPostingUsecase) GetOwned(ctx context.Context, employerID, id string) (*domain.JobPosting, error) {
	return u.owned(ctx, employerID, id)
}

func (u *jobPostingUsecase) ListByEmployer(ctx context.Context, employerID string, status *domain.JobPostingStatus, page, pageSize int) ([]domain.JobPosting, int64, error) {
	if employerID == "" {
		return nil, 0, apperror.Unauthorized("User not authenticated")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}

	jobs, total, err := u.repo.ListByEmployer(ctx, employerID, domain.JobPostingFilter{
		Status: status,
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		return nil, 0, apperror.Internal(err)
	}
	return jobs, total, nil
}

// FindNear lists published postings within radiusKm of origin, nearest first.
func (u *jobPostingUsecase) FindNear(ctx context.Context, origin geo.Coordinate, radiusKm float64, limit int) ([]domain.NearbyJob, error) {
	if !origin.Valid() {
		return nil, apperror.Validation("Invalid search origin", map[string]string{
			"origin": "Coordinates are out of range",
		})
	}
	if radiusKm <= 0 {
		radiusKm = domain.DefaultRadiusKm
	}
	if radiusKm > domain.MaxRadiusKm {
		radiusKm = domain.MaxRadiusKm
	}
	if limit <= 0 {
		limit = domain.DefaultPageSize
	}
	if limit > domain.MaxPageSize {
		limit = domain.MaxPageSize
	}

	jobs, err := u.repo.FindWithinDistance(ctx, origin, radiusKm, limit)
	if err != nil {
		logger.Log.Error("nearby job query failed", "error", err)
		return nil, apperror.BadGateway("Failed to find nearby jobs", err)
	}
	return jobs, nil
}

// owned loads a posting and checks it belongs to employerID.
func (u *jobPostingUsecase) owned(ctx context.Context, employerID, id string) (*domain.JobPosting, error) {
	if employerID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}
	job, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, u.repoError(err, "get")
	}
	if job.EmployerID != employerID {
		return nil, apperror.Forbidden("You can only manage your own job postings")
	}
	return job, nil
}

func (u *jobPostingUsecase) repoError(err error, op string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.NotFound("Job posting not found")
	}
	logger.Log.Error("job posting repository error", "op", op, "error", err)
	return apperror.Internal(err)
}

// validateInput runs the struct rules and the location rule, reporting every
// failing field at once.
func (u *jobPostingUsecase) validateInput(in domain.JobPostingInput) error {
	details := map[string]string{}
	if err := u.validate.Struct(in); err != nil {
		details = validation.FieldErrors(err)
	}

	hasLat, hasLng := in.Latitude != nil, in.Longitude != nil
	switch {
	case hasLat != hasLng:
		if _, ok := details["latitude"]; !ok {
			details["latitude"] = "Latitude and longitude must be provided together"
		}
	case !hasLat && in.LocationText == "":
		details["location_text"] = locationRequiredMessage
	}

	if len(details) > 0 {
		return apperror.Validation("Validation failed", details)
	}
	return nil
}

func (u *jobPostingUsecase) fillLocationText(ctx context.Context, in domain.JobPostingInput) domain.JobPostingInput {
	if in.LocationText != "" || in.Latitude == nil || in.Longitude == nil || u.labeler == nil {
		return in
	}
	in.LocationText = u.labeler.ReverseGeocode(ctx, *in.Latitude, *in.Longitude, "")
	return in
}

func movedPin(oldLat, oldLng, newLat, newLng *float64) bool {
	if newLat == nil || newLng == nil {
		return false
	}
	if oldLat == nil || oldLng == nil {
		return true
	}
	return *oldLat != *newLat || *oldLng != *newLng
}

// normalizeJobInput trims text, drops blank list entries and applies defaults.
func normalizeJobInput(in domain.JobPostingInput) domain.JobPostingInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Company = strings.TrimSpace(in.Company)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	in.LocationText = strings.TrimSpace(in.LocationText)
	in.Requirements = compact(in.Requirements)
	in.Benefits = compact(in.Benefits)
	if in.JobType == "" {
		in.JobType = domain.JobTypeFullTime
	}
	if in.LocationSource == nil {
		src := domain.LocationSourceManual
		in.LocationSource = &src
	}
	return in
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func applyInput(job *domain.JobPosting, in domain.JobPostingInput) {
	job.Title = in.Title
	job.Company = in.Company
	job.Description = in.Description
	job.Requirements = in.Requirements
	job.Benefits = in.Benefits
	job.SalaryMin = in.SalaryMin
	job.SalaryMax = in.SalaryMax
	job.JobType = in.JobType
	job.Category = in.Category
	job.Urgent = in.Urgent
	job.Featured = in.Featured
	job.Latitude = in.Latitude
	job.Longitude = in.Longitude
	job.LocationText = in.LocationText
	job.LocationSource = in.LocationSource
	job.ExpiresAt = in.ExpiresAt
}
