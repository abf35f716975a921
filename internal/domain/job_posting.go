package domain

import (
	"context"
	"time"

	"rigger-connect-backend/pkg/geo"
)

type JobPostingStatus string

const (
	JobStatusDraft     JobPostingStatus = "draft"
	JobStatusPublished JobPostingStatus = "published"
	JobStatusArchived  JobPostingStatus = "archived"
)

type JobType string

const (
	JobTypeFullTime JobType = "full-time"
	JobTypePartTime JobType = "part-time"
	JobTypeContract JobType = "contract"
	JobTypeCasual   JobType = "casual"
)

// LocationSource records where a posting's coordinates came from.
type LocationSource string

const (
	LocationSourceUserProfile LocationSource = "user_profile"
	LocationSourceManual      LocationSource = "manual"
	LocationSourceDetected    LocationSource = "detected"
)

// JobPosting is a row of the job_postings table.
type JobPosting struct {
	ID             string           `json:"id"`
	EmployerID     string           `json:"employer_id"`
	Title          string           `json:"title"`
	Company        string           `json:"company"`
	Description    string           `json:"description"`
	Requirements   []string         `json:"requirements"`
	Benefits       []string         `json:"benefits"`
	SalaryMin      float64          `json:"salary_min"`
	SalaryMax      float64          `json:"salary_max"`
	JobType        JobType          `json:"job_type"`
	Category       string           `json:"category"`
	Urgent         bool             `json:"urgent"`
	Featured       bool             `json:"featured"`
	Latitude       *float64         `json:"latitude"`
	Longitude      *float64         `json:"longitude"`
	LocationText   string           `json:"location_text"`
	LocationSource *LocationSource  `json:"location_source"`
	Status         JobPostingStatus `json:"status"`
	PublishedAt    *time.Time       `json:"published_at"`
	ExpiresAt      *time.Time       `json:"expires_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

func (j JobPosting) Coordinate() (geo.Coordinate, bool) {
	if j.Latitude == nil || j.Longitude == nil {
		return geo.Coordinate{}, false
	}
	return geo.Coordinate{Latitude: *j.Latitude, Longitude: *j.Longitude}, true
}

// NearbyJob is a row returned by find_jobs_within_distance.
type NearbyJob struct {
	JobPosting
	DistanceKm float64 `json:"distance_km"`
}

// JobPostingInput is the create payload. Validation runs on the merged record
// for updates too, so the tags describe a complete posting.
type JobPostingInput struct {
	Title          string          `json:"title" validate:"required,max=150,no_emoji"`
	Company        string          `json:"company" validate:"required,max=150,valid_name"`
	Description    string          `json:"description" validate:"required,max=10000"`
	Requirements   []string        `json:"requirements" validate:"max=50,dive,max=300"`
	Benefits       []string        `json:"benefits" validate:"max=50,dive,max=300"`
	SalaryMin      float64         `json:"salary_min" validate:"gt=0"`
	SalaryMax      float64         `json:"salary_max" validate:"gt=0,gtfield=SalaryMin"`
	JobType        JobType         `json:"job_type" validate:"omitempty,oneof=full-time part-time contract casual"`
	Category       string          `json:"category" validate:"required,max=100"`
	Urgent         bool            `json:"urgent"`
	Featured       bool            `json:"featured"`
	Latitude       *float64        `json:"latitude" validate:"omitempty,lat"`
	Longitude      *float64        `json:"longitude" validate:"omitempty,lng"`
	LocationText   string          `json:"location_text" validate:"max=300"`
	LocationSource *LocationSource `json:"location_source" validate:"omitempty,oneof=user_profile manual detected"`
	ExpiresAt      *time.Time      `json:"expires_at"`
}

// JobPostingPatch carries the fields an update may change; nil means unchanged.
type JobPostingPatch struct {
	Title          *string         `json:"title"`
	Company        *string         `json:"company"`
	Description    *string         `json:"description"`
	Requirements   *[]string       `json:"requirements"`
	Benefits       *[]string       `json:"benefits"`
	SalaryMin      *float64        `json:"salary_min"`
	SalaryMax      *float64        `json:"salary_max"`
	JobType        *JobType        `json:"job_type"`
	Category       *string         `json:"category"`
	Urgent         *bool           `json:"urgent"`
	Featured       *bool           `json:"featured"`
	Latitude       *float64        `json:"latitude"`
	Longitude      *float64        `json:"longitude"`
	LocationText   *string         `json:"location_text"`
	LocationSource *LocationSource `json:"location_source"`
	ExpiresAt      *time.Time      `json:"expires_at"`
}

// Input returns the posting's editable fields.
func (j JobPosting) Input() JobPostingInput {
	return JobPostingInput{
		Title:          j.Title,
		Company:        j.Company,
		Description:    j.Description,
		Requirements:   j.Requirements,
		Benefits:       j.Benefits,
		SalaryMin:      j.SalaryMin,
		SalaryMax:      j.SalaryMax,
		JobType:        j.JobType,
		Category:       j.Category,
		Urgent:         j.Urgent,
		Featured:       j.Featured,
		Latitude:       j.Latitude,
		Longitude:      j.Longitude,
		LocationText:   j.LocationText,
		LocationSource: j.LocationSource,
		ExpiresAt:      j.ExpiresAt,
	}
}

// Apply overlays the non-nil fields of p onto in.
func (p JobPostingPatch) Apply(in JobPostingInput) JobPostingInput {
	if p.Title != nil {
		in.Title = *p.Title
	}
	if p.Company != nil {
		in.Company = *p.Company
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Requirements != nil {
		in.Requirements = *p.Requirements
	}
	if p.Benefits != nil {
		in.Benefits = *p.Benefits
	}
	if p.SalaryMin != nil {
		in.SalaryMin = *p.SalaryMin
	}
	if p.SalaryMax != nil {
		in.SalaryMax = *p.SalaryMax
	}
	if p.JobType != nil {
		in.JobType = *p.JobType
	}
	if p.Category != nil {
		in.Category = *p.Category
	}
	if p.Urgent != nil {
		in.Urgent = *p.Urgent
	}
	if p.Featured != nil {
		in.Featured = *p.Featured
	}
	if p.Latitude != nil {
		in.Latitude = p.Latitude
	}
	if p.Longitude != nil {
		in.Longitude = p.Longitude
	}
	if p.LocationText != nil {
		in.LocationText = *p.LocationText
	}
	if p.LocationSource != nil {
		in.LocationSource = p.LocationSource
	}
	if p.ExpiresAt != nil {
		in.ExpiresAt = p.ExpiresAt
	}
	return in
}

type JobPostingFilter struct {
	Status *JobPostingStatus
	Limit  int
	Offset int
}

type JobPostingRepository interface {
	Create(ctx context.Context, job *JobPosting) error
	GetByID(ctx context.Context, id string) (*JobPosting, error)
	Update(ctx context.Context, job *JobPosting) error
	UpdateStatus(ctx context.Context, id string, status JobPostingStatus, publishedAt *time.Time) error
	Delete(ctx context.Context, id string) error
	ListByEmployer(ctx context.Context, employerID string, f JobPostingFilter) ([]JobPosting, int64, error)
	FindWithinDistance(ctx context.Context, origin geo.Coordinate, radiusKm float64, limit int) ([]NearbyJob, error)
}

type JobPostingUsecase interface {
	Create(ctx context.Context, employerID string, in JobPostingInput) (*JobPosting, error)
	Update(ctx context.Context, employerID, id string, patch JobPostingPatch) (*JobPosting, error)
	Publish(ctx context.Context, employerID, id string) (*JobPosting, error)
	Archive(ctx context.Context, employerID, id string) (*JobPosting, error)
	Delete(ctx context.Context, employerID, id string) error
	GetPublished(ctx context.Context, id string) (*JobPosting, error)
	GetOwned(ctx context.Context, employerID, id string) (*JobPosting, error)
	ListByEmployer(ctx context.Context, employerID string, status *JobPostingStatus, page, pageSize int) ([]JobPosting, int64, error)
	FindNear(ctx context.Context, origin geo.Coordinate, radiusKm float64, limit int) ([]NearbyJob, error)
}
