package usecase

import (
	"context"
	"errors"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/internal/ranking"
	"rigger-connect-backend/pkg/apperror"
	"rigger-connect-backend/pkg/geo"
	"rigger-connect-backend/pkg/logger"
	"rigger-connect-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const searchFailedMessage = "Failed to search workers. Please try again."

type workerSearchUsecase struct {
	profileRepo domain.ProfileRepository
	validate    *validator.Validate
	now         func() time.Time
}

func NewWorkerSearchUsecase(profileRepo domain.ProfileRepository, validate *validator.Validate) domain.WorkerSearchUsecase {
	return &workerSearchUsecase{
		profileRepo: profileRepo,
		validate:    validate,
		now:         time.Now,
	}
}

// Search fetches one page from the repository, narrowed to the origin's
// bounding box, then applies the exact radius, scoring, the availability
// filter and the requested order. HasMore reflects the raw page size, before
// the in-memory filters.
func (u *workerSearchUsecase) Search(ctx context.Context, params domain.WorkerSearchParams) (*domain.SearchPage, error) {
	params = normalizeSearchParams(params)
	if err := u.validateParams(params, params.Origin); err != nil {
		return nil, err
	}

	q := baseProfileQuery(params)
	return u.run(ctx, params, q)
}

func (u *workerSearchUsecase) AdvancedSearch(ctx context.Context, params domain.AdvancedSearchParams) (*domain.AdvancedSearchResult, error) {
	params.WorkerSearchParams = normalizeSearchParams(params.WorkerSearchParams)
	if err := u.validateParams(params, params.Origin); err != nil {
		return nil, err
	}
	if params.MinExperience != nil && params.MaxExperience != nil && *params.MaxExperience < *params.MinExperience {
		return nil, apperror.Validation("Invalid search filters", map[string]string{
			"max_experience": "Maximum experience must not be less than minimum experience",
		})
	}

	q := baseProfileQuery(params.WorkerSearchParams)
	q.Skills = params.Skills
	q.Companies = params.Companies
	q.HasPhone = params.HasPhone
	q.HasLocation = params.HasLocation
	if params.MinExperience != nil {
		q.MinExperience = params.MinExperience
	}
	if params.MaxExperience != nil {
		// Inclusive upper bound on the request, exclusive in the query.
		max := *params.MaxExperience + 1
		q.MaxExperience = &max
	}
	if params.LastActiveDays > 0 {
		since := u.now().AddDate(0, 0, -params.LastActiveDays)
		q.ActiveSince = &since
	}

	page, err := u.run(ctx, params.WorkerSearchParams, q)
	if err != nil {
		return nil, err
	}
	return &domain.AdvancedSearchResult{
		SearchPage: *page,
		Facets:     ranking.ComputeFacets(page.Items),
	}, nil
}

func (u *workerSearchUsecase) GetWorker(ctx context.Context, id string, origin *geo.Coordinate) (*domain.WorkerCandidate, error) {
	if origin != nil && !origin.Valid() {
		return nil, invalidOrigin()
	}

	p, err := u.profileRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperror.NotFound("Worker not found")
		}
		logger.Log.Error("worker lookup failed", "error", err, "worker_id", id)
		return nil, apperror.BadGateway("Failed to load worker. Please try again.", err)
	}

	cand := ranking.Annotate([]domain.WorkerProfile{*p}, "", origin)[0]
	return &cand, nil
}

func (u *workerSearchUsecase) run(ctx context.Context, params domain.WorkerSearchParams, q domain.ProfileQuery) (*domain.SearchPage, error) {
	profiles, total, err := u.profileRepo.Search(ctx, q)
	if err != nil {
		logger.Log.Error("worker search query failed", "error", err)
		return nil, apperror.BadGateway(searchFailedMessage, err)
	}

	items := ranking.Rank(profiles, params.Origin, params.SearchFilters)
	return &domain.SearchPage{
		Items:   items,
		Total:   total,
		Offset:  params.Offset,
		Limit:   params.Limit,
		HasMore: len(profiles) == params.Limit,
	}, nil
}

func (u *workerSearchUsecase) validateParams(params interface{}, origin *geo.Coordinate) error {
	if err := u.validate.Struct(params); err != nil {
		return apperror.Validation("Invalid search filters", validation.FieldErrors(err))
	}
	if origin != nil && !origin.Valid() {
		return invalidOrigin()
	}
	return nil
}

func invalidOrigin() error {
	return apperror.Validation("Invalid search origin", map[string]string{
		"origin": "Coordinates are out of range",
	})
}

func normalizeSearchParams(p domain.WorkerSearchParams) domain.WorkerSearchParams {
	p.SearchFilters = p.SearchFilters.WithDefaults()
	if p.Limit <= 0 {
		p.Limit = domain.DefaultPageSize
	}
	if p.Limit > domain.MaxPageSize {
		p.Limit = domain.MaxPageSize
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func baseProfileQuery(p domain.WorkerSearchParams) domain.ProfileQuery {
	q := domain.ProfileQuery{
		SearchTerm: p.SearchTerm,
		Offset:     p.Offset,
		Limit:      p.Limit,
	}
	if p.Origin != nil {
		box := geo.CalculateBoundingBox(p.Origin.Latitude, p.Origin.Longitude, p.RadiusKm)
		q.Box = &box
	}
	q.MinExperience, q.MaxExperience = p.ExperienceLevel.Range()
	return q
}
