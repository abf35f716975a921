package v1

import (
	"net/http"

	"rigger-connect-backend/internal/delivery/http/response"
	"rigger-connect-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type WorkerHandler struct {
	searchUC domain.WorkerSearchUsecase
}

func NewWorkerHandler(public *gin.RouterGroup, searchUC domain.WorkerSearchUsecase, limiter gin.HandlerFunc) {
	handler := &WorkerHandler{searchUC: searchUC}

	workers := public.Group("/workers", limiter)
	{
		workers.GET("/search", handler.Search)
		workers.POST("/search/advanced", handler.AdvancedSearch)
		workers.GET("/:id", handler.GetWorker)
	}
}

// WorkerSearchQuery is the query string of GET /workers/search.
type WorkerSearchQuery struct {
	Lat *float64 `form:"lat"`
	Lng *float64 `form:"lng"`
	domain.SearchFilters
	Offset int `form:"offset"`
	Limit  int `form:"limit"`
}

type workerOriginQuery struct {
	Lat *float64 `form:"lat"`
	Lng *float64 `form:"lng"`
}

type AdvancedSearchRequest struct {
	Latitude        *float64                  `json:"latitude"`
	Longitude       *float64                  `json:"longitude"`
	SearchTerm      string                    `json:"search_term"`
	RadiusKm        float64                   `json:"radius_km"`
	ExperienceLevel domain.ExperienceLevel    `json:"experience_level"`
	Availability    domain.AvailabilityFilter `json:"availability"`
	Location        string                    `json:"location"`
	SortBy          domain.SortBy             `json:"sort_by"`
	Skills          []string                  `json:"skills"`
	Companies       []string                  `json:"companies"`
	MinExperience   *int                      `json:"min_experience"`
	MaxExperience   *int                      `json:"max_experience"`
	HasPhone        bool                      `json:"has_phone"`
	HasLocation     bool                      `json:"has_location"`
	LastActiveDays  int                       `json:"last_active_days"`
	Offset          int                       `json:"offset"`
	Limit           int                       `json:"limit"`
}

// SearchWorkers godoc
// @Summary      Search workers near a point
// @Description  Returns one page of worker profiles ranked by distance, experience, match score or recency
// @Tags         workers
// @Produce      json
// @Param        lat           query     number  false  "Origin latitude"
// @Param        lng           query     number  false  "Origin longitude"
// @Param        q             query     string  false  "Search term"
// @Param        radius        query     number  false  "Radius in km (default 50)"
// @Param        experience    query     string  false  "all-experience, entry, mid, senior or expert"
// @Param        availability  query     string  false  "all, available or busy"
// @Param        sort_by       query     string  false  "distance, experience, match_score or recent"
// @Param        offset        query     int     false  "Offset"
// @Param        limit         query     int     false  "Page size (default 20)"
// @Success      200  {object}  response.Response{data=domain.SearchPage}
// @Failure      400  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /workers/search [get]
func (h *WorkerHandler) Search(c *gin.Context) {
	var q WorkerSearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(errInvalidQuery)
		return
	}
	origin, err := originFrom(q.Lat, q.Lng)
	if err != nil {
		c.Error(err)
		return
	}

	page, err := h.searchUC.Search(c.Request.Context(), domain.WorkerSearchParams{
		Origin:        origin,
		SearchFilters: q.SearchFilters,
		Offset:        q.Offset,
		Limit:         q.Limit,
	})
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Workers retrieved", page)
}

// AdvancedSearchWorkers godoc
// @Summary      Advanced worker search
// @Description  Adds skill, company, experience range, contact and recency filters, and returns facets
// @Tags         workers
// @Accept       json
// @Produce      json
// @Param        request  body      AdvancedSearchRequest  true  "Search filters"
// @Success      200      {object}  response.Response{data=domain.AdvancedSearchResult}
// @Failure      400      {object}  response.Response
// @Failure      502      {object}  response.Response
// @Router       /workers/search/advanced [post]
func (h *WorkerHandler) AdvancedSearch(c *gin.Context) {
	var req AdvancedSearchRequest
	if !bindJSON(c, &req) {
		return
	}
	origin, err := originFrom(req.Latitude, req.Longitude)
	if err != nil {
		c.Error(err)
		return
	}

	result, err := h.searchUC.AdvancedSearch(c.Request.Context(), domain.AdvancedSearchParams{
		WorkerSearchParams: domain.WorkerSearchParams{
			Origin: origin,
			SearchFilters: domain.SearchFilters{
				SearchTerm:      req.SearchTerm,
				RadiusKm:        req.RadiusKm,
				ExperienceLevel: req.ExperienceLevel,
				Availability:    req.Availability,
				Location:        req.Location,
				SortBy:          req.SortBy,
			},
			Offset: req.Offset,
			Limit:  req.Limit,
		},
		Skills:         req.Skills,
		Companies:      req.Companies,
		MinExperience:  req.MinExperience,
		MaxExperience:  req.MaxExperience,
		HasPhone:       req.HasPhone,
		HasLocation:    req.HasLocation,
		LastActiveDays: req.LastActiveDays,
	})
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Workers retrieved", result)
}

// GetWorker godoc
// @Summary      Get a worker profile
// @Description  Distance and match score are filled when lat and lng are given
// @Tags         workers
// @Produce      json
// @Param        id   path      string  true   "Profile ID"
// @Param        lat  query     number  false  "Origin latitude"
// @Param        lng  query     number  false  "Origin longitude"
// @Success      200  {object}  response.Response{data=domain.WorkerCandidate}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /workers/{id} [get]
func (h *WorkerHandler) GetWorker(c *gin.Context) {
	var q workerOriginQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.Error(errInvalidQuery)
		return
	}
	origin, err := originFrom(q.Lat, q.Lng)
	if err != nil {
		c.Error(err)
		return
	}

	worker, err := h.searchUC.GetWorker(c.Request.Context(), c.Param("id"), origin)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Worker retrieved", worker)
}
