package v1

import (
	"net/http"
	"strconv"

	"rigger-connect-backend/internal/delivery/http/middleware"
	"rigger-connect-backend/internal/delivery/http/response"
	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
)

type JobHandler struct {
	jobUC domain.JobPostingUsecase
}

func NewJobHandler(public *gin.RouterGroup, protected *gin.RouterGroup, jobUC domain.JobPostingUsecase) {
	handler := &JobHandler{jobUC: jobUC}

	// PUBLIC routes - published postings only
	publicJobs := public.Group("/jobs")
	{
		publicJobs.GET("/nearby", handler.Nearby)
		publicJobs.GET("/:id", handler.PublicGetDetails)
	}

	employerOnly := middleware.RequireRole(domain.RoleEmployer, domain.RoleAdmin)

	protectedJobs := protected.Group("/jobs", employerOnly)
	{
		protectedJobs.POST("", handler.Create)
		protectedJobs.PATCH("/:id", handler.Update)
		protectedJobs.POST("/:id/publish", handler.Publish)
		protectedJobs.POST("/:id/archive", handler.Archive)
		protectedJobs.DELETE("/:id", handler.Delete)
	}

	// Employer's own postings, drafts included
	employers := protected.Group("/employers/me", employerOnly)
	{
		employers.GET("/jobs", handler.ListByEmployer)
		employers.GET("/jobs/:id", handler.GetOwned)
	}
}

// CreateJobPosting godoc
// @Summary      Create a job posting
// @Description  Stores the posting as a draft. Location is required as coordinates or text; coordinates without text are labelled by reverse geocoding.
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        job  body      domain.JobPostingInput  true  "Job posting"
// @Success      201  {object}  response.Response{data=domain.JobPosting}
// @Failure      400  {object}  response.Response
// @Failure      401  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Router       /jobs [post]
// @Security     BearerAuth
func (h *JobHandler) Create(c *gin.Context) {
	var req domain.JobPostingInput
	if !bindJSON(c, &req) {
		return
	}

	job, err := h.jobUC.Create(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Job posting created", job)
}

// UpdateJobPosting godoc
// @Summary      Update a job posting
// @Description  Merges the given fields into the stored posting and revalidates the result
// @Tags         jobs
// @Accept       json
// @Produce      json
// @Param        id   path      string                  true  "Job posting ID"
// @Param        job  body      domain.JobPostingPatch  true  "Fields to change"
// @Success      200  {object}  response.Response{data=domain.JobPosting}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id} [patch]
// @Security     BearerAuth
func (h *JobHandler) Update(c *gin.Context) {
	var patch domain.JobPostingPatch
	if !bindJSON(c, &patch) {
		return
	}

	job, err := h.jobUC.Update(c.Request.Context(), currentUserID(c), c.Param("id"), patch)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Job posting updated", job)
}

// PublishJobPosting godoc
// @Summary      Publish a job posting
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job posting ID"
// @Success      200  {object}  response.Response{data=domain.JobPosting}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id}/publish [post]
// @Security     BearerAuth
func (h *JobHandler) Publish(c *gin.Context) {
	job, err := h.jobUC.Publish(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job posting published", job)
}

// ArchiveJobPosting godoc
// @Summary      Archive a job posting
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job posting ID"
// @Success      200  {object}  response.Response{data=domain.JobPosting}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id}/archive [post]
// @Security     BearerAuth
func (h *JobHandler) Archive(c *gin.Context) {
	job, err := h.jobUC.Archive(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job posting archived", job)
}

// DeleteJobPosting godoc
// @Summary      Delete a job posting
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job posting ID"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id} [delete]
// @Security     BearerAuth
func (h *JobHandler) Delete(c *gin.Context) {
	if err := h.jobUC.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job posting deleted", nil)
}

// PublicGetJobPosting godoc
// @Summary      Get a published job posting
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job posting ID"
// @Success      200  {object}  response.Response{data=domain.JobPosting}
// @Failure      404  {object}  response.Response
// @Router       /jobs/{id} [get]
func (h *JobHandler) PublicGetDetails(c *gin.Context) {
	job, err := h.jobUC.GetPublished(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job posting retrieved", job)
}

// NearbyJobPostings godoc
// @Summary      Published jobs near a point
// @Tags         jobs
// @Produce      json
// @Param        lat     query     number  true   "Latitude"
// @Param        lng     query     number  true   "Longitude"
// @Param        radius  query     number  false  "Radius in km (default 50)"
// @Param        limit   query     int     false  "Maximum results (default 20)"
// @Success      200     {object}  response.Response{data=[]domain.NearbyJob}
// @Failure      400     {object}  response.Response
// @Failure      502     {object}  response.Response
// @Router       /jobs/nearby [get]
func (h *JobHandler) Nearby(c *gin.Context) {
	origin, err := requiredCoordinate(c)
	if err != nil {
		c.Error(err)
		return
	}
	radius := 0.0
	if raw := c.Query("radius"); raw != "" {
		if radius, err = strconv.ParseFloat(raw, 64); err != nil {
			c.Error(apperror.BadRequest("radius must be a number"))
			return
		}
	}

	jobs, err := h.jobUC.FindNear(c.Request.Context(), origin, radius, queryInt(c, "limit", 0))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Nearby jobs retrieved", jobs)
}

// ListEmployerJobPostings godoc
// @Summary      List the caller's job postings
// @Tags         jobs
// @Produce      json
// @Param        status     query     string  false  "draft, published or archived"
// @Param        page       query     int     false  "Page number"
// @Param        page_size  query     int     false  "Page size"
// @Success      200        {object}  response.Response{data=response.Paginated}
// @Failure      400        {object}  response.Response
// @Router       /employers/me/jobs [get]
// @Security     BearerAuth
func (h *JobHandler) ListByEmployer(c *gin.Context) {
	var status *domain.JobPostingStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.JobPostingStatus(raw)
		switch s {
		case domain.JobStatusDraft, domain.JobStatusPublished, domain.JobStatusArchived:
			status = &s
		default:
			c.Error(apperror.BadRequest("status must be draft, published or archived"))
			return
		}
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "10"))

	jobs, total, err := h.jobUC.ListByEmployer(c.Request.Context(), currentUserID(c), status, page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	} else if pageSize > domain.MaxPageSize {
		pageSize = domain.MaxPageSize
	}
	response.Success(c, http.StatusOK, "Job postings retrieved", response.Paginated{
		Items:    jobs,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

// GetEmployerJobPosting godoc
// @Summary      Get one of the caller's job postings
// @Tags         jobs
// @Produce      json
// @Param        id   path      string  true  "Job posting ID"
// @Success      200  {object}  response.Response{data=domain.JobPosting}
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /employers/me/jobs/{id} [get]
// @Security     BearerAuth
func (h *JobHandler) GetOwned(c *gin.Context) {
	job, err := h.jobUC.GetOwned(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Job posting retrieved", job)
}
