package v1

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeAuth stands in for AuthMiddleware.
func fakeAuth(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(string(domain.KeyUserID), userID)
		c.Set(string(domain.KeyUserRole), role)
		c.Next()
	}
}

func newJobRouter(uc *MockJobPostingUC, role string) http.Handler {
	r, v1 := newTestEngine()
	protected := v1.Group("")
	protected.Use(fakeAuth("employer-1", role))
	NewJobHandler(v1, protected, uc)
	return r
}

func sampleJob(status domain.JobPostingStatus) *domain.JobPosting {
	return &domain.JobPosting{
		ID:           "job-1",
		EmployerID:   "employer-1",
		Title:        "Advanced Rigger",
		Company:      "Pilbara Lifts",
		Description:  "Shutdown crew",
		SalaryMin:    90000,
		SalaryMax:    120000,
		JobType:      domain.JobTypeContract,
		Category:     "Rigging",
		LocationText: "Karratha WA",
		Status:       status,
		CreatedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestJobHandler_Create(t *testing.T) {
	t.Run("Should create a draft for the caller", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		uc.On("Create", mock.Anything, "employer-1", mock.MatchedBy(func(in domain.JobPostingInput) bool {
			return in.Title == "Advanced Rigger" && in.SalaryMax == 120000 && in.LocationText == "Karratha WA"
		})).Return(sampleJob(domain.JobStatusDraft), nil)

		w, env := doRequest(t, newJobRouter(uc, domain.RoleEmployer), http.MethodPost, "/v1/jobs", map[string]interface{}{
			"title":         "Advanced Rigger",
			"company":       "Pilbara Lifts",
			"description":   "Shutdown crew",
			"salary_min":    90000,
			"salary_max":    120000,
			"category":      "Rigging",
			"location_text": "Karratha WA",
		})

		require.Equal(t, http.StatusCreated, w.Code)
		var got domain.JobPosting
		decodeData(t, env, &got)
		assert.Equal(t, domain.JobStatusDraft, got.Status)
		uc.AssertExpectations(t)
	})

	t.Run("Should return field errors from the usecase", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		uc.On("Create", mock.Anything, "employer-1", mock.Anything).Return(nil, apperror.Validation("Validation failed", map[string]string{
			"salary_max": "Maximum salary must be greater than minimum salary",
		}))

		w, env := doRequest(t, newJobRouter(uc, domain.RoleEmployer), http.MethodPost, "/v1/jobs", map[string]interface{}{
			"title": "x", "salary_min": 120000, "salary_max": 100000,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"salary_max":"Maximum salary must be greater than minimum salary"}`, string(env.Error))
	})

	t.Run("Should forbid workers", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		w, _ := doRequest(t, newJobRouter(uc, domain.RoleWorker), http.MethodPost, "/v1/jobs", map[string]interface{}{"title": "x"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		uc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestJobHandler_Mutations(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		setup      func(uc *MockJobPostingUC)
		wantStatus int
		wantMsg    string
	}{
		{
			name:   "update merges a patch",
			method: http.MethodPatch,
			path:   "/v1/jobs/job-1",
			body:   map[string]interface{}{"title": "Senior Rigger"},
			setup: func(uc *MockJobPostingUC) {
				uc.On("Update", mock.Anything, "employer-1", "job-1", mock.MatchedBy(func(p domain.JobPostingPatch) bool {
					return p.Title != nil && *p.Title == "Senior Rigger" && p.Company == nil
				})).Return(sampleJob(domain.JobStatusDraft), nil)
			},
			wantStatus: http.StatusOK,
			wantMsg:    "Job posting updated",
		},
		{
			name:   "publish",
			method: http.MethodPost,
			path:   "/v1/jobs/job-1/publish",
			setup: func(uc *MockJobPostingUC) {
				uc.On("Publish", mock.Anything, "employer-1", "job-1").Return(sampleJob(domain.JobStatusPublished), nil)
			},
			wantStatus: http.StatusOK,
			wantMsg:    "Job posting published",
		},
		{
			name:   "archive someone else's posting",
			method: http.MethodPost,
			path:   "/v1/jobs/job-2/archive",
			setup: func(uc *MockJobPostingUC) {
				uc.On("Archive", mock.Anything, "employer-1", "job-2").Return(nil, apperror.Forbidden("You can only manage your own job postings"))
			},
			wantStatus: http.StatusForbidden,
			wantMsg:    "You can only manage your own job postings",
		},
		{
			name:   "delete a missing posting",
			method: http.MethodDelete,
			path:   "/v1/jobs/missing",
			setup: func(uc *MockJobPostingUC) {
				uc.On("Delete", mock.Anything, "employer-1", "missing").Return(apperror.NotFound("Job posting not found"))
			},
			wantStatus: http.StatusNotFound,
			wantMsg:    "Job posting not found",
		},
		{
			name:   "delete",
			method: http.MethodDelete,
			path:   "/v1/jobs/job-1",
			setup: func(uc *MockJobPostingUC) {
				uc.On("Delete", mock.Anything, "employer-1", "job-1").Return(nil)
			},
			wantStatus: http.StatusOK,
			wantMsg:    "Job posting deleted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := new(MockJobPostingUC)
			tt.setup(uc)

			w, env := doRequest(t, newJobRouter(uc, domain.RoleEmployer), tt.method, tt.path, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantMsg, env.Message)
			uc.AssertExpectations(t)
		})
	}
}

func TestJobHandler_Public(t *testing.T) {
	t.Run("Should list nearby jobs", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		uc.On("FindNear", mock.Anything, perth, 25.0, 5).Return([]domain.NearbyJob{
			{JobPosting: *sampleJob(domain.JobStatusPublished), DistanceKm: 4.2},
		}, nil)

		w, env := doRequest(t, newJobRouter(uc, ""), http.MethodGet, "/v1/jobs/nearby?lat=-31.9505&lng=115.8605&radius=25&limit=5", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got []domain.NearbyJob
		decodeData(t, env, &got)
		require.Len(t, got, 1)
		assert.Equal(t, 4.2, got[0].DistanceKm)
	})

	t.Run("Should pass zero radius and limit for the usecase defaults", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		uc.On("FindNear", mock.Anything, perth, 0.0, 0).Return([]domain.NearbyJob{}, nil)

		w, _ := doRequest(t, newJobRouter(uc, ""), http.MethodGet, "/v1/jobs/nearby?lat=-31.9505&lng=115.8605", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		uc.AssertExpectations(t)
	})

	t.Run("Should require coordinates", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		w, _ := doRequest(t, newJobRouter(uc, ""), http.MethodGet, "/v1/jobs/nearby", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should surface the nearby lookup failure", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		uc.On("FindNear", mock.Anything, perth, 0.0, 0).Return(nil, apperror.BadGateway("Failed to find nearby jobs", errors.New("rpc")))

		w, env := doRequest(t, newJobRouter(uc, ""), http.MethodGet, "/v1/jobs/nearby?lat=-31.9505&lng=115.8605", nil)
		assert.Equal(t, http.StatusBadGateway, w.Code)
		assert.Equal(t, "Failed to find nearby jobs", env.Message)
	})

	t.Run("Should hide unpublished postings", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		uc.On("GetPublished", mock.Anything, "job-1").Return(nil, apperror.NotFound("Job posting not found"))

		w, _ := doRequest(t, newJobRouter(uc, ""), http.MethodGet, "/v1/jobs/job-1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestJobHandler_Employer(t *testing.T) {
	t.Run("Should page the caller's postings", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		uc.On("ListByEmployer", mock.Anything, "employer-1", mock.MatchedBy(func(s *domain.JobPostingStatus) bool {
			return s != nil && *s == domain.JobStatusDraft
		}), 2, 5).Return([]domain.JobPosting{*sampleJob(domain.JobStatusDraft)}, int64(6), nil)

		w, env := doRequest(t, newJobRouter(uc, domain.RoleEmployer), http.MethodGet, "/v1/employers/me/jobs?status=draft&page=2&page_size=5", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `6`, string(mustField(t, env.Data, "total")))
		assert.JSONEq(t, `2`, string(mustField(t, env.Data, "page")))
	})

	t.Run("Should reject an unknown status", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		w, _ := doRequest(t, newJobRouter(uc, domain.RoleEmployer), http.MethodGet, "/v1/employers/me/jobs?status=open", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should read an owned draft", func(t *testing.T) {
		uc := new(MockJobPostingUC)
		uc.On("GetOwned", mock.Anything, "employer-1", "job-1").Return(sampleJob(domain.JobStatusDraft), nil)

		w, _ := doRequest(t, newJobRouter(uc, domain.RoleEmployer), http.MethodGet, "/v1/employers/me/jobs/job-1", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
