package v1

import (
	"net/http"

	"rigger-connect-backend/internal/delivery/http/response"
	"rigger-connect-backend/internal/usecase"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	healthUC usecase.HealthUsecase
}

func NewHealthHandler(public *gin.RouterGroup, healthUC usecase.HealthUsecase) {
	handler := &HealthHandler{healthUC: healthUC}
	public.GET("/health", handler.Check)
}

// HealthCheck godoc
// @Summary      Service health
// @Description  503 when the database is unreachable; a failing Redis only degrades the status
// @Tags         health
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /health [get]
func (h *HealthHandler) Check(c *gin.Context) {
	status, healthy := h.healthUC.Check(c.Request.Context())
	if !healthy {
		response.Error(c, http.StatusServiceUnavailable, "System unavailable", status)
		return
	}
	response.Success(c, http.StatusOK, "System operational", status)
}
