package middleware

import (
	"errors"
	"net/http"
	"sort"

	"rigger-connect-backend/internal/delivery/http/response"
	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/internal/geolocation"
	"rigger-connect-backend/internal/search"
	"rigger-connect-backend/pkg/apperror"
	"rigger-connect-backend/pkg/logger"
	"rigger-connect-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Check if there are errors appended to the context
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err

		if appErr, ok := apperror.As(err); ok {
			var details interface{}
			if len(appErr.Details) > 0 {
				details = appErr.Details
				logValidationFailure(c, appErr.Details)
			}
			if appErr.Code == http.StatusForbidden {
				security.DefaultLogger().LogForbidden(c.Request.Context(),
					c.GetString(string(domain.KeyUserID)), c.ClientIP(), getRequestID(c), c.FullPath())
			}
			if appErr.Code >= http.StatusInternalServerError && appErr.Err != nil {
				logger.Log.Error("request failed",
					"request_id", getRequestID(c), "path", c.FullPath(), "status", appErr.Code, "error", appErr.Err)
			}
			response.Error(c, appErr.Code, appErr.Message, details)
			return
		}

		var locErr *geolocation.LocationError
		switch {
		case errors.As(err, &locErr):
			response.Error(c, http.StatusUnprocessableEntity, locErr.Message, gin.H{"code": locErr.Code.String()})
		case errors.Is(err, search.ErrSessionNotFound):
			response.Error(c, http.StatusNotFound, "Search session not found", nil)
		case errors.Is(err, domain.ErrNotFound):
			response.Error(c, http.StatusNotFound, "Resource not found", nil)
		default:
			// Never expose internal error details to clients.
			logger.Log.Error("internal server error",
				"request_id", getRequestID(c), "path", c.FullPath(), "error", err)
			response.Error(c, http.StatusInternalServerError, "An unexpected error occurred. Please try again later.", nil)
		}
	}
}

func logValidationFailure(c *gin.Context, details map[string]string) {
	fields := make([]string, 0, len(details))
	for f := range details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	security.DefaultLogger().LogValidationFailed(c.Request.Context(), c.ClientIP(), getRequestID(c), c.FullPath(), fields)
}
