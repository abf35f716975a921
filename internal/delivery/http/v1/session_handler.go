package v1

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"rigger-connect-backend/internal/delivery/http/response"
	"rigger-connect-backend/internal/geolocation"
	"rigger-connect-backend/internal/search"
	"rigger-connect-backend/pkg/apperror"
	"rigger-connect-backend/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const detectTimeout = 20 * time.Second

// SessionHandler exposes live search sessions. Every mutation returns the
// session view; pass ?wait=true to block until in-flight searches settle.
type SessionHandler struct {
	registry *search.Registry
	validate *validator.Validate
}

func NewSessionHandler(public *gin.RouterGroup, registry *search.Registry, validate *validator.Validate) {
	handler := &SessionHandler{registry: registry, validate: validate}

	sessions := public.Group("/search/sessions")
	{
		sessions.POST("", handler.Create)
		sessions.GET("/:id", handler.Get)
		sessions.DELETE("/:id", handler.Delete)
		sessions.PATCH("/:id/filters", handler.UpdateFilters)
		sessions.PUT("/:id/search-term", handler.UpdateSearchTerm)
		sessions.PUT("/:id/origin", handler.SetOrigin)
		sessions.POST("/:id/location/detect", handler.DetectLocation)
		sessions.PUT("/:id/location/manual", handler.SetManualLocation)
		sessions.DELETE("/:id/location", handler.ClearLocation)
		sessions.POST("/:id/load-more", handler.LoadMore)
		sessions.POST("/:id/refresh", handler.Refresh)
		sessions.POST("/:id/clear", handler.Clear)
	}
}

type CreateSessionRequest struct {
	DeviceID string `json:"device_id" validate:"max=64"`
}

type SearchTermRequest struct {
	SearchTerm string `json:"search_term" validate:"max=100"`
}

// OriginRequest sets the search centre directly. Both fields null clears it.
type OriginRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type ManualLocationRequest struct {
	Address   string   `json:"address" validate:"max=200"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

// CreateSearchSession godoc
// @Summary      Open a search session
// @Description  Binds a session to a device id (generated when empty) and checks its location permission
// @Tags         search-sessions
// @Accept       json
// @Produce      json
// @Param        request  body      CreateSessionRequest  false  "Device"
// @Success      201      {object}  response.Response{data=search.SessionView}
// @Router       /search/sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req CreateSessionRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	if !h.valid(c, req) {
		return
	}

	s := h.registry.Create(c.Request.Context(), req.DeviceID)
	response.Success(c, http.StatusCreated, "Search session created", s.View())
}

// GetSearchSession godoc
// @Summary      Read a search session
// @Tags         search-sessions
// @Produce      json
// @Param        id    path      string  true   "Session ID"
// @Param        wait  query     bool    false  "Wait for in-flight searches"
// @Success      200   {object}  response.Response{data=search.SessionView}
// @Failure      404   {object}  response.Response
// @Router       /search/sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respond(c, s, "Search session retrieved")
}

// DeleteSearchSession godoc
// @Summary      Close a search session
// @Tags         search-sessions
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /search/sessions/{id} [delete]
func (h *SessionHandler) Delete(c *gin.Context) {
	if err := h.registry.Delete(c.Param("id")); err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Search session closed", nil)
}

// UpdateSessionFilters godoc
// @Summary      Change search filters
// @Description  Radius, experience, availability, location and sort search again at once; the term is debounced
// @Tags         search-sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Session ID"
// @Param        request  body      search.FilterPatch  true  "Fields to change"
// @Success      200      {object}  response.Response{data=search.SessionView}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /search/sessions/{id}/filters [patch]
func (h *SessionHandler) UpdateFilters(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var patch search.FilterPatch
	if !bindJSON(c, &patch) || !h.valid(c, patch) {
		return
	}
	if patch.SearchTerm != nil && len(*patch.SearchTerm) > 100 {
		c.Error(apperror.Validation("Invalid search filters", map[string]string{
			"search_term": "search_term must be at most 100 characters",
		}))
		return
	}

	s.Search.UpdateFilters(patch)
	h.respond(c, s, "Filters updated")
}

// UpdateSessionSearchTerm godoc
// @Summary      Change the search term
// @Tags         search-sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Session ID"
// @Param        request  body      SearchTermRequest  true  "Term"
// @Success      200      {object}  response.Response{data=search.SessionView}
// @Router       /search/sessions/{id}/search-term [put]
func (h *SessionHandler) UpdateSearchTerm(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req SearchTermRequest
	if !bindJSON(c, &req) || !h.valid(c, req) {
		return
	}

	s.Search.UpdateSearchTerm(req.SearchTerm)
	h.respond(c, s, "Search term updated")
}

// SetSessionOrigin godoc
// @Summary      Set the search centre directly
// @Tags         search-sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string         true  "Session ID"
// @Param        request  body      OriginRequest  true  "Coordinate"
// @Success      200      {object}  response.Response{data=search.SessionView}
// @Failure      400      {object}  response.Response
// @Router       /search/sessions/{id}/origin [put]
func (h *SessionHandler) SetOrigin(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req OriginRequest
	if !bindJSON(c, &req) {
		return
	}
	origin, err := originFrom(req.Latitude, req.Longitude)
	if err != nil {
		c.Error(err)
		return
	}
	if origin != nil && !origin.Valid() {
		c.Error(invalidOrigin())
		return
	}

	s.Search.SetOrigin(origin)
	h.respond(c, s, "Origin updated")
}

// DetectSessionLocation godoc
// @Summary      Ask the device for its position
// @Description  Waits for the device to report a fix, labels it and starts a continuous watch
// @Tags         search-sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response{data=search.SessionView}
// @Failure      422  {object}  response.Response
// @Router       /search/sessions/{id}/location/detect [post]
func (h *SessionHandler) DetectLocation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), detectTimeout)
	defer cancel()
	if _, err := s.DetectLocation(ctx); err != nil {
		c.Error(geolocation.Normalize(err))
		return
	}
	h.respond(c, s, "Location detected")
}

// SetSessionManualLocation godoc
// @Summary      Enter a location by hand
// @Description  Geocodes the address when no coordinates are given. An address that cannot be resolved clears the search origin.
// @Tags         search-sessions
// @Accept       json
// @Produce      json
// @Param        id       path      string                 true  "Session ID"
// @Param        request  body      ManualLocationRequest  true  "Address and optional coordinates"
// @Success      200      {object}  response.Response{data=search.SessionView}
// @Failure      400      {object}  response.Response
// @Router       /search/sessions/{id}/location/manual [put]
func (h *SessionHandler) SetManualLocation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	var req ManualLocationRequest
	if !bindJSON(c, &req) || !h.valid(c, req) {
		return
	}
	coord, err := originFrom(req.Latitude, req.Longitude)
	if err != nil {
		c.Error(err)
		return
	}
	if coord != nil && !coord.Valid() {
		c.Error(invalidOrigin())
		return
	}

	if _, err := h.registry.SetManualLocation(c.Request.Context(), s, req.Address, coord); err != nil {
		if errors.Is(err, search.ErrLocationRequired) {
			c.Error(apperror.BadRequest("Enter an address or coordinates"))
			return
		}
		c.Error(err)
		return
	}
	h.respond(c, s, "Location updated")
}

// ClearSessionLocation godoc
// @Summary      Forget the session location
// @Tags         search-sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response{data=search.SessionView}
// @Router       /search/sessions/{id}/location [delete]
func (h *SessionHandler) ClearLocation(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Tracker.Clear()
	h.respond(c, s, "Location cleared")
}

// LoadMoreSession godoc
// @Summary      Append the next page
// @Description  Does nothing when there are no more results, a search is running, or no origin is set
// @Tags         search-sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response{data=search.SessionView}
// @Router       /search/sessions/{id}/load-more [post]
func (h *SessionHandler) LoadMore(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	msg := "Loading more results"
	if !s.Search.LoadMore() {
		msg = "No more results to load"
	}
	h.respond(c, s, msg)
}

// RefreshSession godoc
// @Summary      Re-run the current search from the first page
// @Tags         search-sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response{data=search.SessionView}
// @Router       /search/sessions/{id}/refresh [post]
func (h *SessionHandler) Refresh(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Search.Refresh()
	h.respond(c, s, "Search refreshed")
}

// ClearSession godoc
// @Summary      Reset filters and results
// @Tags         search-sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  response.Response{data=search.SessionView}
// @Router       /search/sessions/{id}/clear [post]
func (h *SessionHandler) Clear(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	s.Search.ClearSearch()
	h.respond(c, s, "Search cleared")
}

func (h *SessionHandler) session(c *gin.Context) (*search.Session, bool) {
	s, err := h.registry.Get(c.Param("id"))
	if err != nil {
		c.Error(err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) respond(c *gin.Context, s *search.Session, message string) {
	if strings.EqualFold(c.Query("wait"), "true") {
		s.Search.Wait()
	}
	response.Success(c, http.StatusOK, message, s.View())
}

func (h *SessionHandler) valid(c *gin.Context, v interface{}) bool {
	if err := h.validate.Struct(v); err != nil {
		c.Error(apperror.Validation("Validation failed", validation.FieldErrors(err)))
		return false
	}
	return true
}

func invalidOrigin() error {
	return apperror.Validation("Invalid coordinates", map[string]string{
		"origin": "Latitude must be between -90 and 90 and longitude between -180 and 180",
	})
}
