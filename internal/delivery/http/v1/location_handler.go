package v1

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"rigger-connect-backend/internal/delivery/http/response"
	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/internal/geolocation"
	"rigger-connect-backend/pkg/apperror"
	"rigger-connect-backend/pkg/geo"
	"rigger-connect-backend/pkg/logger"
	"rigger-connect-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsReadLimit     = 1024
	wsReadDeadline  = 60 * time.Second
	wsWriteDeadline = 10 * time.Second
	wsPingInterval  = 30 * time.Second
	maxDeviceIDLen  = 64
)

// LocationHandler is the browser side of the device hub: the frontend reports
// permission changes, fixes and errors here, and sessions consume them.
type LocationHandler struct {
	hub      *geolocation.DeviceHub
	upgrader websocket.Upgrader
}

func NewLocationHandler(public *gin.RouterGroup, hub *geolocation.DeviceHub, checkOrigin func(r *http.Request) bool) {
	handler := &LocationHandler{
		hub:      hub,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}

	devices := public.Group("/location/devices/:id", handler.requireDeviceID)
	{
		devices.PUT("/permission", handler.SetPermission)
		devices.GET("/permission", handler.GetPermission)
		devices.POST("/fixes", handler.ReportFix)
		devices.POST("/errors", handler.ReportError)
		devices.GET("/current", handler.Current)
		devices.GET("/stream", handler.Stream)
		devices.DELETE("", handler.Forget)
	}
}

type PermissionRequest struct {
	State domain.PermissionState `json:"state"`
}

type PermissionResponse struct {
	DeviceID   string                 `json:"device_id"`
	Permission domain.PermissionState `json:"permission"`
	Reported   bool                   `json:"reported"`
}

// FixRequest is a GeolocationPosition as the browser reports it. Timestamp is
// epoch milliseconds; zero means now.
type FixRequest struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
}

type ErrorReportRequest struct {
	Code geolocation.ErrorCode `json:"code"`
}

func (h *LocationHandler) requireDeviceID(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" || len(id) > maxDeviceIDLen {
		c.Error(apperror.BadRequest("Invalid device id"))
		c.Abort()
		return
	}
	c.Next()
}

// SetDevicePermission godoc
// @Summary      Report the browser permission state for a device
// @Tags         location
// @Accept       json
// @Produce      json
// @Param        id       path      string             true  "Device ID"
// @Param        request  body      PermissionRequest  true  "granted, denied, prompt or unsupported"
// @Success      200      {object}  response.Response{data=PermissionResponse}
// @Failure      400      {object}  response.Response
// @Router       /location/devices/{id}/permission [put]
func (h *LocationHandler) SetPermission(c *gin.Context) {
	var req PermissionRequest
	if !bindJSON(c, &req) {
		return
	}
	if !req.State.Valid() {
		c.Error(apperror.Validation("Validation failed", map[string]string{
			"state": "state must be one of granted, denied, prompt, unsupported",
		}))
		return
	}

	id := c.Param("id")
	h.hub.SetPermission(id, req.State)
	response.Success(c, http.StatusOK, "Permission updated", PermissionResponse{DeviceID: id, Permission: req.State, Reported: true})
}

// GetDevicePermission godoc
// @Summary      Read the last reported permission state
// @Description  Devices that never reported are in the prompt state
// @Tags         location
// @Produce      json
// @Param        id   path      string  true  "Device ID"
// @Success      200  {object}  response.Response{data=PermissionResponse}
// @Router       /location/devices/{id}/permission [get]
func (h *LocationHandler) GetPermission(c *gin.Context) {
	id := c.Param("id")
	state, ok := h.hub.Permission(id)
	if !ok {
		state = domain.PermissionPrompt
	}
	response.Success(c, http.StatusOK, "Permission retrieved", PermissionResponse{DeviceID: id, Permission: state, Reported: ok})
}

// ReportDeviceFix godoc
// @Summary      Report a position fix
// @Tags         location
// @Accept       json
// @Produce      json
// @Param        id       path      string      true  "Device ID"
// @Param        request  body      FixRequest  true  "Position"
// @Success      202      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /location/devices/{id}/fixes [post]
func (h *LocationHandler) ReportFix(c *gin.Context) {
	var req FixRequest
	if !bindJSON(c, &req) {
		return
	}
	reading, err := req.reading()
	if err == nil {
		err = h.hub.ReportFix(c.Param("id"), reading)
	}
	if err != nil {
		security.DefaultLogger().LogInvalidDeviceFix(c.Request.Context(), c.Param("id"), c.ClientIP(),
			c.GetString(string(domain.KeyRequestID)), err.Error())
		c.Error(apperror.BadRequest("Invalid position fix"))
		return
	}

	response.Success(c, http.StatusAccepted, "Fix recorded", nil)
}

// ReportDeviceError godoc
// @Summary      Report a geolocation failure
// @Description  code follows GeolocationPositionError: 1 denied, 2 unavailable, 3 timeout
// @Tags         location
// @Accept       json
// @Produce      json
// @Param        id       path      string              true  "Device ID"
// @Param        request  body      ErrorReportRequest  true  "Error code"
// @Success      202      {object}  response.Response
// @Failure      400      {object}  response.Response
// @Router       /location/devices/{id}/errors [post]
func (h *LocationHandler) ReportError(c *gin.Context) {
	var req ErrorReportRequest
	if !bindJSON(c, &req) {
		return
	}
	if !reportableCode(req.Code) {
		c.Error(apperror.Validation("Validation failed", map[string]string{"code": "code must be 1, 2 or 3"}))
		return
	}

	h.hub.ReportError(c.Param("id"), req.Code)
	response.Success(c, http.StatusAccepted, "Error recorded", geolocation.NewLocationError(req.Code))
}

// ForgetDevice godoc
// @Summary      Forget a device
// @Description  Drops the device's permission and last fix. Pending reads fail with POSITION_UNAVAILABLE.
// @Tags         location
// @Produce      json
// @Param        id   path      string  true  "Device ID"
// @Success      200  {object}  response.Response
// @Router       /location/devices/{id} [delete]
func (h *LocationHandler) Forget(c *gin.Context) {
	h.hub.Remove(c.Param("id"))
	response.Success(c, http.StatusOK, "Device forgotten", nil)
}

// CurrentDevicePosition godoc
// @Summary      Get the device's current position
// @Description  Returns a cached fix younger than maximum_age_ms, otherwise waits up to timeout_ms for the next report
// @Tags         location
// @Produce      json
// @Param        id              path      string  true   "Device ID"
// @Param        timeout_ms      query     int     false  "Wait budget (default 10000)"
// @Param        maximum_age_ms  query     int     false  "Cache age (default 300000)"
// @Success      200  {object}  response.Response{data=domain.LocationReading}
// @Failure      422  {object}  response.Response
// @Router       /location/devices/{id}/current [get]
func (h *LocationHandler) Current(c *gin.Context) {
	opts := geolocation.DefaultOptions()
	if ms := queryInt(c, "timeout_ms", 0); ms > 0 && ms <= 60000 {
		opts.Timeout = time.Duration(ms) * time.Millisecond
	}
	if ms := queryInt(c, "maximum_age_ms", 0); ms > 0 {
		opts.MaximumAge = time.Duration(ms) * time.Millisecond
	}

	src := h.hub.Source(c.Param("id"))
	reading, err := geolocation.NewAcquirer(src, src).GetCurrentPosition(c.Request.Context(), opts)
	if err != nil {
		c.Error(geolocation.Normalize(err))
		return
	}

	response.Success(c, http.StatusOK, "Position retrieved", reading)
}

// streamMessage is both directions of the websocket protocol.
// Client to server: type is "fix", "error" or "permission".
// Server to client: type is "position", "error" or "ack".
type streamMessage struct {
	Type       string                     `json:"type"`
	Latitude   *float64                   `json:"latitude,omitempty"`
	Longitude  *float64                   `json:"longitude,omitempty"`
	Accuracy   float64                    `json:"accuracy,omitempty"`
	Timestamp  int64                      `json:"timestamp,omitempty"`
	Code       geolocation.ErrorCode      `json:"code,omitempty"`
	State      domain.PermissionState     `json:"state,omitempty"`
	Location   *domain.LocationReading    `json:"location,omitempty"`
	Error      *geolocation.LocationError `json:"error,omitempty"`
	Permission domain.PermissionState     `json:"permission,omitempty"`
}

// DeviceStream godoc
// @Summary      Websocket for a device
// @Description  The client sends fix, error and permission messages; the server pushes every position and watch error for the device
// @Tags         location
// @Param        id   path  string  true  "Device ID"
// @Success      101
// @Router       /location/devices/{id}/stream [get]
func (h *LocationHandler) Stream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("location ws upgrade failed", "error", err)
		return
	}

	id := c.Param("id")
	s := &deviceStream{hub: h.hub, id: id, conn: conn, done: make(chan struct{})}
	s.run()
}

type deviceStream struct {
	hub  *geolocation.DeviceHub
	id   string
	conn *websocket.Conn

	writeMu sync.Mutex
	done    chan struct{}
}

func (s *deviceStream) run() {
	src := s.hub.Source(s.id)
	handle, err := src.WatchPosition(
		func(r domain.LocationReading) {
			s.write(streamMessage{Type: "position", Location: &r})
		},
		func(err error) {
			s.write(streamMessage{Type: "error", Error: geolocation.Normalize(err)})
		},
		geolocation.DefaultWatchOptions(),
	)
	if err == nil {
		defer src.ClearWatch(handle)
	}

	go s.pingLoop()
	defer func() {
		close(s.done)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(wsReadLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	for {
		var msg streamMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Log.Debug("location ws read failed", "device_id", s.id, "error", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
		s.handle(msg)
	}
}

func (s *deviceStream) handle(msg streamMessage) {
	switch msg.Type {
	case "fix":
		req := FixRequest{Latitude: msg.Latitude, Longitude: msg.Longitude, Accuracy: msg.Accuracy, Timestamp: msg.Timestamp}
		reading, err := req.reading()
		if err == nil {
			err = s.hub.ReportFix(s.id, reading)
		}
		if err != nil {
			s.write(streamMessage{Type: "error", Error: geolocation.NewLocationError(geolocation.CodePositionUnavailable)})
		}
	case "error":
		if reportableCode(msg.Code) {
			s.hub.ReportError(s.id, msg.Code)
		}
	case "permission":
		if msg.State.Valid() {
			s.hub.SetPermission(s.id, msg.State)
			s.write(streamMessage{Type: "ack", Permission: msg.State})
		}
	}
}

func (s *deviceStream) write(msg streamMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteDeadline))
	if err := s.conn.WriteJSON(msg); err != nil {
		logger.Log.Debug("location ws write failed", "device_id", s.id, "error", err)
	}
}

func (s *deviceStream) pingLoop() {
	t := time.NewTicker(wsPingInterval)
	defer t.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-t.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteDeadline))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (r FixRequest) reading() (domain.LocationReading, error) {
	if r.Latitude == nil || r.Longitude == nil {
		return domain.LocationReading{}, apperror.BadRequest("latitude and longitude are required")
	}
	reading := domain.LocationReading{
		Coordinate: geo.Coordinate{Latitude: *r.Latitude, Longitude: *r.Longitude},
		Accuracy:   r.Accuracy,
	}
	if r.Timestamp > 0 {
		reading.Timestamp = time.UnixMilli(r.Timestamp)
	}
	return reading, nil
}

func reportableCode(code geolocation.ErrorCode) bool {
	switch code {
	case geolocation.CodePermissionDenied, geolocation.CodePositionUnavailable, geolocation.CodeTimeout:
		return true
	}
	return false
}
