package v1

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/internal/geolocation"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocationRouter(hub *geolocation.DeviceHub) http.Handler {
	r, v1 := newTestEngine()
	NewLocationHandler(v1, hub, func(*http.Request) bool { return true })
	return r
}

func TestLocationHandler_Permission(t *testing.T) {
	hub := geolocation.NewDeviceHub()
	router := newLocationRouter(hub)

	t.Run("Should report prompt for an unknown device", func(t *testing.T) {
		w, env := doRequest(t, router, http.MethodGet, "/v1/location/devices/dev-1/permission", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got PermissionResponse
		decodeData(t, env, &got)
		assert.Equal(t, domain.PermissionPrompt, got.Permission)
		assert.False(t, got.Reported)
	})

	t.Run("Should store a reported state", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodPut, "/v1/location/devices/dev-1/permission", map[string]string{"state": "granted"})
		require.Equal(t, http.StatusOK, w.Code)

		_, env := doRequest(t, router, http.MethodGet, "/v1/location/devices/dev-1/permission", nil)
		var got PermissionResponse
		decodeData(t, env, &got)
		assert.Equal(t, domain.PermissionGranted, got.Permission)
		assert.True(t, got.Reported)
	})

	t.Run("Should reject an unknown state", func(t *testing.T) {
		w, env := doRequest(t, router, http.MethodPut, "/v1/location/devices/dev-1/permission", map[string]string{"state": "maybe"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, string(env.Error), "state")
	})

	t.Run("Should forget a device", func(t *testing.T) {
		require.NoError(t, hub.ReportFix("dev-1", domain.LocationReading{Coordinate: perth, Accuracy: 8}))

		w, _ := doRequest(t, router, http.MethodDelete, "/v1/location/devices/dev-1", nil)
		require.Equal(t, http.StatusOK, w.Code)

		_, ok := hub.Last("dev-1")
		assert.False(t, ok)
		_, env := doRequest(t, router, http.MethodGet, "/v1/location/devices/dev-1/permission", nil)
		var got PermissionResponse
		decodeData(t, env, &got)
		assert.Equal(t, domain.PermissionPrompt, got.Permission)
		assert.False(t, got.Reported)
	})

	t.Run("Should reject an overlong device id", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodGet, "/v1/location/devices/"+strings.Repeat("x", 65)+"/permission", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLocationHandler_Fixes(t *testing.T) {
	hub := geolocation.NewDeviceHub()
	router := newLocationRouter(hub)

	t.Run("Should record a valid fix", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodPost, "/v1/location/devices/dev-2/fixes", map[string]interface{}{
			"latitude":  perth.Latitude,
			"longitude": perth.Longitude,
			"accuracy":  12.5,
		})
		require.Equal(t, http.StatusAccepted, w.Code)

		last, ok := hub.Last("dev-2")
		require.True(t, ok)
		assert.Equal(t, perth, last.Coordinate)
		assert.Equal(t, 12.5, last.Accuracy)
		state, _ := hub.Permission("dev-2")
		assert.Equal(t, domain.PermissionGranted, state)
	})

	t.Run("Should reject an out of range fix", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodPost, "/v1/location/devices/dev-3/fixes", map[string]interface{}{
			"latitude":  120.0,
			"longitude": 10.0,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		_, ok := hub.Last("dev-3")
		assert.False(t, ok)
	})

	t.Run("Should reject a fix without a longitude", func(t *testing.T) {
		w, _ := doRequest(t, router, http.MethodPost, "/v1/location/devices/dev-3/fixes", map[string]interface{}{"latitude": 1.0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLocationHandler_Errors(t *testing.T) {
	hub := geolocation.NewDeviceHub()
	router := newLocationRouter(hub)

	w, env := doRequest(t, router, http.MethodPost, "/v1/location/devices/dev-4/errors", map[string]int{"code": 1})
	require.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, string(env.Data), "Location access was denied")
	state, _ := hub.Permission("dev-4")
	assert.Equal(t, domain.PermissionDenied, state)

	w, _ = doRequest(t, router, http.MethodPost, "/v1/location/devices/dev-4/errors", map[string]int{"code": 7})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLocationHandler_Current(t *testing.T) {
	hub := geolocation.NewDeviceHub()
	router := newLocationRouter(hub)

	t.Run("Should return a cached fix", func(t *testing.T) {
		require.NoError(t, hub.ReportFix("dev-5", domain.LocationReading{Coordinate: perth, Accuracy: 8}))

		w, env := doRequest(t, router, http.MethodGet, "/v1/location/devices/dev-5/current", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got domain.LocationReading
		decodeData(t, env, &got)
		assert.Equal(t, perth, got.Coordinate)
		assert.False(t, got.IsManual)
	})

	t.Run("Should time out when the device never reports", func(t *testing.T) {
		w, env := doRequest(t, router, http.MethodGet, "/v1/location/devices/dev-6/current?timeout_ms=20", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, "Location request timed out. Please try again.", env.Message)
		assert.JSONEq(t, `{"code":"TIMEOUT"}`, string(env.Error))
	})

	t.Run("Should report a denied device", func(t *testing.T) {
		hub.SetPermission("dev-7", domain.PermissionDenied)
		w, env := doRequest(t, router, http.MethodGet, "/v1/location/devices/dev-7/current", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.JSONEq(t, `{"code":"PERMISSION_DENIED"}`, string(env.Error))
	})
}

func TestLocationHandler_Stream(t *testing.T) {
	hub := geolocation.NewDeviceHub()
	srv := httptest.NewServer(newLocationRouter(hub))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/location/devices/dev-ws/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "permission", "state": "granted"}))
	var ack streamMessage
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, "ack", ack.Type)
	assert.Equal(t, domain.PermissionGranted, ack.Permission)

	t.Run("Should echo a fix sent over the socket", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{
			"type": "fix", "latitude": perth.Latitude, "longitude": perth.Longitude, "accuracy": 5,
		}))
		var msg streamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "position", msg.Type)
		require.NotNil(t, msg.Location)
		assert.Equal(t, perth, msg.Location.Coordinate)
	})

	t.Run("Should push a fix reported over REST", func(t *testing.T) {
		fremantle := domain.LocationReading{Accuracy: 9}
		fremantle.Latitude, fremantle.Longitude = -32.0569, 115.7439
		require.NoError(t, hub.ReportFix("dev-ws", fremantle))

		var msg streamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "position", msg.Type)
		assert.Equal(t, -32.0569, msg.Location.Latitude)
	})

	t.Run("Should push platform errors", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "error", "code": 2}))
		var msg streamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "error", msg.Type)
		require.NotNil(t, msg.Error)
		assert.Equal(t, geolocation.CodePositionUnavailable, msg.Error.Code)
	})

	t.Run("Should reject an invalid fix without closing", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(map[string]interface{}{"type": "fix", "latitude": 200.0, "longitude": 0.0}))
		var msg streamMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "error", msg.Type)
	})
}
