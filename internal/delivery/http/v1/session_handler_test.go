package v1

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/internal/geolocation"
	"rigger-connect-backend/internal/search"
	"rigger-connect-backend/pkg/geo"
	"rigger-connect-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type sessionGeocoder struct{}

func (sessionGeocoder) ReverseGeocode(_ context.Context, lat, lng float64, _ string) string {
	return fmt.Sprintf("near %.2f, %.2f", lat, lng)
}

func (sessionGeocoder) Geocode(_ context.Context, address string) (geo.Coordinate, error) {
	if address == "Perth WA" {
		return perth, nil
	}
	return geo.Coordinate{}, fmt.Errorf("no result for %q", address)
}

type sessionFixture struct {
	router   http.Handler
	hub      *geolocation.DeviceHub
	registry *search.Registry
	uc       *MockWorkerSearchUC
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	uc := new(MockWorkerSearchUC)
	uc.On("Search", mock.Anything, mock.Anything).Return(&domain.SearchPage{
		Items: []domain.WorkerCandidate{{
			WorkerProfile:      domain.WorkerProfile{ID: "p-1", FullName: "Alex Dogman"},
			Distance:           f64(1.5),
			AvailabilityStatus: domain.AvailabilityAvailable,
		}},
		Total:  1,
		Limit:  20,
		Offset: 0,
	}, nil).Maybe()

	hub := geolocation.NewDeviceHub()
	opts := search.DefaultOptions()
	opts.Debounce = 20 * time.Millisecond
	registry := search.NewRegistry(hub, uc, sessionGeocoder{}, search.RegistryOptions{
		Search:   opts,
		Location: geolocation.Options{Timeout: 200 * time.Millisecond, MaximumAge: time.Minute},
		IdleTTL:  time.Minute,
	})
	t.Cleanup(registry.Stop)

	r, v1 := newTestEngine()
	NewSessionHandler(v1, registry, validation.New())
	return &sessionFixture{router: r, hub: hub, registry: registry, uc: uc}
}

func (f *sessionFixture) create(t *testing.T, deviceID string) search.SessionView {
	t.Helper()
	w, env := doRequest(t, f.router, http.MethodPost, "/v1/search/sessions", map[string]string{"device_id": deviceID})
	require.Equal(t, http.StatusCreated, w.Code)
	var view search.SessionView
	decodeData(t, env, &view)
	return view
}

func TestSessionHandler_Lifecycle(t *testing.T) {
	f := newSessionFixture(t)

	view := f.create(t, "dev-1")
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "dev-1", view.DeviceID)
	assert.Equal(t, domain.PermissionPrompt, view.Location.Permission)
	assert.Equal(t, search.StatusIdle, view.Search.Status)
	assert.Equal(t, 50.0, view.Search.Filters.RadiusKm)

	base := "/v1/search/sessions/" + view.ID

	t.Run("Should search once an origin is set", func(t *testing.T) {
		w, env := doRequest(t, f.router, http.MethodPut, base+"/origin?wait=true", map[string]float64{
			"latitude": perth.Latitude, "longitude": perth.Longitude,
		})
		require.Equal(t, http.StatusOK, w.Code)

		var got search.SessionView
		decodeData(t, env, &got)
		assert.Equal(t, search.StatusLoaded, got.Search.Status)
		require.Len(t, got.Search.Results, 1)
		assert.Equal(t, "p-1", got.Search.Results[0].ID)
		assert.Equal(t, 1, got.Search.Stats.Available)
	})

	t.Run("Should apply structured filters", func(t *testing.T) {
		w, env := doRequest(t, f.router, http.MethodPatch, base+"/filters?wait=true", map[string]interface{}{
			"radius_km": 10, "sort_by": "experience",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var got search.SessionView
		decodeData(t, env, &got)
		assert.Equal(t, 10.0, got.Search.Filters.RadiusKm)
		assert.Equal(t, domain.SortByExperience, got.Search.Filters.SortBy)
	})

	t.Run("Should reject an invalid radius", func(t *testing.T) {
		w, env := doRequest(t, f.router, http.MethodPatch, base+"/filters", map[string]interface{}{"radius_km": 5000})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, string(env.Error), "radius_km")
	})

	t.Run("Should store the search term", func(t *testing.T) {
		w, env := doRequest(t, f.router, http.MethodPut, base+"/search-term", map[string]string{"search_term": "crane"})
		require.Equal(t, http.StatusOK, w.Code)
		var got search.SessionView
		decodeData(t, env, &got)
		assert.Equal(t, "crane", got.Search.Filters.SearchTerm)
	})

	t.Run("Should report when there is nothing more to load", func(t *testing.T) {
		w, env := doRequest(t, f.router, http.MethodPost, base+"/load-more", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "No more results to load", env.Message)
	})

	t.Run("Should clear results without searching", func(t *testing.T) {
		w, env := doRequest(t, f.router, http.MethodPost, base+"/clear", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got search.SessionView
		decodeData(t, env, &got)
		assert.Empty(t, got.Search.Results)
		assert.Equal(t, "", got.Search.Filters.SearchTerm)
	})

	t.Run("Should close the session", func(t *testing.T) {
		w, _ := doRequest(t, f.router, http.MethodDelete, base, nil)
		require.Equal(t, http.StatusOK, w.Code)

		w, env := doRequest(t, f.router, http.MethodGet, base, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Search session not found", env.Message)
	})
}

func TestSessionHandler_Location(t *testing.T) {
	t.Run("Should detect the device position", func(t *testing.T) {
		f := newSessionFixture(t)
		view := f.create(t, "dev-detect")
		require.NoError(t, f.hub.ReportFix("dev-detect", domain.LocationReading{Coordinate: perth, Accuracy: 10}))

		w, env := doRequest(t, f.router, http.MethodPost, "/v1/search/sessions/"+view.ID+"/location/detect?wait=true", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got search.SessionView
		decodeData(t, env, &got)
		require.NotNil(t, got.Location.Location)
		assert.Equal(t, "near -31.95, 115.86", got.Location.Location.Address)
		assert.Equal(t, domain.PermissionGranted, got.Location.Permission)
		require.NotNil(t, got.Search.Origin)
		assert.Equal(t, perth, *got.Search.Origin)
	})

	t.Run("Should fail detection for a denied device", func(t *testing.T) {
		f := newSessionFixture(t)
		f.hub.SetPermission("dev-denied", domain.PermissionDenied)
		view := f.create(t, "dev-denied")

		w, env := doRequest(t, f.router, http.MethodPost, "/v1/search/sessions/"+view.ID+"/location/detect", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.JSONEq(t, `{"code":"PERMISSION_DENIED"}`, string(env.Error))
	})

	t.Run("Should geocode a manual address", func(t *testing.T) {
		f := newSessionFixture(t)
		view := f.create(t, "")

		w, env := doRequest(t, f.router, http.MethodPut, "/v1/search/sessions/"+view.ID+"/location/manual?wait=true",
			map[string]string{"address": "Perth WA"})
		require.Equal(t, http.StatusOK, w.Code)

		var got search.SessionView
		decodeData(t, env, &got)
		require.NotNil(t, got.Location.Location)
		assert.True(t, got.Location.Location.IsManual)
		assert.Equal(t, "Perth WA", got.Location.Location.Address)
		require.NotNil(t, got.Search.Origin)
		assert.Equal(t, search.StatusLoaded, got.Search.Status)
	})

	t.Run("Should require an address or coordinates", func(t *testing.T) {
		f := newSessionFixture(t)
		view := f.create(t, "")

		w, env := doRequest(t, f.router, http.MethodPut, "/v1/search/sessions/"+view.ID+"/location/manual", map[string]string{"address": " "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Enter an address or coordinates", env.Message)
	})

	t.Run("Should clear the location", func(t *testing.T) {
		f := newSessionFixture(t)
		view := f.create(t, "")
		doRequest(t, f.router, http.MethodPut, "/v1/search/sessions/"+view.ID+"/location/manual?wait=true",
			map[string]string{"address": "Perth WA"})

		w, env := doRequest(t, f.router, http.MethodDelete, "/v1/search/sessions/"+view.ID+"/location", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var got search.SessionView
		decodeData(t, env, &got)
		assert.Nil(t, got.Location.Location)
		assert.Nil(t, got.Search.Origin)
	})
}
