package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rigger-connect-backend/internal/delivery/http/response"
	"rigger-connect-backend/internal/geocoding"
	"rigger-connect-backend/pkg/apperror"
	"rigger-connect-backend/pkg/geo"

	"github.com/gin-gonic/gin"
)

// GeocodeService is implemented by *geocoding.Resolver.
type GeocodeService interface {
	ReverseGeocode(ctx context.Context, lat, lng float64, preferred string) string
	Geocode(ctx context.Context, address string) (geo.Coordinate, error)
	ProviderNames() []string
}

type GeocodeHandler struct {
	geocoder GeocodeService
}

func NewGeocodeHandler(public *gin.RouterGroup, geocoder GeocodeService, limiter gin.HandlerFunc) {
	handler := &GeocodeHandler{geocoder: geocoder}

	g := public.Group("/geocode")
	{
		g.GET("/reverse", limiter, handler.Reverse)
		g.GET("/forward", limiter, handler.Forward)
		g.GET("/distance", handler.Distance)
		g.GET("/providers", handler.Providers)
	}
}

type ReverseGeocodeResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address"`
}

type DistanceResponse struct {
	DistanceKm float64        `json:"distance_km"`
	Formatted  string         `json:"formatted"`
	TravelTime string         `json:"travel_time"`
	Mode       geo.TravelMode `json:"mode"`
}

// ReverseGeocode godoc
// @Summary      Label a coordinate
// @Description  Walks the provider chain and always returns a label, falling back to formatted coordinates
// @Tags         geocode
// @Produce      json
// @Param        lat       query     number  true   "Latitude"
// @Param        lng       query     number  true   "Longitude"
// @Param        provider  query     string  false  "Provider to try first (OpenCage, Nominatim, Coordinates)"
// @Success      200  {object}  response.Response{data=ReverseGeocodeResponse}
// @Failure      400  {object}  response.Response
// @Router       /geocode/reverse [get]
func (h *GeocodeHandler) Reverse(c *gin.Context) {
	coord, err := requiredCoordinate(c)
	if err != nil {
		c.Error(err)
		return
	}

	address := h.geocoder.ReverseGeocode(c.Request.Context(), coord.Latitude, coord.Longitude, c.Query("provider"))
	response.Success(c, http.StatusOK, "Address resolved", ReverseGeocodeResponse{
		Latitude:  coord.Latitude,
		Longitude: coord.Longitude,
		Address:   address,
	})
}

// ForwardGeocode godoc
// @Summary      Resolve an address
// @Tags         geocode
// @Produce      json
// @Param        q    query     string  true  "Address or place name"
// @Success      200  {object}  response.Response{data=geo.Coordinate}
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Failure      502  {object}  response.Response
// @Router       /geocode/forward [get]
func (h *GeocodeHandler) Forward(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.Error(apperror.BadRequest("q query parameter is required"))
		return
	}
	if len(q) > 200 {
		c.Error(apperror.BadRequest("q must be at most 200 characters"))
		return
	}

	coord, err := h.geocoder.Geocode(c.Request.Context(), q)
	switch {
	case errors.Is(err, geocoding.ErrNoResult):
		c.Error(apperror.NotFound("No location found for that address"))
		return
	case err != nil:
		c.Error(apperror.BadGateway("Failed to geocode address", err))
		return
	}

	response.Success(c, http.StatusOK, "Address resolved", coord)
}

// Distance godoc
// @Summary      Format a distance and estimate travel time
// @Description  Takes km directly, or from_lat/from_lng/to_lat/to_lng to measure the great-circle distance
// @Tags         geocode
// @Produce      json
// @Param        km        query     number  false  "Distance in km"
// @Param        from_lat  query     number  false  "Start latitude"
// @Param        from_lng  query     number  false  "Start longitude"
// @Param        to_lat    query     number  false  "End latitude"
// @Param        to_lng    query     number  false  "End longitude"
// @Param        mode      query     string  false  "driving (default) or walking"
// @Success      200  {object}  response.Response{data=DistanceResponse}
// @Failure      400  {object}  response.Response
// @Router       /geocode/distance [get]
func (h *GeocodeHandler) Distance(c *gin.Context) {
	km, err := distanceFromQuery(c)
	if err != nil {
		c.Error(err)
		return
	}

	mode := geo.ParseTravelMode(c.Query("mode"))
	response.Success(c, http.StatusOK, "Distance formatted", DistanceResponse{
		DistanceKm: km,
		Formatted:  geo.FormatDistance(km),
		TravelTime: geo.EstimateTravelTime(km, mode),
		Mode:       mode,
	})
}

// Providers godoc
// @Summary      List reverse geocoding providers in priority order
// @Tags         geocode
// @Produce      json
// @Success      200  {object}  response.Response{data=[]string}
// @Router       /geocode/providers [get]
func (h *GeocodeHandler) Providers(c *gin.Context) {
	response.Success(c, http.StatusOK, "Providers retrieved", h.geocoder.ProviderNames())
}

func distanceFromQuery(c *gin.Context) (float64, error) {
	if raw := c.Query("km"); raw != "" {
		km, err := strconv.ParseFloat(raw, 64)
		if err != nil || km < 0 {
			return 0, apperror.BadRequest("km must be a non-negative number")
		}
		return km, nil
	}

	vals := make([]float64, 4)
	for i, key := range []string{"from_lat", "from_lng", "to_lat", "to_lng"} {
		v, err := strconv.ParseFloat(c.Query(key), 64)
		if err != nil {
			return 0, apperror.BadRequest("Provide km, or from_lat, from_lng, to_lat and to_lng")
		}
		vals[i] = v
	}
	from := geo.Coordinate{Latitude: vals[0], Longitude: vals[1]}
	to := geo.Coordinate{Latitude: vals[2], Longitude: vals[3]}
	if !from.Valid() || !to.Valid() {
		return 0, apperror.BadRequest("Coordinates are out of range")
	}
	return geo.Distance(from, to), nil
}
