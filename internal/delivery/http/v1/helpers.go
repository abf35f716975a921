package v1

import (
	"strconv"
	"strings"

	"rigger-connect-backend/internal/domain"
	"rigger-connect-backend/pkg/apperror"
	"rigger-connect-backend/pkg/geo"

	"github.com/gin-gonic/gin"
)

// bindJSON reports a malformed body as a 400 and returns false.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.Error(apperror.BadRequest("Invalid request body"))
		return false
	}
	return true
}

// originFrom pairs optional lat/lng values. Either both or neither must be set.
func originFrom(lat, lng *float64) (*geo.Coordinate, error) {
	if lat == nil && lng == nil {
		return nil, nil
	}
	if lat == nil || lng == nil {
		return nil, apperror.BadRequest("lat and lng must be provided together")
	}
	return &geo.Coordinate{Latitude: *lat, Longitude: *lng}, nil
}

// requiredCoordinate reads lat and lng query parameters that must both parse.
func requiredCoordinate(c *gin.Context) (geo.Coordinate, error) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(c.Query("lat")), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(c.Query("lng")), 64)
	if errLat != nil || errLng != nil {
		return geo.Coordinate{}, apperror.BadRequest("lat and lng query parameters are required")
	}
	coord := geo.Coordinate{Latitude: lat, Longitude: lng}
	if !coord.Valid() {
		return geo.Coordinate{}, apperror.Validation("Invalid coordinates", map[string]string{
			"origin": "Latitude must be between -90 and 90 and longitude between -180 and 180",
		})
	}
	return coord, nil
}

func queryInt(c *gin.Context, key string, fallback int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil {
		return v
	}
	return fallback
}

func currentUserID(c *gin.Context) string {
	return c.GetString(string(domain.KeyUserID))
}

var errInvalidQuery = apperror.BadRequest("Invalid query parameters")
