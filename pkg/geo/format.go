package geo

import (
	"fmt"
	"math"
)

// TravelMode selects the average speed used by EstimateTravelTime.
type TravelMode string

const (
	TravelDriving TravelMode = "driving"
	TravelWalking TravelMode = "walking"
)

const (
	drivingSpeedKmh = 50.0
	walkingSpeedKmh = 5.0
)

// ParseTravelMode defaults to driving for anything it does not recognise.
func ParseTravelMode(s string) TravelMode {
	if TravelMode(s) == TravelWalking {
		return TravelWalking
	}
	return TravelDriving
}

// FormatDistance renders a distance for display: metres below 1 km, one decimal
// below 10 km, whole kilometres otherwise.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%dm", int(math.Round(km*1000)))
	case km < 10:
		return fmt.Sprintf("%.1fkm", km)
	default:
		return fmt.Sprintf("%dkm", int(math.Round(km)))
	}
}

// EstimateTravelTime gives a rough duration at a constant average speed.
func EstimateTravelTime(km float64, mode TravelMode) string {
	speed := drivingSpeedKmh
	if mode == TravelWalking {
		speed = walkingSpeedKmh
	}
	hours := km / speed

	if hours < 1 {
		return fmt.Sprintf("%d min", int(math.Round(hours*60)))
	}

	h := int(math.Floor(hours))
	m := int(math.Round((hours - float64(h)) * 60))
	if m == 60 {
		h++
		m = 0
	}
	if m > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dh", h)
}
