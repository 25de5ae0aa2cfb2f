package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius used by the haversine formula.
	EarthRadiusKm = 6371.0088
	degToRad      = math.Pi / 180
	// boxMargin widens bounding boxes slightly so float noise never drops a boundary point.
	boxMargin = 1.0001
)

// HaversineKm calculates the great-circle distance between two points in kilometers.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// Round2 rounds v to two decimals. Display only; comparisons use raw values.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Box is a lat/lng rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoundingBox returns a rectangle that contains every point within radiusKm of (lat, lng).
// It over-approximates; callers still apply the exact distance check.
func BoundingBox(lat, lng, radiusKm float64) Box {
	full := Box{MinLat: -90, MaxLat: 90, MinLng: -180, MaxLng: 180}
	angular := radiusKm * boxMargin / EarthRadiusKm
	if angular >= math.Pi/2 {
		return full
	}
	dLat := angular / degToRad
	box := Box{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLng: -180,
		MaxLng: 180,
	}
	// a pole inside the circle means every longitude is reachable
	if box.MaxLat >= 90 || box.MinLat <= -90 {
		box.MinLat = math.Max(box.MinLat, -90)
		box.MaxLat = math.Min(box.MaxLat, 90)
		return box
	}
	dLng := math.Asin(math.Sin(angular)/math.Cos(lat*degToRad)) / degToRad
	box.MinLng = lng - dLng
	box.MaxLng = lng + dLng
	// crossing the antimeridian: fall back to the full longitude range
	if box.MinLng < -180 || box.MaxLng > 180 {
		box.MinLng, box.MaxLng = -180, 180
	}
	return box
}

// Contains reports whether the point lies inside the box.
func (b Box) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}
