// Package proximity ranks orders by great-circle distance from a partner.
package proximity

import (
	"sort"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

// DefaultLimit caps a ranking when the caller passes no limit.
const DefaultLimit = 50

// Candidate is an order inside the partner's geofence.
type Candidate struct {
	Order      domain.Order
	DistanceKm float64
}

// DisplayDistance is the distance rounded for output.
func (c Candidate) DisplayDistance() float64 {
	return geo.Round2(c.DistanceKm)
}

// Rank returns the orders within radiusKm of origin, nearest first. Ties break by
// order creation time, oldest first, then by ID. Orders without coordinates are skipped.
func Rank(origin domain.Location, radiusKm float64, orders []domain.Order, limit int) []Candidate {
	if limit <= 0 {
		limit = DefaultLimit
	}

	out := make([]Candidate, 0, len(orders))
	for _, o := range orders {
		if o.DeliveryLocation == nil {
			continue
		}
		d := geo.HaversineKm(origin.Lat, origin.Lng, o.DeliveryLocation.Lat, o.DeliveryLocation.Lng)
		if d > radiusKm {
			continue
		}
		out = append(out, Candidate{Order: o, DistanceKm: d})
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DistanceKm != b.DistanceKm {
			return a.DistanceKm < b.DistanceKm
		}
		if !a.Order.CreatedAt.Equal(b.Order.CreatedAt) {
			return a.Order.CreatedAt.Before(b.Order.CreatedAt)
		}
		return a.Order.ID < b.Order.ID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
