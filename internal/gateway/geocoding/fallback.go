package geocoding

import (
	"context"

	"service-dispatch/internal/domain"
	"service-dispatch/internal/logx"
)

// FallbackGateway never fails: any error from next yields the default coordinate.
type FallbackGateway struct {
	next      geocoder
	def       domain.Location
	logger    logx.Logger
	fallbacks counter
}

// NewFallbackGateway wraps next. A nil next always answers with def.
func NewFallbackGateway(next geocoder, def domain.Location, logger logx.Logger, fallbacks counter) *FallbackGateway {
	if logger == nil {
		logger = logx.Nop()
	}
	return &FallbackGateway{next: next, def: def, logger: logger, fallbacks: fallbacks}
}

// Geocode resolves address or returns the default coordinate.
func (g *FallbackGateway) Geocode(ctx context.Context, address string) (domain.Location, error) {
	if g.next != nil {
		loc, err := g.next.Geocode(ctx, address)
		if err == nil {
			return loc, nil
		}
		g.logger.Warn("geocoding failed, using default location",
			logx.Float64("lat", g.def.Lat),
			logx.Float64("lng", g.def.Lng),
			logx.Any("err", err),
		)
	}
	if g.fallbacks != nil {
		g.fallbacks.Inc()
	}
	return g.def, nil
}
