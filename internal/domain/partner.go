package domain

// PricingModel selects how a partner's delivery fee is computed.
type PricingModel string

// List of pricing models
const (
	PricingFlat       PricingModel = "flat"
	PricingPerKm      PricingModel = "per_km"
	PricingPercentage PricingModel = "percentage"
	PricingHybrid     PricingModel = "hybrid"
)

// Valid checks if the PricingModel is known.
func (m PricingModel) Valid() bool {
	switch m {
	case PricingFlat, PricingPerKm, PricingPercentage, PricingHybrid:
		return true
	default:
		return false
	}
}

// Location is a WGS84 coordinate in degrees.
type Location struct {
	Lat float64
	Lng float64
}

// Valid checks the coordinate ranges.
func (l Location) Valid() bool {
	return l.Lat >= -90 && l.Lat <= 90 && l.Lng >= -180 && l.Lng <= 180
}

// Rates carries a partner's pricing configuration.
// A nil rate means the partner never configured it.
type Rates struct {
	Model            PricingModel
	BaseCharge       *float64
	PerKmCharge      *float64
	PercentageCharge *float64
}

// UsesDistance reports whether the model needs a distance to price a delivery.
func (r Rates) UsesDistance() bool {
	return r.Model == PricingPerKm || r.Model == PricingHybrid
}

// Partner is an independent delivery agent.
type Partner struct {
	ID                  int64
	UserID              int64
	Name                string
	Location            *Location
	ServiceRadiusKm     float64
	Rates               Rates
	MaxDailyCapacity    int
	CurrentActiveOrders int
	IsVerified          bool
	IsActive            bool
	Rating              float64
}

// HasCapacity reports whether the partner can take one more active order.
func (p Partner) HasCapacity() bool {
	return p.CurrentActiveOrders < p.MaxDailyCapacity
}
