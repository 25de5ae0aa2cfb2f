// Package fee computes delivery fees from a partner's pricing configuration.
package fee

import (
	"fmt"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
	"service-dispatch/internal/geo"
)

// Compute returns the fee a partner charges for a delivery of distanceKm for an order worth
// orderTotal. The result is rounded to two decimals.
func Compute(r domain.Rates, distanceKm, orderTotal float64) (float64, error) {
	if distanceKm < 0 {
		return 0, apperr.ErrInvalid.With("distance must not be negative")
	}
	if orderTotal < 0 {
		return 0, apperr.ErrInvalid.With("order total must not be negative")
	}

	var total float64
	switch r.Model {
	case domain.PricingFlat:
		base, err := rate("base_charge", r.BaseCharge)
		if err != nil {
			return 0, err
		}
		total = base
	case domain.PricingPerKm:
		perKm, err := rate("per_km_charge", r.PerKmCharge)
		if err != nil {
			return 0, err
		}
		total = perKm * distanceKm
	case domain.PricingPercentage:
		pct, err := rate("percentage_charge", r.PercentageCharge)
		if err != nil {
			return 0, err
		}
		total = orderTotal * pct / 100
	case domain.PricingHybrid:
		base, err := rate("base_charge", r.BaseCharge)
		if err != nil {
			return 0, err
		}
		perKm, err := rate("per_km_charge", r.PerKmCharge)
		if err != nil {
			return 0, err
		}
		pct, err := rate("percentage_charge", r.PercentageCharge)
		if err != nil {
			return 0, err
		}
		total = base + perKm*distanceKm + orderTotal*pct/100
	default:
		return 0, apperr.ErrInvalidPricingConfiguration.With(fmt.Sprintf("unknown pricing model %q", r.Model))
	}

	return geo.Round2(total), nil
}

func rate(name string, v *float64) (float64, error) {
	if v == nil {
		return 0, apperr.ErrInvalidPricingConfiguration.With(name + " is not configured")
	}
	if *v < 0 {
		return 0, apperr.ErrInvalidPricingConfiguration.With(name + " must not be negative")
	}
	return *v, nil
}
