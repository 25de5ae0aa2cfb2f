// Package eligibility decides whether a partner may discover, request or accept orders.
package eligibility

import (
	"service-dispatch/internal/apperr"
	"service-dispatch/internal/domain"
)

// Reason codes returned by Evaluate
const (
	ReasonNotVerified = "not_verified"
	ReasonInactive    = "inactive"
	ReasonAtCapacity  = "at_capacity"
)

// Check returns the first failing eligibility condition as an error, or nil.
func Check(p domain.Partner) error {
	switch {
	case !p.IsVerified:
		return apperr.ErrPartnerNotVerified
	case !p.IsActive:
		return apperr.ErrPartnerInactive
	case !p.HasCapacity():
		return apperr.ErrPartnerAtCapacity
	}
	return nil
}

// Evaluate returns the reason code of the first failing condition, or "" when the partner
// is eligible.
func Evaluate(p domain.Partner) string {
	switch {
	case !p.IsVerified:
		return ReasonNotVerified
	case !p.IsActive:
		return ReasonInactive
	case !p.HasCapacity():
		return ReasonAtCapacity
	}
	return ""
}
