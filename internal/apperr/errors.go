package apperr

import "errors"

// Kind groups errors by how the caller is expected to react.
type Kind string

// List of error kinds
const (
	KindValidation    Kind = "validation"
	KindPermission    Kind = "permission_denied"
	KindStateConflict Kind = "state_conflict"
	KindPrecondition  Kind = "precondition_failed"
	KindNotFound      Kind = "not_found"
	KindStorage       Kind = "storage"
)

// Error is a structured application error with a machine-readable reason.
type Error struct {
	Kind   Kind
	Reason string
	Msg    string
	Err    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Reason
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is matches by kind and, when the target carries one, by reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Reason == "" || t.Reason == e.Reason
}

// With returns a copy of e carrying a more specific message.
func (e *Error) With(msg string) *Error {
	cp := *e
	cp.Msg = msg
	return &cp
}

// Wrap returns a copy of e wrapping cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

// Kind-level sentinels, useful with errors.Is to match any reason of a kind.
var (
	ErrInvalid            = &Error{Kind: KindValidation, Msg: "invalid input"}
	ErrPermissionDenied   = &Error{Kind: KindPermission, Reason: "permission_denied", Msg: "permission denied"}
	ErrStateConflict      = &Error{Kind: KindStateConflict, Msg: "state conflict"}
	ErrPreconditionFailed = &Error{Kind: KindPrecondition, Msg: "precondition failed"}
	ErrNotFound           = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrStorage            = &Error{Kind: KindStorage, Msg: "storage error"}
)

// State conflicts.
var (
	ErrRequestNotPending    = &Error{Kind: KindStateConflict, Reason: "request_not_pending", Msg: "request is not pending"}
	ErrRequestExpired       = &Error{Kind: KindStateConflict, Reason: "request_expired", Msg: "request has expired"}
	ErrOrderAlreadyAssigned = &Error{Kind: KindStateConflict, Reason: "order_already_assigned", Msg: "order already assigned"}
	ErrPartnerAtCapacity    = &Error{Kind: KindStateConflict, Reason: "partner_at_capacity", Msg: "partner is at capacity"}
	ErrTransactionConflict  = &Error{Kind: KindStateConflict, Reason: "transaction_conflict", Msg: "concurrent update, retry"}
	ErrPendingRequestExists = &Error{Kind: KindStateConflict, Reason: "pending_request_exists", Msg: "pending request already exists"}
	ErrOrderNotDispatchable = &Error{Kind: KindStateConflict, Reason: "order_not_dispatchable", Msg: "order status does not allow dispatch"}
)

// Precondition failures.
var (
	ErrLocationRequired            = &Error{Kind: KindPrecondition, Reason: "location_required", Msg: "partner location is required"}
	ErrInvalidPricingConfiguration = &Error{Kind: KindPrecondition, Reason: "invalid_pricing_configuration", Msg: "invalid pricing configuration"}
	ErrPartnerNotVerified          = &Error{Kind: KindPrecondition, Reason: "partner_not_verified", Msg: "partner is not verified"}
	ErrPartnerInactive             = &Error{Kind: KindPrecondition, Reason: "partner_inactive", Msg: "partner is not active"}
)

// ReasonOf returns the machine-readable reason of err, or "" when err is not an *Error.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ""
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// MessageOf returns the client-facing message of err without any wrapped cause.
func MessageOf(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Reason != "":
		return e.Reason
	default:
		return string(e.Kind)
	}
}
