package middleware

import "errors"

var (
	// ErrInvalidRoutePattern is returned when a route pattern cannot be
	// compiled.
	ErrInvalidRoutePattern = errors.New("middleware: invalid route pattern")

	// ErrFacilitatorUnavailable is returned when the facilitator cannot be
	// reached.
	ErrFacilitatorUnavailable = errors.New("middleware: facilitator unavailable")

	// ErrFacilitatorStatus is returned when the facilitator answers with a
	// non-200 status.
	ErrFacilitatorStatus = errors.New("middleware: unexpected facilitator status")

	// ErrMissingPayTo is returned when the middleware config carries no
	// receiving address.
	ErrMissingPayTo = errors.New("middleware: missing payTo address")
)
