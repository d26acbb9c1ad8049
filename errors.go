package stratus

import "errors"

var (
	// ErrPatternSyntax is returned when a path template cannot be compiled.
	ErrPatternSyntax = errors.New("invalid route pattern")

	// ErrParamConversion is returned when a path parameter cannot be
	// converted to the declared kind.
	ErrParamConversion = errors.New("path parameter conversion failed")

	// ErrBodyDecode is returned when a request body cannot be read or
	// deserialized into the declared prototype.
	ErrBodyDecode = errors.New("request body decode failed")

	// ErrValidation is returned when a decoded request body fails
	// struct validation.
	ErrValidation = errors.New("request body validation failed")

	// ErrNilHandler is returned when a route is registered without a handler.
	ErrNilHandler = errors.New("route handler is nil")
)
