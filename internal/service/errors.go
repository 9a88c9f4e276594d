package service

import "errors"

// Error kinds the handlers translate to HTTP status codes. Callers wrap these
// with fmt.Errorf("%w: ...") to attach detail and match with errors.Is.
var (
	ErrValidation          = errors.New("validation error")
	ErrAuthorization       = errors.New("not authorized")
	ErrNotFound            = errors.New("not found")
	ErrPlatform            = errors.New("platform error")
	ErrTimeout             = errors.New("processing timed out")
	ErrPersistence         = errors.New("persistence error")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)
