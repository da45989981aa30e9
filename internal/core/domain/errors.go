package domain

import "errors"

var (
	ErrNotConfigured   = errors.New("backup destination not configured")
	ErrCooldown        = errors.New("backup trigger cooling down")
	ErrDelivery        = errors.New("backup notification delivery failed")
	ErrRateLimited     = errors.New("sending too fast")
	ErrValidation      = errors.New("validation failed")
	ErrUnsupportedType = errors.New("unsupported message type")
	ErrStorage         = errors.New("storage failure")

	ErrInvalidCategory = errors.New("unknown content category")
	ErrDisallowedMedia = errors.New("media type not allowed")
	ErrFileTooLarge    = errors.New("file too large")
	ErrMissingFile     = errors.New("no file provided")
	ErrUpstream        = errors.New("upstream lookup failed")
)
