package http

import (
	"errors"
	"strings"

	"communityhub/internal/core/domain"
	apperrors "communityhub/pkg/errors"
)

// appError maps a service error to the HTTP facing error. The message keeps
// the validation detail but never leaks storage or upstream internals.
func appError(err error) *apperrors.AppError {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return apperrors.WrapError(err, apperrors.ErrCodeValidation, detail(err, domain.ErrValidation), 400)
	case errors.Is(err, domain.ErrInvalidCategory):
		return apperrors.WrapError(err, apperrors.ErrCodeNotFound, "category not found", 404)
	case errors.Is(err, domain.ErrMissingFile):
		return apperrors.WrapError(err, apperrors.ErrCodeInvalidInput, "no file provided", 400)
	case errors.Is(err, domain.ErrFileTooLarge):
		return apperrors.WrapError(err, apperrors.ErrCodePayloadTooLarge, "file too large", 413)
	case errors.Is(err, domain.ErrDisallowedMedia):
		return apperrors.WrapError(err, apperrors.ErrCodeUnsupportedMedia, "file type not allowed", 415)
	case errors.Is(err, domain.ErrUnsupportedType):
		return apperrors.WrapError(err, apperrors.ErrCodeUnsupportedType, "unsupported type", 400)
	case errors.Is(err, domain.ErrRateLimited):
		return apperrors.WrapError(err, apperrors.ErrCodeRateLimit, "rate limit exceeded", 429)
	case errors.Is(err, domain.ErrUpstream):
		return apperrors.WrapError(err, apperrors.ErrCodeBadGateway, "upstream lookup failed", 502)
	case errors.Is(err, domain.ErrStorage):
		return apperrors.WrapError(err, apperrors.ErrCodeStorage, "storage unavailable", 500)
	default:
		return apperrors.WrapError(err, apperrors.ErrCodeInternal, "Internal server error", 500)
	}
}

// detail strips the sentinel prefix from "sentinel: detail" messages
func detail(err, sentinel error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return rest
	}
	return msg
}
