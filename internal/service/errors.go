package service

import (
	"context"
	"errors"
	"net/http"

	apperrors "github.com/eduassist/portal/internal/errors"
)

// statusCoder is implemented by upstream HTTP errors.
type statusCoder interface {
	StatusCode() int
}

// upstreamError categorizes a failed backend call. Existing AppErrors pass
// through; client errors map by status; everything else is Unavailable.
func upstreamError(err error, message string) error {
	if err == nil || apperrors.GetCode(err) != "" {
		return err
	}

	code := apperrors.ErrCodeUnavailable
	var sc statusCoder
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = apperrors.ErrCodeTimeout
	case errors.Is(err, context.Canceled):
		code = apperrors.ErrCodeCanceled
	case errors.As(err, &sc):
		switch sc.StatusCode() {
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			code = apperrors.ErrCodeValidation
		case http.StatusUnauthorized:
			code = apperrors.ErrCodeUnauthorized
		case http.StatusForbidden:
			code = apperrors.ErrCodeForbidden
		case http.StatusNotFound:
			code = apperrors.ErrCodeNotFound
		case http.StatusConflict:
			code = apperrors.ErrCodeConflict
		}
	}
	return apperrors.Wrap(err, code, message)
}

// validation wraps a request Validate() failure.
func validation(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
}
