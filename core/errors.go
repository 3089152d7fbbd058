package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	UserErrorBadInput              = "SYNCAUTH_BAD_INPUT"
	UserErrorDuplicateRegistration = "SYNCAUTH_DUPLICATE_REGISTRATION"
	UserErrorNotFound              = "SYNCAUTH_NOT_FOUND"
	UserErrorMetadataFailed        = "SYNCAUTH_METADATA_FAILED"
	UserErrorInternal              = "SYNCAUTH_INTERNAL_ERROR"
)

func userErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureUserErrorEnvelope(richErr)
	}

	if errors.Is(err, ErrDuplicateRegistration) {
		return ensureUserErrorEnvelope(
			goerrors.Wrap(err, goerrors.CategoryConflict, err.Error()).
				WithTextCode(UserErrorDuplicateRegistration),
		)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "not found"):
		return newUserError(err.Error(), goerrors.CategoryNotFound, UserErrorNotFound)
	case strings.Contains(msg, "metadata update"), strings.Contains(msg, "metadata store"):
		return newUserError(err.Error(), goerrors.CategoryOperation, UserErrorMetadataFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newUserError(err.Error(), goerrors.CategoryBadInput, UserErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureUserErrorEnvelope(mapped)
}

func newUserError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureUserErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureUserErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = userHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultUserTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultUserTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return UserErrorBadInput
	case goerrors.CategoryNotFound:
		return UserErrorNotFound
	case goerrors.CategoryConflict:
		return UserErrorDuplicateRegistration
	case goerrors.CategoryOperation:
		return UserErrorMetadataFailed
	default:
		return UserErrorInternal
	}
}

func userHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
