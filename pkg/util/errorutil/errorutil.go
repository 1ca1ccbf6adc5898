package errorutil

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spec-kit/email-ticket-service/internal/domain"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewInternalError(err error) *DomainError {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts domain and generic errors to a DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}

	var invalidStatus *domain.InvalidStatusError
	if errors.As(err, &invalidStatus) {
		return NewDomainError("INVALID_STATUS", invalidStatus.Error(), http.StatusBadRequest,
			map[string]any{"status": invalidStatus.Value})
	}

	var unavailable *domain.AnalysisUnavailableError
	if errors.As(err, &unavailable) {
		return &DomainError{
			Code:       "ANALYSIS_UNAVAILABLE",
			Message:    "email analysis failed; no ticket was created",
			HTTPStatus: http.StatusBadGateway,
			Err:        err,
		}
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFound("resource", nil).(*DomainError)
	case errors.Is(err, domain.ErrEmptyBody):
		return NewValidationError(domain.ErrEmptyBody.Error(), map[string]any{"field": "body"}).(*DomainError)
	case errors.Is(err, domain.ErrAnalysisNotConfigured):
		return NewDomainError("ANALYSIS_NOT_CONFIGURED", "analysis provider is not configured",
			http.StatusServiceUnavailable, nil)
	}

	return NewInternalError(err)
}
