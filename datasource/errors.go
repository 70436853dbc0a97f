package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode classifies why a lookup failed
type ErrorCode string

const (
	ErrCodeEmptyCity    ErrorCode = "validation_empty_city"
	ErrCodeCityTooLong  ErrorCode = "validation_city_too_long"
	ErrCodeCityNotFound ErrorCode = "not_found_city"
	ErrCodeUnauthorized ErrorCode = "upstream_unauthorized"
	ErrCodeRateLimited  ErrorCode = "upstream_rate_limited"
	ErrCodeUnavailable  ErrorCode = "upstream_unavailable"
	ErrCodeTimeout      ErrorCode = "upstream_timeout"
	ErrCodeNetwork      ErrorCode = "upstream_network"
	ErrCodeMalformed    ErrorCode = "upstream_malformed"
	ErrCodeCanceled     ErrorCode = "query_canceled"
	ErrCodeInternal     ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to the status the JSON API answers with
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case c == ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case c == ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case c == ErrCodeCanceled:
		return http.StatusConflict
	case strings.HasPrefix(s, "upstream_"):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// QueryError is the failure reason of a single lookup
type QueryError struct {
	Code    ErrorCode
	Message string // safe to show to the user
	Err     error
}

func (e *QueryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError creates a QueryError with the default message for code
func NewQueryError(code ErrorCode, err error) *QueryError {
	return &QueryError{Code: code, Message: DefaultMessage(code), Err: err}
}

// DefaultMessage is the English user-facing text for code. The web layer
// replaces it with a localized string when it has one.
func DefaultMessage(code ErrorCode) string {
	switch code {
	case ErrCodeEmptyCity:
		return "enter a city name"
	case ErrCodeCityTooLong:
		return "city name is too long"
	case ErrCodeCityNotFound:
		return "city not found"
	case ErrCodeUnauthorized:
		return "weather provider rejected the access key"
	case ErrCodeRateLimited:
		return "weather provider is rate limiting requests, try again later"
	case ErrCodeUnavailable:
		return "weather provider is unavailable"
	case ErrCodeTimeout:
		return "weather provider did not answer in time"
	case ErrCodeNetwork:
		return "could not reach the weather provider"
	case ErrCodeMalformed:
		return "weather provider sent an unexpected response"
	case ErrCodeCanceled:
		return "search was replaced by a newer one"
	default:
		return "an unexpected error occurred"
	}
}

// AsQueryError returns err as a *QueryError, classifying context and
// unknown errors so that every failure carries a code.
func AsQueryError(err error) *QueryError {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewQueryError(ErrCodeTimeout, err)
	case errors.Is(err, context.Canceled):
		return NewQueryError(ErrCodeCanceled, err)
	default:
		return NewQueryError(ErrCodeInternal, err)
	}
}

// errorForStatus maps a non-200 upstream status to a QueryError
func errorForStatus(status int, upstreamMessage string) *QueryError {
	cause := fmt.Errorf("API returned status %d: %s", status, upstreamMessage)
	switch {
	case status == http.StatusNotFound:
		return NewQueryError(ErrCodeCityNotFound, cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return NewQueryError(ErrCodeUnauthorized, cause)
	case status == http.StatusTooManyRequests:
		return NewQueryError(ErrCodeRateLimited, cause)
	case status >= 500:
		return NewQueryError(ErrCodeUnavailable, cause)
	default:
		return NewQueryError(ErrCodeMalformed, cause)
	}
}
