package dataverse

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is the OData error payload returned by the Dataverse Web API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code == "" {
		return e.Message
	}

	return fmt.Sprintf("%s (code: %s)", e.Message, e.Code)
}

// ResponseError is the envelope the Web API wraps errors in.
type ResponseError struct {
	Err        *APIError `json:"error"`
	StatusCode int       `json:"-"`
}

// Error implements the error interface for ResponseError.
func (e *ResponseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}

	return e.Err.Error()
}

// Unwrap exposes the inner APIError for errors.As.
func (e *ResponseError) Unwrap() error {
	if e.Err == nil {
		return nil
	}

	return e.Err
}

// ParseResponseError decodes an error response body. The status code is
// attached so callers can classify without re-reading the response.
func ParseResponseError(statusCode int, data []byte) *ResponseError {
	respErr := &ResponseError{StatusCode: statusCode}

	if len(data) > 0 {
		// Body may not be the OData error shape; keep the status either way.
		_ = json.Unmarshal(data, respErr)
	}

	return respErr
}

// RequestFailedError is a fatal (non-transient) fetch failure: any non-2xx
// status other than 429/5xx, or a malformed response body.
type RequestFailedError struct {
	StatusCode int
	Detail     string
	Err        error
}

// Error implements the error interface.
func (e *RequestFailedError) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("request failed: %v", e.Err)
	default:
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
}

// Unwrap exposes the underlying error for errors.Is/As.
func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

// RetryExhaustedError is returned when transient failures (429/5xx) on a
// single page persist beyond the retry budget.
type RetryExhaustedError struct {
	Attempts   int
	LastStatus int
	Err        error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry budget exhausted after %d attempts (last status %d): %v",
		e.Attempts, e.LastStatus, e.Err)
}

// Unwrap exposes the last underlying error for errors.Is/As.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// Static errors that can be wrapped with context.
var (
	ErrConfigRequired           = errors.New("config is required")
	ErrAPIEndpointRequired      = errors.New("API endpoint is required")
	ErrTenantIDRequired         = errors.New("tenant ID is required for OAuth authentication")
	ErrInvalidFetchRequest      = errors.New("invalid fetch request")
	ErrFetchCancelled           = errors.New("fetch cancelled")
	ErrInvalidRecordID          = errors.New("record ID is not a valid GUID")
	ErrEntityNameRequired       = errors.New("entity logical name is required")
	ErrSchemaNameRequired       = errors.New("schema name is required")
	ErrOptionSetNameRequired    = errors.New("option set name is required")
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
	ErrNoTokenManagerConfigured = errors.New("no token manager configured")
)

// IsNotFound reports whether err is a 404 from the Web API.
func IsNotFound(err error) bool {
	return hasStatus(err, http.StatusNotFound)
}

// IsUnauthorized reports whether err is a 401 from the Web API.
func IsUnauthorized(err error) bool {
	return hasStatus(err, http.StatusUnauthorized)
}

// IsForbidden reports whether err is a 403 from the Web API.
func IsForbidden(err error) bool {
	return hasStatus(err, http.StatusForbidden)
}

// IsRetryExhausted reports whether err carries a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	exhausted := &RetryExhaustedError{}

	return errors.As(err, &exhausted)
}

// IsCancelled reports whether err is a cancellation surfaced by the
// paginated fetcher.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrFetchCancelled)
}

func hasStatus(err error, status int) bool {
	respErr := &ResponseError{}
	if errors.As(err, &respErr) {
		return respErr.StatusCode == status
	}

	reqErr := &RequestFailedError{}
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode == status
	}

	return false
}
