package enlighten

import (
	"errors"
	"fmt"
)

// ConfigurationError is returned when the client is used before it has been
// set up.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "enlighten client misconfigured: " + e.Reason
}

// ErrUserAgentNotPrepared is returned by Fetch when PrepareUserAgent was
// never called.
var ErrUserAgentNotPrepared = &ConfigurationError{Reason: "user-agent string must be prepared"}

// APIError is returned when the API answered with something other than 200
// or could not be reached at all.
type APIError struct {
	StatusCode int
	Status     string
	Err        error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("problem communicating with enlighten api: %v", e.Err)
	}
	return fmt.Sprintf("invalid response from enlighten api: %s", e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// ParseError is returned when the performance response is not usable.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("problem parsing enlighten response: %s: %v", e.Reason, e.Err)
	}
	return "problem parsing enlighten response: " + e.Reason
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsAPIError reports whether err is or wraps an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}
