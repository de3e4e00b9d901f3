package controller

import (
	"fmt"
)

// NetworkError is a transport-level failure: the request never produced a response.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a response with a non-success status.
type HTTPError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("api %s returned status %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("api %s returned status %d: %s", e.Path, e.StatusCode, e.Body)
}

// ParseError is malformed JSON in a response body or push frame.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CommandError reports a failed SendCommand. Err is a *NetworkError,
// *HTTPError or *ParseError.
type CommandError struct {
	DeviceID  string
	Command   string
	RequestID string
	Err       error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s to %s failed: %v", e.Command, e.DeviceID, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
