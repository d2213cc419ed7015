package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// API and transport errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrTransport          = fmt.Errorf("transport failure")
	ErrEmptyResponse      = fmt.Errorf("empty response body")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrNotFound           = fmt.Errorf("resource not found")
	ErrTimeout            = fmt.Errorf("request timed out")

	// Orchestration errors
	ErrPublishNotAllowed = fmt.Errorf("publish not allowed before transfer succeeds")
	ErrEndpointNotReady  = fmt.Errorf("upload endpoint was not provisioned in time")
	ErrIndexOutOfRange   = fmt.Errorf("index out of range")
	ErrNoSession         = fmt.Errorf("no upload session")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
	ErrInvalidFlag     = fmt.Errorf("invalid flag value")
)
