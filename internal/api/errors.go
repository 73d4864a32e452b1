package api

import "fmt"

// NetworkError wraps a transport failure or timeout. These are the only
// client errors the orchestrator is allowed to retry.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BackendError is a non-2xx response from the backend. Message holds the
// server-provided detail when one could be extracted, otherwise the raw body.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend error: HTTP %d", e.Status)
	}
	return fmt.Sprintf("backend error: HTTP %d: %s", e.Status, e.Message)
}

// DecodeError means a 2xx response body did not match the wire contract.
// Not retryable; this is an integration bug, not a transient fault.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode error: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
