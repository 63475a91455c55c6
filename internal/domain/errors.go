package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound means a session or resource is absent. An expected
	// outcome, not a system fault.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated means the bearer credential is missing or invalid.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNoCredentials means every upstream credential is invalid or the
	// pool is empty. Callers map this to a service-unavailable response.
	ErrNoCredentials = errors.New("no upstream credentials available")
)

// UpstreamCode classifies a generative-AI provider failure.
type UpstreamCode string

const (
	UpstreamRateLimited  UpstreamCode = "rate_limited"
	UpstreamUnauthorized UpstreamCode = "unauthorized"
	UpstreamForbidden    UpstreamCode = "forbidden"
	UpstreamTransient    UpstreamCode = "transient"
	UpstreamFatal        UpstreamCode = "fatal"
)

// UpstreamError is a classified provider failure.
type UpstreamError struct {
	Code       UpstreamCode
	HTTPStatus int
	Err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s: %v", e.Code, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is worth another credential.
// Rate limits and auth rejections rotate; transient faults (including
// the enforced call timeout) retry as well. Only fatal faults stop
// the turn outright.
func (e *UpstreamError) Retryable() bool {
	return e.Code != UpstreamFatal
}

// InvalidatesCredential reports whether the credential used should be
// permanently removed from rotation.
func (e *UpstreamError) InvalidatesCredential() bool {
	return e.Code == UpstreamUnauthorized || e.Code == UpstreamForbidden
}

// Status returns the HTTP status to propagate for a pre-stream failure.
func (e *UpstreamError) Status() int {
	if e.Code == UpstreamRateLimited {
		return http.StatusServiceUnavailable
	}
	if e.HTTPStatus != 0 {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}
