package extrahop

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ConfigError indicates that a deployment configuration misses required fields.
// It is raised before any request is made and never travels over the wire.
type ConfigError struct {
	Missing []string `json:"missing"`
}

func (err *ConfigError) Error() string {
	if len(err.Missing) == 0 {
		return "invalid deployment configuration"
	}
	return fmt.Sprintf("invalid deployment configuration: missing %s", strings.Join(err.Missing, ", "))
}

// Diagnostic carries the full request/response context of a failed authentication attempt.
// The console surfaces it behind a 'technical details' toggle.
type Diagnostic struct {
	URL      string            `json:"url"`
	Headers  map[string]string `json:"headers"`
	Body     string            `json:"body"`
	Status   string            `json:"status"`
	Response string            `json:"response"`
}

// AuthError indicates a failed token exchange or API key validation.
// Status is 0 if no HTTP response was received at all; Diagnostic.Status carries
// 'Network Error' in that case.
type AuthError struct {
	Reason     string      `json:"reason"`
	Status     int         `json:"status,omitempty"`
	Diagnostic *Diagnostic `json:"diagnostic,omitempty"`
}

func (err *AuthError) Error() string {
	return err.Reason
}

// APIError indicates a non-2xx response from a data endpoint.
// The numeric status drives the one-shot refresh-retry policy; the message is the
// best-effort extracted vendor error message.
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	RawBody string `json:"-"`
}

func (err *APIError) Error() string {
	return fmt.Sprintf("API error: %d - %s", err.Status, err.Message)
}

// NetworkError indicates a transport-level failure (DNS, connectivity, TLS).
// It is distinguished from APIError by lacking an HTTP status.
type NetworkError struct {
	URL string
	Err error
}

func (err *NetworkError) Error() string {
	return fmt.Sprintf("network error calling %s: %v", err.URL, err.Err)
}

func (err *NetworkError) Unwrap() error {
	return err.Err
}

// IsUnauthorized reports whether the given error is an API error carrying HTTP status 401
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// authFailureReason maps the HTTP status of a failed authentication attempt to a
// human-readable explanation. The wording depends on the deployment type as the
// credentials differ (API ID/secret vs. API key).
func authFailureReason(status int, vendorMessage string, deployment DeploymentType) string {
	cloud := deployment == Deployment360
	switch status {
	case http.StatusUnauthorized:
		if cloud {
			return "invalid API ID or secret (401 Unauthorized)"
		}
		return "invalid API key (401 Unauthorized)"
	case http.StatusForbidden:
		return "access forbidden (403 Forbidden); check API permissions"
	case http.StatusNotFound:
		if cloud {
			return "endpoint not found (404); check the tenant name"
		}
		return "endpoint not found (404); check the hostname"
	case http.StatusBadRequest:
		if vendorMessage == "" {
			vendorMessage = "check the configuration"
		}
		return fmt.Sprintf("bad request: %s", vendorMessage)
	default:
		return fmt.Sprintf("server returned %d %s", status, http.StatusText(status))
	}
}
