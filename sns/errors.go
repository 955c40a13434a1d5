// Copyright 2026 The Hearth Authors
// SPDX-License-Identifier: Apache-2.0

package sns

import (
	"errors"
	"fmt"
)

// APIError represents a structured error response from the SNS API.
// Callers can use errors.As to extract the structured information:
//
//	var apiErr *sns.APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.Code == sns.ErrCodeNotFound { ... }
//	}
type APIError struct {
	// Code is the SNS error code (e.g., "NotFound", "InvalidParameter").
	Code string
	// Message is the human-readable error description from the service.
	Message string
	// Type is "Sender" for caller mistakes and "Receiver" for service
	// faults.
	Type string
	// StatusCode is the HTTP status code of the response.
	StatusCode int
	// RequestID identifies the failed request for AWS support lookups.
	RequestID string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sns: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
}

// SNS error codes the bridge reacts to.
const (
	ErrCodeNotFound           = "NotFound"
	ErrCodeInvalidParameter   = "InvalidParameter"
	ErrCodeAuthorizationError = "AuthorizationError"
	ErrCodeThrottled          = "Throttled"
	ErrCodeInternalError      = "InternalError"
)

// IsNotFound checks whether err is an *APIError for a missing topic,
// subscription, or token target.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsInvalidParameter checks whether err is an *APIError reporting a
// malformed request parameter.
func IsInvalidParameter(err error) bool {
	return isCode(err, ErrCodeInvalidParameter)
}

// IsThrottled checks whether err is an *APIError for API rate
// limiting.
func IsThrottled(err error) bool {
	return isCode(err, ErrCodeThrottled)
}

func isCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}
