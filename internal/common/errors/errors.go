// Package errors provides standardized error handling for the query pipeline and its BPMN integration.
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Upstream failures, classified per endpoint by the dispatcher.
const (
	ErrCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"
	ErrCodeHTTPFailure      ErrorCode = "HTTP_FAILURE"
	ErrCodeParseFailure     ErrorCode = "PARSE_FAILURE"
)

// Ambient failures raised outside the dispatcher.
const (
	ErrCodeInvalidQuery     ErrorCode = "INVALID_QUERY"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// Status returns the HTTP status recorded on an HTTP_FAILURE, or 0.
func (e *StandardError) Status() int {
	if e == nil || e.Metadata == nil {
		return 0
	}
	if s, ok := e.Metadata["status"].(int); ok {
		return s
	}
	return 0
}

// Endpoint returns the endpoint label recorded on upstream failures.
func (e *StandardError) Endpoint() string {
	if e == nil || e.Metadata == nil {
		return ""
	}
	s, _ := e.Metadata["endpoint"].(string)
	return s
}

// AsStandardError unwraps err into a *StandardError when one is present in the chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewTransportFailureError reports a network-level failure reaching an endpoint.
func NewTransportFailureError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransportFailure,
		Message:   fmt.Sprintf("%s request failed: %s", endpoint, err.Error()),
		Details:   err.Error(),
		Retryable: true,
		Metadata:  map[string]interface{}{"endpoint": endpoint},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewHTTPFailureError reports a non-2xx status. detail is the backend's optional `detail` message.
func NewHTTPFailureError(endpoint string, status int, detail string) *StandardError {
	msg := fmt.Sprintf("%s request failed (%d)", endpoint, status)
	if detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, detail)
	}
	return &StandardError{
		Code:      ErrCodeHTTPFailure,
		Message:   msg,
		Details:   detail,
		Retryable: status >= 500,
		Metadata:  map[string]interface{}{"endpoint": endpoint, "status": status},
		Timestamp: time.Now().UTC(),
	}
}

// NewParseFailureError reports a body that is not JSON or does not match the expected shape.
func NewParseFailureError(endpoint string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeParseFailure,
		Message:   fmt.Sprintf("%s response malformed: %s", endpoint, err.Error()),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"endpoint": endpoint},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewInvalidQueryError creates a non-retryable query validation error.
func NewInvalidQueryError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidQuery,
		Message:   "Invalid query",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConfigInvalidError creates a non-retryable configuration error.
func NewConfigInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError wraps a response cache failure. It is logged, never surfaced to users.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Response cache unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeTransportFailure: "UPSTREAM_UNREACHABLE",
	ErrCodeHTTPFailure:      "UPSTREAM_STATUS",
	ErrCodeParseFailure:     "UPSTREAM_MALFORMED",
	ErrCodeInvalidQuery:     "INVALID_QUERY",
	ErrCodeConfigInvalid:    "CONFIG_INVALID",
	ErrCodeCacheUnavailable: "CACHE_UNAVAILABLE",
}

// GetRetryCount returns the recommended job retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeTransportFailure, ErrCodeCacheUnavailable:
		return 2
	case ErrCodeHTTPFailure:
		return 1
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "TRANSPORT") || strings.Contains(codeStr, "HTTP") || strings.Contains(codeStr, "PARSE"):
		return "UPSTREAM"
	case strings.Contains(codeStr, "INVALID"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	default:
		return "OTHER"
	}
}
