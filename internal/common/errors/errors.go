// internal/common/errors/errors.go
package errors

import (
	"fmt"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeInputParsingFailed     ErrorCode = "INPUT_PARSING_FAILED"
	ErrCodeValidationFailed       ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingRequiredField   ErrorCode = "MISSING_REQUIRED_FIELD"
	ErrCodeUnsupportedMethod      ErrorCode = "UNSUPPORTED_METHOD"
	ErrCodeUnknownEntity          ErrorCode = "UNKNOWN_ENTITY"
	ErrCodePayloadSchemaViolation ErrorCode = "PAYLOAD_SCHEMA_VIOLATION"

	ErrCodePagerDutyAPIError    ErrorCode = "PAGERDUTY_API_ERROR"
	ErrCodePagerDutyNotFound    ErrorCode = "PAGERDUTY_NOT_FOUND"
	ErrCodePagerDutyRateLimited ErrorCode = "PAGERDUTY_RATE_LIMITED"
	ErrCodePagerDutyUnavailable ErrorCode = "PAGERDUTY_UNAVAILABLE"
	ErrCodePagerDutyTimeout     ErrorCode = "PAGERDUTY_TIMEOUT"
	ErrCodePagerDutyAuth        ErrorCode = "PAGERDUTY_AUTHENTICATION_FAILED"

	ErrCodeIdempotencyStoreFailed ErrorCode = "IDEMPOTENCY_STORE_FAILED"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError is the error shape every worker reports to Camunda.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

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

// --- validation ---

func NewInputParsingFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputParsingFailed,
		Message:   "Failed to parse job variables",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Input validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewMissingRequiredFieldError(method string, fields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingRequiredField,
		Message:   fmt.Sprintf("Required field missing for method %q", method),
		Details:   fmt.Sprintf("missing: %s", strings.Join(fields, ", ")),
		Retryable: false,
		Metadata: map[string]interface{}{
			"method":        method,
			"missingFields": fields,
		},
		Timestamp: time.Now().UTC(),
	}
}

func NewUnsupportedMethodError(entity, method string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnsupportedMethod,
		Message:   "Method not supported for entity",
		Details:   fmt.Sprintf("entity: %s, method: %s", entity, method),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewUnknownEntityError(entity string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownEntity,
		Message:   "Entity not present in action registry",
		Details:   fmt.Sprintf("entity: %s", entity),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewPayloadSchemaViolationError(entity string, violations []string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadSchemaViolation,
		Message:   "Create payload does not match entity schema",
		Details:   fmt.Sprintf("entity: %s, violations: %s", entity, strings.Join(violations, "; ")),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// --- external ---

func NewPagerDutyAPIError(status int, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePagerDutyAPIError,
		Message:   "PagerDuty API request rejected",
		Details:   fmt.Sprintf("status: %d, error: %s", status, err.Error()),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewPagerDutyNotFoundError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePagerDutyNotFound,
		Message:   "PagerDuty resource not found",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewPagerDutyRateLimitedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePagerDutyRateLimited,
		Message:   "PagerDuty rate limit exceeded",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewPagerDutyUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePagerDutyUnavailable,
		Message:   "PagerDuty API unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewPagerDutyTimeoutError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePagerDutyTimeout,
		Message:   "PagerDuty API timeout",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewPagerDutyAuthError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePagerDutyAuth,
		Message:   "PagerDuty authentication failed",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewIdempotencyStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIdempotencyStoreFailed,
		Message:   "Idempotency store unavailable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewAuthenticationError(details string) *StandardError {
	return &StandardError{
		Code:      "AUTHENTICATION_ERROR",
		Message:   "Authentication failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// BPMNErrorMapping maps internal codes to the error codes modelled on BPMN
// boundary events. Validation failures collapse into one catchable code.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeInputParsingFailed:     "PAGERDUTY_ACTION_INVALID",
	ErrCodeValidationFailed:       "PAGERDUTY_ACTION_INVALID",
	ErrCodeMissingRequiredField:   "PAGERDUTY_ACTION_INVALID",
	ErrCodeUnsupportedMethod:      "PAGERDUTY_ACTION_INVALID",
	ErrCodeUnknownEntity:          "PAGERDUTY_ACTION_INVALID",
	ErrCodePayloadSchemaViolation: "PAGERDUTY_ACTION_INVALID",
	ErrCodePagerDutyAPIError:      "PAGERDUTY_API_ERROR",
	ErrCodePagerDutyNotFound:      "PAGERDUTY_NOT_FOUND",
	ErrCodePagerDutyRateLimited:   "PAGERDUTY_RATE_LIMITED",
	ErrCodePagerDutyUnavailable:   "PAGERDUTY_UNAVAILABLE",
	ErrCodePagerDutyTimeout:       "PAGERDUTY_TIMEOUT",
	ErrCodePagerDutyAuth:          "PAGERDUTY_AUTHENTICATION_FAILED",
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodePagerDutyUnavailable,
		ErrCodeIdempotencyStoreFailed,
		"EXTERNAL_SERVICE_ERROR":
		return 3

	case ErrCodePagerDutyRateLimited,
		ErrCodePagerDutyTimeout,
		"TIMEOUT_ERROR":
		return 2

	default:
		return 0 // business and validation errors are never retried
	}
}

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

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PAGERDUTY"):
		return "PAGERDUTY"
	case strings.Contains(codeStr, "IDEMPOTENCY"):
		return "STORAGE"
	case strings.Contains(codeStr, "INVALID"),
		strings.Contains(codeStr, "VALIDATION"),
		strings.Contains(codeStr, "MISSING"),
		strings.Contains(codeStr, "UNSUPPORTED"),
		strings.Contains(codeStr, "UNKNOWN"),
		strings.Contains(codeStr, "SCHEMA"),
		strings.Contains(codeStr, "PARSING"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
