package shared

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents the different failure classes a run can end in
type ErrorCategory string

const (
	ErrorCategoryBlocked       ErrorCategory = "blocked"
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	ErrorCategoryDelivery      ErrorCategory = "delivery"
	ErrorCategoryNetwork       ErrorCategory = "network"
)

// Error codes used across services
const (
	CodeNonJSONResponse     = "NON_JSON_RESPONSE"
	CodeInvalidJSONResponse = "INVALID_JSON_RESPONSE"
	CodeUpstreamStatus      = "UPSTREAM_STATUS"
	CodeFetchFailed         = "FETCH_FAILED"
	CodeMissingCredentials  = "MISSING_CREDENTIALS"
	CodeInvalidAddress      = "INVALID_ADDRESS"
	CodeNoRecipients        = "NO_RECIPIENTS"
	CodeInvalidSMTPSettings = "INVALID_SMTP_SETTINGS"
	CodeSendFailed          = "SEND_FAILED"
)

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Cause       error         `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Cause:       cause,
	}
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"details":          e.Details,
		"underlying_error": e.Cause,
	}).Error(e.Message)
}

// IsCategory reports whether err, or anything it wraps, is a ServiceError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Category == category
	}
	return false
}

// CodeOf returns the ServiceError code carried by err, or "" when err is not a ServiceError
func CodeOf(err error) string {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Code
	}
	return ""
}
