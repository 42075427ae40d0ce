package description

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (host unreachable, reset, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeHTTP indicates an HTTP-level error (non-200 status code)
	ErrTypeHTTP
	// ErrTypeParse indicates the description document could not be decoded
	ErrTypeParse
	// ErrTypeValidation indicates an unusable location URL
	ErrTypeValidation
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the device refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeCanceled indicates the caller's context was canceled
	ErrTypeCanceled
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeCanceled:
		return "Canceled"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// DescriptionError represents a failure fetching or decoding a device description
type DescriptionError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Location   string    // Description URL (for context)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *DescriptionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *DescriptionError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed error
func ClassifyNetworkError(err error, location string) *DescriptionError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return &DescriptionError{
			Type:     ErrTypeCanceled,
			Message:  "Request canceled",
			Location: location,
			Err:      err,
		}
	}

	if os.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return &DescriptionError{
			Type:      ErrTypeTimeout,
			Message:   "Request timed out",
			Location:  location,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &DescriptionError{
			Type:     ErrTypeDNS,
			Message:  fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Location: location,
			Err:      err,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch {
		case errors.Is(opErr.Err, syscall.ECONNREFUSED):
			return &DescriptionError{
				Type:      ErrTypeConnectionRefused,
				Message:   "Device refused connection",
				Location:  location,
				Err:       err,
				Retryable: true,
			}
		case errors.Is(opErr.Err, syscall.EHOSTUNREACH):
			return &DescriptionError{
				Type:      ErrTypeNetwork,
				Message:   "Host unreachable",
				Location:  location,
				Err:       err,
				Retryable: true,
			}
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return ClassifyNetworkError(urlErr.Err, location)
	}

	return &DescriptionError{
		Type:      ErrTypeNetwork,
		Message:   "Network error occurred",
		Location:  location,
		Err:       err,
		Retryable: true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message, location string, err error) *DescriptionError {
	classified := ClassifyNetworkError(err, location)
	if classified == nil {
		return &DescriptionError{Type: ErrTypeNetwork, Message: message, Location: location, Retryable: true}
	}
	classified.Message = message
	return classified
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, location string) *DescriptionError {
	return &DescriptionError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("unexpected status code: %d", statusCode),
		StatusCode: statusCode,
		Location:   location,
		Retryable:  statusCode >= 500, // Server errors are retryable
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *DescriptionError {
	return &DescriptionError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message, location string) *DescriptionError {
	return &DescriptionError{
		Type:     ErrTypeValidation,
		Message:  message,
		Location: location,
	}
}

func typeOf(err error) (ErrorType, bool) {
	var descErr *DescriptionError
	if errors.As(err, &descErr) {
		return descErr.Type, true
	}
	return 0, false
}

// IsNetworkError checks if an error is a network error (including timeout, connection refused, DNS)
func IsNetworkError(err error) bool {
	t, ok := typeOf(err)
	return ok && (t == ErrTypeNetwork || t == ErrTypeTimeout || t == ErrTypeConnectionRefused || t == ErrTypeDNS)
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeHTTP
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeParse
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	t, ok := typeOf(err)
	return ok && t == ErrTypeValidation
}

// IsRetryable checks if an error should be retried.
// Unknown errors are not retryable.
func IsRetryable(err error) bool {
	var descErr *DescriptionError
	if errors.As(err, &descErr) {
		return descErr.Retryable
	}
	return false
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var descErr *DescriptionError
	if !errors.As(err, &descErr) {
		return err.Error()
	}

	switch descErr.Type {
	case ErrTypeTimeout:
		return "Device not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Device refused connection"
	case ErrTypeDNS:
		return "Cannot resolve device hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeHTTP:
		return fmt.Sprintf("Device error (HTTP %d)", descErr.StatusCode)
	case ErrTypeParse:
		return "Invalid device description"
	case ErrTypeCanceled:
		return "Canceled"
	default:
		return descErr.Message
	}
}

// GetTroubleshootingHint returns user-facing advice for an error
func GetTroubleshootingHint(err error) string {
	var descErr *DescriptionError
	if !errors.As(err, &descErr) {
		return "An unexpected error occurred. Please try again."
	}

	switch descErr.Type {
	case ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeNetwork:
		return strings.Join([]string{
			"The device answered discovery but its description could not be fetched.",
			"Troubleshooting:",
			"  • Check that the device is still powered on",
			"  • Some devices only serve descriptions to the subnet they advertise on",
			"  • Try again with a longer --timeout",
		}, "\n")
	case ErrTypeHTTP:
		return fmt.Sprintf("The device returned HTTP %d for %s.", descErr.StatusCode, descErr.Location)
	case ErrTypeParse:
		return "The device returned a document that is not a UPnP device description."
	default:
		return descErr.Message
	}
}
