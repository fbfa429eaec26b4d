package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// DefaultErrorCode is stamped on a ServiceError when the underlying error
// carries no code of its own.
const DefaultErrorCode = "UNKNOWN"

// ServiceError is the normalized failure returned by service operations.
type ServiceError struct {
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
	Err       error  `json:"-"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// coded is implemented by structured backend errors.
type coded interface {
	ErrorCode() string
}

type detailed interface {
	ErrorDetails() string
}

// Matched against the lower-cased error message.
var retryableKeywords = []string{
	"network",
	"fetch",
	"connection",
	"econnrefused",
	"etimedout",
	"dns",
	"ssl",
	"timeout",
	"timed out",
}

var nonRetryableKeywords = []string{
	"invalid input",
	"validation error",
	"unauthorized",
	"forbidden",
	"not found",
	"bad request",
}

var rateLimitCodes = map[string]bool{
	"429":                        true,
	"too_many_requests":          true,
	"over_request_rate_limit":    true,
	"over_email_send_rate_limit": true,
}

// NewServiceError wraps err with a contextual message. The retryable verdict
// is computed from err itself, never from the wrapped message.
func NewServiceError(err error, context string) *ServiceError {
	if err == nil {
		return nil
	}
	se := &ServiceError{
		Message:   context + ": " + err.Error(),
		Code:      DefaultErrorCode,
		Retryable: IsRetryable(err),
		Err:       err,
	}
	if code := ErrorCode(err); code != "" {
		se.Code = code
	}
	var d detailed
	if errors.As(err, &d) {
		se.Details = d.ErrorDetails()
	}
	return se
}

// ErrorCode returns the code of the first coded error in the chain, or "".
func ErrorCode(err error) string {
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return ""
}

// IsRetryable reports whether err is worth another attempt. Anything not
// positively identified as transient is treated as permanent.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var se *ServiceError
	if errors.As(err, &se) {
		return se.Retryable
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, retryableKeywords) || isNetworkFailure(err) {
		return true
	}

	code := ErrorCode(err)
	if strings.HasPrefix(code, "5") {
		return true
	}
	if rateLimitCodes[strings.ToLower(code)] {
		return true
	}

	if containsAny(msg, nonRetryableKeywords) {
		return false
	}
	return false
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsRetryable(err) {
		return "transient"
	}
	return "permanent"
}

func isNetworkFailure(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET)
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
