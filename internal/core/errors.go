package core

import "fmt"

const (
	CodeDestinationUnavailable = "E_DESTINATION_UNAVAILABLE"
	CodeAuthInvalid            = "E_AUTH_INVALID"
	CodeBucketNotFound         = "E_BUCKET_NOT_FOUND"
	CodeObjectNotFound         = "E_OBJECT_NOT_FOUND"
	CodePermissionDenied       = "E_PERMISSION_DENIED"
	CodeTimeout                = "E_TIMEOUT"
	CodeLedgerWriteFailed      = "E_LEDGER_WRITE_FAILED"
	CodeLoadWriteFailed        = "E_LOAD_WRITE_FAILED"
)

// Error wraps destination and ledger failures with retryability hints.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error         { return e.Err }
func (e *Error) CodeValue() string     { return e.Code }
func (e *Error) RetryableStatus() bool { return e.Retryable }

// CodedError exposes structured error metadata for classification.
type CodedError interface {
	error
	CodeValue() string
	RetryableStatus() bool
}

// WrapError builds a coded error around err.
func WrapError(code string, retryable bool, err error) *Error {
	if err == nil {
		return &Error{Code: code, Retryable: retryable}
	}
	return &Error{Code: code, Retryable: retryable, Err: err}
}
