package domain

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")
)

// VerifyErrorKind classifies OTP verification failures for direct UI
// display. NETWORK_ERROR is reserved for transport-level failures
// classified by the caller side; the verifier itself never retries.
type VerifyErrorKind string

const (
	VerifyInvalidOTP      VerifyErrorKind = "INVALID_OTP"
	VerifyDateMismatch    VerifyErrorKind = "DATE_MISMATCH"
	VerifyExpiredRequest  VerifyErrorKind = "EXPIRED_REQUEST"
	VerifyNetworkError    VerifyErrorKind = "NETWORK_ERROR"
	VerifyValidationError VerifyErrorKind = "VALIDATION_ERROR"
)

// ErrorCode is the wire taxonomy shared with upstream consumers.
// RATE_LIMIT belongs to the onboarding flow and is reserved here for
// interop only.
type ErrorCode string

const (
	CodeValidation ErrorCode = "VALIDATION"
	CodeAuth       ErrorCode = "AUTH"
	CodeConflict   ErrorCode = "CONFLICT"
	CodeNotFound   ErrorCode = "NOT_FOUND"
	CodeNetwork    ErrorCode = "NETWORK"
	CodeRateLimit  ErrorCode = "RATE_LIMIT"
	CodeServer     ErrorCode = "SERVER"
)

// VerifyError is a typed verification failure.
type VerifyError struct {
	Kind    VerifyErrorKind
	Message string
}

func (e *VerifyError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func NewVerifyError(kind VerifyErrorKind, msg string) *VerifyError {
	return &VerifyError{Kind: kind, Message: msg}
}

// AsVerifyError unwraps err into a VerifyError if it is one.
func AsVerifyError(err error) (*VerifyError, bool) {
	var ve *VerifyError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
