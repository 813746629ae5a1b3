package services

import (
	"errors"
	"fmt"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateEmail     = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("please verify your email before logging in")
	ErrAccountSuspended   = errors.New("your account has been suspended")
	ErrRateLimited        = errors.New("please wait before requesting another code")
	ErrResetLimitReached  = errors.New("password reset limit reached, please contact support")

	ErrOTPNotFound  = errors.New("no pending verification code, please request a new one")
	ErrOTPExpired   = errors.New("verification code has expired, please request a new one")
	ErrOTPInvalid   = errors.New("invalid verification code")
	ErrOTPExhausted = errors.New("too many failed attempts, please request a new code")

	ErrTokenInvalid   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token has expired")
	ErrSessionExpired = errors.New("session expired or revoked, please log in again")

	ErrAccountNotFound   = errors.New("account not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrPasswordReuse     = errors.New("new password must be different from the current password")
	ErrIncorrectPassword = errors.New("current password is incorrect")
	ErrAlreadyVerified   = errors.New("email is already verified")
)

// SuspendedError is returned when a suspended account tries to authenticate.
type SuspendedError struct {
	Reason       string
	AdminContact string
}

func (e *SuspendedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAccountSuspended.Error(), e.Reason)
}

func (e *SuspendedError) Unwrap() error { return ErrAccountSuspended }

type RateLimitError struct {
	WaitSeconds int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("please wait %d seconds before requesting another code", e.WaitSeconds)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// OTPError wraps ErrOTPInvalid with the number of attempts left on the record.
type OTPError struct {
	Err               error
	AttemptsRemaining int
}

func (e *OTPError) Error() string {
	return fmt.Sprintf("%s, %d attempt(s) remaining", e.Err.Error(), e.AttemptsRemaining)
}

func (e *OTPError) Unwrap() error { return e.Err }

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
