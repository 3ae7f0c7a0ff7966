package auth

import "errors"

// Externally visible authentication failures. Credential and OTP errors
// are deliberately generic so the API never reveals whether an account
// exists; logs carry the distinction.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidOTP         = errors.New("auth: invalid or expired otp")
	ErrDuplicateUser      = errors.New("auth: user with this email or username already exists")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrInvalidResetToken  = errors.New("auth: invalid or expired reset token")
	ErrMailDelivery       = errors.New("auth: failed to send email")
)
