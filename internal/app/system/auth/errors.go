// internal/app/system/auth/errors.go
package auth

import "errors"

// AuthErrorKind classifies a failed sign-in.
type AuthErrorKind int

const (
	// InvalidCredentials covers a wrong password (and a malformed email).
	InvalidCredentials AuthErrorKind = iota
	// UnknownAccount means no staff profile exists for the identity.
	UnknownAccount
	// Disabled means the profile exists but was deactivated.
	Disabled
	// RateLimited means too many recent attempts from the IP or for the account.
	RateLimited
)

func (k AuthErrorKind) String() string {
	switch k {
	case UnknownAccount:
		return "unknown_account"
	case Disabled:
		return "disabled"
	case RateLimited:
		return "rate_limited"
	}
	return "invalid_credentials"
}

// Messages shown on the login page.
const (
	MsgInvalidCredentials = "Invalid credentials. Please try again."
	MsgUnknownAccount     = "You do not have permission to access the dashboard."
	MsgDisabled           = "Your account has been deactivated by an administrator."
)

// AuthError is a sign-in failure with a user-facing message.
type AuthError struct {
	Kind    AuthErrorKind
	Message string
}

func (e *AuthError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case UnknownAccount:
		return MsgUnknownAccount
	case Disabled:
		return MsgDisabled
	}
	return MsgInvalidCredentials
}

// NewAuthError builds an AuthError with the default message for kind.
func NewAuthError(kind AuthErrorKind) *AuthError {
	return &AuthError{Kind: kind}
}

// AsAuthError unwraps err to an *AuthError.
func AsAuthError(err error) (*AuthError, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
