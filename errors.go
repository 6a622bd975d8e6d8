package otpauth

import "errors"

var (
	// ErrValidation marks missing or malformed input. Match with errors.Is;
	// the concrete error is a *ValidationError carrying the reason.
	ErrValidation = errors.New("validation failed")
	// ErrAlreadyExists is returned when registering an email that already has
	// an identity.
	ErrAlreadyExists = errors.New("identity already exists")
	// ErrNotFound is returned when an identity does not exist.
	ErrNotFound = errors.New("identity not found")
	// ErrNoChallengeIssued is returned when no live verification code exists
	// for the email.
	ErrNoChallengeIssued = errors.New("no verification code issued")
	// ErrInvalidCode is returned when the presented code does not match.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDeliveryFailed is returned when a mail could not be dispatched.
	ErrDeliveryFailed = errors.New("mail delivery failed")
	// ErrUnauthenticated is returned for missing, malformed, expired or
	// wrong-use session tokens.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInternal wraps unexpected store, cache or crypto failures.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned when an Engine is used before Build wired
	// its collaborators.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// ValidationError describes rejected input. Reason is safe to show to
// clients.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func newValidationError(reason string) error {
	return &ValidationError{Reason: reason}
}

// ErrorKind classifies Engine errors for transport mapping.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindValidation         ErrorKind = "validation"
	KindConflict           ErrorKind = "conflict"
	KindNotFound           ErrorKind = "not_found"
	KindNoChallenge        ErrorKind = "no_challenge"
	KindInvalidCode        ErrorKind = "invalid_code"
	KindInvalidCredentials ErrorKind = "invalid_credentials"
	KindDeliveryFailed     ErrorKind = "delivery_failed"
	KindUnauthenticated    ErrorKind = "unauthenticated"
	KindUnavailable        ErrorKind = "unavailable"
	KindInternal           ErrorKind = "internal"
)

// KindOf maps err to its ErrorKind. Unknown errors are KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrAlreadyExists):
		return KindConflict
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNoChallengeIssued):
		return KindNoChallenge
	case errors.Is(err, ErrInvalidCode):
		return KindInvalidCode
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrDeliveryFailed):
		return KindDeliveryFailed
	case errors.Is(err, ErrUnauthenticated):
		return KindUnauthenticated
	case errors.Is(err, ErrEngineNotReady):
		return KindUnavailable
	default:
		return KindInternal
	}
}
