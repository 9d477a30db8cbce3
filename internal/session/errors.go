package session

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by identity providers.
var (
	ErrInvalidCredential   = errors.New("session: invalid credential")
	ErrAccountDisabled     = errors.New("session: account disabled")
	ErrEmailInUse          = errors.New("session: email already in use")
	ErrWeakCredential      = errors.New("session: weak credential")
	ErrProviderCancelled   = errors.New("session: provider flow cancelled")
	ErrInvalidEmail        = errors.New("session: invalid email")
	ErrUserNotFound        = errors.New("session: user not found")
	ErrOperationNotAllowed = errors.New("session: operation not allowed")
	ErrUnknown             = errors.New("session: unknown provider error")
)

// AuthError ties a provider code to one of the failure kinds.
// errors.Is matches both Kind and the underlying Err.
type AuthError struct {
	Kind error
	Code string
	Err  error
}

func (e *AuthError) Error() string {
	kind := e.Kind
	if kind == nil {
		kind = ErrUnknown
	}
	if e.Err != nil {
		return fmt.Sprintf("%v (code=%s): %v", kind, e.Code, e.Err)
	}
	return fmt.Sprintf("%v (code=%s)", kind, e.Code)
}

func (e *AuthError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Flow selects which message table UserMessage uses.
type Flow int

const (
	FlowSignIn Flow = iota
	FlowRegister
	FlowReset
)

type message struct {
	kind error
	text string
}

var signInMessages = []message{
	{ErrInvalidEmail, "Invalid email address"},
	{ErrAccountDisabled, "Account disabled"},
	{ErrUserNotFound, "No account found with this email"},
	{ErrInvalidCredential, "Incorrect password"},
	{ErrProviderCancelled, "Google sign-in was canceled"},
}

var registerMessages = []message{
	{ErrEmailInUse, "This email is already registered"},
	{ErrInvalidEmail, "Invalid email address"},
	{ErrOperationNotAllowed, "Registration is currently disabled"},
	{ErrWeakCredential, "Password should be at least 6 characters"},
	{ErrProviderCancelled, "Google sign-up was canceled"},
}

var resetMessages = []message{
	{ErrInvalidEmail, "Invalid email address"},
	{ErrUserNotFound, "No account found with this email"},
}

// UserMessage maps err to the human-readable string shown for flow.
// Unmapped failures get the flow's generic "try again" text.
func UserMessage(err error, flow Flow) string {
	table, fallback := signInMessages, "Login failed. Please try again"
	switch flow {
	case FlowRegister:
		table, fallback = registerMessages, "Registration failed. Please try again"
	case FlowReset:
		table, fallback = resetMessages, "Could not send reset email. Please try again"
	}
	if err == nil {
		return ""
	}
	for _, m := range table {
		if errors.Is(err, m.kind) {
			return m.text
		}
	}
	return fallback
}
