package auth

import "net/http"

// Kind classifies authorization failures so callers switch on the outcome
// instead of probing error identity.
type Kind int

const (
	// KindUnauthenticated: no token was presented at all.
	KindUnauthenticated Kind = iota
	// KindInvalidToken: signature or format failure, including tokens
	// minted before session binding (no sid claim).
	KindInvalidToken
	// KindAccessDenied: the token belongs to the wrong principal kind.
	KindAccessDenied
	// KindSessionMismatch: the token's session id no longer matches the
	// account's stored session (superseded by a newer sign-in).
	KindSessionMismatch
	// KindSessionExpired: no active session, or the stored session passed
	// its expiry.
	KindSessionExpired
	// KindDependencyFailure: the session store was unreachable; the caller
	// could not be authorized or rejected.
	KindDependencyFailure
)

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindInvalidToken:
		return "invalid_token"
	case KindAccessDenied:
		return "access_denied"
	case KindSessionMismatch:
		return "session_mismatch"
	case KindSessionExpired:
		return "session_expired"
	case KindDependencyFailure:
		return "dependency_failure"
	}
	return "unknown"
}

// Error is the typed failure returned by SessionManager and the bridge.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Status maps the failure to the HTTP status the API boundary returns.
// DependencyFailure is 5xx: "could not determine" is not "not authorized".
func (e *Error) Status() int {
	switch e.Kind {
	case KindUnauthenticated, KindInvalidToken:
		return http.StatusUnauthorized
	case KindAccessDenied, KindSessionMismatch, KindSessionExpired:
		return http.StatusForbidden
	case KindDependencyFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}
