package types

import "fmt"

// TokenExtractionError reports that the configured token pointer did not
// resolve to a usable value in a sign-in response. No token record is
// written when this error is returned.
type TokenExtractionError struct {
	Pointer string
	Reason  string
}

func (e *TokenExtractionError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("token pointer %q did not resolve in sign-in response", e.Pointer)
	}
	return fmt.Sprintf("token pointer %q did not resolve in sign-in response: %s", e.Pointer, e.Reason)
}

// SessionFetchError reports a transient failure fetching the session:
// a network error or a non-2xx status other than 401/403. Existing local
// state is preserved so a network blip does not log the user out.
type SessionFetchError struct {
	StatusCode int
	Err        error
}

func (e *SessionFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("session fetch failed: %v", e.Err)
	}
	return fmt.Sprintf("session fetch failed: unexpected status %d", e.StatusCode)
}

func (e *SessionFetchError) Unwrap() error {
	return e.Err
}

// SignOutTransportError reports a network failure during the sign-out
// request. Local state is cleared regardless, so this is logged by the
// client rather than returned to callers.
type SignOutTransportError struct {
	Err error
}

func (e *SignOutTransportError) Error() string {
	return fmt.Sprintf("sign-out request failed (local state cleared anyway): %v", e.Err)
}

func (e *SignOutTransportError) Unwrap() error {
	return e.Err
}
