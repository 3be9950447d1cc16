package oauth

// State is the authentication state of a Session.
type State int

const (
	// StateReady means no credential is held and no login is in progress.
	StateReady State = iota

	// StateAwaitingCode means the browser was sent to the provider and the
	// callback listener is waiting for the redirect.
	StateAwaitingCode

	// StateAuthenticated means a credential with a refresh token is held.
	StateAuthenticated

	// StateError means the last login or refresh failed. ErrorText explains why.
	StateError
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateAwaitingCode:
		return "awaiting_code"
	case StateAuthenticated:
		return "authenticated"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}
