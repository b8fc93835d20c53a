package auth

// State is the per-session authentication state. Exactly one holds at any
// time; the orchestrator is the only component permitted to change it.
type State string

const (
	// StateLoading holds only while a callback exchange is in flight.
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

func (s State) String() string { return string(s) }
