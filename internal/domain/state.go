package domain

// State is the bridge loop's lifecycle state.
type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StatePolling         State = "polling"
	StateShuttingDown    State = "shutting_down"
	StateTerminated      State = "terminated"
)
