package driven

// ConnectivityMonitor is the driven port for online/offline detection.
type ConnectivityMonitor interface {
	// Online reports the last observed connectivity state.
	Online() bool

	// Transitions delivers edge-triggered state changes: true on an
	// offline-to-online transition, false on the reverse. The initial probe
	// result is not delivered as a transition.
	Transitions() <-chan bool
}
