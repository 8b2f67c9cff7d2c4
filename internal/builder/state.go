package builder

// State is a step of the build state machine.
type State int

const (
	StateCreated State = iota
	StateStoreReady
	StateCatalogFetched
	StateCrossMatching
	StateIndexed
	StateCompacted
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateCreated:        "created",
	StateStoreReady:     "store_ready",
	StateCatalogFetched: "catalog_fetched",
	StateCrossMatching:  "cross_matching",
	StateIndexed:        "indexed",
	StateCompacted:      "compacted",
	StateDone:           "done",
	StateFailed:         "failed",
}

// String returns the snake_case state name.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// next returns the successor in the happy path.
func (s State) next() State {
	if s >= StateDone {
		return s
	}
	return s + 1
}
