package indexer

// State is the phase of one ingestion run. Every run starts at StateIdle and
// ends at StateCommitted or StateRolledBack.
type State int

const (
	StateIdle State = iota
	StateCloned
	StateDiscovered
	StateProcessing
	StateCommitting
	StateCommitted
	StateRolledBack
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateCloned:     "cloned",
	StateDiscovered: "discovered",
	StateProcessing: "processing",
	StateCommitting: "committing",
	StateCommitted:  "committed",
	StateRolledBack: "rolled_back",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack
}
