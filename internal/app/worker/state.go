package worker

type State int

const (
	StateIdle State = iota
	StateFetching
	StateNormalizing
	StateCommitting
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateIdle:        "IDLE",
	StateFetching:    "FETCHING",
	StateNormalizing: "NORMALIZING",
	StateCommitting:  "COMMITTING",
	StateDone:        "DONE",
	StateFailed:      "FAILED",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "UNKNOWN"
	}
	return stateNames[s]
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
