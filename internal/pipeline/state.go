package pipeline

// State is a step of one generation attempt.
type State int

const (
	StateDrafting State = iota
	StateExtracting
	StateProcessing
	StateValidating
	StateSucceeded
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateDrafting:
		return "drafting"
	case StateExtracting:
		return "extracting"
	case StateProcessing:
		return "processing"
	case StateValidating:
		return "validating"
	case StateSucceeded:
		return "succeeded"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}
