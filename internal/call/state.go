package call

// State is the local party's call state.
type State int

const (
	// StateFree means no call is active.
	StateFree State = iota
	// StateOnCall means the local party placed a call and waits for an answer.
	StateOnCall
	// StateBeCalled means the local party was invited and has not answered.
	StateBeCalled
	// StateCalling means media is flowing between confirmed parties.
	StateCalling
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "FREE"
	case StateOnCall:
		return "ON_CALL"
	case StateBeCalled:
		return "BE_CALLED"
	case StateCalling:
		return "CALLING"
	default:
		return "UNKNOWN"
	}
}
