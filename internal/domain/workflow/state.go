package workflow

// State represents a payroll run state in the approval lifecycle
type State string

const (
	StatePreRun                 State = "PRE_RUN"
	StateDraftGenerated         State = "DRAFT_GENERATED"
	StateUnderReview            State = "UNDER_REVIEW"
	StateWaitingFinanceApproval State = "WAITING_FINANCE_APPROVAL"
	StateLocked                 State = "LOCKED"
	StateUnfrozen               State = "UNFROZEN"
)

var validStates = map[State]bool{
	StatePreRun:                 true,
	StateDraftGenerated:         true,
	StateUnderReview:            true,
	StateWaitingFinanceApproval: true,
	StateLocked:                 true,
	StateUnfrozen:               true,
}

// lockedStates are the states in which a run is considered final and payable.
// LOCKED is terminal for the normal flow; UNFREEZE is the only way out.
var lockedStates = map[State]bool{
	StateLocked: true,
}

// IsLocked returns true if a run in this state is financially locked
func (s State) IsLocked() bool {
	return lockedStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid payroll run state
func (s State) IsValid() bool {
	return validStates[s]
}
