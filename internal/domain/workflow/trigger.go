package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerGenerateDraft  Trigger = "GENERATE_DRAFT"
	TriggerPublish        Trigger = "PUBLISH"
	TriggerManagerApprove Trigger = "MANAGER_APPROVE"
	TriggerManagerReject  Trigger = "MANAGER_REJECT"
	TriggerFinanceApprove Trigger = "FINANCE_APPROVE"
	TriggerFinanceReject  Trigger = "FINANCE_REJECT"
	TriggerLock           Trigger = "LOCK"
	TriggerUnfreeze       Trigger = "UNFREEZE"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
