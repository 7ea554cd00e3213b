package workflow

import (
	domainwf "github.com/garyjia/payroll-control/internal/domain/workflow"
)

// BuildPayrollRunStateMachine creates a state machine configured for the
// payroll run approval lifecycle.
//
// Rejection at either gate lands back on DRAFT_GENERATED rather than the
// immediately prior state, so a corrected run must re-enter the review
// pipeline from the start. LOCK is permitted from every non-locked state as
// an administrative override.
func BuildPayrollRunStateMachine(initialState domainwf.State) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	// PRE_RUN: a run shell registered before its computed lines were ingested
	builder.Configure(domainwf.StatePreRun).
		Permit(domainwf.TriggerGenerateDraft, domainwf.StateDraftGenerated).
		Permit(domainwf.TriggerPublish, domainwf.StateUnderReview).
		Permit(domainwf.TriggerLock, domainwf.StateLocked)

	// DRAFT_GENERATED: initial state and the rejection landing state
	builder.Configure(domainwf.StateDraftGenerated).
		Permit(domainwf.TriggerPublish, domainwf.StateUnderReview).
		Permit(domainwf.TriggerLock, domainwf.StateLocked)

	// UNDER_REVIEW: the manager gate
	builder.Configure(domainwf.StateUnderReview).
		Permit(domainwf.TriggerManagerApprove, domainwf.StateWaitingFinanceApproval).
		Permit(domainwf.TriggerManagerReject, domainwf.StateDraftGenerated).
		Permit(domainwf.TriggerLock, domainwf.StateLocked)

	// WAITING_FINANCE_APPROVAL: the finance gate
	builder.Configure(domainwf.StateWaitingFinanceApproval).
		Permit(domainwf.TriggerFinanceApprove, domainwf.StateLocked).
		Permit(domainwf.TriggerFinanceReject, domainwf.StateDraftGenerated).
		Permit(domainwf.TriggerLock, domainwf.StateLocked)

	// LOCKED: only an explicitly justified unfreeze may reopen the run
	builder.Configure(domainwf.StateLocked).
		Permit(domainwf.TriggerUnfreeze, domainwf.StateUnfrozen)

	// UNFROZEN: re-opened; may be re-locked after correction
	builder.Configure(domainwf.StateUnfrozen).
		Permit(domainwf.TriggerLock, domainwf.StateLocked)

	return builder.Build(initialState)
}
