package workflow

import (
	"context"
	"errors"
	"testing"

	domainwf "github.com/garyjia/payroll-control/internal/domain/workflow"
)

func TestPayrollRunTransitionTable(t *testing.T) {
	tests := []struct {
		name    string
		from    domainwf.State
		trigger domainwf.Trigger
		want    domainwf.State
	}{
		{
			name:    "pre run receives draft lines",
			from:    domainwf.StatePreRun,
			trigger: domainwf.TriggerGenerateDraft,
			want:    domainwf.StateDraftGenerated,
		},
		{
			name:    "pre run escalates straight to review",
			from:    domainwf.StatePreRun,
			trigger: domainwf.TriggerPublish,
			want:    domainwf.StateUnderReview,
		},
		{
			name:    "draft published for review",
			from:    domainwf.StateDraftGenerated,
			trigger: domainwf.TriggerPublish,
			want:    domainwf.StateUnderReview,
		},
		{
			name:    "manager approves to finance gate",
			from:    domainwf.StateUnderReview,
			trigger: domainwf.TriggerManagerApprove,
			want:    domainwf.StateWaitingFinanceApproval,
		},
		{
			name:    "manager rejection lands on draft",
			from:    domainwf.StateUnderReview,
			trigger: domainwf.TriggerManagerReject,
			want:    domainwf.StateDraftGenerated,
		},
		{
			name:    "finance approval locks",
			from:    domainwf.StateWaitingFinanceApproval,
			trigger: domainwf.TriggerFinanceApprove,
			want:    domainwf.StateLocked,
		},
		{
			name:    "finance rejection lands on draft",
			from:    domainwf.StateWaitingFinanceApproval,
			trigger: domainwf.TriggerFinanceReject,
			want:    domainwf.StateDraftGenerated,
		},
		{
			name:    "administrative lock from pre run",
			from:    domainwf.StatePreRun,
			trigger: domainwf.TriggerLock,
			want:    domainwf.StateLocked,
		},
		{
			name:    "administrative lock from draft",
			from:    domainwf.StateDraftGenerated,
			trigger: domainwf.TriggerLock,
			want:    domainwf.StateLocked,
		},
		{
			name:    "administrative lock from review",
			from:    domainwf.StateUnderReview,
			trigger: domainwf.TriggerLock,
			want:    domainwf.StateLocked,
		},
		{
			name:    "administrative lock from finance gate",
			from:    domainwf.StateWaitingFinanceApproval,
			trigger: domainwf.TriggerLock,
			want:    domainwf.StateLocked,
		},
		{
			name:    "locked run may be unfrozen",
			from:    domainwf.StateLocked,
			trigger: domainwf.TriggerUnfreeze,
			want:    domainwf.StateUnfrozen,
		},
		{
			name:    "unfrozen run may be re-locked",
			from:    domainwf.StateUnfrozen,
			trigger: domainwf.TriggerLock,
			want:    domainwf.StateLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := BuildPayrollRunStateMachine(tt.from)
			if err := machine.Fire(context.Background(), tt.trigger); err != nil {
				t.Fatalf("Fire(%s) from %s error = %v", tt.trigger, tt.from, err)
			}
			if got := machine.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPayrollRunIllegalTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    domainwf.State
		trigger domainwf.Trigger
	}{
		{
			name:    "draft cannot be manager approved",
			from:    domainwf.StateDraftGenerated,
			trigger: domainwf.TriggerManagerApprove,
		},
		{
			name:    "draft cannot be finance approved",
			from:    domainwf.StateDraftGenerated,
			trigger: domainwf.TriggerFinanceApprove,
		},
		{
			name:    "review cannot skip to finance approval",
			from:    domainwf.StateUnderReview,
			trigger: domainwf.TriggerFinanceApprove,
		},
		{
			name:    "finance gate does not accept manager approval",
			from:    domainwf.StateWaitingFinanceApproval,
			trigger: domainwf.TriggerManagerApprove,
		},
		{
			name:    "locked run cannot be published",
			from:    domainwf.StateLocked,
			trigger: domainwf.TriggerPublish,
		},
		{
			name:    "locked run cannot be locked again",
			from:    domainwf.StateLocked,
			trigger: domainwf.TriggerLock,
		},
		{
			name:    "unfrozen run cannot be unfrozen again",
			from:    domainwf.StateUnfrozen,
			trigger: domainwf.TriggerUnfreeze,
		},
		{
			name:    "unfrozen run cannot be published directly",
			from:    domainwf.StateUnfrozen,
			trigger: domainwf.TriggerPublish,
		},
		{
			name:    "only pre run accepts draft generation",
			from:    domainwf.StateDraftGenerated,
			trigger: domainwf.TriggerGenerateDraft,
		},
		{
			name:    "non-locked run cannot be unfrozen",
			from:    domainwf.StateDraftGenerated,
			trigger: domainwf.TriggerUnfreeze,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine := BuildPayrollRunStateMachine(tt.from)
			err := machine.Fire(context.Background(), tt.trigger)
			if !errors.Is(err, domainwf.ErrInvalidTransition) {
				t.Errorf("Fire(%s) from %s error = %v, want ErrInvalidTransition", tt.trigger, tt.from, err)
			}
			if got := machine.State(); got != tt.from {
				t.Errorf("state changed after rejected fire: %v", got)
			}
		})
	}
}

func TestLockedIsTerminalExceptUnfreeze(t *testing.T) {
	machine := BuildPayrollRunStateMachine(domainwf.StateLocked)

	triggers := machine.PermittedTriggers()
	if len(triggers) != 1 || triggers[0] != domainwf.TriggerUnfreeze {
		t.Errorf("PermittedTriggers() from LOCKED = %v, want [UNFREEZE]", triggers)
	}
}
