package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestStateIsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		want  bool
	}{
		{name: "pre run", state: StatePreRun, want: true},
		{name: "draft generated", state: StateDraftGenerated, want: true},
		{name: "under review", state: StateUnderReview, want: true},
		{name: "waiting finance approval", state: StateWaitingFinanceApproval, want: true},
		{name: "locked", state: StateLocked, want: true},
		{name: "unfrozen", state: StateUnfrozen, want: true},
		{name: "unknown state", state: State("PAID"), want: false},
		{name: "empty state", state: State(""), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStateIsLocked(t *testing.T) {
	if !StateLocked.IsLocked() {
		t.Error("LOCKED should be a locked state")
	}

	for _, s := range []State{StatePreRun, StateDraftGenerated, StateUnderReview, StateWaitingFinanceApproval, StateUnfrozen} {
		if s.IsLocked() {
			t.Errorf("%s should not be a locked state", s)
		}
	}
}

func TestBuilderFireTransitions(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraftGenerated).
		Permit(TriggerPublish, StateUnderReview)
	builder.Configure(StateUnderReview).
		Permit(TriggerManagerApprove, StateWaitingFinanceApproval).
		Permit(TriggerManagerReject, StateDraftGenerated)

	machine := builder.Build(StateDraftGenerated)

	if got := machine.State(); got != StateDraftGenerated {
		t.Fatalf("State() = %v, want %v", got, StateDraftGenerated)
	}

	if !machine.CanFire(TriggerPublish) {
		t.Error("CanFire(PUBLISH) = false, want true")
	}
	if machine.CanFire(TriggerFinanceApprove) {
		t.Error("CanFire(FINANCE_APPROVE) = true, want false")
	}

	if err := machine.Fire(context.Background(), TriggerPublish); err != nil {
		t.Fatalf("Fire(PUBLISH) error = %v", err)
	}
	if got := machine.State(); got != StateUnderReview {
		t.Errorf("State() after publish = %v, want %v", got, StateUnderReview)
	}

	if err := machine.Fire(context.Background(), TriggerManagerReject); err != nil {
		t.Fatalf("Fire(MANAGER_REJECT) error = %v", err)
	}
	if got := machine.State(); got != StateDraftGenerated {
		t.Errorf("State() after reject = %v, want %v", got, StateDraftGenerated)
	}
}

func TestFireRejectsUnconfiguredTrigger(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraftGenerated).
		Permit(TriggerPublish, StateUnderReview)

	machine := builder.Build(StateDraftGenerated)

	err := machine.Fire(context.Background(), TriggerFinanceApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
	}
	if got := machine.State(); got != StateDraftGenerated {
		t.Errorf("state changed after rejected fire: %v", got)
	}
}

func TestFireRejectsUnconfiguredState(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraftGenerated).
		Permit(TriggerPublish, StateUnderReview)

	machine := builder.Build(StateLocked)

	err := machine.Fire(context.Background(), TriggerPublish)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want ErrInvalidTransition", err)
	}
}

func TestPermitIfGuard(t *testing.T) {
	allow := false
	builder := NewBuilder()
	builder.Configure(StateDraftGenerated).
		PermitIf(TriggerPublish, StateUnderReview, func(ctx context.Context) bool {
			return allow
		})

	machine := builder.Build(StateDraftGenerated)

	err := machine.Fire(context.Background(), TriggerPublish)
	if !errors.Is(err, ErrGuardFailed) {
		t.Fatalf("Fire() with failing guard error = %v, want ErrGuardFailed", err)
	}
	if got := machine.State(); got != StateDraftGenerated {
		t.Errorf("state changed after guard failure: %v", got)
	}

	allow = true
	if err := machine.Fire(context.Background(), TriggerPublish); err != nil {
		t.Fatalf("Fire() with passing guard error = %v", err)
	}
	if got := machine.State(); got != StateUnderReview {
		t.Errorf("State() = %v, want %v", got, StateUnderReview)
	}
}

func TestBuildIsolatesMachines(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraftGenerated).
		Permit(TriggerPublish, StateUnderReview)

	first := builder.Build(StateDraftGenerated)
	second := builder.Build(StateDraftGenerated)

	if err := first.Fire(context.Background(), TriggerPublish); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}

	if got := second.State(); got != StateDraftGenerated {
		t.Errorf("second machine state = %v, want %v", got, StateDraftGenerated)
	}
}

func TestConfigurePanicsOnInvalidState(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Configure() with invalid state did not panic")
		}
	}()

	NewBuilder().Configure(State("NOT_A_STATE"))
}

func TestBuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Build() with invalid initial state did not panic")
		}
	}()

	NewBuilder().Build(State(""))
}

func TestPermittedTriggers(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateUnderReview).
		Permit(TriggerManagerApprove, StateWaitingFinanceApproval).
		Permit(TriggerManagerReject, StateDraftGenerated)

	machine := builder.Build(StateUnderReview)

	triggers := machine.PermittedTriggers()
	if len(triggers) != 2 {
		t.Fatalf("PermittedTriggers() returned %d triggers, want 2", len(triggers))
	}

	seen := make(map[Trigger]bool)
	for _, tr := range triggers {
		seen[tr] = true
	}
	if !seen[TriggerManagerApprove] || !seen[TriggerManagerReject] {
		t.Errorf("PermittedTriggers() = %v, want manager approve and reject", triggers)
	}
}
