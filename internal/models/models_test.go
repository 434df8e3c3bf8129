package models

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to ConversationStatus
		want     bool
	}{
		{StatusIdle, StatusProcessing, true},
		{StatusIdle, StatusIdle, true},
		{StatusIdle, StatusFeedback, false},
		{StatusProcessing, StatusProcessing, true},
		{StatusProcessing, StatusFeedback, true},
		{StatusProcessing, StatusIdle, true},
		{StatusFeedback, StatusProcessing, true},
		{StatusFeedback, StatusIdle, true},
		{StatusFeedback, StatusFeedback, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestRunStatusTerminal(t *testing.T) {
	terminal := []RunStatus{RunStatusCompleted, RunStatusRequiresAction, RunStatusFailed, RunStatusCancelled, RunStatusExpired, RunStatusIncomplete}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	nonTerminal := []RunStatus{RunStatusQueued, RunStatusInProgress}
	for _, s := range nonTerminal {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}
