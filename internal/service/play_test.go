package service

import (
	"strings"
	"testing"

	"threed-server/internal/state"
)

func TestBreakGroup(t *testing.T) {
	cases := []struct {
		number string
		want   int8
	}{
		{"000", 0},
		{"123", 6},
		{"999", 27},
		{"505", 10},
		{"007", 7},
	}
	for _, c := range cases {
		if got := breakGroup(c.number); got != c.want {
			t.Fatalf("breakGroup(%s) = %d, want %d", c.number, got, c.want)
		}
	}
}

func TestOverLimitErrorMessage(t *testing.T) {
	err := &OverLimitError{Rejected: []RejectedNumber{
		{Number: "123", Reason: "closed"},
		{Number: "456", Reason: "over_exposure"},
	}}
	msg := err.Error()
	if !strings.Contains(msg, "123") || !strings.Contains(msg, "456") {
		t.Fatalf("error message missing numbers: %s", msg)
	}
}

func TestStateCodeMapping(t *testing.T) {
	states := []string{state.StatePending, state.StateOpen, state.StateClosed, state.StateSettled}
	for _, s := range states {
		if got := codeToState(stateToCode(s)); got != s {
			t.Fatalf("round trip %s -> %d -> %s", s, stateToCode(s), got)
		}
	}
	// 未知状态码回落到 pending
	if got := codeToState(99); got != state.StatePending {
		t.Fatalf("codeToState(99) = %s, want pending", got)
	}
}

func TestEventCodeToString(t *testing.T) {
	cases := []struct {
		code int8
		want string
	}{
		{1, state.EvtSessionOpen},
		{2, state.EvtSessionClose},
		{3, state.EvtResultDeclared},
		{9, ""},
	}
	for _, c := range cases {
		if got := eventCodeToString(c.code); got != c.want {
			t.Fatalf("eventCodeToString(%d) = %s, want %s", c.code, got, c.want)
		}
	}
}
