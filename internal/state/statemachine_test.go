package state

import "testing"

func TestNextStateHappyPath(t *testing.T) {
	cases := []struct {
		cur, evt, want string
	}{
		{StatePending, EvtSessionOpen, StateOpen},
		{StateOpen, EvtSessionClose, StateClosed},
		{StateClosed, EvtResultDeclared, StateSettled},
	}
	for _, c := range cases {
		got, err := NextState(c.cur, c.evt)
		if err != nil {
			t.Fatalf("NextState(%s, %s) err: %v", c.cur, c.evt, err)
		}
		if got != c.want {
			t.Fatalf("NextState(%s, %s) = %s, want %s", c.cur, c.evt, got, c.want)
		}
	}
}

func TestNextStateInvalid(t *testing.T) {
	cases := []struct {
		cur, evt string
	}{
		{StatePending, EvtSessionClose},
		{StatePending, EvtResultDeclared},
		{StateOpen, EvtResultDeclared},
		{StateClosed, EvtSessionOpen},
		{StateSettled, EvtSessionOpen},
		{StateSettled, EvtResultDeclared},
	}
	for _, c := range cases {
		got, err := NextState(c.cur, c.evt)
		if err == nil {
			t.Fatalf("NextState(%s, %s) expected error", c.cur, c.evt)
		}
		if got != c.cur {
			t.Fatalf("NextState(%s, %s) on error returned %s, want unchanged", c.cur, c.evt, got)
		}
	}
}
