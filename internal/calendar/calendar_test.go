package calendar

import (
	"testing"
	"time"
)

func testLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Yangon")
	if err != nil {
		return time.FixedZone("MMT", 6*3600+1800)
	}
	return loc
}

func TestSessionsForYearCount(t *testing.T) {
	s := NewSchedule(testLoc(t))
	sessions := s.SessionsForYear(2026)
	if len(sessions) != 24 {
		t.Fatalf("expected 24 sessions, got %d", len(sessions))
	}
	if sessions[0].Code != "2026-01-16" {
		t.Fatalf("first session = %s", sessions[0].Code)
	}
	if sessions[len(sessions)-1].Code != "2026-12-30" {
		t.Fatalf("last session = %s", sessions[len(sessions)-1].Code)
	}
	for i := 1; i < len(sessions); i++ {
		if !sessions[i-1].DrawAt.Before(sessions[i].DrawAt) {
			t.Fatalf("sessions out of order at %d: %s >= %s", i, sessions[i-1].Code, sessions[i].Code)
		}
	}
}

func TestDrawAndCloseTimes(t *testing.T) {
	loc := testLoc(t)
	s := NewSchedule(loc)
	ses, ok := s.SessionByCode("2026-03-16")
	if !ok {
		t.Fatal("session 2026-03-16 not found")
	}
	wantDraw := time.Date(2026, 3, 16, 14, 30, 0, 0, loc)
	if !ses.DrawAt.Equal(wantDraw) {
		t.Fatalf("DrawAt = %v, want %v", ses.DrawAt, wantDraw)
	}
	wantClose := time.Date(2026, 3, 16, 12, 30, 0, 0, loc)
	if !ses.CloseAt.Equal(wantClose) {
		t.Fatalf("CloseAt = %v, want %v", ses.CloseAt, wantClose)
	}
}

func TestCurrentSession(t *testing.T) {
	loc := testLoc(t)
	s := NewSchedule(loc)

	// 开奖日当天 10:00，还在本场
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, loc)
	if got := s.CurrentSession(now).Code; got != "2026-03-16" {
		t.Fatalf("CurrentSession = %s, want 2026-03-16", got)
	}

	// 开奖之后滚到下一场
	now = time.Date(2026, 3, 16, 15, 0, 0, 0, loc)
	if got := s.CurrentSession(now).Code; got != "2026-04-01" {
		t.Fatalf("CurrentSession = %s, want 2026-04-01", got)
	}

	// 年末最后一场开奖后跨年
	now = time.Date(2026, 12, 30, 15, 0, 0, 0, loc)
	if got := s.CurrentSession(now).Code; got != "2027-01-16" {
		t.Fatalf("CurrentSession = %s, want 2027-01-16", got)
	}
}

func TestLastSession(t *testing.T) {
	loc := testLoc(t)
	s := NewSchedule(loc)

	now := time.Date(2026, 3, 16, 15, 0, 0, 0, loc)
	if got := s.LastSession(now).Code; got != "2026-03-16" {
		t.Fatalf("LastSession = %s, want 2026-03-16", got)
	}

	// 年初第一场开奖前回退到上一年
	now = time.Date(2026, 1, 10, 9, 0, 0, 0, loc)
	if got := s.LastSession(now).Code; got != "2025-12-30" {
		t.Fatalf("LastSession = %s, want 2025-12-30", got)
	}
}

func TestIsBettingOpen(t *testing.T) {
	loc := testLoc(t)
	s := NewSchedule(loc)
	ses, _ := s.SessionByCode("2026-03-16")

	if !s.IsBettingOpen(ses, time.Date(2026, 3, 16, 12, 29, 59, 0, loc)) {
		t.Fatal("expected open before close time")
	}
	if s.IsBettingOpen(ses, time.Date(2026, 3, 16, 12, 30, 0, 0, loc)) {
		t.Fatal("expected closed at close time")
	}
	if s.IsBettingOpen(ses, time.Date(2026, 3, 16, 14, 31, 0, 0, loc)) {
		t.Fatal("expected closed after draw")
	}
}

func TestSessionByCodeInvalid(t *testing.T) {
	s := NewSchedule(testLoc(t))
	if _, ok := s.SessionByCode("2026-03-15"); ok {
		t.Fatal("2026-03-15 is not a draw day")
	}
	if _, ok := s.SessionByCode("not-a-date"); ok {
		t.Fatal("invalid code accepted")
	}
}

func TestNextSession(t *testing.T) {
	loc := testLoc(t)
	s := NewSchedule(loc)

	cases := []struct {
		now  time.Time
		want string
	}{
		// 当前场 2026-03-16，下一场 2026-04-01
		{time.Date(2026, 3, 10, 9, 0, 0, 0, loc), "2026-04-01"},
		// 当前场为当年最后一场，下一场跨年
		{time.Date(2026, 12, 16, 15, 0, 0, 0, loc), "2027-01-16"},
		// 当年已无剩余场次，当前场落到下一年第一场
		{time.Date(2026, 12, 30, 15, 0, 0, 0, loc), "2027-02-01"},
	}
	for _, c := range cases {
		if got := s.NextSession(c.now).Code; got != c.want {
			t.Fatalf("NextSession(%v) = %s, want %s", c.now, got, c.want)
		}
	}
}
