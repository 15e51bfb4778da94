package service

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"threed-server/internal/calendar"
)

func sweepSchedule(t *testing.T) calendar.Schedule {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Yangon")
	if err != nil {
		loc = time.FixedZone("MMT", 6*3600+1800)
	}
	return calendar.NewSchedule(loc)
}

func TestPlanTransitionsOpensCurrent(t *testing.T) {
	sch := sweepSchedule(t)
	// 投注窗口内（封盘 12:30），场次记录尚不存在
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, sch.Loc)
	cur, actions := planTransitions(now, sch, 0, nil)
	if cur.Code != "2026-03-16" {
		t.Fatalf("current = %s, want 2026-03-16", cur.Code)
	}
	if len(actions) != 1 || actions[0].sessionCode != "2026-03-16" || actions[0].eventType != 1 {
		t.Fatalf("actions = %+v, want single open for 2026-03-16", actions)
	}
}

func TestPlanTransitionsClosesCurrentAfterWindow(t *testing.T) {
	sch := sweepSchedule(t)
	// 已过封盘时间但未到开奖：当前场次应封盘
	now := time.Date(2026, 3, 16, 13, 0, 0, 0, sch.Loc)
	cur, actions := planTransitions(now, sch, 2, []string{"2026-03-16"})
	if cur.Code != "2026-03-16" {
		t.Fatalf("current = %s, want 2026-03-16", cur.Code)
	}
	if len(actions) != 1 || actions[0].eventType != 2 || actions[0].sessionCode != "2026-03-16" {
		t.Fatalf("actions = %+v, want single close for 2026-03-16", actions)
	}
}

// 手工误开的未来场次必须被巡检封掉，即使其封盘时间远未到达
func TestPlanTransitionsClosesStraySessions(t *testing.T) {
	sch := sweepSchedule(t)
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, sch.Loc)
	_, actions := planTransitions(now, sch, 2, []string{"2026-03-16", "2026-04-01"})
	if len(actions) != 1 {
		t.Fatalf("actions = %+v, want exactly one", actions)
	}
	if actions[0].sessionCode != "2026-04-01" || actions[0].eventType != 2 {
		t.Fatalf("action = %+v, want close 2026-04-01", actions[0])
	}
	if actions[0].reason != "ensure only one session open" {
		t.Fatalf("reason = %s", actions[0].reason)
	}
}

// 多个游离 open 场次（含已过期的历史场次）全部封掉，当前场次不动
func TestPlanTransitionsClosesAllButCurrent(t *testing.T) {
	sch := sweepSchedule(t)
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, sch.Loc)
	_, actions := planTransitions(now, sch, 2, []string{"2026-03-01", "2026-03-16", "2026-05-16"})
	if len(actions) != 2 {
		t.Fatalf("actions = %+v, want two closes", actions)
	}
	for _, a := range actions {
		if a.eventType != 2 || a.sessionCode == "2026-03-16" {
			t.Fatalf("unexpected action %+v", a)
		}
	}
}

// 状态已收敛时巡检空转
func TestPlanTransitionsNoop(t *testing.T) {
	sch := sweepSchedule(t)
	now := time.Date(2026, 3, 16, 10, 0, 0, 0, sch.Loc)
	_, actions := planTransitions(now, sch, 2, []string{"2026-03-16"})
	if len(actions) != 0 {
		t.Fatalf("actions = %+v, want none", actions)
	}
}

// 窗口已过且记录不存在：不补开盘
func TestPlanTransitionsNoOpenAfterWindow(t *testing.T) {
	sch := sweepSchedule(t)
	now := time.Date(2026, 3, 16, 13, 0, 0, 0, sch.Loc)
	_, actions := planTransitions(now, sch, 0, nil)
	if len(actions) != 0 {
		t.Fatalf("actions = %+v, want none", actions)
	}
}

// 巡检报告的响应字段
func TestTransitionReportJSON(t *testing.T) {
	rep := &TransitionReport{
		Current:       "2026-03-16",
		Next:          "2026-04-01",
		CurrentClosed: false,
		NextOpened:    true,
		Transitions:   []string{"open 2026-03-16 (open current session)"},
	}
	b, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"current"`, `"next"`, `"current_closed"`, `"next_opened"`, `"transitions"`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("missing %s in %s", key, b)
		}
	}
}
