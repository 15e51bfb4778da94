package calendar

import (
	"fmt"
	"sort"
	"time"
)

// 3D 开奖日历
// 每年 24 场：1月16日一场；2月至12月每月 1日/16日 各一场；12月30日加开一场。
// 开奖时间固定在业务时区（仰光）的 draw_hour:draw_minute，封盘时间为开奖前的固定提前量。

// Session 一场开奖
type Session struct {
	// 场次编号，格式 YYYY-MM-DD（开奖日）
	Code string
	// 开奖时间（业务时区）
	DrawAt time.Time
	// 封盘时间（业务时区）
	CloseAt time.Time
}

// Schedule 封装开奖参数，便于测试时注入不同时刻
type Schedule struct {
	Loc       *time.Location
	DrawHour  int
	DrawMin   int
	CloseLead time.Duration // 封盘提前量，默认 2 小时
}

// NewSchedule 构造默认参数的日历（14:30 开奖，提前 2 小时封盘）
func NewSchedule(loc *time.Location) Schedule {
	return Schedule{Loc: loc, DrawHour: 14, DrawMin: 30, CloseLead: 2 * time.Hour}
}

// drawDays 返回某年的全部开奖日（月, 日）
func drawDays() [][2]int {
	days := [][2]int{{1, 16}}
	for m := 2; m <= 12; m++ {
		days = append(days, [2]int{m, 1}, [2]int{m, 16})
	}
	// 12月30日加开
	days = append(days, [2]int{12, 30})
	return days
}

// SessionsForYear 返回某年的全部场次，按开奖时间升序
func (s Schedule) SessionsForYear(year int) []Session {
	var out []Session
	for _, d := range drawDays() {
		drawAt := time.Date(year, time.Month(d[0]), d[1], s.DrawHour, s.DrawMin, 0, 0, s.Loc)
		out = append(out, Session{
			Code:    fmt.Sprintf("%04d-%02d-%02d", year, d[0], d[1]),
			DrawAt:  drawAt,
			CloseAt: drawAt.Add(-s.CloseLead),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DrawAt.Before(out[j].DrawAt) })
	return out
}

// SessionByCode 按场次编号查找；找不到返回 false
func (s Schedule) SessionByCode(code string) (Session, bool) {
	t, err := time.ParseInLocation("2006-01-02", code, s.Loc)
	if err != nil {
		return Session{}, false
	}
	for _, ses := range s.SessionsForYear(t.Year()) {
		if ses.Code == code {
			return ses, true
		}
	}
	return Session{}, false
}

// CurrentSession 返回 now 所属的可下注场次：下一场尚未开奖的场次
// 若 now 已过当年最后一场开奖，则返回下一年的第一场
func (s Schedule) CurrentSession(now time.Time) Session {
	now = now.In(s.Loc)
	for _, ses := range s.SessionsForYear(now.Year()) {
		if now.Before(ses.DrawAt) {
			return ses
		}
	}
	return s.SessionsForYear(now.Year() + 1)[0]
}

// NextSession 返回当前场次之后的下一场；跨年时落到下一年第一场
func (s Schedule) NextSession(now time.Time) Session {
	cur := s.CurrentSession(now)
	for _, ses := range s.SessionsForYear(cur.DrawAt.Year()) {
		if ses.DrawAt.After(cur.DrawAt) {
			return ses
		}
	}
	return s.SessionsForYear(cur.DrawAt.Year() + 1)[0]
}

// LastSession 返回 now 之前最近一场已开奖的场次；若 now 早于当年第一场则回退到上一年最后一场
func (s Schedule) LastSession(now time.Time) Session {
	now = now.In(s.Loc)
	sessions := s.SessionsForYear(now.Year())
	var last *Session
	for i := range sessions {
		if !sessions[i].DrawAt.After(now) {
			last = &sessions[i]
		}
	}
	if last != nil {
		return *last
	}
	prev := s.SessionsForYear(now.Year() - 1)
	return prev[len(prev)-1]
}

// IsBettingOpen 判断某场次在 now 时刻是否处于可下注窗口（未到封盘时间）
func (s Schedule) IsBettingOpen(ses Session, now time.Time) bool {
	return now.In(s.Loc).Before(ses.CloseAt)
}
