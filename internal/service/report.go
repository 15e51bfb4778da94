package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"threed-server/common"
	"threed-server/common/constant"
	"threed-server/common/helper"
	infmysql "threed-server/internal/infra/mysql"
	"threed-server/internal/model"
	"threed-server/internal/state"

	g "github.com/doug-martin/goqu/v9"
)

// 报表与历史查询，全部走从库（未配置从库时回落主库）

// SessionSummary 单场汇总
type SessionSummary struct {
	SessionCode string                  `json:"session_code"`
	WinNumber   string                  `json:"win_number"`
	Status      int8                    `json:"status"`
	BetCount    int64                   `json:"bet_count"`
	TotalStake  float64                 `json:"total_stake"`
	TotalPayout float64                 `json:"total_payout"`
	BreakGroups []model.BreakGroupCount `json:"break_groups"`
}

type ReportService interface {
	// ListHistory 最近场次及开奖号码
	ListHistory(ctx context.Context, limit int) ([]model.SessionSnapshot, error)
	// SessionSummary 某场次的投注汇总与 break_group 分布
	SessionSummary(ctx context.Context, sessionCode string) (*SessionSummary, error)
	// NumberExposure 某场次敞口最高的号码
	NumberExposure(ctx context.Context, sessionCode string, limit int) ([]model.NumberExposure, error)
	// UserLedger 用户账本流水（时间区间）
	UserLedger(ctx context.Context, userID int64, startStr, endStr string, limit int) ([]model.LedgerRecord, error)
	// DailyTurnover 按日统计的投注与派彩合计
	DailyTurnover(ctx context.Context, dateStr string) (stake float64, payout float64, err error)
	// MonthlyTurnover 按月统计的投注与派彩合计，month 格式 YYYY-MM
	MonthlyTurnover(ctx context.Context, monthStr string) (stake float64, payout float64, err error)
	// SessionCalendar 某年的开奖日历（含各场次当前状态与投注窗口）
	SessionCalendar(ctx context.Context, year int) ([]CalendarEntry, error)
}

// CalendarEntry 开奖日历条目
// phase 相对当前时间：past=已开奖 current=下一个待开奖 future=之后
type CalendarEntry struct {
	SessionCode   string `json:"session_code"`
	DrawTime      int64  `json:"draw_time"`
	DrawTimeStr   string `json:"draw_time_str"`
	CloseTime     int64  `json:"close_time"`
	Status        int8   `json:"status"` // 0 表示数据库尚无该场次记录
	WinNumber     string `json:"win_number,omitempty"`
	Phase         string `json:"phase"`
	IsBettingOpen bool   `json:"is_betting_open"`
}

type reportService struct{}

func NewReportService() ReportService { return &reportService{} }

func (s *reportService) ListHistory(ctx context.Context, limit int) ([]model.SessionSnapshot, error) {
	return model.ListRecentSessions(ctx, infmysql.SlaveSQLX(), limit)
}

func (s *reportService) SessionSummary(ctx context.Context, sessionCode string) (*SessionSummary, error) {
	if sessionCode == "" {
		return nil, ErrBadRequest
	}
	db := infmysql.SlaveSQLX()

	snap, err := model.GetSessionSnapshot(ctx, db, sessionCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	betCount, err := common.CountInfo(db, "three_d_bets", "id", g.Ex{"session_code": sessionCode})
	if err != nil {
		return nil, err
	}
	totalStake, err := common.SumInfo(db, "three_d_bets", "amount", g.Ex{"session_code": sessionCode})
	if err != nil {
		return nil, err
	}
	totalPayout, err := common.SumInfo(db, "three_d_bets", "win_amount", g.Ex{"session_code": sessionCode})
	if err != nil {
		return nil, err
	}

	groups, err := model.ListBreakGroupCounts(ctx, db, sessionCode)
	if err != nil {
		return nil, err
	}

	return &SessionSummary{
		SessionCode: snap.SessionCode,
		WinNumber:   snap.WinNumber,
		Status:      snap.Status,
		BetCount:    betCount,
		TotalStake:  totalStake,
		TotalPayout: totalPayout,
		BreakGroups: groups,
	}, nil
}

func (s *reportService) NumberExposure(ctx context.Context, sessionCode string, limit int) ([]model.NumberExposure, error) {
	if sessionCode == "" {
		return nil, ErrBadRequest
	}
	return model.ListNumberExposure(ctx, infmysql.SlaveSQLX(), sessionCode, limit)
}

func (s *reportService) UserLedger(ctx context.Context, userID int64, startStr, endStr string, limit int) ([]model.LedgerRecord, error) {
	if userID <= 0 {
		return nil, ErrBadRequest
	}
	// 区间解析为秒级时间戳，账本 created_at 为毫秒
	start, end := helper.ParseTimeRange(startStr, endStr, common.BizLocation())
	return model.ListUserLedger(ctx, infmysql.SlaveSQLX(), userID, start*1000, end*1000, limit)
}

func (s *reportService) DailyTurnover(ctx context.Context, dateStr string) (float64, float64, error) {
	day := common.NowBiz()
	if dateStr != "" {
		t := helper.ParseTime(dateStr, common.BizLocation())
		if t.IsZero() {
			return 0, 0, ErrBadRequest
		}
		day = t
	}
	start, end := common.GetTodayRange(day)
	db := infmysql.SlaveSQLX()

	// 账本 created_at 为毫秒
	stake, err := common.SumInfo(db, "wallet_ledger", "amount",
		g.Ex{"biz_type": constant.BalanceChangeBetPlace}, g.C("created_at").Gte(start*1000), g.C("created_at").Lt(end*1000))
	if err != nil {
		return 0, 0, err
	}
	payout, err := common.SumInfo(db, "wallet_ledger", "amount",
		g.Ex{"biz_type": constant.BalanceChangePrizePayout}, g.C("created_at").Gte(start*1000), g.C("created_at").Lt(end*1000))
	if err != nil {
		return 0, 0, err
	}
	return stake, payout, nil
}

func (s *reportService) MonthlyTurnover(ctx context.Context, monthStr string) (float64, float64, error) {
	t, err := time.ParseInLocation("2006-01", monthStr, common.BizLocation())
	if err != nil {
		return 0, 0, ErrBadRequest
	}
	start, end := common.GetMonthRange(t)
	db := infmysql.SlaveSQLX()

	stake, err := common.SumInfo(db, "wallet_ledger", "amount",
		g.Ex{"biz_type": constant.BalanceChangeBetPlace}, g.C("created_at").Gte(start*1000), g.C("created_at").Lt(end*1000))
	if err != nil {
		return 0, 0, err
	}
	payout, err := common.SumInfo(db, "wallet_ledger", "amount",
		g.Ex{"biz_type": constant.BalanceChangePrizePayout}, g.C("created_at").Gte(start*1000), g.C("created_at").Lt(end*1000))
	if err != nil {
		return 0, 0, err
	}
	return stake, payout, nil
}

func (s *reportService) SessionCalendar(ctx context.Context, year int) ([]CalendarEntry, error) {
	if year < 2000 || year > 2100 {
		return nil, ErrBadRequest
	}
	sch := Schedule()
	plan := sch.SessionsForYear(year)

	codes := make([]string, 0, len(plan))
	for _, p := range plan {
		codes = append(codes, p.Code)
	}
	rows, err := model.ListSessionsByCodes(ctx, infmysql.SlaveSQLX(), codes)
	if err != nil {
		return nil, err
	}
	byCode := make(map[string]model.DrawSession, len(rows))
	for _, r := range rows {
		byCode[r.SessionCode] = r
	}

	now := time.Now()
	cur := sch.CurrentSession(now)
	out := make([]CalendarEntry, 0, len(plan))
	for _, p := range plan {
		entry := CalendarEntry{
			SessionCode: p.Code,
			DrawTime:    p.DrawAt.UnixMilli(),
			DrawTimeStr: helper.TimeUnixToStr(p.DrawAt.Unix()),
			CloseTime:   p.CloseAt.UnixMilli(),
		}
		if r, ok := byCode[p.Code]; ok {
			entry.Status = r.Status
			entry.WinNumber = r.WinNumber
		}
		switch {
		case p.DrawAt.Before(now):
			entry.Phase = "past"
		case p.Code == cur.Code:
			entry.Phase = "current"
		default:
			entry.Phase = "future"
		}
		// 窗口开放 = 日历上可投注且数据库状态为开盘
		entry.IsBettingOpen = sch.IsBettingOpen(p, now) && codeToState(entry.Status) == state.StateOpen
		out = append(out, entry)
	}
	return out, nil
}
