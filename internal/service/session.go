package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"threed-server/common"
	"threed-server/common/logger"
	"threed-server/internal/calendar"
	"threed-server/internal/config"
	infmysql "threed-server/internal/infra/mysql"
	infrds "threed-server/internal/infra/redis"
	"threed-server/internal/metrics"
	"threed-server/internal/model"
	"threed-server/internal/state"
)

type SessionEventInput struct {
	SessionCode string
	EventType   int8 // 1=session_open 2=session_close
	Operator    string
	Source      string // manual=后台手动 sweeper=巡检自动
	TraceID     string
}

type SessionService interface {
	Handle(ctx context.Context, in SessionEventInput) error
	// AutoTransition 生命周期巡检：补齐日历场次并推进到期的状态转换，返回本轮执行报告
	AutoTransition(ctx context.Context) (*TransitionReport, error)
}

// TransitionReport 一轮巡检的执行报告
type TransitionReport struct {
	Current       string   `json:"current"`        // 当前应开放投注的场次
	Next          string   `json:"next"`           // 其后的下一场
	CurrentClosed bool     `json:"current_closed"` // 本轮是否封盘了当前场次
	NextOpened    bool     `json:"next_opened"`    // 本轮是否开盘了应开放的场次
	Transitions   []string `json:"transitions"`    // 实际执行的转换明细
}

type sessionService struct{}

func NewSessionService() SessionService { return &sessionService{} }

const (
	sessionInfoTTL = 10 * time.Minute // 场次信息缓存
	// MySQL 咨询锁：多实例部署时保证同一时刻只有一个巡检在跑
	sweepLockName = "threed:session:sweep"
)

var (
	ErrResultViaDrawAPI = errors.New("result must be declared via draw result api")
)

// Schedule 根据配置构造开奖日历
func Schedule() calendar.Schedule {
	sch := calendar.NewSchedule(common.BizLocation())
	if cfg := config.GetCurrent(); cfg != nil {
		if cfg.ThreeD.DrawHour > 0 {
			sch.DrawHour = cfg.ThreeD.DrawHour
			sch.DrawMin = cfg.ThreeD.DrawMinute
		}
		if cfg.ThreeD.CloseLeadMinutes > 0 {
			sch.CloseLead = time.Duration(cfg.ThreeD.CloseLeadMinutes) * time.Minute
		}
	}
	return sch
}

func (s *sessionService) Handle(ctx context.Context, in SessionEventInput) error {

	// 基本校验：必须有场次编号，且事件类型为 1..2
	// result_declared(3) 走开奖接口，不允许从这里触发
	if in.SessionCode == "" || in.EventType < 1 || in.EventType > 3 {
		fmt.Printf("[SessionEvent]  参数校验失败: session=%s, event_type=%d, trace_id=%s\n",
			in.SessionCode, in.EventType, in.TraceID)
		return ErrBadRequest
	}
	if in.EventType == 3 {
		return ErrResultViaDrawAPI
	}

	// 指标：仅在输入校验通过后开始计时
	start := time.Now()
	resultLabel := "fail"
	// 将事件代码转换为状态机事件名（用于内部状态机与指标标签）
	evtStr := eventCodeToString(in.EventType)
	defer func() { metrics.RecordSessionEvent(resultLabel, evtStr, start) }()

	fmt.Printf("[SessionEvent] 收到事件: event=%s(%d), session=%s, source=%s, trace_id=%s\n",
		evtStr, in.EventType, in.SessionCode, in.Source, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// session_open 时确保场次存在（按日历补齐）
	if evtStr == state.EvtSessionOpen {
		ses, ok := Schedule().SessionByCode(in.SessionCode)
		if !ok {
			fmt.Printf("[SessionEvent] 非开奖日: session=%s, trace_id=%s\n",
				in.SessionCode, in.TraceID)
			return fmt.Errorf("not a draw day: %s", in.SessionCode)
		}
		fmt.Printf("[SessionEvent] session_open: 确保场次存在, session=%s, trace_id=%s\n",
			in.SessionCode, in.TraceID)
		if err := model.EnsureSession(ctx, tx, in.SessionCode, ses.DrawAt.UnixMilli(), ses.CloseAt.UnixMilli(), in.TraceID); err != nil {
			return err
		}
	}

	prevStatus, err := model.GetSessionStatusForUpdate(ctx, tx, in.SessionCode)
	if err != nil {
		fmt.Printf("[SessionEvent] 获取场次状态失败: session=%s, error=%v, trace_id=%s\n",
			in.SessionCode, err, in.TraceID)
		return err
	}
	prev := codeToState(prevStatus)

	fmt.Printf("[SessionEvent] 当前状态: state=%s(%d), session=%s, trace_id=%s\n",
		prev, prevStatus, in.SessionCode, in.TraceID)

	// 计算目标状态
	nextStr, err := state.NextState(prev, evtStr)
	if err != nil {
		fmt.Printf("[SessionEvent] 状态转换失败: %s --%s--> ?, session=%s, trace_id=%s\n",
			prev, evtStr, in.SessionCode, in.TraceID)
		return err
	}
	nextCode := stateToCode(nextStr)

	if err := model.UpdateSessionState(ctx, tx, in.SessionCode, nextCode); err != nil {
		return err
	}

	// Outbox：开盘与封盘事件保证事务内写入
	ses, err := model.GetSession(ctx, tx, in.SessionCode)
	if err != nil {
		return err
	}
	switch evtStr {
	case state.EvtSessionOpen:
		payload := map[string]any{
			"event":        "session_opened",
			"session_code": in.SessionCode,
			"close_time":   ses.CloseTime,
			"draw_time":    ses.DrawTime,
			"trace_id":     in.TraceID,
		}
		if err := model.CreateOutbox(ctx, tx, "threed_session_opened", in.SessionCode, payload); err != nil {
			return err
		}
	case state.EvtSessionClose:
		payload := map[string]any{
			"event":        "session_closed",
			"session_code": in.SessionCode,
			"draw_time":    ses.DrawTime,
			"trace_id":     in.TraceID,
		}
		fmt.Printf("[SessionEvent] 写入 Outbox: topic=threed_session_closed, session=%s, trace_id=%s\n",
			in.SessionCode, in.TraceID)
		if err := model.CreateOutbox(ctx, tx, "threed_session_closed", in.SessionCode, payload); err != nil {
			fmt.Printf("[SessionEvent] 写入 Outbox 失败: topic=threed_session_closed, session=%s, error=%v, trace_id=%s\n",
				in.SessionCode, err, in.TraceID)
			return err
		}
	}

	// 审计
	aud := &model.SessionEventAudit{
		SessionCode: in.SessionCode,
		EventType:   in.EventType,
		PrevState:   prev,
		NextState:   nextStr,
		Operator:    in.Operator,
		Source:      in.Source,
		Payload:     "{}",
		TraceID:     in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		fmt.Printf("[SessionEvent]  写入审计日志失败: session=%s, error=%v, trace_id=%s\n",
			in.SessionCode, err, in.TraceID)
		return err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[SessionEvent]  提交事务失败: session=%s, error=%v, trace_id=%s\n",
			in.SessionCode, err, in.TraceID)
		return err
	}

	// 事务提交后：写/删 Redis（避免未提交数据被读取）
	if r := infrds.Client(); r != nil {
		switch evtStr {
		case state.EvtSessionOpen:
			val := map[string]any{
				"session_code": in.SessionCode,
				"close_time":   ses.CloseTime,
				"draw_time":    ses.DrawTime,
				"status":       2, // open
			}
			if b, e := json.Marshal(val); e == nil {
				fmt.Printf("[SessionEvent] 写入 Redis 缓存: key=%s, ttl=%v, session=%s, trace_id=%s\n",
					infrds.SessionInfoKey(in.SessionCode), sessionInfoTTL, in.SessionCode, in.TraceID)
				_ = r.Set(ctx, infrds.SessionInfoKey(in.SessionCode), b, sessionInfoTTL).Err()
			}
		case state.EvtSessionClose:
			fmt.Printf("[SessionEvent] 删除 Redis 缓存: key=%s, session=%s, trace_id=%s\n",
				infrds.SessionInfoKey(in.SessionCode), in.SessionCode, in.TraceID)
			_ = r.Del(ctx, infrds.SessionInfoKey(in.SessionCode)).Err()
		}
	}

	resultLabel = "success"
	fmt.Printf("[SessionEvent] 事件处理完成: event=%s(%d), session=%s, prev=%s, next=%s, trace_id=%s\n",
		evtStr, in.EventType, in.SessionCode, prev, nextStr, in.TraceID)
	return nil
}

// sweepAction 巡检计划中的一步转换
type sweepAction struct {
	sessionCode string
	eventType   int8 // 1=open 2=close
	reason      string
}

// planTransitions 纯函数：根据当前时刻、日历与库中状态计算本轮应执行的转换
// curStatus: 当前场次在库中的状态码，0 表示记录尚不存在
// openCodes: 库中全部处于 open 的场次编号
// 规则：
//   - 当前场次处于投注窗口且未开盘 -> 开盘（记录不存在时由 Handle 按日历补齐）
//   - 当前场次已过封盘时间 -> 封盘
//   - 其余任何仍处于 open 的场次一律封盘，保证同一时刻至多一场开放
func planTransitions(now time.Time, sch calendar.Schedule, curStatus int8, openCodes []string) (calendar.Session, []sweepAction) {
	cur := sch.CurrentSession(now)
	var actions []sweepAction
	if sch.IsBettingOpen(cur, now) && (curStatus == 0 || curStatus == 1) {
		actions = append(actions, sweepAction{cur.Code, 1, "open current session"})
	}
	for _, code := range openCodes {
		if code == cur.Code {
			if !sch.IsBettingOpen(cur, now) {
				actions = append(actions, sweepAction{code, 2, "close after betting window"})
			}
			continue
		}
		// 非当前场次不允许保持 open
		actions = append(actions, sweepAction{code, 2, "ensure only one session open"})
	}
	return cur, actions
}

// AutoTransition 生命周期巡检：
// 1. 确保当前可投注场次的记录存在并处于 open
// 2. 将到达封盘时间的当前场次推进到 closed
// 3. 封掉其余所有仍处于 open 的场次（自愈，保证至多一场开放）
// 多实例部署时通过 MySQL GET_LOCK 保证只有一个实例执行
func (s *sessionService) AutoTransition(ctx context.Context) (*TransitionReport, error) {
	db := infmysql.SQLX()

	now := common.NowBiz()
	sch := Schedule()
	report := &TransitionReport{
		Current:     sch.CurrentSession(now).Code,
		Next:        sch.NextSession(now).Code,
		Transitions: []string{},
	}

	// 咨询锁：拿不到说明其他实例正在巡检，本轮空转
	var got int
	if err := db.GetContext(ctx, &got, "SELECT GET_LOCK(?, 0)", sweepLockName); err != nil {
		return nil, err
	}
	if got != 1 {
		return report, nil
	}
	defer func() {
		var released int
		_ = db.GetContext(context.Background(), &released, "SELECT RELEASE_LOCK(?)", sweepLockName)
	}()

	traceID := logger.TraceIDOr(ctx, fmt.Sprintf("sweep-%d", time.Now().UnixMilli()))

	// 当前场次在库中的状态（不存在记 0，planTransitions 视同待开盘）
	var curStatus int8
	if ses, err := model.GetSession(ctx, db, report.Current); err == nil {
		curStatus = ses.Status
	}
	opened, err := model.ListSessionsByStatus(ctx, db, []int8{2}, 50)
	if err != nil {
		return nil, err
	}
	openCodes := make([]string, 0, len(opened))
	for _, ses := range opened {
		openCodes = append(openCodes, ses.SessionCode)
	}

	_, actions := planTransitions(now, sch, curStatus, openCodes)
	for _, a := range actions {
		if err := s.Handle(ctx, SessionEventInput{
			SessionCode: a.sessionCode,
			EventType:   a.eventType,
			Operator:    "system",
			Source:      "sweeper",
			TraceID:     traceID,
		}); err != nil {
			fmt.Printf("[Sweep] 转换失败: session=%s, event=%d, reason=%s, error=%v\n",
				a.sessionCode, a.eventType, a.reason, err)
			continue
		}
		verb := "close"
		if a.eventType == 1 {
			verb = "open"
		}
		report.Transitions = append(report.Transitions, fmt.Sprintf("%s %s (%s)", verb, a.sessionCode, a.reason))
		if a.sessionCode == report.Current {
			switch a.eventType {
			case 1:
				report.NextOpened = true
			case 2:
				report.CurrentClosed = true
			}
		}
	}

	return report, nil
}

// 约定的状态码映射：1=pending, 2=open, 3=closed, 4=settled
func codeToState(c int8) string {
	switch c {
	case 1:
		return state.StatePending
	case 2:
		return state.StateOpen
	case 3:
		return state.StateClosed
	case 4:
		return state.StateSettled
	default:
		return state.StatePending
	}
}

func stateToCode(s string) int8 {
	switch s {
	case state.StatePending:
		return 1
	case state.StateOpen:
		return 2
	case state.StateClosed:
		return 3
	case state.StateSettled:
		return 4
	default:
		return 1
	}
}

// eventCodeToString: 将数值事件代码映射为状态机事件名
func eventCodeToString(c int8) string {
	switch c {
	case 1:
		return state.EvtSessionOpen
	case 2:
		return state.EvtSessionClose
	case 3:
		return state.EvtResultDeclared
	default:
		return ""
	}
}
