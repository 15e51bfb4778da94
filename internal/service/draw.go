package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"threed-server/common/constant"
	"threed-server/common/helper"
	infmysql "threed-server/internal/infra/mysql"
	infrds "threed-server/internal/infra/redis"
	"threed-server/internal/metrics"
	"threed-server/internal/model"
	"threed-server/internal/state"

	decimal "github.com/shopspring/decimal"
)

type DrawInput struct {
	SessionCode string
	WinNumber   string
	Operator    string
	TraceID     string
}

type DrawService interface {
	SubmitDrawResult(ctx context.Context, in DrawInput) error
}

type drawService struct{}

func NewDrawService() DrawService { return &drawService{} }

// SubmitDrawResult: 录入中奖号码，结算该场次全部选号明细（账本与注单），记录审计
// 派彩规则：直中=金额×exact_multiplier；组合中（同数字排列）=金额×perm_multiplier；未中=0
// 同一场次重复录入返回 ErrAlreadyDeclared，不会二次派彩
func (s *drawService) SubmitDrawResult(ctx context.Context, in DrawInput) error {
	winNum := strings.TrimSpace(in.WinNumber)
	if in.SessionCode == "" || winNum == "" {
		fmt.Printf("[DrawResult]  参数校验失败: session=%s, win_number=%s, trace_id=%s\n",
			in.SessionCode, in.WinNumber, in.TraceID)
		return ErrBadRequest
	}

	// 验证中奖号码为三位数字
	if len(winNum) != 3 || !helper.CtypeDigit(winNum) {
		fmt.Printf("[DrawResult]  无效的中奖号码: win_number=%s, trace_id=%s\n",
			winNum, in.TraceID)
		return fmt.Errorf("invalid win number: %s", winNum)
	}

	fmt.Printf("[DrawResult] 收到开奖请求: session=%s, win_number=%s, operator=%s, trace_id=%s\n",
		in.SessionCode, winNum, in.Operator, in.TraceID)

	// 指标：在输入校验通过后开始计时
	start := time.Now()
	resultLabel := "fail"
	defer func() { metrics.RecordDraw(resultLabel, start) }()

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// ========== 幂等性保护 #1: 检查结算状态 ==========
	statusCode, isSettled, err := model.GetSettlementStatusForUpdate(ctx, tx, in.SessionCode)
	if err != nil {
		// 如果是 "no rows" 错误，说明场次不存在
		if strings.Contains(err.Error(), "no rows") {
			return ErrSessionNotFound
		}
		return err
	}

	currentState := codeToState(statusCode)
	fmt.Printf("[DrawResult]  当前状态: state=%s(%d), is_settled=%d, session=%s, trace_id=%s\n",
		currentState, statusCode, isSettled, in.SessionCode, in.TraceID)

	// 已结算的场次拒绝重复录入
	if isSettled == 1 {
		fmt.Printf("[DrawResult] 该场次已结算，拒绝重复录入: session=%s, trace_id=%s\n",
			in.SessionCode, in.TraceID)
		resultLabel = "already_declared"
		return ErrAlreadyDeclared
	}

	// 校验当前场次状态：仅允许在 closed(已封盘) 状态执行开奖结算
	if currentState != state.StateClosed {
		return ErrInvalidStateDraw
	}

	// ========== 幂等性保护 #2: 写入开奖结果 ==========
	// three_d_results 的 session_code 唯一索引防止同场次重复开奖
	res := &model.ThreeDResult{
		SessionCode: in.SessionCode,
		WinNumber:   winNum,
		BreakGroup:  breakGroup(winNum),
		DeclaredBy:  in.Operator,
		TraceID:     in.TraceID,
	}
	if err := res.Insert(ctx, tx); err != nil {
		if model.IsDuplicateKeyError(err) {
			fmt.Printf("[DrawResult] 开奖结果已存在，拒绝重复录入: session=%s, trace_id=%s\n",
				in.SessionCode, in.TraceID)
			resultLabel = "already_declared"
			return ErrAlreadyDeclared
		}
		fmt.Printf("[DrawResult] 写入开奖结果失败: session=%s, error=%v, trace_id=%s\n",
			in.SessionCode, err, in.TraceID)
		return err
	}

	// 发送开奖事件到 Outbox（事务内写入，确保与数据库状态一致）
	fmt.Printf("[DrawResult] 写入 Outbox: topic=threed_result_declared, session=%s, trace_id=%s\n",
		in.SessionCode, in.TraceID)
	if err := model.CreateOutbox(ctx, tx, "threed_result_declared", in.SessionCode, map[string]any{
		"event":        "result_declared",
		"session_code": in.SessionCode,
		"win_number":   winNum,
		"break_group":  breakGroup(winNum),
		"trace_id":     in.TraceID,
	}); err != nil {
		fmt.Printf("[DrawResult]  写入 Outbox 失败: session=%s, error=%v, trace_id=%s\n",
			in.SessionCode, err, in.TraceID)
		return err
	}

	// ========== 幂等性保护 #3: 创建结算日志 ==========
	// 利用唯一索引防止重复结算（三重保护）
	settlementLog := &model.SettlementLog{
		SessionCode: in.SessionCode,
		WinNumber:   winNum,
		TotalBets:   0, // 稍后更新
		TotalPayout: 0, // 稍后更新
		Operator:    in.Operator,
		TraceID:     in.TraceID,
	}

	if err := model.CreateSettlementLog(ctx, tx, settlementLog); err != nil {
		if model.IsDuplicateKeyError(err) {
			fmt.Printf("[DrawResult] 结算日志已存在，拒绝重复录入: session=%s, trace_id=%s\n",
				in.SessionCode, in.TraceID)
			resultLabel = "already_declared"
			return ErrAlreadyDeclared
		}
		fmt.Printf("[DrawResult] 创建结算日志失败: session=%s, error=%v, trace_id=%s\n",
			in.SessionCode, err, in.TraceID)
		return err
	}

	// 获取启用中的限额配置（结算倍率来源）
	limit, err := model.GetActiveLimit(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to get limit config: %w", err)
	}

	// 查询需要结算的选号明细
	bets, err := model.ListBySessionForUpdate(ctx, tx, in.SessionCode)
	if err != nil {
		return err
	}

	fmt.Printf("[DrawResult]  找到 %d 条待结算明细: session=%s, trace_id=%s\n",
		len(bets), in.SessionCode, in.TraceID)

	// 第一步：逐条判定结算结果（每条明细只算一次）并更新明细
	payouts, betResults, totalDec := settleAll(bets, winNum, limit)
	for i := range bets {
		prizeSent := int8(0)
		if payouts[i] > 0 {
			prizeSent = 1
		}
		if err := model.UpdateBetSettlement(ctx, tx, bets[i].ID, payouts[i], betResults[i], prizeSent); err != nil {
			return err
		}
	}
	totalPayout := totalDec.Round(2).InexactFloat64()

	// 第二步：按用户分组，批量处理余额更新（避免同一用户多次锁定）
	type userSettlement struct {
		userID        int64
		totalPayout   decimal.Decimal
		bets          []model.Bet
		payoutAmounts []float64
	}

	userMap := make(map[int64]*userSettlement)
	for i := range bets {
		b := bets[i]
		payout := payouts[i]

		if payout > 0 {
			if _, exists := userMap[b.UserID]; !exists {
				userMap[b.UserID] = &userSettlement{
					userID:        b.UserID,
					totalPayout:   decimal.Zero,
					bets:          []model.Bet{},
					payoutAmounts: []float64{},
				}
			}
			userMap[b.UserID].totalPayout = userMap[b.UserID].totalPayout.Add(decimal.NewFromFloat(payout))
			userMap[b.UserID].bets = append(userMap[b.UserID].bets, b)
			userMap[b.UserID].payoutAmounts = append(userMap[b.UserID].payoutAmounts, payout)
		}
	}

	// 第三步：每个用户只锁定一次，批量更新余额和账本
	for _, us := range userMap {
		// 锁定用户
		user, err := model.GetUserByIDForUpdate(ctx, tx, us.userID)
		if err != nil {
			return err
		}

		// 使用 decimal 进行精确计算
		beforeDec := decimal.NewFromFloat(user.Balance)
		afterDec := beforeDec.Add(us.totalPayout).Round(2)

		// 更新余额
		if err := model.UpdateUserBalance(ctx, tx, us.userID, afterDec.InexactFloat64()); err != nil {
			return err
		}

		// 为每条中奖明细创建账本记录
		// 使用 decimal 累计计算，确保精度
		currentBalanceDec := beforeDec
		for idx, b := range us.bets {
			payoutDec := decimal.NewFromFloat(us.payoutAmounts[idx])
			currentBalanceDec = currentBalanceDec.Add(payoutDec).Round(2)

			ledger := &model.WalletLedger{
				UserID:       b.UserID,
				BizType:      constant.BalanceChangePrizePayout,
				BizTypeStr:   "payout",
				Amount:       payoutDec.InexactFloat64(),
				BeforeAmount: currentBalanceDec.Sub(payoutDec).Round(2).InexactFloat64(),
				AfterAmount:  currentBalanceDec.InexactFloat64(),
				Currency:     CurrencyMMK,
				SlipNumber:   b.SlipNumber,
				SessionCode:  in.SessionCode,
				Remark:       constant.GetBalanceChangeTypeDesc(constant.BalanceChangePrizePayout),
				TraceID:      in.TraceID,
			}
			if err := ledger.Insert(ctx, tx); err != nil {
				return err
			}
		}
	}

	// 第四步：为所有中奖明细创建 Outbox 消息
	for i := range bets {
		b := bets[i]
		payout, betResult := payouts[i], betResults[i]
		if payout <= 0 {
			continue
		}

		if err := model.CreateOutbox(ctx, tx, "threed_bet_settled", fmt.Sprintf("%s:%d", b.SlipNumber, b.ID), map[string]any{
			"event":        "bet_settled",
			"slip_number":  b.SlipNumber,
			"bet_id":       b.ID,
			"user_id":      b.UserID,
			"session_code": in.SessionCode,
			"bet_number":   b.BetNumber,
			"win_number":   winNum,
			"bet_result":   betResult,
			"payout":       payout,
			"trace_id":     in.TraceID,
		}); err != nil {
			return err
		}
	}

	// 注单整体置为已结算
	if err := model.MarkSlipsSettled(ctx, tx, in.SessionCode); err != nil {
		return err
	}

	// 明确输出到控制台
	fmt.Printf("drawresult: session=%s win_number=%s\n", in.SessionCode, winNum)

	// 标记场次已结算并写入中奖号码
	if err := model.MarkSessionSettled(ctx, tx, in.SessionCode, winNum); err != nil {
		return err
	}

	// 更新结算日志的统计信息（写入数据库）
	if err := model.UpdateSettlementStats(ctx, tx, in.SessionCode, len(bets), totalPayout); err != nil {
		fmt.Printf("[DrawResult] 更新结算日志统计失败: session=%s, error=%v, trace_id=%s\n",
			in.SessionCode, err, in.TraceID)
		return err
	}

	// 审计事件 - result_declared（开奖结算）
	auditPayload := map[string]any{
		"win_number":   winNum,
		"break_group":  breakGroup(winNum),
		"total_bets":   len(bets),
		"total_payout": totalPayout,
	}
	// 事件类型 3 = result_declared
	aud := &model.SessionEventAudit{
		SessionCode: in.SessionCode,
		EventType:   3,
		PrevState:   "closed",
		NextState:   "settled",
		Operator:    in.Operator,
		Source:      "api",
		Payload:     toJSON(auditPayload),
		TraceID:     in.TraceID,
	}
	if err := aud.Insert(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[DrawResult] 提交事务失败: session=%s, error=%v, trace_id=%s\n",
			in.SessionCode, err, in.TraceID)
		return err
	}

	// 将开奖结果写入 Redis，便于后续查询/回放
	if r := infrds.Client(); r != nil {
		val := map[string]any{
			"session_code": in.SessionCode,
			"win_number":   winNum,
			"break_group":  breakGroup(winNum),
			"status":       4, // settled
			"is_settled":   1,
			"total_bets":   len(bets),
			"total_payout": totalPayout,
		}
		if b, e := json.Marshal(val); e == nil {
			fmt.Printf("[DrawResult]  写入 Redis 缓存: key=%s, ttl=2m, session=%s, trace_id=%s\n",
				infrds.SessionResultKey(in.SessionCode), in.SessionCode, in.TraceID)
			_ = r.Set(ctx, infrds.SessionResultKey(in.SessionCode), b, 2*time.Minute).Err()
		}
	}

	resultLabel = "success"
	fmt.Printf("[DrawResult] 开奖处理完成: session=%s, win_number=%s, current_state=settled(4), total_bets=%d, total_payout=%.2f, trace_id=%s\n",
		in.SessionCode, winNum, len(bets), totalPayout, in.TraceID)
	return nil
}

// 计算派彩金额与结算结果
// 重要：下注时已经扣款，派彩金额是用户最终收到的金额
// 规则：
// 1. 选号与中奖号码完全一致（直中）-> 派彩 = 金额 × exact_multiplier
// 2. 选号是中奖号码的排列（组合中，排除直中）-> 派彩 = 金额 × perm_multiplier
// 3. 其他情况（未中）-> 派彩 = 0
//
// 示例（exact=500, perm=100）：
// - 投注 123 共 100，开奖 123 -> 派彩 = 100×500 = 50000
// - 投注 321 共 100，开奖 123 -> 派彩 = 100×100 = 10000
// - 投注 456 共 100，开奖 123 -> 派彩 = 0
// 返回值 betResult: 1=直中 2=组合中 3=未中
func settlePayout(b model.Bet, winNumber string, limit *model.ThreeDLimit) (float64, int8) {
	amtDec := decimal.NewFromFloat(b.Amount)

	// 情况1: 直中
	if b.BetNumber == winNumber {
		payout := amtDec.Mul(decimal.NewFromFloat(limit.ExactMultiplier)).Round(2)
		return payout.InexactFloat64(), 1
	}

	// 情况2: 组合中（同一组数字的不同排列）
	if isPermutation(b.BetNumber, winNumber) {
		payout := amtDec.Mul(decimal.NewFromFloat(limit.PermMultiplier)).Round(2)
		return payout.InexactFloat64(), 2
	}

	// 情况3: 未中
	return 0, 3
}

// settleAll 逐条判定全部明细，返回每条派彩、结算结果以及 decimal 累计的总派彩
// 每条明细只判定一次，后续按用户分组与 Outbox 写入均复用这里的结果
func settleAll(bets []model.Bet, winNumber string, limit *model.ThreeDLimit) ([]float64, []int8, decimal.Decimal) {
	payouts := make([]float64, len(bets))
	results := make([]int8, len(bets))
	total := decimal.Zero
	for i := range bets {
		payouts[i], results[i] = settlePayout(bets[i], winNumber, limit)
		total = total.Add(decimal.NewFromFloat(payouts[i]))
	}
	return payouts, results, total
}

// isPermutation 判断两个三位数字是否由同一组数字排列而成
// 完全相等的直中场合由调用方先行判断，此处只比较排序后的数字
func isPermutation(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	sa := []byte(a)
	sb := []byte(b)
	sort.Slice(sa, func(i, j int) bool { return sa[i] < sa[j] })
	sort.Slice(sb, func(i, j int) bool { return sb[i] < sb[j] })
	return string(sa) == string(sb)
}

func toJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

var (
	ErrBadRequest       = errors.New("bad request")
	ErrInvalidStateDraw = errors.New("draw not allowed in current state")
	ErrAlreadyDeclared  = errors.New("result already declared for session")
	ErrSessionNotFound  = errors.New("draw session not found")
)
