package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"threed-server/common/constant"
	"threed-server/common/helper"
	infmysql "threed-server/internal/infra/mysql"
	infrds "threed-server/internal/infra/redis"
	"threed-server/internal/metrics"
	"threed-server/internal/model"
	"threed-server/internal/state"

	mysqlerr "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	decimal "github.com/shopspring/decimal"
)

// 处理投注业务逻辑
const (
	// 币种固定为缅甸元
	CurrencyMMK = "MMK"
)

// Selection 单条选号
type Selection struct {
	Number string // 三位数字
	Amount string // 金额字符串，API 层不做精度转换
}

// PlayInput 输入参数
// 所有字段均为必填
type PlayInput struct {
	Username       string
	UserID         int64 // JWT 解析出的内部用户ID，0 表示按用户名自动注册
	SessionCode    string
	TotalAmount    string
	Selections     []Selection
	IdempotencyKey string
	TraceID        string
}

type PlayOutput struct {
	SlipNumber     string
	RemainAmount   string // 剩余金额
	PotentialTotal string // 潜在派彩合计
}

type PlayService interface {
	PlaceSlip(ctx context.Context, in PlayInput) (*PlayOutput, error)
}

type playService struct{}

func NewPlayService() PlayService { return &playService{} }

const (
	// Redis 进行中锁 TTL：建议小于最短投注窗口，避免长时间阻塞重复请求
	idemLockTTL = 45 * time.Second
	// 结果缓存 TTL：用于重复请求直接返回第一次成功结果；应覆盖到大多数“短时重试”窗口
	idemResultTTL = 1 * time.Minute
)

// 默认事务超时时间，防止长事务占用资源影响并发（若上游已有 deadline，则沿用上游）
const defaultTxTimeout = 3 * time.Second

// 注单号生成重试次数与抖动上限（毫秒）
const (
	slipSeqRetries   = 3
	slipSeqJitterMax = 50
)

// 单笔注单最大选号数
const maxSelections = 100

// Redis key 构造见 internal/infra/redis/keys.go
var (
	ErrDuplicateInFlight = errors.New("duplicate request in flight")
	ErrInvalidStateBet   = errors.New("bet not allowed in current state")
	ErrBetWindowClosed   = errors.New("bet window closed")
	ErrAmountMismatch    = errors.New("total amount does not match sum of selections")
	ErrUserNotFound      = errors.New("user not found")
)

// RejectedNumber 未通过准入校验的号码及原因
type RejectedNumber struct {
	Number string `json:"number"`
	Reason string `json:"reason"` // closed|below_min|above_max|over_exposure|over_personal_limit
}

// OverLimitError 准入校验失败：整单拒绝，携带全部未通过的号码
// 校验不短路，调用方可一次性告知用户所有问题号码
type OverLimitError struct {
	Rejected []RejectedNumber
}

func (e *OverLimitError) Error() string {
	nums := make([]string, 0, len(e.Rejected))
	for _, r := range e.Rejected {
		nums = append(nums, r.Number)
	}
	return fmt.Sprintf("numbers rejected: %s", strings.Join(nums, ","))
}

// parsedSelection 解析后的选号明细
type parsedSelection struct {
	Number string
	Amount decimal.Decimal
}

// PlaceSlip 处理下注主流程
func (s *playService) PlaceSlip(ctx context.Context, in PlayInput) (*PlayOutput, error) {

	start := time.Now()
	result := "fail"
	defer func() { metrics.RecordBet(result, len(in.Selections), start) }()

	// ========== 投注金额解析和验证==========
	// 1. 逐条解析选号与金额
	// 2. 验证号码为三位数字、金额为正数
	// 3. 验证明细合计与 total_amount 一致
	// ================================================

	if len(in.Selections) == 0 {
		return nil, errors.New("selections required")
	}
	if len(in.Selections) > maxSelections {
		return nil, fmt.Errorf("too many selections: max %d", maxSelections)
	}

	totalDec, err := decimal.NewFromString(strings.TrimSpace(in.TotalAmount))
	if err != nil {
		fmt.Printf("[Play]  无效的总金额格式: total_amount=%s, error=%v, trace_id=%s\n",
			in.TotalAmount, err, in.TraceID)
		return nil, errors.New("invalid total amount format")
	}
	if totalDec.LessThanOrEqual(decimal.Zero) {
		fmt.Printf("[Play]  总金额必须大于0: total_amount=%s, trace_id=%s\n",
			in.TotalAmount, in.TraceID)
		return nil, errors.New("total amount must be positive")
	}

	parsed := make([]parsedSelection, 0, len(in.Selections))
	sumDec := decimal.Zero
	seen := make(map[string]struct{}, len(in.Selections))
	for _, sel := range in.Selections {
		num := strings.TrimSpace(sel.Number)
		if len(num) != 3 || !helper.CtypeDigit(num) {
			fmt.Printf("[Play]  无效的选号: number=%s, trace_id=%s\n", num, in.TraceID)
			return nil, fmt.Errorf("invalid number: %s", num)
		}
		if _, dup := seen[num]; dup {
			fmt.Printf("[Play]  重复选号: number=%s, trace_id=%s\n", num, in.TraceID)
			return nil, fmt.Errorf("duplicate number: %s", num)
		}
		seen[num] = struct{}{}

		amt, err := decimal.NewFromString(strings.TrimSpace(sel.Amount))
		if err != nil {
			fmt.Printf("[Play]  无效的选号金额: number=%s, amount=%s, trace_id=%s\n",
				num, sel.Amount, in.TraceID)
			return nil, fmt.Errorf("invalid amount for number %s", num)
		}
		if amt.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("amount must be positive for number %s", num)
		}
		sumDec = sumDec.Add(amt)
		parsed = append(parsed, parsedSelection{Number: num, Amount: amt})
	}
	// 明细合计与 total_amount 的一致性在事务内、场次门槛之后比对

	// 打印接收到的投注请求
	fmt.Printf("[Play]  收到投注请求: session=%s, username=%s, total=%s, selections=%d, idem_key=%s, trace_id=%s\n",
		in.SessionCode, in.Username, in.TotalAmount, len(in.Selections), in.IdempotencyKey, in.TraceID)

	// Redis 快路径：若已有结果缓存，直接返回
	if r := infrds.Client(); r != nil {
		if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
			var out PlayOutput
			if json.Unmarshal(bs, &out) == nil {
				fmt.Printf("[Play]  Redis 缓存命中: idem_key=%s, slip_number=%s, trace_id=%s\n",
					in.IdempotencyKey, out.SlipNumber, in.TraceID)
				return &out, nil
			}
		}
		// ========== 分布式锁实现==========
		// 1. 生成唯一锁值（UUID）防止误删其他请求的锁
		// 2. 使用 SetNX 获取锁
		// 3. 使用 Lua 脚本原子释放（仅当锁值匹配时删除）
		// ================================================

		// 生成唯一锁值，防止误删其他请求的锁
		lockValue := uuid.New().String()
		lockKey := infrds.IdemLockKey(in.IdempotencyKey)

		// 进行中锁，吸收瞬时重复
		ok, _ := r.SetNX(ctx, lockKey, lockValue, idemLockTTL).Result()
		if !ok {
			// 检查是否有缓存的结果
			if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
				var out PlayOutput
				if json.Unmarshal(bs, &out) == nil {
					fmt.Printf("[Play] Redis 缓存命中（重复请求）: idem_key=%s, slip_number=%s, trace_id=%s\n",
						in.IdempotencyKey, out.SlipNumber, in.TraceID)
					return &out, nil
				}
			}
			fmt.Printf("[Play]  重复请求进行中: idem_key=%s, trace_id=%s\n",
				in.IdempotencyKey, in.TraceID)
			return nil, ErrDuplicateInFlight
		}

		// 使用 Lua 脚本原子释放锁（仅当锁值匹配时删除）
		defer func() {
			script := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("del", KEYS[1])
				else
					return 0
				end
			`
			result, err := r.Eval(ctx, script, []string{lockKey}, lockValue).Result()
			if err != nil {
				fmt.Printf("[Play] 释放分布式锁失败: idem_key=%s, error=%v, trace_id=%s\n",
					in.IdempotencyKey, err, in.TraceID)
			} else if result == int64(0) {
				fmt.Printf("[Play] 分布式锁已被其他请求释放或过期: idem_key=%s, trace_id=%s\n",
					in.IdempotencyKey, in.TraceID)
			}
		}()
	}

	// 开启 MySQL 事务（带默认超时，防止长事务影响并发）。
	// 若上游 ctx 已设置 deadline，则沿用；否则使用默认 defaultTxTimeout。
	txCtx := ctx
	if _, has := ctx.Deadline(); !has {
		c, cancel := context.WithTimeout(ctx, defaultTxTimeout)
		txCtx = c
		defer cancel()
	}
	tx, err := infmysql.SQLX().BeginTxx(txCtx, nil)
	if err != nil {
		fmt.Printf("[Play] 开启事务失败: error=%v, session=%s, trace_id=%s\n",
			err, in.SessionCode, in.TraceID)
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// ========== 准入前置校验：按固定顺序逐关检查，先到先拒 ==========
	// 用户 -> 时间窗口 -> 场次状态 -> 金额合计 -> 限额配置 -> 余额 -> 逐号限额
	// ================================================

	// 加锁读取用户（投注前必须先注册登录）
	user, err := getUserForUpdateInTx(txCtx, tx, in.UserID, in.Username)
	if err != nil {
		fmt.Printf("[Play] 查询用户失败: error=%v, username=%s, trace_id=%s\n",
			err, in.Username, in.TraceID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Status != constant.StatusNormal {
		fmt.Printf("[Play]  用户状态异常: user_id=%d, status=%d, trace_id=%s\n",
			user.ID, user.Status, in.TraceID)
		return nil, errors.New("user disabled")
	}

	// 获取场次信息并锁定
	ses, err := model.GetSessionForUpdate(txCtx, tx, in.SessionCode)
	if err != nil {
		fmt.Printf("[Play]  查询场次失败: error=%v, session=%s, trace_id=%s\n",
			err, in.SessionCode, in.TraceID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session info: %w", err)
	}

	// 验证时间窗口：封盘时间一到立即拒绝
	now := time.Now().UnixMilli()
	if now >= ses.CloseTime {
		fmt.Printf("[Play] 投注窗口已关闭: now=%d, close_time=%d, session=%s, trace_id=%s\n",
			now, ses.CloseTime, in.SessionCode, in.TraceID)
		return nil, ErrBetWindowClosed
	}

	// 校验场次状态：仅在 open 状态允许下注
	currentState := codeToState(ses.Status)
	if currentState != state.StateOpen {
		fmt.Printf("[Play]  场次状态不允许投注: current_state=%s(%d), expected=open(2), session=%s, trace_id=%s\n",
			currentState, ses.Status, in.SessionCode, in.TraceID)
		return nil, ErrInvalidStateBet
	}

	// 明细合计必须与 total_amount 一致
	if !sumDec.Equal(totalDec) {
		fmt.Printf("[Play]  明细合计与总金额不一致: sum=%s, total=%s, trace_id=%s\n",
			sumDec.String(), totalDec.String(), in.TraceID)
		return nil, ErrAmountMismatch
	}

	// 获取启用中的限额配置
	limit, err := model.GetActiveLimit(txCtx, tx)
	if err != nil {
		fmt.Printf("[Play]  查询限额配置失败: error=%v, trace_id=%s\n", err, in.TraceID)
		return nil, fmt.Errorf("failed to get limit config: %w", err)
	}

	// 校验余额（decimal 比较）
	if decimal.NewFromFloat(user.Balance).Cmp(totalDec) < 0 {
		return nil, errors.New("insufficient balance")
	}

	// 关闭号码集合
	closedSet, err := model.ClosedNumberSet(txCtx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to get closed numbers: %w", err)
	}

	// ========== 逐号准入校验：逐条检查但不短路 ==========
	// 收集全部未通过的号码，任一未通过则整单拒绝（all-or-nothing）
	// 检查顺序：关闭号码 -> 单注范围 -> 全场敞口 -> 个人限额
	// ================================================
	rejected := checkSelections(txCtx, tx, user, limit, closedSet, in.SessionCode, parsed)
	if len(rejected) > 0 {
		fmt.Printf("[Play] 准入校验未通过: session=%s, username=%s, rejected=%d, trace_id=%s\n",
			in.SessionCode, in.Username, len(rejected), in.TraceID)
		return nil, &OverLimitError{Rejected: rejected}
	}

	// 生成注单号（行锁计数器，带抖动重试）
	slipNumber, err := generateSlipNumber(txCtx, tx)
	if err != nil {
		fmt.Printf("[Play]  生成注单号失败: error=%v, trace_id=%s\n", err, in.TraceID)
		return nil, fmt.Errorf("failed to generate slip number: %w", err)
	}

	// 幂等：先占幂等键，ref 记录 slip_number
	if err := (&model.IdempotencyKey{IdempotencyKey: in.IdempotencyKey, Purpose: "bet", Ref: slipNumber}).Insert(ctx, tx); err != nil {
		// 若幂等冲突：尝试返回上次结果
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			fmt.Printf("[Play]  幂等键冲突，尝试返回上次结果: idem_key=%s, trace_id=%s\n",
				in.IdempotencyKey, in.TraceID)
			_ = tx.Rollback()
			// Redis 先查
			if r := infrds.Client(); r != nil {
				if bs, _ := r.Get(ctx, infrds.IdemResultKey(in.IdempotencyKey)).Bytes(); len(bs) > 0 {
					var out PlayOutput
					if json.Unmarshal(bs, &out) == nil {
						fmt.Printf("[Play]  从 Redis 返回上次结果: slip_number=%s, trace_id=%s\n",
							out.SlipNumber, in.TraceID)
						return &out, nil
					}
				}
			}
			// DB 回源：根据幂等键查 slip_number，再查用户余额
			ref, e1 := model.SelectRefByIdemKey(txCtx, infmysql.SQLX(), in.IdempotencyKey)
			if e1 == nil && ref != "" {
				u, e2 := model.GetUserByUsername(txCtx, infmysql.SQLX(), in.Username)
				if e2 == nil {
					fmt.Printf("[Play]  从数据库返回上次结果: slip_number=%s, trace_id=%s\n",
						ref, in.TraceID)
					return &PlayOutput{SlipNumber: ref, RemainAmount: helper.TrimDecimal(decimal.NewFromFloat(u.Balance))}, nil
				}
			}
		}
		fmt.Printf("[Play]  插入幂等键失败: error=%v, idem_key=%s, trace_id=%s\n",
			err, in.IdempotencyKey, in.TraceID)
		return nil, fmt.Errorf("idempotency conflict or insert failed: %w", err)
	}

	beforeDec := decimal.NewFromFloat(user.Balance)
	afterDec := beforeDec.Sub(totalDec)

	// 更新余额（两位小数）
	if err := model.UpdateUserBalance(txCtx, tx, user.ID, afterDec.Round(2).InexactFloat64()); err != nil {
		return nil, err
	}

	// 写账本，此处为扣款
	ledger := &model.WalletLedger{
		UserID:       user.ID,
		BizType:      constant.BalanceChangeBetPlace, //1
		BizTypeStr:   "bet",                          // 冗余
		Amount:       totalDec.Round(2).InexactFloat64(),
		BeforeAmount: beforeDec.Round(2).InexactFloat64(),
		AfterAmount:  afterDec.Round(2).InexactFloat64(),
		Currency:     CurrencyMMK,
		SlipNumber:   slipNumber,
		SessionCode:  in.SessionCode,
		Remark:       constant.GetBalanceChangeTypeDesc(constant.BalanceChangeBetPlace),
		TraceID:      in.TraceID,
	}
	if err := ledger.Insert(txCtx, tx); err != nil {
		fmt.Printf("[Play]  写入账本失败: error=%v, slip_number=%s, trace_id=%s\n",
			err, slipNumber, in.TraceID)
		return nil, err
	}

	// 潜在派彩按下注时启用的基础赔率锁定
	potentialDec := totalDec.Mul(decimal.NewFromFloat(limit.PayoutMultiplier))

	// 落注单（status:1待结算）
	slip := &model.BetSlip{
		SlipNumber:     slipNumber,
		UserID:         user.ID,
		UserName:       user.Username,
		SessionCode:    in.SessionCode,
		TotalAmount:    totalDec.Round(2).InexactFloat64(),
		PotentialTotal: potentialDec.Round(2).InexactFloat64(),
		BeforeBalance:  beforeDec.Round(2).InexactFloat64(),
		AfterBalance:   afterDec.Round(2).InexactFloat64(),
		Status:         1,
		Currency:       CurrencyMMK,
		IdempotencyKey: in.IdempotencyKey,
		TraceID:        in.TraceID,
	}
	if err := slip.Insert(txCtx, tx); err != nil {
		fmt.Printf("[Play]  创建注单失败: error=%v, slip_number=%s, trace_id=%s\n",
			err, slipNumber, in.TraceID)
		return nil, err
	}

	// 落选号明细
	bets := make([]model.Bet, 0, len(parsed))
	for _, p := range parsed {
		bets = append(bets, model.Bet{
			SlipID:          slip.ID,
			SlipNumber:      slipNumber,
			UserID:          user.ID,
			SessionCode:     in.SessionCode,
			BetNumber:       p.Number,
			BreakGroup:      breakGroup(p.Number),
			Amount:          p.Amount.Round(2).InexactFloat64(),
			PotentialPayout: p.Amount.Mul(decimal.NewFromFloat(limit.PayoutMultiplier)).Round(2).InexactFloat64(),
			TraceID:         in.TraceID,
		})
	}
	if err := model.InsertBets(txCtx, tx, bets); err != nil {
		fmt.Printf("[Play]  创建选号明细失败: error=%v, slip_number=%s, trace_id=%s\n",
			err, slipNumber, in.TraceID)
		return nil, err
	}

	// Outbox 消息（异步）
	payload := map[string]any{
		"event":        "bet_placed",
		"slip_number":  slipNumber,
		"user_id":      user.ID,
		"session_code": in.SessionCode,
		"total_amount": totalDec.Round(2).InexactFloat64(),
	}
	if err := model.CreateOutbox(txCtx, tx, "threed_bet_placed", slipNumber, payload); err != nil {
		fmt.Printf("[Play]  写入 Outbox 失败: error=%v, slip_number=%s, trace_id=%s\n",
			err, slipNumber, in.TraceID)
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		fmt.Printf("[Play]  提交事务失败: error=%v, slip_number=%s, trace_id=%s\n",
			err, slipNumber, in.TraceID)
		return nil, err
	}

	result = "success"
	out := &PlayOutput{
		SlipNumber:     slipNumber,
		RemainAmount:   helper.TrimDecimal(afterDec),
		PotentialTotal: helper.TrimDecimal(potentialDec),
	}

	// 写入 Redis 结果缓存（降级容错）
	if r := infrds.Client(); r != nil {
		if b, e := json.Marshal(out); e == nil {
			_ = r.Set(ctx, infrds.IdemResultKey(in.IdempotencyKey), b, idemResultTTL).Err()
		}
	}

	return out, nil
}

// checkSelections 逐条准入校验，收集全部未通过的号码（不短路）
// 全场敞口使用 FOR UPDATE 锁定相关行，防止并发下注绕过限额
func checkSelections(ctx context.Context, tx *sqlx.Tx, user *model.Customers, limit *model.ThreeDLimit,
	closedSet map[string]struct{}, sessionCode string, parsed []parsedSelection) []RejectedNumber {

	minDec := decimal.NewFromFloat(limit.MinAmount)
	maxDec := decimal.NewFromFloat(limit.MaxAmount)
	maxTotalDec := decimal.NewFromFloat(limit.MaxTotal)
	personalDec := decimal.NewFromFloat(user.Limit3)

	var rejected []RejectedNumber
	for _, p := range parsed {
		// 1. 号码是否关闭
		if _, closed := closedSet[p.Number]; closed {
			rejected = append(rejected, RejectedNumber{Number: p.Number, Reason: "closed"})
			continue
		}

		// 2. 单注金额范围
		if p.Amount.LessThan(minDec) {
			rejected = append(rejected, RejectedNumber{Number: p.Number, Reason: "below_min"})
			continue
		}
		if p.Amount.GreaterThan(maxDec) {
			rejected = append(rejected, RejectedNumber{Number: p.Number, Reason: "above_max"})
			continue
		}

		// 3. 全场敞口（加锁统计，含本次金额）
		sessionSum, err := model.SumSessionNumberForUpdate(ctx, tx, sessionCode, p.Number)
		if err != nil {
			// 查询失败按拒绝处理，避免放大敞口
			rejected = append(rejected, RejectedNumber{Number: p.Number, Reason: "over_exposure"})
			continue
		}
		if decimal.NewFromFloat(sessionSum).Add(p.Amount).GreaterThan(maxTotalDec) {
			rejected = append(rejected, RejectedNumber{Number: p.Number, Reason: "over_exposure"})
			continue
		}

		// 4. 个人限额（limit3=0 表示不限制）
		if user.Limit3 > 0 {
			userSum, err := model.SumUserSessionNumber(ctx, tx, user.ID, sessionCode, p.Number)
			if err != nil {
				rejected = append(rejected, RejectedNumber{Number: p.Number, Reason: "over_personal_limit"})
				continue
			}
			if decimal.NewFromFloat(userSum).Add(p.Amount).GreaterThan(personalDec) {
				rejected = append(rejected, RejectedNumber{Number: p.Number, Reason: "over_personal_limit"})
			}
		}
	}
	return rejected
}

// breakGroup 计算三位数字之和（0~27），入库冗余便于分组统计
func breakGroup(number string) int8 {
	var sum int8
	for _, c := range number {
		sum += int8(c - '0')
	}
	return sum
}

// generateSlipNumber 生成可读的注单号
// 格式：{序列号6位}-mk-3d-{日期}-{时间}
// 示例：000123-mk-3d-2026-03-16-10:21:05
// 序列号来自行锁计数器；锁等待失败时做短暂抖动重试
func generateSlipNumber(ctx context.Context, tx *sqlx.Tx) (string, error) {
	var seq int64
	var err error
	for i := 0; i < slipSeqRetries; i++ {
		seq, err = model.NextSlipSeq(ctx, tx)
		if err == nil {
			break
		}
		// 抖动后重试，降低热点行争用
		time.Sleep(time.Duration(helper.GenerateRandNum(1, slipSeqJitterMax)) * time.Millisecond)
	}
	if err != nil {
		return "", err
	}

	ts := time.Now().Unix()
	return fmt.Sprintf("%06d-mk-3d-%s-%s", seq,
		helper.TimeToStrByLayout(ts, "2006-01-02"), helper.TimeToStrByLayout(ts, "15:04:05")), nil
}

// getUserForUpdateInTx 在事务中按内部ID或用户名加锁读取用户
// 投注必须先注册登录，ErrNoRows 向上抛给调用方处理
func getUserForUpdateInTx(ctx context.Context, tx *sqlx.Tx, userID int64, username string) (*model.Customers, error) {
	if userID > 0 {
		return model.GetUserByIDForUpdate(ctx, tx, userID)
	}

	query := `SELECT user_id, username, balance, limit3, status, created_at, updated_at
	          FROM customers WHERE username = ? FOR UPDATE`
	var user model.Customers
	if err := tx.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}
