package redis

// Redis Key 定义与构造器
// 统一管理业务使用的 Redis Key，避免散落的魔法字符串，便于统一维护与变更。

const (
	// PrefixBetIdemResult：投注幂等“结果缓存”Key 的前缀。
	// 作用：缓存某个 idempotency key 对应的第一次成功结果（PlayOutput JSON），用于后续重复请求直接返回。
	PrefixBetIdemResult = "threed:bet:idem:result:"
	// PrefixBetIdemLock：投注幂等“进行中锁”Key 的前缀。
	// 作用：使用 SETNX + TTL 标记 idempotency key 正在处理，吸收瞬时重复请求，减轻数据库压力。
	PrefixBetIdemLock = "threed:bet:idem:lock:"

	// PrefixSessionInfo：场次信息缓存（开盘/封盘时间），用于前端倒计时等快速查询
	PrefixSessionInfo = "threed:session:"
	// PrefixSessionResult：开奖结果缓存
	PrefixSessionResult = "threed:result:"
)

// IdemResultKey：构造幂等“结果缓存”的完整 Key。
// 形如：threed:bet:idem:result:{idempotency_key}
func IdemResultKey(k string) string { return PrefixBetIdemResult + k }

// IdemLockKey：构造幂等“进行中锁”的完整 Key。
// 形如：threed:bet:idem:lock:{idempotency_key}
func IdemLockKey(k string) string { return PrefixBetIdemLock + k }

// SessionInfoKey：构造场次信息缓存 Key。形如：threed:session:{draw_session}
func SessionInfoKey(drawSession string) string { return PrefixSessionInfo + drawSession }

// SessionResultKey：构造开奖结果缓存 Key。形如：threed:result:{draw_session}
func SessionResultKey(drawSession string) string { return PrefixSessionResult + drawSession }
