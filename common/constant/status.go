package constant

// user status
const (
	StatusNormal  = 1 // 状态：正常
	StatusDeleted = 2 // 状态：已删除
)

// user 业务
const (
	UserBaned       = 2 //禁止登录
	UserNotAllowBet = 3 //禁止下注
)
