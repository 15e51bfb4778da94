package state

import "fmt"

// State 场次状态
const (
	StatePending = "pending" // 未开盘
	StateOpen    = "open"    // 下注中(session_open~session_close)
	StateClosed  = "closed"  // 已封盘(session_close)
	StateSettled = "settled" // 已结算(result_declared)
)

// Event 场次事件
const (
	EvtSessionOpen    = "session_open"
	EvtSessionClose   = "session_close"
	EvtResultDeclared = "result_declared"
)

// NextState 根据当前状态与事件计算下一个状态，非法转换报错
func NextState(cur, evt string) (string, error) {
	switch cur {
	case StatePending:
		if evt == EvtSessionOpen {
			return StateOpen, nil
		}
	case StateOpen:
		if evt == EvtSessionClose {
			return StateClosed, nil
		}
	case StateClosed:
		if evt == EvtResultDeclared {
			return StateSettled, nil
		}
	}
	return cur, fmt.Errorf("invalid transition: %s --%s--> ?", cur, evt)
}
