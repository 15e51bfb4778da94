package config

import (
	"sync/atomic"
)

// 当前生效配置的原子快照。启动时由 Set 写入一次，
// Nacos 热更新时整体替换，读取方拿到的永远是完整的一致快照。
var current atomic.Pointer[Config]

// SetCurrent 替换当前配置快照
func SetCurrent(c *Config) {
	current.Store(c)
}

// GetCurrent 返回当前配置快照，未初始化时为 nil
func GetCurrent() *Config {
	return current.Load()
}
