package helper

import (
	"time"

	"golang.org/x/exp/rand"
)

func init() {
	rand.Seed(uint64(time.Now().UnixNano()))
}

// GenerateRandNum 返回 [min, max) 范围内的随机整数
// 并发安全：全局随机源自带锁
func GenerateRandNum(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min)
}
