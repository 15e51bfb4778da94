package common

import (
	"time"
)

// 业务时区：开盘/封盘/开奖时间全部按仰光时间计算
var yangonLoc = mustLoadYangon()

func mustLoadYangon() *time.Location {
	loc, err := time.LoadLocation("Asia/Yangon")
	if err != nil {
		// 容器镜像缺 tzdata 时退化为固定偏移 UTC+6:30
		return time.FixedZone("Asia/Yangon", int((6*time.Hour + 30*time.Minute).Seconds()))
	}
	return loc
}

// BizLocation 返回业务时区
func BizLocation() *time.Location {
	return yangonLoc
}

// NowBiz 返回业务时区的当前时间
func NowBiz() time.Time {
	return time.Now().In(yangonLoc)
}

// 获取当天 00:00:00 和 第二天 00:00:00
func GetTodayRange(t time.Time) (start, end int64) {
	year, month, day := t.In(yangonLoc).Date()

	startTime := time.Date(year, month, day, 0, 0, 0, 0, yangonLoc)
	endTime := startTime.AddDate(0, 0, 1) // +1 天

	return startTime.Unix(), endTime.Unix()
}

// 获取当月第一天 00:00:00 和 下个月第一天 00:00:00
func GetMonthRange(t time.Time) (start, end int64) {
	t = t.In(yangonLoc)

	year, month, _ := t.Date()
	// 月初
	firstDay := time.Date(year, month, 1, 0, 0, 0, 0, yangonLoc)
	// 下个月月初
	nextMonth := firstDay.AddDate(0, 1, 0)

	return firstDay.Unix(), nextMonth.Unix()
}
