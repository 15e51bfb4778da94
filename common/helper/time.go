package helper

import (
	"log"
	"strings"
	"time"
)

// Unix 时间戳转为日期时间格式
func TimeUnixToStr(t int64) string {
	return time.Unix(t, 0).Format("2006-01-02 15:04:05")
}

func TimeToStrByLayout(t int64, layout string) string {
	return time.Unix(t, 0).Format(layout)
}

// ParseTime 按给定时区解析日期或日期时间，失败返回零值
// 场次与报表都以业务时区为准，调用方传入业务时区
func ParseTime(value string, loc *time.Location) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}

	layout := "2006-01-02 15:04:05"
	if len(value) == 10 { // 只有日期
		value += " 00:00:00"
	}
	t, err := time.ParseInLocation(layout, value, loc)
	if err != nil {
		log.Printf("[WARN] time parse failed: %s, err: %v", value, err)
		return time.Time{}
	}
	return t
}

// ParseTimeRange 统一时间范围解析，返回秒级时间戳
// 起始缺省为 3 天前，结束缺省为当前时间；只传日期时结束补到当天末尾
func ParseTimeRange(startStr, endStr string, loc *time.Location) (int64, int64) {
	now := time.Now()
	var startTime, endTime time.Time

	if startStr != "" {
		startTime = ParseTime(startStr, loc)
	} else {
		startTime = now.Add(-72 * time.Hour)
	}

	if endStr != "" {
		endTime = ParseTime(endStr, loc)
		if len(strings.TrimSpace(endStr)) == 10 {
			endTime = endTime.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		}
	} else {
		endTime = now
	}

	return startTime.Unix(), endTime.Unix()
}
