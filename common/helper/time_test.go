package helper

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Yangon")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	got := ParseTime("2026-03-15 14:30:00", loc)
	if got.IsZero() {
		t.Fatal("valid datetime parsed as zero")
	}
	if got.Hour() != 14 || got.Minute() != 30 {
		t.Fatalf("got %v, want 14:30", got)
	}
	if got.Location() != loc {
		t.Fatalf("parsed in %v, want %v", got.Location(), loc)
	}

	// 只传日期补 00:00:00
	d := ParseTime("2026-03-15", loc)
	if d.Hour() != 0 || d.Day() != 15 {
		t.Fatalf("date-only parse got %v", d)
	}

	if !ParseTime("not-a-date", loc).IsZero() {
		t.Fatal("garbage input did not return zero time")
	}
	if !ParseTime("  ", loc).IsZero() {
		t.Fatal("blank input did not return zero time")
	}
}

func TestParseTimeRange(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Yangon")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	start, end := ParseTimeRange("2026-03-01", "2026-03-02", loc)
	if start >= end {
		t.Fatalf("start %d not before end %d", start, end)
	}
	// 只传日期时结束补到当天末尾
	if end-start != 2*86400-1 {
		t.Fatalf("range = %d seconds, want %d", end-start, 2*86400-1)
	}

	// 缺省区间：3 天前到当前
	start, end = ParseTimeRange("", "", loc)
	now := time.Now().Unix()
	if end < now-5 || end > now+5 {
		t.Fatalf("default end %d not near now %d", end, now)
	}
	if end-start < 71*3600 || end-start > 73*3600 {
		t.Fatalf("default span = %d seconds, want about 72h", end-start)
	}
}
