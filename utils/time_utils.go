package utils

import (
	"time"

	"github.com/araddon/dateparse"
)

const (
	// DisplayDateLayout 例如 October 17, 2026
	DisplayDateLayout = "January 2, 2006"
	// DisplayTimeLayout 例如 3:04:05 PM
	DisplayTimeLayout = "3:04:05 PM"
	// ISODateLayout 例如 2026-10-17
	ISODateLayout = "2006-01-02"
)

// FormatDisplayDate 轉為店家時區的顯示日期
func FormatDisplayDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DisplayDateLayout)
}

// FormatDisplayTime 轉為店家時區的 12 小時制時間
func FormatDisplayTime(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DisplayTimeLayout)
}

// FormatISODate 轉為店家時區的 YYYY-MM-DD
func FormatISODate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(ISODateLayout)
}

// ParseISODate 解析 YYYY-MM-DD 為店家時區當天 00:00
func ParseISODate(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(ISODateLayout, value, loc)
}

// ParseLegacyDateTime 解析舊資料的「日期 + 時間」自然語言字串，例如 "October 17, 2026 3:04:05 PM"
func ParseLegacyDateTime(date, clock string, loc *time.Location) (time.Time, error) {
	return dateparse.ParseIn(date+" "+clock, loc)
}

// ToUnixMilli 轉為 Unix 毫秒
func ToUnixMilli(t time.Time) int64 {
	return t.UnixMilli()
}
