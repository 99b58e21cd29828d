package utils

import (
	"time"
)

// ParseClock 解析时间字符串（格式：HH:MM）并应用到指定日期
func ParseClock(timeStr string, date time.Time) (time.Time, error) {
	parsedTime, err := time.Parse("15:04", timeStr)
	if err != nil {
		return date, err
	}

	return time.Date(
		date.Year(),
		date.Month(),
		date.Day(),
		parsedTime.Hour(),
		parsedTime.Minute(),
		0,
		0,
		date.Location(),
	), nil
}

// ValidClock 校验 HH:MM 格式
func ValidClock(timeStr string) bool {
	_, err := time.Parse("15:04", timeStr)
	return err == nil
}
