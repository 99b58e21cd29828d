package service

import (
	"sort"
	"time"

	pkgerrors "PillSync/pkg/errors"
	"PillSync/internal/model"
	"PillSync/utils"
)

// 周期推进规则：
//   daily           下一天同一时刻
//   alternate_days  隔天服药，以上一次排程时刻为锚点 +2 天，漏服补跨也按 2 天步进，保持奇偶性
//   custom          每周指定的星期几（0=周日），取严格大于当前星期的最小值，否则绕回最小值

// InitialOccurrence 计算新建提醒的首次服药时刻：
// 若今天的 scheduledTime 还没过则排今天，否则从今天起按频率找下一个有效日。
func InitialOccurrence(freq model.ReminderFrequency, customDays model.IntList, scheduledTime string, now time.Time) (time.Time, error) {
	base, err := utils.ParseClock(scheduledTime, now)
	if err != nil {
		return time.Time{}, pkgerrors.ReminderTimeInvalid
	}

	switch freq {
	case model.FrequencyDaily, model.FrequencyAlternateDays:
		// alternate_days 的锚点就是首次 occurrence，之后每次 +2 天
		if base.After(now) {
			return base, nil
		}
		return base.AddDate(0, 0, 1), nil

	case model.FrequencyCustom:
		if len(customDays) == 0 {
			return time.Time{}, pkgerrors.ReminderCustomDaysEmpty
		}

		today := int(now.Weekday())
		if containsDay(customDays, today) && base.After(now) {
			return base, nil
		}
		return base.AddDate(0, 0, daysUntilNext(customDays, today)), nil

	default:
		return time.Time{}, pkgerrors.ReminderFrequencyInvalid
	}
}

// Advance 从当前排程时刻步进到下一次，并保证结果在 now 之后。
// 停机或长时间漏扫后按同样的步长滚动补跨，不会落在过去。
func Advance(freq model.ReminderFrequency, customDays model.IntList, current time.Time, now time.Time) (time.Time, error) {
	next := current

	for {
		switch freq {
		case model.FrequencyDaily:
			next = next.AddDate(0, 0, 1)
		case model.FrequencyAlternateDays:
			next = next.AddDate(0, 0, 2)
		case model.FrequencyCustom:
			if len(customDays) == 0 {
				return time.Time{}, pkgerrors.ReminderCustomDaysEmpty
			}
			next = next.AddDate(0, 0, daysUntilNext(customDays, int(next.Weekday())))
		default:
			return time.Time{}, pkgerrors.ReminderFrequencyInvalid
		}

		if next.After(now) {
			return next, nil
		}
	}
}

func containsDay(days model.IntList, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// daysUntilNext 返回从 weekday 到集合中下一个星期几的天数（1~7）。
// 取严格大于当前值的最小元素，不存在则绕回到集合最小值。
func daysUntilNext(days model.IntList, weekday int) int {
	sorted := make([]int, len(days))
	copy(sorted, days)
	sort.Ints(sorted)

	for _, d := range sorted {
		if d > weekday {
			return d - weekday
		}
	}

	// 绕回下一周
	return sorted[0] - weekday + 7
}
