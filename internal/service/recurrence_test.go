package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PillSync/internal/model"
	pkgerrors "PillSync/pkg/errors"
)

// 2025-06-02 是周一
var monday = time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)

func TestInitialOccurrenceDaily(t *testing.T) {
	// 今天的时刻还没过，排今天
	next, err := InitialOccurrence(model.FrequencyDaily, nil, "09:00", monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), next)

	// 今天的时刻已过，排明天
	next, err = InitialOccurrence(model.FrequencyDaily, nil, "07:30", monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 3, 7, 30, 0, 0, time.UTC), next)
}

func TestInitialOccurrenceAlternateDays(t *testing.T) {
	// 隔天频率的首次 occurrence 和 daily 一致，作为后续 +2 天的锚点
	next, err := InitialOccurrence(model.FrequencyAlternateDays, nil, "09:00", monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), next)
}

func TestInitialOccurrenceCustom(t *testing.T) {
	days := model.IntList{1, 4} // 周一、周四

	// 今天（周一）在集合里且时刻未过
	next, err := InitialOccurrence(model.FrequencyCustom, days, "09:00", monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), next)

	// 今天在集合里但时刻已过，跳到周四
	next, err = InitialOccurrence(model.FrequencyCustom, days, "07:00", monday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 5, 7, 0, 0, 0, time.UTC), next)

	// 周五出发绕回下周一
	friday := time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC)
	next, err = InitialOccurrence(model.FrequencyCustom, days, "09:00", friday)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC), next)
}

func TestInitialOccurrenceValidation(t *testing.T) {
	_, err := InitialOccurrence(model.FrequencyDaily, nil, "25:99", monday)
	assert.ErrorIs(t, err, pkgerrors.ReminderTimeInvalid)

	_, err = InitialOccurrence(model.FrequencyCustom, nil, "09:00", monday)
	assert.ErrorIs(t, err, pkgerrors.ReminderCustomDaysEmpty)

	_, err = InitialOccurrence("weekly", nil, "09:00", monday)
	assert.ErrorIs(t, err, pkgerrors.ReminderFrequencyInvalid)
}

func TestAdvanceDailyCatchesUpAfterDowntime(t *testing.T) {
	current := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 5, 10, 0, 0, 0, time.UTC) // 三天没扫

	next, err := Advance(model.FrequencyDaily, nil, current, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC), next)
}

func TestAdvanceAlternateDaysKeepsParity(t *testing.T) {
	current := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC) // 周一
	now := time.Date(2025, 6, 6, 8, 0, 0, 0, time.UTC)     // 周五早上

	// 周一/周三/周五的节奏，补跨后仍落在周五而不是周六
	next, err := Advance(model.FrequencyAlternateDays, nil, current, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 6, 9, 0, 0, 0, time.UTC), next)
}

func TestAdvanceCustomWrapsToNextWeek(t *testing.T) {
	days := model.IntList{2} // 仅周二
	current := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 3, 10, 0, 0, 0, time.UTC)

	next, err := Advance(model.FrequencyCustom, days, current, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC), next)
}

func TestAdvanceCustomRejectsEmptyDays(t *testing.T) {
	_, err := Advance(model.FrequencyCustom, nil, monday, monday)
	assert.ErrorIs(t, err, pkgerrors.ReminderCustomDaysEmpty)
}
