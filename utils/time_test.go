package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	date := time.Date(2025, 6, 2, 17, 45, 30, 0, time.UTC)

	parsed, err := ParseClock("09:30", date)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC), parsed)

	// 保留日期的时区
	shanghai, err := time.LoadLocation("Asia/Shanghai")
	require.NoError(t, err)
	parsed, err = ParseClock("23:59", date.In(shanghai))
	require.NoError(t, err)
	assert.Equal(t, shanghai, parsed.Location())

	_, err = ParseClock("9am", date)
	assert.Error(t, err)
}

func TestValidClock(t *testing.T) {
	assert.True(t, ValidClock("00:00"))
	assert.True(t, ValidClock("23:59"))
	assert.False(t, ValidClock("24:00"))
	assert.False(t, ValidClock("9:3"))
	assert.False(t, ValidClock(""))
}
