package notifier

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medveille/veille-backend/model"
)

func TestIntervalDays(t *testing.T) {
	cases := []struct {
		freq model.Frequency
		days int
	}{
		{model.FrequencyDaily, 1},
		{model.FrequencyEvery2Days, 2},
		{model.FrequencyEvery3Days, 3},
		{model.FrequencyWeekly, 7},
		{model.FrequencyEvery15Days, 15},
		{model.FrequencyMonthly, 30},
	}
	for _, c := range cases {
		days, err := IntervalDays(c.freq)
		require.NoError(t, err)
		assert.Equal(t, c.days, days, string(c.freq))
	}

	_, err := IntervalDays(model.Frequency("hourly"))
	assert.Error(t, err)
}

func TestShouldSendToday(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	// never notified means due
	assert.True(t, ShouldSendToday(nil, model.FrequencyMonthly, now))

	yesterday := now.Add(-25 * time.Hour)
	assert.True(t, ShouldSendToday(&yesterday, model.FrequencyDaily, now))
	assert.False(t, ShouldSendToday(&yesterday, model.FrequencyEvery2Days, now))

	sixDaysAgo := now.Add(-6 * 24 * time.Hour)
	assert.False(t, ShouldSendToday(&sixDaysAgo, model.FrequencyWeekly, now))
	sevenDaysAgo := now.Add(-7 * 24 * time.Hour)
	assert.True(t, ShouldSendToday(&sevenDaysAgo, model.FrequencyWeekly, now))

	justNow := now.Add(-time.Minute)
	assert.False(t, ShouldSendToday(&justNow, model.FrequencyDaily, now))

	// unknown frequency never sends
	assert.False(t, ShouldSendToday(nil, model.Frequency("hourly"), now))
}
