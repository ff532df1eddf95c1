package notifier

import (
	"time"

	"github.com/pkg/errors"

	"github.com/medveille/veille-backend/model"
)

// frequencyIntervalDays maps each notification frequency to its interval
// in days between digests.
var frequencyIntervalDays = map[model.Frequency]int{
	model.FrequencyDaily:       1,
	model.FrequencyEvery2Days:  2,
	model.FrequencyEvery3Days:  3,
	model.FrequencyWeekly:      7,
	model.FrequencyEvery15Days: 15,
	model.FrequencyMonthly:     30,
}

// IntervalDays returns the number of days between digests for a
// frequency.
func IntervalDays(f model.Frequency) (int, error) {
	days, ok := frequencyIntervalDays[f]
	if !ok {
		return 0, errors.Errorf("unknown notification frequency: %s", f)
	}
	return days, nil
}

// ShouldSendToday decides whether a user is due for a digest: never
// notified means due, otherwise due once at least the frequency's
// interval in days has elapsed since the last send.
func ShouldSendToday(lastSent *time.Time, f model.Frequency, now time.Time) bool {
	days, err := IntervalDays(f)
	if err != nil {
		return false
	}
	if lastSent == nil {
		return true
	}
	elapsedDays := int(now.Sub(*lastSent).Hours() / 24)
	return elapsedDays >= days
}
