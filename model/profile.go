package model

import (
	"time"

	"gorm.io/datatypes"
)

// Frequency is how often a user wants to be notified about new articles.
// The notifier maps each value to an interval in days.
type Frequency string

const (
	FrequencyDaily       Frequency = "daily"
	FrequencyEvery2Days  Frequency = "every_2_days"
	FrequencyEvery3Days  Frequency = "every_3_days"
	FrequencyWeekly      Frequency = "weekly"
	FrequencyEvery15Days Frequency = "every_15_days"
	FrequencyMonthly     Frequency = "monthly"
)

// ValidFrequency reports whether f is one of the known frequencies.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyEvery2Days, FrequencyEvery3Days,
		FrequencyWeekly, FrequencyEvery15Days, FrequencyMonthly:
		return true
	}
	return false
}

/*

Profile is the editable account data attached to a user.

UserID: primary key, same id as the User row
FirstName / LastName / Job: free-form editable fields
NotificationsEnabled: master switch for push digests
NotificationFrequency: one of the Frequency values
LastNotifiedAt: stamped by the notifier after each successful digest,
NULL until the first send
GradePreferences: JSON array of grades the user wants in digests and
default filters, e.g. ["A","B"]. Saved with full-replace semantics.

*/

type Profile struct {
	UserID                string `gorm:"primaryKey"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
	FirstName             string
	LastName              string
	Job                   string
	NotificationsEnabled  bool      `gorm:"default:TRUE"`
	NotificationFrequency Frequency `gorm:"default:'daily'"`
	LastNotifiedAt        *time.Time
	GradePreferences      datatypes.JSON
}
