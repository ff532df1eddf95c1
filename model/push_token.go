package model

import (
	"time"
)

/*

PushToken is a device push token registered by a client.

UserID: user id
Token: opaque token issued by the push provider, unique per device
Platform: "ios" | "android"
CreatedAt: time when relation is created

A user can hold several tokens (several devices). Re-registering the same
token is an upsert, not a duplicate.

*/

type PushToken struct {
	UserID    string `gorm:"primaryKey"`
	Token     string `gorm:"primaryKey"`
	Platform  string
	CreatedAt time.Time
}
