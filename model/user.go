package model

import (
	"time"

	"gorm.io/gorm"
)

/*

User is a data model for a veille account.

Id: primary key, uuid issued at sign-up
CreatedAt: time when entity is created
DeletedAt: time when entity is deleted

Email: empty for anonymous accounts
PasswordHash: bcrypt hash, empty for anonymous accounts
Anonymous: backend-issued identity without credentials, upgradeable to a
permanent account in place (same id) via account linking.

*/

type User struct {
	Id           string `gorm:"primaryKey"`
	CreatedAt    time.Time
	DeletedAt    gorm.DeletedAt
	Email        string `gorm:"index"`
	PasswordHash string
	Anonymous    bool `gorm:"default:FALSE"`
}
