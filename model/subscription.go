package model

import (
	"time"
)

// SubscriptionScope distinguishes the two meanings a subscription row can
// carry: the whole discipline, or one specific sub-discipline under it.
type SubscriptionScope int

const (
	// ScopeWholeDiscipline covers every sub-discipline under the
	// discipline, stored with a NULL sub_discipline_id.
	ScopeWholeDiscipline SubscriptionScope = iota
	// ScopeSpecificSubDiscipline covers exactly one sub-discipline.
	ScopeSpecificSubDiscipline
)

/*

Subscription is a user's opt-in to receive and filter articles for a
taxonomy scope.

UserID: user id
DisciplineID: discipline id
SubDisciplineID: nullable. NULL means "all sub-disciplines under this
discipline"; a populated value targets that single sub-discipline.
CreatedAt: time when relation is created

A user holds at most one row per (discipline, sub-discipline) pair; the
composite index enforces it. The read path must not infer meaning from
field presence, use Scope().

*/

type Subscription struct {
	Id              int64  `gorm:"primaryKey"`
	UserID          string `gorm:"uniqueIndex:idx_user_scope"`
	DisciplineID    int64  `gorm:"uniqueIndex:idx_user_scope"`
	SubDisciplineID *int64 `gorm:"uniqueIndex:idx_user_scope"`
	CreatedAt       time.Time
}

// Scope returns the tagged meaning of this row.
func (s Subscription) Scope() SubscriptionScope {
	if s.SubDisciplineID == nil {
		return ScopeWholeDiscipline
	}
	return ScopeSpecificSubDiscipline
}

// WholeDiscipline builds a discipline-wide subscription.
func WholeDiscipline(userID string, disciplineID int64) Subscription {
	return Subscription{UserID: userID, DisciplineID: disciplineID}
}

// SpecificSubDiscipline builds a subscription to a single sub-discipline.
func SpecificSubDiscipline(userID string, disciplineID, subDisciplineID int64) Subscription {
	return Subscription{UserID: userID, DisciplineID: disciplineID, SubDisciplineID: &subDisciplineID}
}
