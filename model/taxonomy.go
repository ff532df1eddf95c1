package model

/*

Discipline is a top-level medical specialty (Cardiology, Neurology, ...).
Its name doubles as the filter key used by article queries.

Id: primary key
Name: display name, unique

*/

type Discipline struct {
	Id   int64  `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"uniqueIndex"`
}

/*

SubDiscipline is a specialty scoped to a parent discipline
(Cardiology > Arrhythmia). Same shape as Discipline plus the parent key.

*/

type SubDiscipline struct {
	Id           int64  `json:"id" gorm:"primaryKey"`
	DisciplineID int64  `json:"discipline_id" gorm:"index"`
	Name         string `json:"name"`
}

// SubscribedDiscipline is the read-side shape of a user's subscription to
// one discipline: either the whole discipline or a specific set of its
// sub-disciplines.
type SubscribedDiscipline struct {
	Discipline      Discipline      `json:"discipline"`
	WholeDiscipline bool            `json:"whole_discipline"`
	SubDisciplines  []SubDiscipline `json:"sub_disciplines"`
}
