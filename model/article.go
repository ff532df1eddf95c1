package model

import (
	"time"
)

// Grade is the evidence-quality classification attached to an article.
// A is the strongest level of evidence, C the weakest.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
)

// ValidGrade reports whether g is one of the three known grades.
func ValidGrade(g Grade) bool {
	return g == GradeA || g == GradeB || g == GradeC
}

/*

Article is a data model for one unit of curated medical content.

Id: primary key, stable numeric identifier assigned at ingestion
CreatedAt: time when entity is created
PublishedAt: publication timestamp of the underlying paper/summary
Title: article title
Content: markdown-like body, heading/list line prefixes included
SourceURL: link to the external source (journal page, PubMed, ...)
Grade: evidence grade, one of A/B/C
Journal: name of the journal the article was published in
Recommended: highlight flag set by the editorial team
ArticleOfTheDay: at most one article carries this flag at a time
AudioURL: optional narration audio, empty when not available

LikeCount / ReadCount / ThumbsUpCount: denormalized aggregate counters,
maintained transactionally by the interaction store.

IsLiked / IsRead / IsThumbedUp: per-viewer flags, only populated when a
query is scoped to a user. Never persisted on the articles table.

DisciplineID / SubDisciplineID: taxonomy placement. SubDisciplineID is
nullable, an article can sit directly under a discipline.

*/

type Article struct {
	Id              int64     `json:"id" gorm:"primaryKey"`
	CreatedAt       time.Time `json:"created_at" gorm:"<-:create"`
	PublishedAt     time.Time `json:"published_at"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	SourceURL       string    `json:"source_url"`
	Grade           Grade     `json:"grade"`
	Journal         string    `json:"journal"`
	Recommended     bool      `json:"recommended" gorm:"default:FALSE"`
	ArticleOfTheDay bool      `json:"article_of_the_day" gorm:"default:FALSE"`
	AudioURL        string    `json:"audio_url"`

	DisciplineID    int64  `json:"discipline_id"`
	SubDisciplineID *int64 `json:"sub_discipline_id"`

	LikeCount     int64 `json:"like_count" gorm:"default:0"`
	ReadCount     int64 `json:"read_count" gorm:"default:0"`
	ThumbsUpCount int64 `json:"thumbs_up_count" gorm:"default:0"`

	IsLiked     bool `json:"is_liked" gorm:"->;-:migration"`
	IsRead      bool `json:"is_read" gorm:"->;-:migration"`
	IsThumbedUp bool `json:"is_thumbed_up" gorm:"->;-:migration"`
}
