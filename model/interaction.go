package model

import (
	"time"
)

/*

ArticleLike is a "many-to-many" relation of user liking an article.

ArticleID: article id
UserID: user id
CreatedAt: time when relation is created

The three interaction relations (likes, reads, thumbs-ups) are kept as
independent tables with insert/delete semantics only, there is no combined
"set state" row.

*/

type ArticleLike struct {
	ArticleID int64  `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	CreatedAt time.Time
}

// ArticleRead is a "many-to-many" relation of user having read an article.
type ArticleRead struct {
	ArticleID int64  `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	CreatedAt time.Time
}

// ArticleThumbsUp is a "many-to-many" relation of user thumbing up an
// article.
type ArticleThumbsUp struct {
	ArticleID int64  `gorm:"primaryKey"`
	UserID    string `gorm:"primaryKey"`
	CreatedAt time.Time
}
