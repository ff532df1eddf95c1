package gateway

import (
	"context"

	"github.com/medveille/veille-backend/model"
)

// AllDisciplines is the sentinel discipline filter meaning "no discipline
// filter".
const AllDisciplines = "all"

// DefaultPageSize is the page length article queries fall back to when the
// caller doesn't ask for a specific limit.
const DefaultPageSize = 20

// InteractionKind selects one of the three per-user interaction relations.
type InteractionKind string

const (
	InteractionLike     InteractionKind = "like"
	InteractionRead     InteractionKind = "read"
	InteractionThumbsUp InteractionKind = "thumbs_up"
)

// ArticleQuery is the single parameterized article search the backend
// exposes. Zero values mean "no constraint" for the optional fields.
type ArticleQuery struct {
	// DisciplineName filters by discipline display name. Empty or
	// AllDisciplines disables the filter.
	DisciplineName string
	// SubDisciplineName filters by sub-discipline display name.
	SubDisciplineName string
	// Grade filters by evidence grade.
	Grade model.Grade
	// SearchTerm matches against title and content.
	SearchTerm string

	Offset int
	// Limit defaults to DefaultPageSize when <= 0.
	Limit int

	// UserID scopes the per-viewer flags (is_liked, ...). Empty leaves
	// them false.
	UserID string
	// FilterByUserSubscriptions restricts results to the UserID's
	// subscribed taxonomy scopes ("my articles"). Discipline and
	// sub-discipline name filters are ignored by callers in that mode,
	// grade is not.
	FilterByUserSubscriptions bool
}

// ArticleQuerier serves ordered article pages.
type ArticleQuerier interface {
	QueryArticles(ctx context.Context, q ArticleQuery) ([]model.Article, error)
	// ArticleOfTheDay returns the currently highlighted article, or nil
	// when none is flagged.
	ArticleOfTheDay(ctx context.Context, userID string) (*model.Article, error)
}

// InteractionStore mutates the per-user interaction relations. Strictly
// insert/delete, each keeping the denormalized article counter in step.
type InteractionStore interface {
	AddInteraction(ctx context.Context, kind InteractionKind, articleID int64, userID string) error
	RemoveInteraction(ctx context.Context, kind InteractionKind, articleID int64, userID string) error
}

// Taxonomy serves the discipline hierarchy and a user's subscribed slice
// of it.
type Taxonomy interface {
	ListDisciplines(ctx context.Context) ([]model.Discipline, error)
	ListSubDisciplines(ctx context.Context, disciplineID int64) ([]model.SubDiscipline, error)
	UserSubscriptionTree(ctx context.Context, userID string) ([]model.SubscribedDiscipline, error)
}

// ProfileStore reads and writes profile fields and subscriptions.
// Subscription saves are full-replace (delete all rows, insert the new
// set), not a diff.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*model.Profile, error)
	UpdateProfile(ctx context.Context, profile *model.Profile) error
	ReplaceSubscriptions(ctx context.Context, userID string, subs []model.Subscription) error
}

// PushTokenStore registers device push tokens.
type PushTokenStore interface {
	RegisterToken(ctx context.Context, token model.PushToken) error
}
