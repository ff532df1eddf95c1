package gateway

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medveille/veille-backend/model"
)

// PgGateway is the gorm-backed implementation of every collaborator
// contract the veille client depends on.
type PgGateway struct {
	db *gorm.DB
}

var (
	_ ArticleQuerier   = (*PgGateway)(nil)
	_ InteractionStore = (*PgGateway)(nil)
	_ Taxonomy         = (*PgGateway)(nil)
	_ ProfileStore     = (*PgGateway)(nil)
	_ PushTokenStore   = (*PgGateway)(nil)
)

func NewPgGateway(db *gorm.DB) *PgGateway {
	return &PgGateway{db: db}
}

const viewerFlagsSelect = `articles.*,
EXISTS(SELECT 1 FROM article_likes al WHERE al.article_id = articles.id AND al.user_id = ?) AS is_liked,
EXISTS(SELECT 1 FROM article_reads ar WHERE ar.article_id = articles.id AND ar.user_id = ?) AS is_read,
EXISTS(SELECT 1 FROM article_thumbs_ups atu WHERE atu.article_id = articles.id AND atu.user_id = ?) AS is_thumbed_up`

// QueryArticles returns one ordered page. Ordering is published_at DESC
// with id DESC as tiebreak so offset pagination is stable.
func (g *PgGateway) QueryArticles(ctx context.Context, q ArticleQuery) ([]model.Article, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}

	tx := g.db.WithContext(ctx).Model(&model.Article{})
	if q.UserID != "" {
		tx = tx.Select(viewerFlagsSelect, q.UserID, q.UserID, q.UserID)
	} else {
		tx = tx.Select("articles.*")
	}

	if q.DisciplineName != "" && q.DisciplineName != AllDisciplines {
		tx = tx.Joins("JOIN disciplines d ON d.id = articles.discipline_id").
			Where("d.name = ?", q.DisciplineName)
	}
	if q.SubDisciplineName != "" {
		tx = tx.Joins("JOIN sub_disciplines sd ON sd.id = articles.sub_discipline_id").
			Where("sd.name = ?", q.SubDisciplineName)
	}
	if q.Grade != "" {
		tx = tx.Where("articles.grade = ?", q.Grade)
	}
	if q.SearchTerm != "" {
		pattern := "%" + q.SearchTerm + "%"
		tx = tx.Where("(articles.title LIKE ? OR articles.content LIKE ?)", pattern, pattern)
	}
	if q.FilterByUserSubscriptions {
		tx = tx.Where(`EXISTS(
			SELECT 1 FROM subscriptions s
			WHERE s.user_id = ?
			  AND s.discipline_id = articles.discipline_id
			  AND (s.sub_discipline_id IS NULL OR s.sub_discipline_id = articles.sub_discipline_id))`,
			q.UserID)
	}

	var articles []model.Article
	if err := tx.Order("articles.published_at DESC, articles.id DESC").
		Offset(q.Offset).Limit(limit).Find(&articles).Error; err != nil {
		return nil, errors.Wrap(err, "fail to query articles")
	}
	return articles, nil
}

func (g *PgGateway) ArticleOfTheDay(ctx context.Context, userID string) (*model.Article, error) {
	tx := g.db.WithContext(ctx).Model(&model.Article{})
	if userID != "" {
		tx = tx.Select(viewerFlagsSelect, userID, userID, userID)
	}
	var articles []model.Article
	if err := tx.Where("articles.article_of_the_day = ?", true).
		Order("articles.published_at DESC").Limit(1).Find(&articles).Error; err != nil {
		return nil, errors.Wrap(err, "fail to query article of the day")
	}
	if len(articles) == 0 {
		return nil, nil
	}
	return &articles[0], nil
}

// interactionTarget maps a kind to a fresh join row and the counter column
// it drives.
func interactionTarget(kind InteractionKind, articleID int64, userID string) (interface{}, interface{}, string, error) {
	switch kind {
	case InteractionLike:
		return &model.ArticleLike{ArticleID: articleID, UserID: userID}, &model.ArticleLike{}, "like_count", nil
	case InteractionRead:
		return &model.ArticleRead{ArticleID: articleID, UserID: userID}, &model.ArticleRead{}, "read_count", nil
	case InteractionThumbsUp:
		return &model.ArticleThumbsUp{ArticleID: articleID, UserID: userID}, &model.ArticleThumbsUp{}, "thumbs_up_count", nil
	default:
		return nil, nil, "", errors.Errorf("unknown interaction kind: %s", kind)
	}
}

// AddInteraction inserts the relation row and increments the article
// counter in one transaction. Inserting an already present relation is a
// no-op (counter untouched).
func (g *PgGateway) AddInteraction(ctx context.Context, kind InteractionKind, articleID int64, userID string) error {
	row, _, counter, err := interactionTarget(kind, articleID, userID)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(row)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "fail to add %s", kind)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&model.Article{}).Where("id = ?", articleID).
			UpdateColumn(counter, gorm.Expr(counter+" + 1")).Error
	})
}

// RemoveInteraction deletes the relation row and decrements the article
// counter in one transaction. Removing an absent relation is a no-op.
func (g *PgGateway) RemoveInteraction(ctx context.Context, kind InteractionKind, articleID int64, userID string) error {
	_, probe, counter, err := interactionTarget(kind, articleID, userID)
	if err != nil {
		return err
	}
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("article_id = ? AND user_id = ?", articleID, userID).Delete(probe)
		if res.Error != nil {
			return errors.Wrapf(res.Error, "fail to remove %s", kind)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return tx.Model(&model.Article{}).
			Where("id = ? AND "+counter+" > 0", articleID).
			UpdateColumn(counter, gorm.Expr(counter+" - 1")).Error
	})
}

func (g *PgGateway) ListDisciplines(ctx context.Context) ([]model.Discipline, error) {
	var disciplines []model.Discipline
	if err := g.db.WithContext(ctx).Order("name").Find(&disciplines).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list disciplines")
	}
	return disciplines, nil
}

func (g *PgGateway) ListSubDisciplines(ctx context.Context, disciplineID int64) ([]model.SubDiscipline, error) {
	var subs []model.SubDiscipline
	if err := g.db.WithContext(ctx).Where("discipline_id = ?", disciplineID).
		Order("name").Find(&subs).Error; err != nil {
		return nil, errors.Wrap(err, "fail to list sub-disciplines")
	}
	return subs, nil
}

// UserSubscriptionTree folds a user's subscription rows into one node per
// discipline, tagged whole-discipline or carrying the specific
// sub-disciplines.
func (g *PgGateway) UserSubscriptionTree(ctx context.Context, userID string) ([]model.SubscribedDiscipline, error) {
	var rows []model.Subscription
	if err := g.db.WithContext(ctx).Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load subscriptions")
	}
	if len(rows) == 0 {
		return []model.SubscribedDiscipline{}, nil
	}

	disciplineIds := []int64{}
	subIds := []int64{}
	for _, row := range rows {
		disciplineIds = append(disciplineIds, row.DisciplineID)
		if row.SubDisciplineID != nil {
			subIds = append(subIds, *row.SubDisciplineID)
		}
	}

	var disciplines []model.Discipline
	if err := g.db.WithContext(ctx).Where("id IN ?", disciplineIds).Find(&disciplines).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load disciplines")
	}
	disciplineById := map[int64]model.Discipline{}
	for _, d := range disciplines {
		disciplineById[d.Id] = d
	}

	subById := map[int64]model.SubDiscipline{}
	if len(subIds) > 0 {
		var subs []model.SubDiscipline
		if err := g.db.WithContext(ctx).Where("id IN ?", subIds).Find(&subs).Error; err != nil {
			return nil, errors.Wrap(err, "fail to load sub-disciplines")
		}
		for _, s := range subs {
			subById[s.Id] = s
		}
	}

	nodeByDiscipline := map[int64]*model.SubscribedDiscipline{}
	for _, row := range rows {
		node, ok := nodeByDiscipline[row.DisciplineID]
		if !ok {
			node = &model.SubscribedDiscipline{
				Discipline:     disciplineById[row.DisciplineID],
				SubDisciplines: []model.SubDiscipline{},
			}
			nodeByDiscipline[row.DisciplineID] = node
		}
		if row.Scope() == model.ScopeWholeDiscipline {
			node.WholeDiscipline = true
		} else if sub, ok := subById[*row.SubDisciplineID]; ok {
			node.SubDisciplines = append(node.SubDisciplines, sub)
		}
	}

	res := []model.SubscribedDiscipline{}
	for _, node := range nodeByDiscipline {
		res = append(res, *node)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Discipline.Name < res[j].Discipline.Name
	})
	return res, nil
}

// GetProfile returns the user's profile row, creating the default one on
// first access.
func (g *PgGateway) GetProfile(ctx context.Context, userID string) (*model.Profile, error) {
	profile := model.Profile{UserID: userID}
	if err := g.db.WithContext(ctx).Where(model.Profile{UserID: userID}).
		FirstOrCreate(&profile).Error; err != nil {
		return nil, errors.Wrap(err, "fail to load profile")
	}
	return &profile, nil
}

func (g *PgGateway) UpdateProfile(ctx context.Context, profile *model.Profile) error {
	if err := g.db.WithContext(ctx).Save(profile).Error; err != nil {
		return errors.Wrap(err, "fail to update profile")
	}
	return nil
}

// ReplaceSubscriptions applies full-replace semantics: every existing row
// for the user is deleted and the new set inserted, in one transaction.
func (g *PgGateway) ReplaceSubscriptions(ctx context.Context, userID string, subs []model.Subscription) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.Subscription{}).Error; err != nil {
			return errors.Wrap(err, "fail to clear subscriptions")
		}
		if len(subs) == 0 {
			return nil
		}
		for i := range subs {
			subs[i].Id = 0
			subs[i].UserID = userID
		}
		if err := tx.Create(&subs).Error; err != nil {
			return errors.Wrap(err, "fail to insert subscriptions")
		}
		return nil
	})
}

// RegisterToken upserts a device token; re-registering refreshes the
// platform field instead of duplicating the row.
func (g *PgGateway) RegisterToken(ctx context.Context, token model.PushToken) error {
	if err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"platform"}),
	}).Create(&token).Error; err != nil {
		return errors.Wrap(err, "fail to register push token")
	}
	return nil
}
