package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/medveille/veille-backend/model"
	"github.com/medveille/veille-backend/utils"
)

func int64p(v int64) *int64 { return &v }

func seedArticles(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&[]model.Discipline{
		{Id: 1, Name: "Cardiology"},
		{Id: 2, Name: "Neurology"},
	}).Error)
	require.NoError(t, db.Create(&[]model.SubDiscipline{
		{Id: 11, DisciplineID: 1, Name: "Arrhythmia"},
		{Id: 12, DisciplineID: 1, Name: "Heart Failure"},
	}).Error)

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&[]model.Article{
		{Id: 1, Title: "AF ablation outcomes", Grade: model.GradeA, Journal: "NEJM",
			DisciplineID: 1, SubDisciplineID: int64p(11), PublishedAt: base.Add(3 * time.Hour)},
		{Id: 2, Title: "Sacubitril in HFrEF", Grade: model.GradeB, Journal: "Lancet",
			DisciplineID: 1, SubDisciplineID: int64p(12), PublishedAt: base.Add(2 * time.Hour)},
		{Id: 3, Title: "Stroke thrombectomy window", Grade: model.GradeA, Journal: "JAMA",
			DisciplineID: 2, PublishedAt: base.Add(time.Hour), ArticleOfTheDay: true},
		{Id: 4, Title: "Beta blockers revisited", Grade: model.GradeC, Journal: "BMJ",
			DisciplineID: 1, PublishedAt: base},
	}).Error)
}

func setupGateway(t *testing.T) (*PgGateway, *gorm.DB, func()) {
	db, cleanup := utils.CreateTempDB(t)
	seedArticles(t, db)
	return NewPgGateway(db), db, cleanup
}

func articleIds(articles []model.Article) []int64 {
	out := []int64{}
	for _, a := range articles {
		out = append(out, a.Id)
	}
	return out
}

func TestQueryArticlesOrderingAndPagination(t *testing.T) {
	gw, _, cleanup := setupGateway(t)
	defer cleanup()
	ctx := context.Background()

	page, err := gw.QueryArticles(ctx, ArticleQuery{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, articleIds(page))

	page, err = gw.QueryArticles(ctx, ArticleQuery{Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, articleIds(page))

	page, err = gw.QueryArticles(ctx, ArticleQuery{Offset: 4, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestQueryArticlesDisciplineFilters(t *testing.T) {
	gw, _, cleanup := setupGateway(t)
	defer cleanup()
	ctx := context.Background()

	page, err := gw.QueryArticles(ctx, ArticleQuery{DisciplineName: "Cardiology"})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 4}, articleIds(page))

	// the sentinel disables the filter
	page, err = gw.QueryArticles(ctx, ArticleQuery{DisciplineName: AllDisciplines})
	require.NoError(t, err)
	assert.Len(t, page, 4)

	page, err = gw.QueryArticles(ctx, ArticleQuery{
		DisciplineName: "Cardiology", SubDisciplineName: "Arrhythmia",
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, articleIds(page))

	page, err = gw.QueryArticles(ctx, ArticleQuery{
		DisciplineName: "Cardiology", Grade: model.GradeB,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, articleIds(page))
}

func TestQueryArticlesSearch(t *testing.T) {
	gw, _, cleanup := setupGateway(t)
	defer cleanup()

	page, err := gw.QueryArticles(context.Background(), ArticleQuery{SearchTerm: "thrombectomy"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3}, articleIds(page))
}

func TestQueryArticlesViewerFlags(t *testing.T) {
	gw, db, cleanup := setupGateway(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, db.Create(&model.ArticleLike{ArticleID: 1, UserID: "u1"}).Error)
	require.NoError(t, db.Create(&model.ArticleRead{ArticleID: 2, UserID: "u1"}).Error)
	require.NoError(t, db.Create(&model.ArticleLike{ArticleID: 1, UserID: "u2"}).Error)

	page, err := gw.QueryArticles(ctx, ArticleQuery{UserID: "u1"})
	require.NoError(t, err)
	byId := map[int64]model.Article{}
	for _, a := range page {
		byId[a.Id] = a
	}
	assert.True(t, byId[1].IsLiked)
	assert.False(t, byId[1].IsRead)
	assert.True(t, byId[2].IsRead)
	assert.False(t, byId[3].IsLiked)

	// without a user the flags stay false
	page, err = gw.QueryArticles(ctx, ArticleQuery{})
	require.NoError(t, err)
	for _, a := range page {
		assert.False(t, a.IsLiked)
		assert.False(t, a.IsRead)
		assert.False(t, a.IsThumbedUp)
	}
}

func TestQueryArticlesByUserSubscriptions(t *testing.T) {
	gw, db, cleanup := setupGateway(t)
	defer cleanup()
	ctx := context.Background()

	// whole Neurology plus only Arrhythmia under Cardiology
	require.NoError(t, db.Create(&[]model.Subscription{
		{UserID: "u1", DisciplineID: 2},
		{UserID: "u1", DisciplineID: 1, SubDisciplineID: int64p(11)},
	}).Error)

	page, err := gw.QueryArticles(ctx, ArticleQuery{
		UserID: "u1", FilterByUserSubscriptions: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, articleIds(page))

	// grade still applies in subscription mode
	page, err = gw.QueryArticles(ctx, ArticleQuery{
		UserID: "u1", FilterByUserSubscriptions: true, Grade: model.GradeA,
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, articleIds(page))

	page, err = gw.QueryArticles(ctx, ArticleQuery{
		UserID: "u2", FilterByUserSubscriptions: true,
	})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestArticleOfTheDay(t *testing.T) {
	gw, _, cleanup := setupGateway(t)
	defer cleanup()

	a, err := gw.ArticleOfTheDay(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, a)
	assert.Equal(t, int64(3), a.Id)
}

func TestAddRemoveInteractionKeepsCounter(t *testing.T) {
	gw, db, cleanup := setupGateway(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, gw.AddInteraction(ctx, InteractionLike, 1, "u1"))
	require.NoError(t, gw.AddInteraction(ctx, InteractionLike, 1, "u2"))

	var article model.Article
	require.NoError(t, db.First(&article, 1).Error)
	assert.Equal(t, int64(2), article.LikeCount)

	// duplicate add is a no-op, the counter must not drift
	require.NoError(t, gw.AddInteraction(ctx, InteractionLike, 1, "u1"))
	require.NoError(t, db.First(&article, 1).Error)
	assert.Equal(t, int64(2), article.LikeCount)

	require.NoError(t, gw.RemoveInteraction(ctx, InteractionLike, 1, "u1"))
	require.NoError(t, db.First(&article, 1).Error)
	assert.Equal(t, int64(1), article.LikeCount)

	// removing an absent relation is a no-op too
	require.NoError(t, gw.RemoveInteraction(ctx, InteractionLike, 1, "u1"))
	require.NoError(t, db.First(&article, 1).Error)
	assert.Equal(t, int64(1), article.LikeCount)
}

func TestInteractionKindsAreIndependent(t *testing.T) {
	gw, db, cleanup := setupGateway(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, gw.AddInteraction(ctx, InteractionRead, 1, "u1"))
	require.NoError(t, gw.AddInteraction(ctx, InteractionThumbsUp, 1, "u1"))

	var article model.Article
	require.NoError(t, db.First(&article, 1).Error)
	assert.Equal(t, int64(0), article.LikeCount)
	assert.Equal(t, int64(1), article.ReadCount)
	assert.Equal(t, int64(1), article.ThumbsUpCount)
}

func TestUnknownInteractionKind(t *testing.T) {
	gw, _, cleanup := setupGateway(t)
	defer cleanup()
	assert.Error(t, gw.AddInteraction(context.Background(), InteractionKind("share"), 1, "u1"))
}

func TestReplaceSubscriptionsFullReplace(t *testing.T) {
	gw, db, cleanup := setupGateway(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, gw.ReplaceSubscriptions(ctx, "u1", []model.Subscription{
		model.WholeDiscipline("u1", 1),
	}))
	require.NoError(t, gw.ReplaceSubscriptions(ctx, "u1", []model.Subscription{
		model.SpecificSubDiscipline("u1", 1, 11),
		model.WholeDiscipline("u1", 2),
	}))

	var rows []model.Subscription
	require.NoError(t, db.Where("user_id = ?", "u1").Find(&rows).Error)
	assert.Len(t, rows, 2)

	tree, err := gw.UserSubscriptionTree(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, tree, 2)
	assert.Equal(t, "Cardiology", tree[0].Discipline.Name)
	assert.False(t, tree[0].WholeDiscipline)
	require.Len(t, tree[0].SubDisciplines, 1)
	assert.Equal(t, "Arrhythmia", tree[0].SubDisciplines[0].Name)
	assert.True(t, tree[1].WholeDiscipline)

	// clearing to empty removes every row
	require.NoError(t, gw.ReplaceSubscriptions(ctx, "u1", nil))
	require.NoError(t, db.Where("user_id = ?", "u1").Find(&rows).Error)
	assert.Empty(t, rows)
}

func TestRegisterTokenUpsert(t *testing.T) {
	gw, db, cleanup := setupGateway(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, gw.RegisterToken(ctx, model.PushToken{
		UserID: "u1", Token: "tok", Platform: "ios",
	}))
	require.NoError(t, gw.RegisterToken(ctx, model.PushToken{
		UserID: "u1", Token: "tok", Platform: "android",
	}))

	var tokens []model.PushToken
	require.NoError(t, db.Where("user_id = ?", "u1").Find(&tokens).Error)
	require.Len(t, tokens, 1)
	assert.Equal(t, "android", tokens[0].Platform)
}

func TestListTaxonomy(t *testing.T) {
	gw, _, cleanup := setupGateway(t)
	defer cleanup()
	ctx := context.Background()

	disciplines, err := gw.ListDisciplines(ctx)
	require.NoError(t, err)
	require.Len(t, disciplines, 2)
	assert.Equal(t, "Cardiology", disciplines[0].Name)

	subs, err := gw.ListSubDisciplines(ctx, 1)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Arrhythmia", subs[0].Name)

	subs, err = gw.ListSubDisciplines(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
