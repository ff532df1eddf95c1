package feedstate

// Store holds the client-facing article browsing state: the
// discipline/sub-discipline/grade filter tuple, the two independently
// paginated collections ("items" is the general feed, "myArticles" the
// subscription-filtered one) and the per-user interaction flags.
//
// Articles are kept normalized: one value per id in a map, referenced by
// an ordered id slice per collection. A toggle applied to an article is
// therefore visible through every collection containing it without a
// second bookkeeping pass.

import (
	"context"
	"sync"

	"github.com/jinzhu/copier"
	"github.com/pkg/errors"

	"github.com/medveille/veille-backend/gateway"
	"github.com/medveille/veille-backend/model"
	Logger "github.com/medveille/veille-backend/utils/log"
)

var (
	Log = Logger.LogV2

	// ErrArticleNotFound is returned by Toggle when the target article is
	// absent from both collections. No remote call is made in that case.
	ErrArticleNotFound = errors.New("article not found in any collection")
)

// CollectionKind names one of the two paginated article collections.
type CollectionKind string

const (
	CollectionItems      CollectionKind = "items"
	CollectionMyArticles CollectionKind = "myArticles"
)

// Selection is the filter tuple. Discipline is gateway.AllDisciplines when
// unset; SubDiscipline and Grade are empty when unset.
type Selection struct {
	Discipline    string
	SubDiscipline string
	Grade         model.Grade
}

// CollectionState is the observable pagination state of one collection.
type CollectionState struct {
	Offset  int
	HasMore bool
	Loading bool
	Err     string
}

type collection struct {
	order   []int64
	offset  int
	hasMore bool
	loading bool
	errMsg  string

	// gen is bumped whenever the filter context of this collection is
	// invalidated. A page response carrying an older gen is stale and
	// dropped without touching state.
	gen uint64
}

func newCollection() *collection {
	return &collection{order: []int64{}, hasMore: true}
}

type Store struct {
	mu sync.Mutex

	articles     gateway.ArticleQuerier
	interactions gateway.InteractionStore
	taxonomy     gateway.Taxonomy

	pageSize int

	byId        map[int64]*model.Article
	collections map[CollectionKind]*collection

	selection  Selection
	searchTerm string

	// sub-discipline options for the currently selected discipline
	subOptions        []model.SubDiscipline
	subOptionsLoading bool
	subOptionsErr     string
	subOptionsGen     uint64

	// all-disciplines list, fetched once and treated as read-mostly
	disciplines []model.Discipline
}

// NewStore builds an isolated state container around the given
// collaborators. Nothing here is process-global, tests instantiate as
// many stores as they need.
func NewStore(articles gateway.ArticleQuerier, interactions gateway.InteractionStore, taxonomy gateway.Taxonomy) *Store {
	return &Store{
		articles:     articles,
		interactions: interactions,
		taxonomy:     taxonomy,
		pageSize:     gateway.DefaultPageSize,
		byId:         map[int64]*model.Article{},
		collections: map[CollectionKind]*collection{
			CollectionItems:      newCollection(),
			CollectionMyArticles: newCollection(),
		},
		selection: Selection{Discipline: gateway.AllDisciplines},
	}
}

// SetPageSize overrides the page length used by LoadPage.
func (s *Store) SetPageSize(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > 0 {
		s.pageSize = n
	}
}

// clearCollectionsLocked resets both collections to their initial state
// and invalidates any in-flight page loads.
func (s *Store) clearCollectionsLocked() {
	for _, col := range s.collections {
		col.order = []int64{}
		col.offset = 0
		col.hasMore = true
		col.loading = false
		col.errMsg = ""
		col.gen++
	}
	s.byId = map[int64]*model.Article{}
}

// pruneLocked drops article values no longer referenced by any collection.
func (s *Store) pruneLocked() {
	referenced := map[int64]bool{}
	for _, col := range s.collections {
		for _, id := range col.order {
			referenced[id] = true
		}
	}
	for id := range s.byId {
		if !referenced[id] {
			delete(s.byId, id)
		}
	}
}

// SelectDiscipline sets the discipline filter. Reselecting the current
// value is a no-op so a redundant tap never refetches. A real change
// cascades: sub-discipline and grade are unset, both collections cleared,
// and for a concrete discipline the sub-discipline options are fetched.
func (s *Store) SelectDiscipline(ctx context.Context, name string) error {
	s.mu.Lock()
	if name == s.selection.Discipline {
		s.mu.Unlock()
		return nil
	}
	s.selection.Discipline = name
	s.selection.SubDiscipline = ""
	s.selection.Grade = ""
	s.clearCollectionsLocked()

	s.subOptions = nil
	s.subOptionsErr = ""
	s.subOptionsGen++
	if name == gateway.AllDisciplines {
		s.subOptionsLoading = false
		s.mu.Unlock()
		return nil
	}
	s.subOptionsLoading = true
	gen := s.subOptionsGen
	s.mu.Unlock()

	return s.fetchSubOptions(ctx, name, gen)
}

func (s *Store) fetchSubOptions(ctx context.Context, disciplineName string, gen uint64) error {
	disciplineId, err := s.disciplineIdByName(ctx, disciplineName)
	var subs []model.SubDiscipline
	if err == nil {
		subs, err = s.taxonomy.ListSubDisciplines(ctx, disciplineId)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.subOptionsGen {
		Log.Debugf("dropping stale sub-discipline options", disciplineName)
		return nil
	}
	s.subOptionsLoading = false
	if err != nil {
		s.subOptionsErr = err.Error()
		return err
	}
	s.subOptions = subs
	return nil
}

// SelectSubDiscipline sets the sub-discipline filter. Empty means "any".
// No-op when unchanged; a change unsets the grade and clears both
// collections.
func (s *Store) SelectSubDiscipline(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == s.selection.SubDiscipline {
		return
	}
	s.selection.SubDiscipline = name
	s.selection.Grade = ""
	s.clearCollectionsLocked()
}

// SelectGrade sets the grade filter. Empty means "any". No-op when
// unchanged. A change clears both collections: keeping an offset list
// built under another grade would interleave pages of different result
// sets.
func (s *Store) SelectGrade(grade model.Grade) error {
	if grade != "" && !model.ValidGrade(grade) {
		return errors.Errorf("invalid grade: %s", grade)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if grade == s.selection.Grade {
		return nil
	}
	s.selection.Grade = grade
	s.clearCollectionsLocked()
	return nil
}

// SetSearchTerm sets the free-text search filter. No-op when unchanged.
func (s *Store) SetSearchTerm(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if term == s.searchTerm {
		return
	}
	s.searchTerm = term
	s.clearCollectionsLocked()
}

// ResetAll returns the filter tuple to its defaults and clears all
// collection and option state.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = Selection{Discipline: gateway.AllDisciplines}
	s.searchTerm = ""
	s.subOptions = nil
	s.subOptionsLoading = false
	s.subOptionsErr = ""
	s.subOptionsGen++
	s.clearCollectionsLocked()
}

// LoadPage fetches the next page (or, with isRefresh, the first page) of
// one collection and merges it in. The items collection follows the
// filter tuple; myArticles follows the user's subscriptions and ignores
// the discipline/sub-discipline filters but not the grade.
//
// Exhaustion is only learnable from an empty page: a non-empty page
// leaves hasMore true. Failures set the collection's error string and
// leave previously loaded entries untouched. The two collections are
// fully independent failure domains.
//
// Concurrent LoadPage calls on one collection are not deduplicated;
// callers debounce with the Loading flag, the same way screens already
// guard "load more".
func (s *Store) LoadPage(ctx context.Context, kind CollectionKind, userID string, isRefresh bool) error {
	s.mu.Lock()
	col, ok := s.collections[kind]
	if !ok {
		s.mu.Unlock()
		return errors.Errorf("unknown collection: %s", kind)
	}

	offset := len(col.order)
	if isRefresh {
		offset = 0
	}

	q := gateway.ArticleQuery{
		Grade:      s.selection.Grade,
		SearchTerm: s.searchTerm,
		Offset:     offset,
		Limit:      s.pageSize,
		UserID:     userID,
	}
	if kind == CollectionMyArticles {
		q.FilterByUserSubscriptions = true
	} else {
		q.DisciplineName = s.selection.Discipline
		q.SubDisciplineName = s.selection.SubDiscipline
	}

	col.loading = true
	col.errMsg = ""
	gen := col.gen
	s.mu.Unlock()

	page, err := s.articles.QueryArticles(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	if col.gen != gen {
		Log.Debugf("dropping stale page response", string(kind))
		return nil
	}
	col.loading = false
	if err != nil {
		col.errMsg = err.Error()
		return err
	}

	if len(page) == 0 {
		col.hasMore = false
		if isRefresh {
			col.order = []int64{}
			col.offset = 0
			s.pruneLocked()
		}
		return nil
	}

	if isRefresh {
		col.order = col.order[:0]
	}
	for i := range page {
		a := page[i]
		s.byId[a.Id] = &a
		col.order = append(col.order, a.Id)
	}
	col.offset = len(col.order)
	col.hasMore = true
	if isRefresh {
		s.pruneLocked()
	}
	return nil
}

// Refresh reloads both collections from offset zero. This is the uniform
// resynchronization hook for correcting optimistic counter drift.
func (s *Store) Refresh(ctx context.Context, userID string) error {
	if err := s.LoadPage(ctx, CollectionItems, userID, true); err != nil {
		return err
	}
	return s.LoadPage(ctx, CollectionMyArticles, userID, true)
}

// Toggle flips one per-viewer interaction flag for an article currently
// held by at least one collection, issuing exactly one remote call (add
// when the flag is off, remove when on) and adjusting the counter by one
// optimistically. The normalized map makes the result visible through
// both collections. Toggling twice restores flag and counter.
func (s *Store) Toggle(ctx context.Context, kind gateway.InteractionKind, articleID int64, userID string) error {
	s.mu.Lock()
	art, ok := s.byId[articleID]
	if !ok {
		s.mu.Unlock()
		return errors.Wrapf(ErrArticleNotFound, "article %d", articleID)
	}
	wasSet, err := interactionFlag(kind, art)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	gen := s.collections[CollectionItems].gen
	s.mu.Unlock()

	if wasSet {
		err = s.interactions.RemoveInteraction(ctx, kind, articleID, userID)
	} else {
		err = s.interactions.AddInteraction(ctx, kind, articleID, userID)
	}
	if err != nil {
		// No rollback needed, nothing was applied yet. Callers may
		// Refresh to resynchronize.
		return errors.Wrapf(err, "fail to toggle %s on article %d", kind, articleID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	art, ok = s.byId[articleID]
	if !ok || s.collections[CollectionItems].gen != gen {
		// Collections were cleared while the call was in flight; the next
		// page fetch carries the server-side truth.
		return nil
	}
	applyInteraction(kind, art, !wasSet)
	return nil
}

func interactionFlag(kind gateway.InteractionKind, a *model.Article) (bool, error) {
	switch kind {
	case gateway.InteractionLike:
		return a.IsLiked, nil
	case gateway.InteractionRead:
		return a.IsRead, nil
	case gateway.InteractionThumbsUp:
		return a.IsThumbedUp, nil
	default:
		return false, errors.Errorf("unknown interaction kind: %s", kind)
	}
}

func applyInteraction(kind gateway.InteractionKind, a *model.Article, set bool) {
	delta := int64(1)
	if !set {
		delta = -1
	}
	switch kind {
	case gateway.InteractionLike:
		a.IsLiked = set
		a.LikeCount += delta
	case gateway.InteractionRead:
		a.IsRead = set
		a.ReadCount += delta
	case gateway.InteractionThumbsUp:
		a.IsThumbedUp = set
		a.ThumbsUpCount += delta
	}
}

func (s *Store) disciplineIdByName(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	cached := s.disciplines
	s.mu.Unlock()

	if len(cached) == 0 {
		list, err := s.taxonomy.ListDisciplines(ctx)
		if err != nil {
			return 0, err
		}
		s.mu.Lock()
		s.disciplines = list
		s.mu.Unlock()
		cached = list
	}
	for _, d := range cached {
		if d.Name == name {
			return d.Id, nil
		}
	}
	return 0, errors.Errorf("unknown discipline: %s", name)
}

// LoadDisciplines returns the all-disciplines list, fetching it on first
// use and serving the cache afterwards.
func (s *Store) LoadDisciplines(ctx context.Context) ([]model.Discipline, error) {
	s.mu.Lock()
	if len(s.disciplines) > 0 {
		out := make([]model.Discipline, len(s.disciplines))
		copy(out, s.disciplines)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()

	list, err := s.taxonomy.ListDisciplines(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.disciplines = list
	s.mu.Unlock()
	out := make([]model.Discipline, len(list))
	copy(out, list)
	return out, nil
}

// Articles returns a snapshot copy of one collection in order. Mutating
// the result does not touch store state.
func (s *Store) Articles(kind CollectionKind) []model.Article {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[kind]
	if !ok {
		return nil
	}
	out := make([]model.Article, 0, len(col.order))
	for _, id := range col.order {
		a, ok := s.byId[id]
		if !ok {
			continue
		}
		var cp model.Article
		if err := copier.Copy(&cp, a); err != nil {
			continue
		}
		out = append(out, cp)
	}
	return out
}

// Article returns a snapshot of one article if any collection holds it.
func (s *Store) Article(id int64) (model.Article, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byId[id]
	if !ok {
		return model.Article{}, false
	}
	var cp model.Article
	if err := copier.Copy(&cp, a); err != nil {
		return model.Article{}, false
	}
	return cp, true
}

// Collection returns the observable pagination state of one collection.
func (s *Store) Collection(kind CollectionKind) CollectionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, ok := s.collections[kind]
	if !ok {
		return CollectionState{}
	}
	return CollectionState{
		Offset:  col.offset,
		HasMore: col.hasMore,
		Loading: col.loading,
		Err:     col.errMsg,
	}
}

// Selection returns the current filter tuple.
func (s *Store) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// SearchTerm returns the current free-text filter.
func (s *Store) SearchTerm() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchTerm
}

// SubDisciplineOptions returns the option list for the selected
// discipline along with its loading flag and error string.
func (s *Store) SubDisciplineOptions() ([]model.SubDiscipline, bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SubDiscipline, len(s.subOptions))
	copy(out, s.subOptions)
	return out, s.subOptionsLoading, s.subOptionsErr
}
