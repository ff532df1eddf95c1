package profile

// Store holds the editable copy of a user's profile and discipline
// subscriptions. Edits stay local until Save, which writes the profile
// fields and replaces the whole subscription set server-side.
//
// Subscription editing follows checkbox semantics over the taxonomy:
// a discipline is either subscribed wholesale (covers every
// sub-discipline, stored as one NULL-sub row) or through specific
// sub-disciplines. Checking a sub-discipline implicitly checks the
// parent; unchecking the last one unchecks it.

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	"github.com/medveille/veille-backend/gateway"
	"github.com/medveille/veille-backend/model"
)

type Store struct {
	mu sync.Mutex

	profiles gateway.ProfileStore
	taxonomy gateway.Taxonomy

	userID  string
	profile model.Profile

	wholeDiscipline map[int64]bool
	subDisciplines  map[int64]map[int64]bool

	gradePrefs []model.Grade

	// taxonomy cache, fetched on Load and reused
	disciplines []model.Discipline
}

func NewStore(profiles gateway.ProfileStore, taxonomy gateway.Taxonomy) *Store {
	return &Store{
		profiles:        profiles,
		taxonomy:        taxonomy,
		wholeDiscipline: map[int64]bool{},
		subDisciplines:  map[int64]map[int64]bool{},
	}
}

// Load pulls the user's profile, subscription tree and the discipline
// taxonomy into the editable working set, dropping any unsaved edits.
func (s *Store) Load(ctx context.Context, userID string) error {
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	tree, err := s.taxonomy.UserSubscriptionTree(ctx, userID)
	if err != nil {
		return err
	}
	disciplines, err := s.taxonomy.ListDisciplines(ctx)
	if err != nil {
		return err
	}

	var grades []model.Grade
	if len(profile.GradePreferences) > 0 {
		if err := json.Unmarshal(profile.GradePreferences, &grades); err != nil {
			return errors.Wrap(err, "fail to decode grade preferences")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.profile = *profile
	s.disciplines = disciplines
	s.gradePrefs = grades
	s.wholeDiscipline = map[int64]bool{}
	s.subDisciplines = map[int64]map[int64]bool{}
	for _, node := range tree {
		if node.WholeDiscipline {
			s.wholeDiscipline[node.Discipline.Id] = true
		}
		for _, sub := range node.SubDisciplines {
			if s.subDisciplines[node.Discipline.Id] == nil {
				s.subDisciplines[node.Discipline.Id] = map[int64]bool{}
			}
			s.subDisciplines[node.Discipline.Id][sub.Id] = true
		}
	}
	return nil
}

// Profile returns the working copy of the profile fields.
func (s *Store) Profile() model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// Disciplines returns the cached taxonomy list.
func (s *Store) Disciplines() []model.Discipline {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Discipline, len(s.disciplines))
	copy(out, s.disciplines)
	return out
}

// SetFields updates the free-form profile fields in the working copy.
func (s *Store) SetFields(firstName, lastName, job string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.FirstName = firstName
	s.profile.LastName = lastName
	s.profile.Job = job
}

// SetNotificationPrefs updates the push digest settings.
func (s *Store) SetNotificationPrefs(enabled bool, freq model.Frequency) error {
	if !model.ValidFrequency(freq) {
		return errors.Errorf("invalid notification frequency: %s", freq)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile.NotificationsEnabled = enabled
	s.profile.NotificationFrequency = freq
	return nil
}

// SetGradePreferences replaces the preferred-grades set.
func (s *Store) SetGradePreferences(grades []model.Grade) error {
	for _, g := range grades {
		if !model.ValidGrade(g) {
			return errors.Errorf("invalid grade: %s", g)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gradePrefs = append([]model.Grade{}, grades...)
	return nil
}

// GradePreferences returns the working preferred-grades set.
func (s *Store) GradePreferences() []model.Grade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Grade{}, s.gradePrefs...)
}

// ToggleDiscipline flips a discipline checkbox. An unchecked discipline
// becomes whole-discipline subscribed; a checked one (whole or through
// sub-disciplines) is fully unchecked.
func (s *Store) ToggleDiscipline(disciplineID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wholeDiscipline[disciplineID] {
		delete(s.wholeDiscipline, disciplineID)
		return
	}
	if len(s.subDisciplines[disciplineID]) > 0 {
		delete(s.subDisciplines, disciplineID)
		return
	}
	s.wholeDiscipline[disciplineID] = true
}

// ToggleSubDiscipline flips one sub-discipline checkbox. Checking it
// narrows a whole-discipline subscription down to that sub-discipline;
// unchecking the last sub-discipline leaves the parent unchecked.
func (s *Store) ToggleSubDiscipline(disciplineID, subDisciplineID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.subDisciplines[disciplineID]
	if subs != nil && subs[subDisciplineID] {
		delete(subs, subDisciplineID)
		if len(subs) == 0 {
			delete(s.subDisciplines, disciplineID)
		}
		return
	}
	if subs == nil {
		subs = map[int64]bool{}
		s.subDisciplines[disciplineID] = subs
	}
	subs[subDisciplineID] = true
	delete(s.wholeDiscipline, disciplineID)
}

// IsDisciplineSubscribed reports whether the discipline checkbox shows
// checked: either subscribed wholesale or through at least one
// sub-discipline.
func (s *Store) IsDisciplineSubscribed(disciplineID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wholeDiscipline[disciplineID] || len(s.subDisciplines[disciplineID]) > 0
}

// IsSubDisciplineSubscribed reports one sub-discipline checkbox. A
// whole-discipline subscription covers all of them.
func (s *Store) IsSubDisciplineSubscribed(disciplineID, subDisciplineID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.wholeDiscipline[disciplineID] {
		return true
	}
	return s.subDisciplines[disciplineID][subDisciplineID]
}

// Subscriptions materializes the working set as subscription rows.
func (s *Store) Subscriptions() []model.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscriptionsLocked()
}

func (s *Store) subscriptionsLocked() []model.Subscription {
	rows := []model.Subscription{}
	for disciplineID := range s.wholeDiscipline {
		rows = append(rows, model.WholeDiscipline(s.userID, disciplineID))
	}
	for disciplineID, subs := range s.subDisciplines {
		for subID := range subs {
			rows = append(rows, model.SpecificSubDiscipline(s.userID, disciplineID, subID))
		}
	}
	return rows
}

// Save writes the profile fields and grade preferences, then replaces
// the stored subscription set with the working one. Subscription saves
// are delete-all-then-insert, not a diff.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return errors.New("profile not loaded")
	}
	encoded, err := json.Marshal(s.gradePrefs)
	if err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "fail to encode grade preferences")
	}
	s.profile.GradePreferences = encoded
	profile := s.profile
	userID := s.userID
	rows := s.subscriptionsLocked()
	s.mu.Unlock()

	if err := s.profiles.UpdateProfile(ctx, &profile); err != nil {
		return err
	}
	return s.profiles.ReplaceSubscriptions(ctx, userID, rows)
}
