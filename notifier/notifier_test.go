package notifier

import (
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/medveille/veille-backend/gateway"
	"github.com/medveille/veille-backend/model"
	"github.com/medveille/veille-backend/utils"
)

type fakeConsumer struct {
	mu   sync.Mutex
	jobs []DigestJob
	err  error
}

func (f *fakeConsumer) PushDigest(job DigestJob) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.jobs = append(f.jobs, job)
	return nil, nil
}

func (f *fakeConsumer) pushed() []DigestJob {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DigestJob, len(f.jobs))
	copy(out, f.jobs)
	return out
}

func seedDigestFixtures(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&model.Discipline{Id: 1, Name: "Cardiology"}).Error)
	require.NoError(t, db.Create(&[]model.Article{
		{Id: 1, Title: "Beta blockers revisited", Grade: model.GradeA, DisciplineID: 1, PublishedAt: time.Now()},
		{Id: 2, Title: "Statins and outcomes", Grade: model.GradeB, DisciplineID: 1, PublishedAt: time.Now().Add(-time.Hour)},
	}).Error)
	require.NoError(t, db.Create(&model.Subscription{UserID: "u1", DisciplineID: 1}).Error)
	require.NoError(t, db.Create(&model.PushToken{UserID: "u1", Token: "ExponentPushToken[abc]", Platform: "ios"}).Error)
}

func newTestScheduler(db *gorm.DB, consumer PushConsumer, now time.Time) *Scheduler {
	s := NewScheduler(db, gateway.NewPgGateway(db), consumer, time.Minute)
	s.now = func() time.Time { return now }
	return s
}

func TestCyclePushesDueUser(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	seedDigestFixtures(t, db)
	require.NoError(t, db.Create(&model.Profile{
		UserID:                "u1",
		NotificationsEnabled:  true,
		NotificationFrequency: model.FrequencyDaily,
	}).Error)

	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	consumer := &fakeConsumer{}
	s := newTestScheduler(db, consumer, now)
	s.runCycle()

	jobs := consumer.pushed()
	require.Len(t, jobs, 1)
	assert.Equal(t, "u1", jobs[0].UserID)
	assert.Equal(t, []string{"ExponentPushToken[abc]"}, jobs[0].Tokens)
	assert.Contains(t, jobs[0].Body, "Beta blockers revisited")
	assert.Contains(t, jobs[0].Body, "1 more")
	assert.Equal(t, []int64{1, 2}, jobs[0].ArticleIds)

	var profile model.Profile
	require.NoError(t, db.Where("user_id = ?", "u1").First(&profile).Error)
	require.NotNil(t, profile.LastNotifiedAt)
	assert.WithinDuration(t, now, *profile.LastNotifiedAt, time.Second)
}

func TestCycleSkipsNotDueUser(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	seedDigestFixtures(t, db)
	lastSent := time.Date(2024, 5, 10, 7, 0, 0, 0, time.UTC)
	require.NoError(t, db.Create(&model.Profile{
		UserID:                "u1",
		NotificationsEnabled:  true,
		NotificationFrequency: model.FrequencyWeekly,
		LastNotifiedAt:        &lastSent,
	}).Error)

	consumer := &fakeConsumer{}
	s := newTestScheduler(db, consumer, lastSent.Add(2*24*time.Hour))
	s.runCycle()

	assert.Empty(t, consumer.pushed())
}

func TestCycleSkipsDisabledProfiles(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	seedDigestFixtures(t, db)
	require.NoError(t, db.Create(&model.Profile{
		UserID:                "u1",
		NotificationsEnabled:  false,
		NotificationFrequency: model.FrequencyDaily,
	}).Error)

	consumer := &fakeConsumer{}
	s := newTestScheduler(db, consumer, time.Now())
	s.runCycle()

	assert.Empty(t, consumer.pushed())
}

func TestCycleSkipsUserWithoutSubscriptionMatches(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	// user due but subscribed to nothing: no digest, no stamp
	require.NoError(t, db.Create(&model.Profile{
		UserID:                "u2",
		NotificationsEnabled:  true,
		NotificationFrequency: model.FrequencyDaily,
	}).Error)

	consumer := &fakeConsumer{}
	s := newTestScheduler(db, consumer, time.Now())
	s.runCycle()

	assert.Empty(t, consumer.pushed())
	var profile model.Profile
	require.NoError(t, db.Where("user_id = ?", "u2").First(&profile).Error)
	assert.Nil(t, profile.LastNotifiedAt)
}

func TestFailedPushDoesNotStamp(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	seedDigestFixtures(t, db)
	require.NoError(t, db.Create(&model.Profile{
		UserID:                "u1",
		NotificationsEnabled:  true,
		NotificationFrequency: model.FrequencyDaily,
	}).Error)

	consumer := &fakeConsumer{err: fmt.Errorf("provider down")}
	s := newTestScheduler(db, consumer, time.Now())
	s.runCycle()

	var profile model.Profile
	require.NoError(t, db.Where("user_id = ?", "u1").First(&profile).Error)
	// failed cycle retries next tick
	assert.Nil(t, profile.LastNotifiedAt)
}
