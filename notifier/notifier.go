package notifier

// Scheduler wakes up once per cycle, finds every user whose notification
// frequency makes them due for a digest, assembles the digest from the
// newest articles in their subscribed disciplines and hands it to the
// push consumer. LastNotifiedAt is only stamped after a successful push
// so a failed cycle retries on the next tick.

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/medveille/veille-backend/gateway"
	"github.com/medveille/veille-backend/model"
	Logger "github.com/medveille/veille-backend/utils/log"
)

const (
	// DigestMaxArticles caps how many articles one digest mentions.
	DigestMaxArticles = 3
	// DefaultCycle is how often the scheduler scans for due users.
	DefaultCycle = time.Hour
)

var Log = Logger.LogV2

// DigestJob is one outgoing push: the due user's device tokens plus the
// rendered notification content.
type DigestJob struct {
	UserID     string
	Tokens     []string
	Title      string
	Body       string
	ArticleIds []int64
}

// PushConsumer delivers a digest to the push provider.
type PushConsumer interface {
	PushDigest(job DigestJob) (*http.Response, error)
}

type Scheduler struct {
	db       *gorm.DB
	articles gateway.ArticleQuerier
	consumer PushConsumer

	ticker *time.Ticker
	cycle  time.Duration
	ctx    context.Context
	cancel context.CancelFunc

	now func() time.Time
}

func NewScheduler(db *gorm.DB, articles gateway.ArticleQuerier, consumer PushConsumer, cycle time.Duration) *Scheduler {
	if cycle <= 0 {
		cycle = DefaultCycle
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		db:       db,
		articles: articles,
		consumer: consumer,
		ticker:   time.NewTicker(cycle),
		cycle:    cycle,
		ctx:      ctx,
		cancel:   cancel,
		now:      time.Now,
	}
}

// Start runs scheduling cycles until Stop.
func (s *Scheduler) Start() {
	Log.Info("digest scheduler starts up")
	for {
		select {
		case <-s.ctx.Done():
			Log.Info("digest scheduler done")
			return
		case <-s.ticker.C:
			s.runCycle()
		}
	}
}

func (s *Scheduler) Stop() {
	Log.Info("digest scheduler stop request received")
	s.ticker.Stop()
	s.cancel()
}

func (s *Scheduler) runCycle() {
	now := s.now()

	var profiles []model.Profile
	if err := s.db.WithContext(s.ctx).
		Where("notifications_enabled = ?", true).Find(&profiles).Error; err != nil {
		Log.Errorf("fail to scan profiles for digests", err)
		return
	}

	due := 0
	sent := 0
	for _, profile := range profiles {
		if !ShouldSendToday(profile.LastNotifiedAt, profile.NotificationFrequency, now) {
			continue
		}
		due++
		if s.notifyUser(profile, now) {
			sent++
		}
	}
	Log.Infof("digest cycle finished", fmt.Sprintf("due=%d sent=%d", due, sent))
}

// notifyUser builds and pushes one digest, reporting success.
func (s *Scheduler) notifyUser(profile model.Profile, now time.Time) bool {
	articles, err := s.articles.QueryArticles(s.ctx, gateway.ArticleQuery{
		UserID:                    profile.UserID,
		FilterByUserSubscriptions: true,
		Limit:                     DigestMaxArticles,
	})
	if err != nil {
		Log.Errorf("fail to query digest articles", profile.UserID, err)
		return false
	}
	if len(articles) == 0 {
		// nothing new in the user's disciplines, skip without stamping
		return false
	}

	var tokens []model.PushToken
	if err := s.db.WithContext(s.ctx).
		Where("user_id = ?", profile.UserID).Find(&tokens).Error; err != nil {
		Log.Errorf("fail to load push tokens", profile.UserID, err)
		return false
	}
	if len(tokens) == 0 {
		return false
	}

	job := buildDigestJob(profile.UserID, tokens, articles)
	if _, err := s.consumer.PushDigest(job); err != nil {
		Log.Errorf("fail to push digest", profile.UserID, err)
		return false
	}

	if err := s.db.WithContext(s.ctx).Model(&model.Profile{}).
		Where("user_id = ?", profile.UserID).
		Update("last_notified_at", now).Error; err != nil {
		Log.Errorf("fail to stamp last_notified_at", profile.UserID, err)
	}
	return true
}

func buildDigestJob(userID string, tokens []model.PushToken, articles []model.Article) DigestJob {
	job := DigestJob{
		UserID: userID,
		Title:  "Your veille digest",
	}
	for _, t := range tokens {
		job.Tokens = append(job.Tokens, t.Token)
	}
	for _, a := range articles {
		job.ArticleIds = append(job.ArticleIds, a.Id)
	}
	if len(articles) == 1 {
		job.Body = articles[0].Title
	} else {
		job.Body = fmt.Sprintf("%s and %d more", articles[0].Title, len(articles)-1)
	}
	return job
}
