package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/medveille/veille-backend/model"
	Logger "github.com/medveille/veille-backend/utils/log"
)

var Log = Logger.LogV2

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("no active session")
	ErrNotAnonymous       = errors.New("current session is not anonymous")
)

const (
	defaultTTL      = 30 * 24 * time.Hour
	eventBufferSize = 16
)

// Session is an authenticated identity plus its bearer token. Anonymous
// sessions have no email and can be upgraded in place via LinkAccount.
type Session struct {
	UserID    string
	Email     string
	Anonymous bool
	Token     string
	ExpiresAt time.Time
}

type EventKind string

const (
	EventSignedIn  EventKind = "signed_in"
	EventSignedOut EventKind = "signed_out"
)

// Event is one session-change notification. Session is nil on sign-out.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Store owns account records and the active client session. The
// account-level operations (Authenticate, CreateAccount, CreateAnonymous,
// UpgradeUser) are stateless and shared with the server handlers; the
// Sign* methods additionally install the result as the active session,
// persist its token across restarts and emit change events.
type Store struct {
	db        *gorm.DB
	secret    []byte
	ttl       time.Duration
	persister TokenPersister

	mu      sync.Mutex
	current *Session
	events  chan Event
}

func NewStore(db *gorm.DB, secret []byte, persister TokenPersister) *Store {
	if persister == nil {
		persister = NewMemoryPersister()
	}
	return &Store{
		db:        db,
		secret:    secret,
		ttl:       defaultTTL,
		persister: persister,
		events:    make(chan Event, eventBufferSize),
	}
}

// Events is the stream of session-change notifications.
func (s *Store) Events() <-chan Event {
	return s.events
}

func (s *Store) emit(e Event) {
	select {
	case s.events <- e:
	default:
		Log.Errorf("session event dropped, consumer too slow", string(e.Kind))
	}
}

// Current returns a copy of the active session, or nil.
func (s *Store) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

type claims struct {
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anon"`
	jwt.RegisteredClaims
}

func (s *Store) issueSession(user *model.User) (*Session, error) {
	expiresAt := time.Now().Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email:     user.Email,
		Anonymous: user.Anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Id,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, errors.Wrap(err, "fail to sign session token")
	}
	return &Session{
		UserID:    user.Id,
		Email:     user.Email,
		Anonymous: user.Anonymous,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *Store) install(ctx context.Context, sess *Session) {
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	if err := s.persister.Save(ctx, sess.Token); err != nil {
		Log.Errorf("fail to persist session token", err)
	}
	cp := *sess
	s.emit(Event{Kind: EventSignedIn, Session: &cp})
}

// Authenticate checks credentials and issues a session without
// installing it.
func (s *Store) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	var user model.User
	res := s.db.WithContext(ctx).Where("email = ? AND anonymous = ?", email, false).First(&user)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errors.Wrap(res.Error, "fail to look up user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issueSession(&user)
}

// CreateAccount registers a permanent account and issues its session.
func (s *Store) CreateAccount(ctx context.Context, email, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "fail to hash password")
	}
	user := model.User{
		Id:           uuid.New().String(),
		Email:        email,
		PasswordHash: string(hash),
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create user")
	}
	return s.issueSession(&user)
}

// CreateAnonymous registers a credential-less identity and issues its
// session.
func (s *Store) CreateAnonymous(ctx context.Context) (*Session, error) {
	user := model.User{
		Id:        uuid.New().String(),
		Anonymous: true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, errors.Wrap(err, "fail to create anonymous user")
	}
	return s.issueSession(&user)
}

// UpgradeUser turns an anonymous account into a permanent one, keeping
// the user id so likes, reads and subscriptions carry over.
func (s *Store) UpgradeUser(ctx context.Context, userID, email, password string) (*Session, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "fail to hash password")
	}
	res := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND anonymous = ?", userID, true).
		Updates(map[string]interface{}{
			"email":         email,
			"password_hash": string(hash),
			"anonymous":     false,
		})
	if res.Error != nil {
		return nil, errors.Wrap(res.Error, "fail to link account")
	}
	if res.RowsAffected != 1 {
		return nil, ErrNotAnonymous
	}
	user := model.User{Id: userID, Email: email, Anonymous: false}
	return s.issueSession(&user)
}

// SignIn authenticates and installs the session.
func (s *Store) SignIn(ctx context.Context, email, password string) (*Session, error) {
	sess, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.install(ctx, sess)
	return s.Current(), nil
}

// SignUp creates a permanent account and signs it in.
func (s *Store) SignUp(ctx context.Context, email, password string) (*Session, error) {
	sess, err := s.CreateAccount(ctx, email, password)
	if err != nil {
		return nil, err
	}
	s.install(ctx, sess)
	return s.Current(), nil
}

// SignUpAnonymous creates a credential-less identity and signs it in.
func (s *Store) SignUpAnonymous(ctx context.Context) (*Session, error) {
	sess, err := s.CreateAnonymous(ctx)
	if err != nil {
		return nil, err
	}
	s.install(ctx, sess)
	return s.Current(), nil
}

// LinkAccount upgrades the active anonymous session to a permanent one.
func (s *Store) LinkAccount(ctx context.Context, email, password string) (*Session, error) {
	current := s.Current()
	if current == nil {
		return nil, ErrNoSession
	}
	if !current.Anonymous {
		return nil, ErrNotAnonymous
	}
	sess, err := s.UpgradeUser(ctx, current.UserID, email, password)
	if err != nil {
		return nil, err
	}
	s.install(ctx, sess)
	return s.Current(), nil
}

// SignOut drops the active session and its persisted token.
func (s *Store) SignOut(ctx context.Context) error {
	s.mu.Lock()
	had := s.current != nil
	s.current = nil
	s.mu.Unlock()
	if !had {
		return nil
	}
	if err := s.persister.Clear(ctx); err != nil {
		Log.Errorf("fail to clear persisted session", err)
	}
	s.emit(Event{Kind: EventSignedOut})
	return nil
}

// Restore rebuilds the session from the persisted token, if one exists
// and hasn't expired. Returns ErrNoSession when there is nothing to
// restore.
func (s *Store) Restore(ctx context.Context) (*Session, error) {
	token, err := s.persister.Load(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "fail to load persisted token")
	}
	if token == "" {
		return nil, ErrNoSession
	}

	identity, expiresAt, err := ParseToken(s.secret, token)
	if err != nil {
		// expired or tampered, drop it
		if clearErr := s.persister.Clear(ctx); clearErr != nil {
			Log.Errorf("fail to clear invalid session token", clearErr)
		}
		return nil, ErrNoSession
	}

	sess := &Session{
		UserID:    identity.UserID,
		Email:     identity.Email,
		Anonymous: identity.Anonymous,
		Token:     token,
		ExpiresAt: expiresAt,
	}
	s.mu.Lock()
	s.current = sess
	s.mu.Unlock()
	cp := *sess
	s.emit(Event{Kind: EventSignedIn, Session: &cp})
	return s.Current(), nil
}

// Identity is the token-derived view of a user, used by the server
// middleware to scope requests.
type Identity struct {
	UserID    string
	Email     string
	Anonymous bool
}

// ParseToken validates a bearer token and extracts the identity.
func ParseToken(secret []byte, token string) (Identity, time.Time, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return Identity{}, time.Time{}, errors.Wrap(err, "invalid token")
	}
	if !parsed.Valid {
		return Identity{}, time.Time{}, errors.New("invalid token")
	}
	var expiresAt time.Time
	if c.ExpiresAt != nil {
		expiresAt = c.ExpiresAt.Time
	}
	return Identity{
		UserID:    c.Subject,
		Email:     c.Email,
		Anonymous: c.Anonymous,
	}, expiresAt, nil
}
