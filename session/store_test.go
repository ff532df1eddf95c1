package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medveille/veille-backend/model"
	"github.com/medveille/veille-backend/utils"
)

var testSecret = []byte("test-secret")

func TestSignUpAndSignIn(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	s := NewStore(db, testSecret, nil)
	ctx := context.Background()

	created, err := s.SignUp(ctx, "doc@example.org", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "doc@example.org", created.Email)
	assert.False(t, created.Anonymous)
	assert.NotEmpty(t, created.Token)

	require.NoError(t, s.SignOut(ctx))
	assert.Nil(t, s.Current())

	signed, err := s.SignIn(ctx, "doc@example.org", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, created.UserID, signed.UserID)

	identity, _, err := ParseToken(testSecret, signed.Token)
	require.NoError(t, err)
	assert.Equal(t, created.UserID, identity.UserID)
	assert.Equal(t, "doc@example.org", identity.Email)
}

func TestSignInWrongPassword(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	s := NewStore(db, testSecret, nil)
	ctx := context.Background()

	_, err := s.SignUp(ctx, "doc@example.org", "hunter22")
	require.NoError(t, err)

	_, err = s.SignIn(ctx, "doc@example.org", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.SignIn(ctx, "nobody@example.org", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAnonymousSessionAndLink(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	s := NewStore(db, testSecret, nil)
	ctx := context.Background()

	anon, err := s.SignUpAnonymous(ctx)
	require.NoError(t, err)
	assert.True(t, anon.Anonymous)
	assert.Empty(t, anon.Email)

	// upgrading keeps the same user id, interactions carry over
	linked, err := s.LinkAccount(ctx, "doc@example.org", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, anon.UserID, linked.UserID)
	assert.False(t, linked.Anonymous)
	assert.Equal(t, "doc@example.org", linked.Email)

	var user model.User
	require.NoError(t, db.Where("id = ?", anon.UserID).First(&user).Error)
	assert.False(t, user.Anonymous)

	// a second link attempt is rejected, the session is permanent now
	_, err = s.LinkAccount(ctx, "other@example.org", "pw")
	assert.ErrorIs(t, err, ErrNotAnonymous)
}

func TestLinkWithoutSession(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	s := NewStore(db, testSecret, nil)

	_, err := s.LinkAccount(context.Background(), "doc@example.org", "pw")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRestoreFromPersistedToken(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	persister := NewMemoryPersister()
	ctx := context.Background()

	first := NewStore(db, testSecret, persister)
	created, err := first.SignUp(ctx, "doc@example.org", "hunter22")
	require.NoError(t, err)

	// a fresh store sharing the persister stands in for an app restart
	second := NewStore(db, testSecret, persister)
	restored, err := second.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, created.UserID, restored.UserID)
	assert.Equal(t, created.Email, restored.Email)
}

func TestRestoreWithNothingPersisted(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	s := NewStore(db, testSecret, nil)

	_, err := s.Restore(context.Background())
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionEvents(t *testing.T) {
	db, cleanup := utils.CreateTempDB(t)
	defer cleanup()
	s := NewStore(db, testSecret, nil)
	ctx := context.Background()

	_, err := s.SignUpAnonymous(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SignOut(ctx))

	e := <-s.Events()
	assert.Equal(t, EventSignedIn, e.Kind)
	require.NotNil(t, e.Session)
	assert.True(t, e.Session.Anonymous)

	e = <-s.Events()
	assert.Equal(t, EventSignedOut, e.Kind)
	assert.Nil(t, e.Session)
}
