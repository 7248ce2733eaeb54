package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connect-service/internal/auth"
	"connect-service/internal/mocks"
	"connect-service/internal/models"
	"connect-service/internal/repositories"
	"connect-service/internal/storage"
)

func newUserService(t *testing.T) (*UserService, *mocks.MemoryStore, *auth.TokenManager, string) {
	t.Helper()
	store := mocks.NewMemoryStore()
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	root := t.TempDir()
	files, err := storage.NewLocalStore(root, "/uploads")
	require.NoError(t, err)
	return NewUserService(store.Users(), tokens, files), store, tokens, root
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, tokens, _ := newUserService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, "Alice", "  Alice@Example.com ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", session.User.Email)
	assert.Equal(t, "Alice", session.User.Username)
	assert.NotEqual(t, "secret1", session.User.PasswordHash)

	userID, err := tokens.Parse(session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, userID)

	byEmail, err := svc.Login(ctx, "ALICE@example.com", "", "secret1")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, byEmail.User.ID)

	byName, err := svc.Login(ctx, "", "alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, byName.User.ID)

	_, err = svc.Login(ctx, "alice@example.com", "", "wrong")
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = svc.Login(ctx, "nobody@example.com", "", "secret1")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestRegisterGeneratesUsername(t *testing.T) {
	svc, _, _, _ := newUserService(t)

	session, err := svc.Register(context.Background(), "", "bob@example.com", "secret1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(session.User.Username, "user_"))
	assert.Len(t, session.User.Username, len("user_")+8)
}

func TestRegisterConflicts(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "other", "ALICE@example.com", "secret1")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Register(ctx, "alice", "new@example.com", "secret1")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterUsernameIgnoresCase(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()

	bob, err := svc.Register(ctx, "Bob", "bob@example.com", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "bob", "other@example.com", "secret2")
	assert.ErrorIs(t, err, ErrConflict)

	session, err := svc.Login(ctx, "", "bob", "secret1")
	require.NoError(t, err)
	assert.Equal(t, bob.User.ID, session.User.ID)
}

func TestCreateUsernameTakenMapsToConflict(t *testing.T) {
	store := mocks.NewMemoryStore()
	store.AddUser("carol")
	svc := NewUserService(usernameRaceRepo{UserRepository: store.Users()}, auth.NewTokenManager("test-secret", time.Hour), nil)

	_, err := svc.Register(context.Background(), "CAROL", "carol2@example.com", "secret1")
	assert.ErrorIs(t, err, ErrConflict)
}

// usernameRaceRepo hides existing usernames from the pre-insert check so
// Create is the one to reject the duplicate.
type usernameRaceRepo struct {
	repositories.UserRepository
}

func (usernameRaceRepo) UsernameExists(context.Context, string) (bool, error) {
	return false, nil
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "", "secret1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(ctx, "", "not-an-email", "secret1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.Register(ctx, "", "a@example.com", "123")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestFindByUsernameIgnoresCase(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()
	session, err := svc.Register(ctx, "CamelCase", "camel@example.com", "secret1")
	require.NoError(t, err)

	found, err := svc.FindByUsername(ctx, "camelcase")
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, found.ID)

	_, err = svc.FindByEmail(ctx, "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfileAndPassword(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()
	alice, err := svc.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "bob@example.com", "secret1")
	require.NoError(t, err)

	bio := "hi there"
	hidden := false
	user, err := svc.UpdateProfile(ctx, alice.User.ID, models.ProfileUpdate{Bio: &bio, ShowLastSeen: &hidden})
	require.NoError(t, err)
	assert.Equal(t, "hi there", user.Bio)
	assert.False(t, user.ShowLastSeen)
	assert.Equal(t, "alice", user.Username)

	taken := "bob"
	_, err = svc.UpdateProfile(ctx, alice.User.ID, models.ProfileUpdate{Username: &taken})
	assert.ErrorIs(t, err, ErrConflict)
	shouted := "BOB"
	_, err = svc.UpdateProfile(ctx, alice.User.ID, models.ProfileUpdate{Username: &shouted})
	assert.ErrorIs(t, err, ErrConflict)

	recased := "Alice"
	user, err = svc.UpdateProfile(ctx, alice.User.ID, models.ProfileUpdate{Username: &recased})
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Username)

	assert.ErrorIs(t, svc.ChangePassword(ctx, alice.User.ID, "wrong", "secret2"), ErrValidation)
	assert.ErrorIs(t, svc.ChangePassword(ctx, alice.User.ID, "secret1", "123"), ErrValidation)
	require.NoError(t, svc.ChangePassword(ctx, alice.User.ID, "secret1", "secret2"))

	_, err = svc.Login(ctx, "alice@example.com", "", "secret2")
	assert.NoError(t, err)
}

func TestProfilePhotoLifecycle(t *testing.T) {
	svc, store, _, root := newUserService(t)
	ctx := context.Background()
	alice, err := svc.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)

	tmp := filepath.Join(t.TempDir(), "p.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("png"), 0o644))
	url, err := svc.SetPhoto(ctx, alice.User.ID, Upload{TempPath: tmp, FileName: "me.png", Size: 3, MimeType: "image/png"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/profile_photos/"))

	stored := filepath.Join(root, "profile_photos", filepath.Base(url))
	_, err = os.Stat(stored)
	require.NoError(t, err)

	user, err := store.Users().GetByID(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Equal(t, url, user.PhotoURL)

	require.NoError(t, svc.RemovePhoto(ctx, alice.User.ID))
	_, err = os.Stat(stored)
	assert.True(t, os.IsNotExist(err))

	doc := filepath.Join(t.TempDir(), "d.tmp")
	require.NoError(t, os.WriteFile(doc, []byte("pdf"), 0o644))
	_, err = svc.SetPhoto(ctx, alice.User.ID, Upload{TempPath: doc, FileName: "cv.pdf", Size: 3, MimeType: "application/pdf"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = os.Stat(doc)
	assert.True(t, os.IsNotExist(err))
}

func TestBlockAndDeleteAccount(t *testing.T) {
	svc, _, _, _ := newUserService(t)
	ctx := context.Background()
	alice, err := svc.Register(ctx, "alice", "alice@example.com", "secret1")
	require.NoError(t, err)
	bob, err := svc.Register(ctx, "bob", "bob@example.com", "secret1")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Block(ctx, alice.User.ID, alice.User.ID), ErrValidation)
	assert.ErrorIs(t, svc.Block(ctx, alice.User.ID, 999), ErrNotFound)
	require.NoError(t, svc.Block(ctx, alice.User.ID, bob.User.ID))
	require.NoError(t, svc.Block(ctx, alice.User.ID, bob.User.ID))

	blocked, err := svc.ListBlocked(ctx, alice.User.ID)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, "bob", blocked[0].Username)

	assert.ErrorIs(t, svc.DeleteAccount(ctx, bob.User.ID, "nope"), ErrValidation)
	require.NoError(t, svc.DeleteAccount(ctx, bob.User.ID, "secret1"))

	blocked, err = svc.ListBlocked(ctx, alice.User.ID)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, models.UserSummary{ID: bob.User.ID}, blocked[0])

	require.NoError(t, svc.Unblock(ctx, alice.User.ID, bob.User.ID))
	blocked, err = svc.ListBlocked(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Empty(t, blocked)
}
