package profile

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-editor/adapters/persistence"
	"github.com/khoahotran/profile-editor/internal/application/collection"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/internal/domain/user"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

type flakyStore struct {
	*persistence.MemoryProfileStore
	getErr   error
	mergeErr error
}

func (s *flakyStore) Get(ctx context.Context, ownerID string) (*profile.Document, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return s.MemoryProfileStore.Get(ctx, ownerID)
}

func (s *flakyStore) SetMerge(ctx context.Context, ownerID string, p profile.Patch) error {
	if s.mergeErr != nil {
		return s.mergeErr
	}
	return s.MemoryProfileStore.SetMerge(ctx, ownerID, p)
}

type fakeUploader struct {
	url      string
	err      error
	publicID string
}

func (u *fakeUploader) Upload(_ context.Context, file io.Reader, _ string, publicID string) (string, error) {
	_, _ = io.ReadAll(file)
	u.publicID = publicID
	return u.url, u.err
}

func (u *fakeUploader) Delete(context.Context, string) error { return nil }

type fakeSession struct {
	mu        sync.Mutex
	current   *user.Identity
	listener  user.IdentityListener
	signedOut bool
}

func (s *fakeSession) Subscribe(ctx context.Context, fn user.IdentityListener) (func(), error) {
	s.mu.Lock()
	s.listener = fn
	id := s.current
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.listener = nil
		s.mu.Unlock()
	}, fn(ctx, id)
}

func (s *fakeSession) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.signedOut = true
	s.current = nil
	fn := s.listener
	s.mu.Unlock()
	if fn != nil {
		return fn(ctx, nil)
	}
	return nil
}

func strPtr(s string) *string { return &s }

func newController(t *testing.T) (*ProfileController, *flakyStore) {
	t.Helper()
	store := &flakyStore{MemoryProfileStore: persistence.NewMemoryProfileStore()}
	return NewProfileController(store, &fakeUploader{url: "https://cdn/img.png"}, nil, logger.NewNopLogger()), store
}

func TestLoad_MissingDocumentUsesIdentityEmail(t *testing.T) {
	c, _ := newController(t)

	view, err := c.Load(context.Background(), "u1", "ada@example.com")

	require.NoError(t, err)
	assert.True(t, view.ProfileMissing)
	assert.Equal(t, "ada@example.com", view.Profile.Email)
	assert.Equal(t, collection.Empty.String(), view.State)
}

func TestLoad_EmailComesFromIdentity(t *testing.T) {
	c, store := newController(t)
	doc := profile.NewDocument("u1")
	doc.Profile = profile.UserProfile{FirstName: "Ada", Email: "old@example.com"}
	store.Seed(doc)

	view, err := c.Load(context.Background(), "u1", "ada@example.com")

	require.NoError(t, err)
	assert.False(t, view.ProfileMissing)
	assert.Equal(t, "Ada", view.Profile.FirstName)
	assert.Equal(t, "ada@example.com", view.Profile.Email)
}

func TestLoad_Failure(t *testing.T) {
	c, store := newController(t)
	store.getErr = errors.New("down")

	_, err := c.Load(context.Background(), "u1", "a@b.c")

	assert.ErrorIs(t, err, apperror.ErrLoadFailed)
	assert.Equal(t, collection.Empty.String(), c.View().State)
}

func TestSave_RequiresSession(t *testing.T) {
	c, _ := newController(t)

	_, err := c.Save(context.Background(), profile.Patch{Bio: strPtr("hi")})

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestSave_MergeKeepsOtherFields(t *testing.T) {
	ctx := context.Background()
	c, store := newController(t)
	_, err := c.Load(ctx, "u1", "a@b.c")
	require.NoError(t, err)

	_, err = c.Save(ctx, profile.Patch{FirstName: strPtr("Ada"), Mobile: strPtr("555")})
	require.NoError(t, err)
	saved, err := c.Save(ctx, profile.Patch{Bio: strPtr("Analyst")})
	require.NoError(t, err)

	assert.Equal(t, "Ada", saved.FirstName)
	assert.Equal(t, "555", saved.Mobile)
	assert.Equal(t, "Analyst", saved.Bio)
	assert.False(t, c.View().ProfileMissing)

	doc, _ := store.Get(ctx, "u1")
	assert.Equal(t, "Ada", doc.Profile.FirstName)
	assert.Equal(t, "Analyst", doc.Profile.Bio)
}

func TestSave_FailureKeepsCommittedProfile(t *testing.T) {
	ctx := context.Background()
	c, store := newController(t)
	_, _ = c.Load(ctx, "u1", "a@b.c")
	_, err := c.Save(ctx, profile.Patch{Bio: strPtr("before")})
	require.NoError(t, err)

	store.mergeErr = errors.New("rejected")
	_, err = c.Save(ctx, profile.Patch{Bio: strPtr("after")})

	assert.ErrorIs(t, err, apperror.ErrRemoteWriteFailed)
	assert.Equal(t, "before", c.View().Profile.Bio)
}

func TestUploadImage_SavesReference(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryProfileStore: persistence.NewMemoryProfileStore()}
	up := &fakeUploader{url: "https://cdn/avatar.png"}
	c := NewProfileController(store, up, nil, logger.NewNopLogger())
	_, _ = c.Load(ctx, "u1", "a@b.c")

	saved, err := c.UploadImage(ctx, strings.NewReader("png-bytes"))

	require.NoError(t, err)
	require.NotNil(t, saved.ProfileImageRef)
	assert.Equal(t, "https://cdn/avatar.png", *saved.ProfileImageRef)
	assert.Equal(t, "avatar-u1", up.publicID)
}

func TestUploadImage_UploadFailure(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemoryProfileStore: persistence.NewMemoryProfileStore()}
	c := NewProfileController(store, &fakeUploader{err: errors.New("quota")}, nil, logger.NewNopLogger())
	_, _ = c.Load(ctx, "u1", "a@b.c")

	_, err := c.UploadImage(ctx, strings.NewReader("x"))

	assert.ErrorIs(t, err, apperror.ErrRemoteWriteFailed)
	assert.Nil(t, c.View().Profile.ProfileImageRef)
}

func TestAttachAndSignOut(t *testing.T) {
	ctx := context.Background()
	c, store := newController(t)
	doc := profile.NewDocument("u1")
	doc.Profile.Bio = "hello"
	store.Seed(doc)
	sess := &fakeSession{current: &user.Identity{UserID: "u1", Email: "a@b.c"}}

	require.NoError(t, c.Attach(ctx, sess))
	assert.Equal(t, "hello", c.View().Profile.Bio)

	require.NoError(t, c.SignOut(ctx))
	assert.True(t, sess.signedOut)
	assert.Equal(t, profile.UserProfile{}, c.View().Profile)
	assert.Equal(t, collection.Empty.String(), c.View().State)

	_, err := c.Save(ctx, profile.Patch{Bio: strPtr("x")})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	c.Detach()
	assert.Equal(t, collection.Uninitialized.String(), c.View().State)
}
