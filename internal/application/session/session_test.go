package session

import (
	"context"
	"errors"
	"sync/atomic"
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

func TestSession_SubscribeDeliversCurrentIdentity(t *testing.T) {
	s := New(&user.Identity{UserID: "u1", Email: "a@b.c"}, logger.NewNopLogger())

	var got *user.Identity
	unsubscribe, err := s.Subscribe(context.Background(), func(_ context.Context, id *user.Identity) error {
		got = id
		return nil
	})

	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	unsubscribe()
}

func TestSession_FanOutAndUnsubscribe(t *testing.T) {
	ctx := context.Background()
	s := New(nil, logger.NewNopLogger())
	var a, b atomic.Int32

	unsubA, _ := s.Subscribe(ctx, func(context.Context, *user.Identity) error { a.Add(1); return nil })
	_, _ = s.Subscribe(ctx, func(context.Context, *user.Identity) error { b.Add(1); return nil })

	require.NoError(t, s.SignIn(ctx, &user.Identity{UserID: "u1"}))
	unsubA()
	require.NoError(t, s.SignOut(ctx))

	assert.Equal(t, int32(2), a.Load())
	assert.Equal(t, int32(3), b.Load())
	assert.Nil(t, s.Current())
}

func TestSession_SignOutTwiceNotifiesOnce(t *testing.T) {
	ctx := context.Background()
	s := New(&user.Identity{UserID: "u1"}, logger.NewNopLogger())
	var calls atomic.Int32
	_, _ = s.Subscribe(ctx, func(context.Context, *user.Identity) error { calls.Add(1); return nil })

	require.NoError(t, s.SignOut(ctx))
	require.NoError(t, s.SignOut(ctx))

	assert.Equal(t, int32(2), calls.Load())
}

func TestSession_ListenerErrorIsReturned(t *testing.T) {
	ctx := context.Background()
	s := New(nil, logger.NewNopLogger())
	boom := errors.New("boom")
	_, _ = s.Subscribe(ctx, func(_ context.Context, id *user.Identity) error {
		if id != nil {
			return boom
		}
		return nil
	})

	assert.ErrorIs(t, s.SignIn(ctx, &user.Identity{UserID: "u1"}), boom)
}

func newRegistry(store profile.Store) *Registry {
	return NewRegistry(Deps{Store: store, PageSize: 3, Logger: logger.NewNopLogger()})
}

func TestRegistry_OpenLoadsWorkspace(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryProfileStore()
	doc := profile.NewDocument("u1")
	doc.Profile.FirstName = "Ada"
	doc.Skills = []string{"Go", "SQL"}
	store.Seed(doc)
	reg := newRegistry(store)

	ws, err := reg.Open(ctx, &user.Identity{UserID: "u1", Email: "ada@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "Ada", ws.Profile.View().Profile.FirstName)
	assert.Equal(t, []string{"Go", "SQL"}, ws.Skills.View().Items)
	assert.Equal(t, collection.Loaded, ws.Education.State())
	assert.Zero(t, ws.Education.View().Total)

	got, ok := reg.Get(ws.Session.ID())
	assert.True(t, ok)
	assert.Same(t, ws, got)
}

func TestRegistry_OpenWithoutIdentity(t *testing.T) {
	_, err := newRegistry(persistence.NewMemoryProfileStore()).Open(context.Background(), nil)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestRegistry_SecondSignInReplacesFirst(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(persistence.NewMemoryProfileStore())
	id := &user.Identity{UserID: "u1"}

	first, err := reg.Open(ctx, id)
	require.NoError(t, err)
	second, err := reg.Open(ctx, id)
	require.NoError(t, err)

	_, ok := reg.Get(first.Session.ID())
	assert.False(t, ok)
	assert.Equal(t, collection.Uninitialized, first.Skills.State())
	assert.Nil(t, first.Session.Current())

	_, ok = reg.Get(second.Session.ID())
	assert.True(t, ok)
}

func TestRegistry_CloseSignsOutAndResets(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemoryProfileStore()
	reg := newRegistry(store)
	ws, err := reg.Open(ctx, &user.Identity{UserID: "u1"})
	require.NoError(t, err)
	_, err = ws.Education.Save(ctx, profile.EducationEntry{Institution: "MIT", Degree: "BSc", StartDate: "2020/01/01", EndDate: "2024/01/01"})
	require.NoError(t, err)

	require.NoError(t, reg.Close(ctx, ws.Session.ID()))

	assert.Equal(t, collection.Uninitialized, ws.Education.State())
	assert.Empty(t, ws.Education.View().Items)
	assert.Equal(t, collection.Uninitialized.String(), ws.Profile.View().State)
	_, ok := reg.Get(ws.Session.ID())
	assert.False(t, ok)

	doc, _ := store.Get(ctx, "u1")
	assert.Len(t, doc.Education, 1)
	require.NoError(t, reg.Close(ctx, ws.Session.ID()))
}

func TestRegistry_CloseAll(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(persistence.NewMemoryProfileStore())
	a, _ := reg.Open(ctx, &user.Identity{UserID: "u1"})
	b, _ := reg.Open(ctx, &user.Identity{UserID: "u2"})

	reg.CloseAll(ctx)

	_, okA := reg.Get(a.Session.ID())
	_, okB := reg.Get(b.Session.ID())
	assert.False(t, okA)
	assert.False(t, okB)
}
