package collection

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-editor/internal/application/service"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

// fakeStore is a document map with per-method failure injection and call counting.
type fakeStore struct {
	mu    sync.Mutex
	docs  map[string]*profile.Document
	calls map[string]int

	getErr   error
	writeErr error
	// block, when set, holds writes until closed; entered is signalled first.
	block   chan struct{}
	entered chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: map[string]*profile.Document{}, calls: map[string]int{}}
}

func (f *fakeStore) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeStore) Get(_ context.Context, ownerID string) (*profile.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["Get"]++
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.docs[ownerID].Clone(), nil
}

func (f *fakeStore) SetMerge(_ context.Context, ownerID string, patch profile.Patch) error {
	return f.write("SetMerge", ownerID, func(d *profile.Document) error {
		d.Profile = patch.Apply(d.Profile)
		return nil
	})
}

func (f *fakeStore) SetArrayField(_ context.Context, ownerID string, field profile.Field, items any) error {
	return f.write("SetArrayField", ownerID, func(d *profile.Document) error { return d.SetSection(field, items) })
}

func (f *fakeStore) UnionAppend(_ context.Context, ownerID string, field profile.Field, item any) error {
	return f.write("UnionAppend", ownerID, func(d *profile.Document) error { return d.AppendUnique(field, item) })
}

func (f *fakeStore) RemoveByKey(_ context.Context, ownerID string, field profile.Field, key string) error {
	return f.write("RemoveByKey", ownerID, func(d *profile.Document) error { return d.RemoveKey(field, key) })
}

func (f *fakeStore) write(method, ownerID string, fn func(*profile.Document) error) error {
	if f.block != nil {
		f.entered <- struct{}{}
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[method]++
	if f.writeErr != nil {
		return f.writeErr
	}
	doc := f.docs[ownerID]
	if doc == nil {
		doc = profile.NewDocument(ownerID)
		f.docs[ownerID] = doc
	}
	return fn(doc)
}

type recordingPublisher struct {
	mu      sync.Mutex
	changes []service.ProfileChange
}

func (p *recordingPublisher) PublishProfileChange(_ context.Context, c service.ProfileChange) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
	return nil
}

func (p *recordingPublisher) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.changes)
}

func sequentialKeys() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func educationSpec() Spec[profile.EducationEntry] {
	return Spec[profile.EducationEntry]{
		Field:   profile.FieldEducation,
		Extract: func(d *profile.Document) []profile.EducationEntry { return d.Education },
		Key:     func(e profile.EducationEntry) string { return e.ID },
		WithKey: func(e profile.EducationEntry, k string) profile.EducationEntry { e.ID = k; return e },
		NewKey:  sequentialKeys(),
	}
}

func skillsSpec() Spec[string] {
	return Spec[string]{
		Field:   profile.FieldSkills,
		Extract: func(d *profile.Document) []string { return d.Skills },
		Key:     func(s string) string { return s },
	}
}

func newEducationSync(store profile.Store) *Sync[profile.EducationEntry] {
	return NewSync(educationSpec(), store, nil, logger.NewNopLogger())
}

func TestLoad_NoOwnerIsNotAuthenticated(t *testing.T) {
	s := newEducationSync(newFakeStore())

	items, err := s.Load(context.Background(), "")

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.Empty(t, items)
	assert.Equal(t, Empty, s.State())
}

func TestLoad_MissingDocumentIsEmpty(t *testing.T) {
	s := newEducationSync(newFakeStore())

	items, err := s.Load(context.Background(), "u1")

	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, Empty, s.State())
	assert.Equal(t, "u1", s.OwnerID())
}

func TestLoad_FailureLeavesSectionEmpty(t *testing.T) {
	store := newFakeStore()
	store.docs["u1"] = &profile.Document{OwnerID: "u1", Education: []profile.EducationEntry{{ID: "a"}}}
	s := newEducationSync(store)
	_, err := s.Load(context.Background(), "u1")
	require.NoError(t, err)

	store.getErr = errors.New("unavailable")
	items, err := s.Load(context.Background(), "u1")

	assert.ErrorIs(t, err, apperror.ErrLoadFailed)
	assert.Empty(t, items)
	assert.Empty(t, s.Items())
	assert.Equal(t, Empty, s.State())
}

func TestLoad_PopulatesFromDocument(t *testing.T) {
	store := newFakeStore()
	store.docs["u1"] = &profile.Document{OwnerID: "u1", Education: []profile.EducationEntry{{ID: "a"}, {ID: "b"}}}
	s := newEducationSync(store)

	items, err := s.Load(context.Background(), "u1")

	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, Loaded, s.State())
}

func TestCreate_AssignsUniqueIDsAndPersists(t *testing.T) {
	store := newFakeStore()
	pub := &recordingPublisher{}
	s := NewSync(educationSpec(), store, pub, logger.NewNopLogger())
	_, _ = s.Load(context.Background(), "u1")

	first, err := s.Create(context.Background(), profile.EducationEntry{Institution: "MIT"})
	require.NoError(t, err)
	second, err := s.Create(context.Background(), profile.EducationEntry{Institution: "CMU"})
	require.NoError(t, err)

	assert.NotEmpty(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []profile.EducationEntry{first, second}, s.Items())
	assert.Equal(t, Loaded, s.State())
	assert.Equal(t, []profile.EducationEntry{first, second}, store.docs["u1"].Education)
	assert.Eventually(t, func() bool { return pub.len() == 2 }, time.Second, 10*time.Millisecond)
}

func TestCreate_RequiresOwner(t *testing.T) {
	store := newFakeStore()
	s := newEducationSync(store)

	_, err := s.Create(context.Background(), profile.EducationEntry{Institution: "MIT"})

	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	assert.Zero(t, store.count("UnionAppend"))
}

func TestCreate_RemoteFailureKeepsCommittedState(t *testing.T) {
	store := newFakeStore()
	s := newEducationSync(store)
	_, _ = s.Load(context.Background(), "u1")
	existing, err := s.Create(context.Background(), profile.EducationEntry{Institution: "MIT"})
	require.NoError(t, err)

	store.writeErr = errors.New("rejected")
	_, err = s.Create(context.Background(), profile.EducationEntry{Institution: "CMU"})

	assert.ErrorIs(t, err, apperror.ErrRemoteWriteFailed)
	assert.Equal(t, []profile.EducationEntry{existing}, s.Items())
}

func TestCreate_DuplicateSkillIsNoop(t *testing.T) {
	store := newFakeStore()
	s := NewSync(skillsSpec(), store, nil, logger.NewNopLogger())
	_, _ = s.Load(context.Background(), "u1")
	_, err := s.Create(context.Background(), "Go")
	require.NoError(t, err)

	got, err := s.Create(context.Background(), "Go")

	require.NoError(t, err)
	assert.Equal(t, "Go", got)
	assert.Equal(t, []string{"Go"}, s.Items())
	assert.Equal(t, 1, store.count("UnionAppend"))
}

func TestUpdate_ReplacesInPlaceAndOverwritesSection(t *testing.T) {
	store := newFakeStore()
	s := newEducationSync(store)
	_, _ = s.Load(context.Background(), "u1")
	a, _ := s.Create(context.Background(), profile.EducationEntry{Institution: "MIT"})
	b, _ := s.Create(context.Background(), profile.EducationEntry{Institution: "CMU"})

	updated, err := s.Update(context.Background(), a.ID, profile.EducationEntry{Institution: "Stanford"})

	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, []profile.EducationEntry{updated, b}, s.Items())
	assert.Equal(t, 1, store.count("SetArrayField"))
	assert.Equal(t, s.Items(), store.docs["u1"].Education)
}

func TestUpdate_NotFound(t *testing.T) {
	store := newFakeStore()
	s := newEducationSync(store)
	_, _ = s.Load(context.Background(), "u1")

	_, err := s.Update(context.Background(), "missing", profile.EducationEntry{})

	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Zero(t, store.count("SetArrayField"))
}

func TestUpdate_SkillRenameToExistingConflicts(t *testing.T) {
	s := NewSync(skillsSpec(), newFakeStore(), nil, logger.NewNopLogger())
	_, _ = s.Load(context.Background(), "u1")
	_, _ = s.Create(context.Background(), "Go")
	_, _ = s.Create(context.Background(), "SQL")

	_, err := s.Update(context.Background(), "SQL", "Go")

	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, []string{"Go", "SQL"}, s.Items())
}

func TestDelete_RemovesByKey(t *testing.T) {
	store := newFakeStore()
	s := newEducationSync(store)
	_, _ = s.Load(context.Background(), "u1")
	a, _ := s.Create(context.Background(), profile.EducationEntry{Institution: "MIT"})
	b, _ := s.Create(context.Background(), profile.EducationEntry{Institution: "CMU"})

	require.NoError(t, s.Delete(context.Background(), a.ID))

	assert.Equal(t, []profile.EducationEntry{b}, s.Items())
	assert.Equal(t, []profile.EducationEntry{b}, store.docs["u1"].Education)

	assert.ErrorIs(t, s.Delete(context.Background(), a.ID), apperror.ErrNotFound)
}

func TestDelete_RemoteFailureKeepsItem(t *testing.T) {
	store := newFakeStore()
	s := newEducationSync(store)
	_, _ = s.Load(context.Background(), "u1")
	a, _ := s.Create(context.Background(), profile.EducationEntry{Institution: "MIT"})

	store.writeErr = errors.New("rejected")

	assert.ErrorIs(t, s.Delete(context.Background(), a.ID), apperror.ErrRemoteWriteFailed)
	assert.Equal(t, []profile.EducationEntry{a}, s.Items())
}

func TestReplace_AssignsMissingKeysAndRejectsDuplicates(t *testing.T) {
	store := newFakeStore()
	s := newEducationSync(store)
	_, _ = s.Load(context.Background(), "u1")

	got, err := s.Replace(context.Background(), []profile.EducationEntry{{Institution: "MIT"}, {ID: "keep", Institution: "CMU"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.NotEmpty(t, got[0].ID)
	assert.Equal(t, "keep", got[1].ID)

	_, err = s.Replace(context.Background(), []profile.EducationEntry{{ID: "x"}, {ID: "x"}})
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, got, s.Items())
}

func TestIdentityChangeDiscardsInFlightWrite(t *testing.T) {
	store := newFakeStore()
	store.block = make(chan struct{})
	store.entered = make(chan struct{}, 1)
	s := newEducationSync(store)
	_, _ = s.Load(context.Background(), "u1")

	done := make(chan error, 1)
	go func() {
		_, err := s.Create(context.Background(), profile.EducationEntry{Institution: "MIT"})
		done <- err
	}()

	<-store.entered
	s.Clear()
	close(store.block)

	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Empty(t, s.Items())
	assert.Equal(t, Empty, s.State())
}

func TestReset_ReturnsToUninitialized(t *testing.T) {
	s := newEducationSync(newFakeStore())
	_, _ = s.Load(context.Background(), "u1")

	s.Reset()

	assert.Equal(t, Uninitialized, s.State())
	assert.Empty(t, s.OwnerID())
}
