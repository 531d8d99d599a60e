package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
)

// MemoryProfileStore keeps documents in process memory. It backs the "memory"
// store driver for local runs and the application tests.
type MemoryProfileStore struct {
	mu   sync.RWMutex
	docs map[string]*profile.Document
}

func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{docs: make(map[string]*profile.Document)}
}

// Seed stores a copy of doc, replacing any existing document for its owner.
func (m *MemoryProfileStore) Seed(doc *profile.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.OwnerID] = doc.Clone()
}

func (m *MemoryProfileStore) Get(ctx context.Context, ownerID string) (*profile.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.docs[ownerID].Clone(), nil
}

func (m *MemoryProfileStore) SetMerge(ctx context.Context, ownerID string, patch profile.Patch) error {
	return m.mutate(ctx, ownerID, func(doc *profile.Document) error {
		doc.Profile = patch.Apply(doc.Profile)
		return nil
	})
}

func (m *MemoryProfileStore) SetArrayField(ctx context.Context, ownerID string, field profile.Field, items any) error {
	return m.mutate(ctx, ownerID, func(doc *profile.Document) error {
		return doc.SetSection(field, items)
	})
}

func (m *MemoryProfileStore) UnionAppend(ctx context.Context, ownerID string, field profile.Field, item any) error {
	return m.mutate(ctx, ownerID, func(doc *profile.Document) error {
		return doc.AppendUnique(field, item)
	})
}

// RemoveByKey on an owner without a document is a no-op and creates nothing.
func (m *MemoryProfileStore) RemoveByKey(ctx context.Context, ownerID string, field profile.Field, key string) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %q", profile.ErrUnknownField, field)
	}
	return m.update(ctx, ownerID, false, func(doc *profile.Document) error {
		return doc.RemoveKey(field, key)
	})
}

// mutate applies fn to a copy and stores it only if fn succeeds.
func (m *MemoryProfileStore) mutate(ctx context.Context, ownerID string, fn func(doc *profile.Document) error) error {
	return m.update(ctx, ownerID, true, fn)
}

// update is mutate with create controlling whether a missing document is started.
func (m *MemoryProfileStore) update(ctx context.Context, ownerID string, create bool, fn func(doc *profile.Document) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := m.docs[ownerID].Clone()
	if doc == nil {
		if !create {
			return nil
		}
		doc = profile.NewDocument(ownerID)
	}
	if err := fn(doc); err != nil {
		return err
	}
	doc.UpdatedAt = time.Now().UTC()
	m.docs[ownerID] = doc
	return nil
}
