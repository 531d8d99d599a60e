// Package collection keeps one list-valued section of a user's profile document
// consistent between an in-memory copy and the profile store.
//
// Writes are staged: a mutation is applied to a copy of the committed items, the
// remote write is attempted, and the copy is promoted only when the store accepts
// it. A failed write leaves the committed items untouched. Writes to one section
// are serialized; a write whose identity was replaced while it was in flight is
// not applied.
package collection

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/application/service"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

// ErrSuperseded is returned when the identity changed while an operation was in flight.
// The result was discarded.
var ErrSuperseded = errors.New("collection: superseded by identity change")

type State int

const (
	Uninitialized State = iota
	Loading
	Loaded
	Empty
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Empty:
		return "empty"
	default:
		return "uninitialized"
	}
}

// Spec describes how a section's items are keyed and where they live in the document.
type Spec[T any] struct {
	Field   profile.Field
	Extract func(doc *profile.Document) []T
	Key     func(item T) string
	// WithKey stamps a key onto an item. Nil for value-keyed sections, whose items
	// are their own key and form a set.
	WithKey func(item T, key string) T
	// NewKey generates keys for WithKey. Defaults to NewID.
	NewKey func() string
}

func (s Spec[T]) valueKeyed() bool { return s.WithKey == nil }

// NewID returns a time-ordered UUID string.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

var tracer = otel.Tracer("collection_sync")

type Sync[T any] struct {
	spec      Spec[T]
	store     profile.Store
	publisher service.EventPublisher
	logger    logger.Logger

	writeMu sync.Mutex

	mu         sync.RWMutex
	state      State
	ownerID    string
	items      []T
	generation uint64
}

func NewSync[T any](spec Spec[T], store profile.Store, publisher service.EventPublisher, log logger.Logger) *Sync[T] {
	if spec.NewKey == nil {
		spec.NewKey = NewID
	}
	if publisher == nil {
		publisher = service.NopPublisher{}
	}
	return &Sync[T]{
		spec:      spec,
		store:     store,
		publisher: publisher,
		logger:    log.With(zap.String("section", string(spec.Field))),
		state:     Uninitialized,
	}
}

func (s *Sync[T]) Field() profile.Field { return s.spec.Field }

func (s *Sync[T]) Key(item T) string { return s.spec.Key(item) }

func (s *Sync[T]) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Sync[T]) OwnerID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID
}

// Items returns a copy of the committed items in display order.
func (s *Sync[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

func (s *Sync[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Find returns the committed item with the given key.
func (s *Sync[T]) Find(key string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(s.items, key); i >= 0 {
		return s.items[i], true
	}
	var zero T
	return zero, false
}

// Load replaces the local section with the stored one. A failed read leaves the
// section empty and returns a LoadFailed error; a missing document is an empty section.
func (s *Sync[T]) Load(ctx context.Context, ownerID string) ([]T, error) {
	if ownerID == "" {
		s.Clear()
		return []T{}, apperror.NewNotAuthenticated("load " + string(s.spec.Field))
	}

	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(attribute.String("section", string(s.spec.Field)), attribute.String("owner_id", ownerID))

	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.state = Loading
	s.ownerID = ownerID
	s.items = nil
	s.mu.Unlock()

	doc, err := s.store.Get(ctx, ownerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return []T{}, ErrSuperseded
	}

	switch {
	case err != nil:
		span.RecordError(err)
		s.logger.Error("Failed to fetch section", err, zap.String("owner_id", ownerID))
		s.items = []T{}
		s.state = Empty
		return []T{}, apperror.NewLoadFailed(string(s.spec.Field), err)
	case doc == nil:
		s.logger.Debug("No user document found", zap.String("owner_id", ownerID))
		s.items = []T{}
		s.state = Empty
	default:
		s.items = slices.Clone(s.spec.Extract(doc))
		if s.items == nil {
			s.items = []T{}
		}
		s.state = Loaded
	}
	return slices.Clone(s.items), nil
}

// Clear drops the local section after the identity went away.
func (s *Sync[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.ownerID = ""
	s.items = []T{}
	s.state = Empty
}

// Reset returns the section to Uninitialized when its view is torn down.
func (s *Sync[T]) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.ownerID = ""
	s.items = nil
	s.state = Uninitialized
}

// Create appends item and persists it with a union append. Id-keyed items receive a
// fresh key. A value-keyed item that is already present is accepted without any write.
func (s *Sync[T]) Create(ctx context.Context, item T) (T, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var zero T
	ownerID, gen, items := s.snapshot()
	if ownerID == "" {
		return zero, apperror.NewNotAuthenticated("create " + string(s.spec.Field))
	}

	if s.spec.valueKeyed() {
		if s.indexOf(items, s.spec.Key(item)) >= 0 {
			return item, nil
		}
	} else {
		item = s.spec.WithKey(item, s.spec.NewKey())
	}
	key := s.spec.Key(item)

	ctx, span := tracer.Start(ctx, "Create")
	defer span.End()
	span.SetAttributes(attribute.String("section", string(s.spec.Field)), attribute.String("item_key", key))

	staged := append(items, item)
	if err := s.store.UnionAppend(ctx, ownerID, s.spec.Field, item); err != nil {
		span.RecordError(err)
		s.logger.Error("Failed to append item", err, zap.String("owner_id", ownerID), zap.String("item_key", key))
		return zero, apperror.NewRemoteWriteFailed(string(s.spec.Field), err)
	}
	if err := s.commit(gen, staged, Loaded); err != nil {
		return item, err
	}
	s.publish(ownerID, service.ChangeCreated, key)
	return item, nil
}

// Update replaces the item with the given key in place and overwrites the whole
// section in the store.
func (s *Sync[T]) Update(ctx context.Context, key string, item T) (T, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	var zero T
	ownerID, gen, items := s.snapshot()
	if ownerID == "" {
		return zero, apperror.NewNotAuthenticated("update " + string(s.spec.Field))
	}
	idx := s.indexOf(items, key)
	if idx < 0 {
		return zero, apperror.NewNotFound(string(s.spec.Field), key)
	}

	if s.spec.valueKeyed() {
		newKey := s.spec.Key(item)
		if other := s.indexOf(items, newKey); other >= 0 && other != idx {
			return zero, apperror.NewConflict(string(s.spec.Field), "value", newKey)
		}
	} else {
		item = s.spec.WithKey(item, key)
	}

	ctx, span := tracer.Start(ctx, "Update")
	defer span.End()
	span.SetAttributes(attribute.String("section", string(s.spec.Field)), attribute.String("item_key", key))

	items[idx] = item
	if err := s.store.SetArrayField(ctx, ownerID, s.spec.Field, items); err != nil {
		span.RecordError(err)
		s.logger.Error("Failed to overwrite section", err, zap.String("owner_id", ownerID), zap.String("item_key", key))
		return zero, apperror.NewRemoteWriteFailed(string(s.spec.Field), err)
	}
	if err := s.commit(gen, items, Loaded); err != nil {
		return item, err
	}
	s.publish(ownerID, service.ChangeUpdated, key)
	return item, nil
}

// Delete removes the item with the given key, locally and in the store by key.
func (s *Sync[T]) Delete(ctx context.Context, key string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ownerID, gen, items := s.snapshot()
	if ownerID == "" {
		return apperror.NewNotAuthenticated("delete " + string(s.spec.Field))
	}
	idx := s.indexOf(items, key)
	if idx < 0 {
		return apperror.NewNotFound(string(s.spec.Field), key)
	}

	ctx, span := tracer.Start(ctx, "Delete")
	defer span.End()
	span.SetAttributes(attribute.String("section", string(s.spec.Field)), attribute.String("item_key", key))

	staged := slices.Delete(items, idx, idx+1)
	if err := s.store.RemoveByKey(ctx, ownerID, s.spec.Field, key); err != nil {
		span.RecordError(err)
		s.logger.Error("Failed to remove item", err, zap.String("owner_id", ownerID), zap.String("item_key", key))
		return apperror.NewRemoteWriteFailed(string(s.spec.Field), err)
	}
	if err := s.commit(gen, staged, Loaded); err != nil {
		return err
	}
	s.publish(ownerID, service.ChangeDeleted, key)
	return nil
}

// Replace overwrites the whole section. Id-keyed items without a key receive one;
// duplicate keys are rejected.
func (s *Sync[T]) Replace(ctx context.Context, next []T) ([]T, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ownerID, gen, _ := s.snapshot()
	if ownerID == "" {
		return nil, apperror.NewNotAuthenticated("replace " + string(s.spec.Field))
	}

	staged := make([]T, 0, len(next))
	seen := make(map[string]struct{}, len(next))
	for _, item := range next {
		if !s.spec.valueKeyed() && s.spec.Key(item) == "" {
			item = s.spec.WithKey(item, s.spec.NewKey())
		}
		key := s.spec.Key(item)
		if _, dup := seen[key]; dup {
			return nil, apperror.NewConflict(string(s.spec.Field), "key", key)
		}
		seen[key] = struct{}{}
		staged = append(staged, item)
	}

	ctx, span := tracer.Start(ctx, "Replace")
	defer span.End()
	span.SetAttributes(attribute.String("section", string(s.spec.Field)), attribute.Int("count", len(staged)))

	if err := s.store.SetArrayField(ctx, ownerID, s.spec.Field, staged); err != nil {
		span.RecordError(err)
		s.logger.Error("Failed to replace section", err, zap.String("owner_id", ownerID))
		return nil, apperror.NewRemoteWriteFailed(string(s.spec.Field), err)
	}
	if err := s.commit(gen, staged, Loaded); err != nil {
		return nil, err
	}
	s.publish(ownerID, service.ChangeReplaced, "")
	return slices.Clone(staged), nil
}

// snapshot returns the owner, generation and a private copy of the committed items.
func (s *Sync[T]) snapshot() (string, uint64, []T) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID, s.generation, slices.Clone(s.items)
}

func (s *Sync[T]) commit(gen uint64, staged []T, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Warn("Discarding write result after identity change")
		return ErrSuperseded
	}
	s.items = staged
	s.state = state
	return nil
}

func (s *Sync[T]) publish(ownerID, changeType, key string) {
	change := service.ProfileChange{
		OwnerID:    ownerID,
		Field:      string(s.spec.Field),
		ChangeType: changeType,
		ItemKey:    key,
		OccurredAt: time.Now().UTC(),
	}
	go func() {
		if err := s.publisher.PublishProfileChange(context.Background(), change); err != nil {
			s.logger.Error("Failed to publish profile change", err, zap.String("owner_id", ownerID), zap.String("change_type", changeType))
		}
	}()
}

func (s *Sync[T]) indexOf(items []T, key string) int {
	return slices.IndexFunc(items, func(it T) bool { return s.spec.Key(it) == key })
}
