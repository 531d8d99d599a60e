package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

const (
	profileCacheKeyPrefix   = "profile:doc:"
	profileVersionKeyPrefix = "profile:ver:"
)

// CachedProfileStore serves Get from Redis and invalidates the entry on every write.
// Every write also bumps a per-owner version; a fill is dropped when the version moved
// while the document was being read. Cache failures are logged and fall through to
// the wrapped store.
type CachedProfileStore struct {
	next   profile.Store
	rdb    *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

var errStaleFill = errors.New("profile changed while it was read")

func NewCachedProfileStore(next profile.Store, rdb *redis.Client, ttl time.Duration, log logger.Logger) *CachedProfileStore {
	return &CachedProfileStore{next: next, rdb: rdb, ttl: ttl, logger: log}
}

func cacheKey(ownerID string) string { return profileCacheKeyPrefix + ownerID }

func versionKey(ownerID string) string { return profileVersionKeyPrefix + ownerID }

func (s *CachedProfileStore) Get(ctx context.Context, ownerID string) (*profile.Document, error) {
	raw, err := s.rdb.Get(ctx, cacheKey(ownerID)).Bytes()
	switch {
	case err == nil:
		doc := &profile.Document{}
		if err := json.Unmarshal(raw, doc); err == nil {
			return doc, nil
		}
		s.logger.Warn("Dropping unreadable cache entry", zap.String("owner_id", ownerID))
	case !errors.Is(err, redis.Nil):
		s.logger.Warn("Profile cache read failed", zap.String("owner_id", ownerID), zap.Error(err))
	}

	version, ok := s.version(ctx, ownerID)
	doc, err := s.next.Get(ctx, ownerID)
	if err != nil || doc == nil {
		return doc, err
	}
	if ok {
		s.put(ctx, doc, version)
	}
	return doc, nil
}

// Refresh reloads the document from the wrapped store into the cache.
func (s *CachedProfileStore) Refresh(ctx context.Context, ownerID string) error {
	version, ok := s.version(ctx, ownerID)
	doc, err := s.next.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	if doc == nil {
		s.invalidate(ctx, ownerID)
		return nil
	}
	if ok {
		s.put(ctx, doc, version)
	}
	return nil
}

func (s *CachedProfileStore) SetMerge(ctx context.Context, ownerID string, patch profile.Patch) error {
	defer s.invalidate(ctx, ownerID)
	return s.next.SetMerge(ctx, ownerID, patch)
}

func (s *CachedProfileStore) SetArrayField(ctx context.Context, ownerID string, field profile.Field, items any) error {
	defer s.invalidate(ctx, ownerID)
	return s.next.SetArrayField(ctx, ownerID, field, items)
}

func (s *CachedProfileStore) UnionAppend(ctx context.Context, ownerID string, field profile.Field, item any) error {
	defer s.invalidate(ctx, ownerID)
	return s.next.UnionAppend(ctx, ownerID, field, item)
}

func (s *CachedProfileStore) RemoveByKey(ctx context.Context, ownerID string, field profile.Field, key string) error {
	defer s.invalidate(ctx, ownerID)
	return s.next.RemoveByKey(ctx, ownerID, field, key)
}

// version reads the owner's write counter. ok is false when Redis is unreachable.
func (s *CachedProfileStore) version(ctx context.Context, ownerID string) (int64, bool) {
	v, err := s.rdb.Get(ctx, versionKey(ownerID)).Int64()
	switch {
	case err == nil:
		return v, true
	case errors.Is(err, redis.Nil):
		return 0, true
	}
	s.logger.Warn("Profile cache version read failed", zap.String("owner_id", ownerID), zap.Error(err))
	return 0, false
}

// put stores doc only if no write has bumped the owner's version since it was read.
func (s *CachedProfileStore) put(ctx context.Context, doc *profile.Document, readVersion int64) {
	raw, err := json.Marshal(doc)
	if err != nil {
		s.logger.Warn("Failed to encode profile for cache", zap.String("owner_id", doc.OwnerID), zap.Error(err))
		return
	}

	verKey := versionKey(doc.OwnerID)
	err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, verKey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != readVersion {
			return errStaleFill
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKey(doc.OwnerID), raw, s.ttl)
			return nil
		})
		return err
	}, verKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleFill), errors.Is(err, redis.TxFailedErr):
		s.logger.Debug("Skipped stale profile cache fill", zap.String("owner_id", doc.OwnerID))
	default:
		s.logger.Warn("Profile cache write failed", zap.String("owner_id", doc.OwnerID), zap.Error(err))
	}
}

// invalidate bumps the owner's version and drops the cached document.
func (s *CachedProfileStore) invalidate(ctx context.Context, ownerID string) {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(ownerID))
		pipe.Del(ctx, cacheKey(ownerID))
		return nil
	})
	if err != nil {
		s.logger.Warn("Profile cache invalidation failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}
