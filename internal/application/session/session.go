// Package session holds the signed-in identity and fans identity changes out to the
// controllers that display the user's profile.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khoahotran/profile-editor/internal/domain/user"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

// Session is one active sign-in. It implements user.IdentitySource.
type Session struct {
	id     string
	logger logger.Logger

	mu        sync.RWMutex
	current   *user.Identity
	listeners map[uint64]user.IdentityListener
	nextID    uint64
}

func New(identity *user.Identity, log logger.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		logger:    log.With(zap.String("session_id", id)),
		current:   identity,
		listeners: make(map[uint64]user.IdentityListener),
	}
}

func (s *Session) ID() string { return s.id }

// Current returns the signed-in identity, or nil after sign-out.
func (s *Session) Current() *user.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	id := *s.current
	return &id
}

// Subscribe registers fn and calls it with the current identity before returning.
// The error is the one fn returned for that first delivery.
func (s *Session) Subscribe(ctx context.Context, fn user.IdentityListener) (func(), error) {
	s.mu.Lock()
	key := s.nextID
	s.nextID++
	s.listeners[key] = fn
	s.mu.Unlock()

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, key)
	}
	return unsubscribe, fn(ctx, s.Current())
}

// SignIn replaces the identity and notifies every subscriber.
func (s *Session) SignIn(ctx context.Context, identity *user.Identity) error {
	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()
	s.logger.Info("Identity changed", zap.String("owner_id", identity.UserID))
	return s.notify(ctx, identity)
}

// SignOut drops the identity. Subscribers clear their state before it returns.
func (s *Session) SignOut(ctx context.Context) error {
	s.mu.Lock()
	wasSignedIn := s.current != nil
	s.current = nil
	s.mu.Unlock()
	if !wasSignedIn {
		return nil
	}
	s.logger.Info("Signed out")
	return s.notify(ctx, nil)
}

func (s *Session) notify(ctx context.Context, identity *user.Identity) error {
	s.mu.RLock()
	fns := make([]user.IdentityListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	var g errgroup.Group
	for _, fn := range fns {
		g.Go(func() error {
			var id *user.Identity
			if identity != nil {
				c := *identity
				id = &c
			}
			return fn(ctx, id)
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("Subscriber failed to apply identity change", zap.Error(err))
		return err
	}
	return nil
}

var errNoIdentity = apperror.NewNotAuthenticated("open session without identity")
