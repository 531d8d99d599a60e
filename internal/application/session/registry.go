package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/domain/user"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

// Registry tracks the open workspaces. An owner has at most one active session; a
// new sign-in closes the previous one.
type Registry struct {
	deps   Deps
	logger logger.Logger

	mu      sync.Mutex
	byID    map[string]*Workspace
	byOwner map[string]string
}

func NewRegistry(deps Deps) *Registry {
	if deps.Logger == nil {
		deps.Logger = logger.NewNopLogger()
	}
	return &Registry{
		deps:    deps,
		logger:  deps.Logger,
		byID:    make(map[string]*Workspace),
		byOwner: make(map[string]string),
	}
}

// Open starts a session for identity and loads its workspace. A failed load is
// logged; the workspace is still returned with empty sections.
func (r *Registry) Open(ctx context.Context, identity *user.Identity) (*Workspace, error) {
	if identity == nil || identity.UserID == "" {
		return nil, errNoIdentity
	}

	r.mu.Lock()
	prevID, hadPrev := r.byOwner[identity.UserID]
	r.mu.Unlock()
	if hadPrev {
		r.logger.Info("Replacing previous session", zap.String("owner_id", identity.UserID), zap.String("session_id", prevID))
		if err := r.Close(ctx, prevID); err != nil {
			r.logger.Warn("Previous session did not close cleanly", zap.Error(err))
		}
	}

	ws := NewWorkspace(New(identity, r.deps.Logger), r.deps)
	if err := ws.Open(ctx); err != nil {
		r.logger.Error("Workspace opened with load failures", err, zap.String("owner_id", identity.UserID))
	}

	r.mu.Lock()
	r.byID[ws.Session.ID()] = ws
	r.byOwner[identity.UserID] = ws.Session.ID()
	r.mu.Unlock()
	return ws, nil
}

// OpenSession opens a workspace and returns its session id.
func (r *Registry) OpenSession(ctx context.Context, identity *user.Identity) (string, error) {
	ws, err := r.Open(ctx, identity)
	if err != nil {
		return "", err
	}
	return ws.Session.ID(), nil
}

func (r *Registry) Get(sessionID string) (*Workspace, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ws, ok := r.byID[sessionID]
	return ws, ok
}

// Close signs the session out and tears its workspace down. Unknown ids are ignored.
func (r *Registry) Close(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	ws, ok := r.byID[sessionID]
	if ok {
		delete(r.byID, sessionID)
		if id := ws.Session.Current(); id != nil && r.byOwner[id.UserID] == sessionID {
			delete(r.byOwner, id.UserID)
		}
	}
	r.mu.Unlock()
	if !ok {
		return nil
	}

	err := ws.Session.SignOut(ctx)
	ws.Close()
	return err
}

// CloseAll closes every open session.
func (r *Registry) CloseAll(ctx context.Context) {
	r.mu.Lock()
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	for _, id := range ids {
		if err := r.Close(ctx, id); err != nil {
			r.logger.Warn("Failed to close session", zap.String("session_id", id), zap.Error(err))
		}
	}
}
