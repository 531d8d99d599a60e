package persistence

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/khoahotran/profile-editor/internal/domain/user"
	"github.com/khoahotran/profile-editor/pkg/auth"
)

// MemoryUserRepo backs the "memory" store driver.
type MemoryUserRepo struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

func NewMemoryUserRepo(users ...*user.User) *MemoryUserRepo {
	r := &MemoryUserRepo{users: make(map[string]*user.User, len(users))}
	for _, u := range users {
		r.users[u.Email] = u
	}
	return r
}

// NewOwner builds a user with a fresh id and a bcrypt hash of password.
func NewOwner(email, password string) (*user.User, error) {
	if email == "" || password == "" {
		return nil, errors.New("owner email and password are required")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &user.User{ID: uuid.New(), Email: email, PasswordHash: hash}, nil
}

func (r *MemoryUserRepo) FindByEmail(_ context.Context, email string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[email]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryUserRepo) FindByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, user.ErrUserNotFound
}
