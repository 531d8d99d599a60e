package user

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
}

type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// Identity is the signed-in principal as seen by the profile editor.
type Identity struct {
	UserID string
	Email  string
}

func NewIdentity(u *User) *Identity {
	return &Identity{UserID: u.ID.String(), Email: u.Email}
}

// IdentityListener receives the current identity, or nil after sign-out.
type IdentityListener func(ctx context.Context, id *Identity) error

// IdentitySource publishes identity changes. Subscribe delivers the current identity
// to fn before returning, and the returned func stops further deliveries.
type IdentitySource interface {
	Subscribe(ctx context.Context, fn IdentityListener) (unsubscribe func(), err error)
}
