package section

import (
	"context"
	"errors"
	"sync"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
)

// ErrConfirmationResolved is returned by Confirm once the confirmation was already
// confirmed or cancelled.
var ErrConfirmationResolved = errors.New("section: confirmation already resolved")

// Confirmation guards a pending delete. It stays open until Confirm or Cancel is called.
type Confirmation struct {
	Section profile.Field
	Key     string

	mu       sync.Mutex
	resolved bool
	confirm  func(ctx context.Context) error
}

func newConfirmation(section profile.Field, key string, confirm func(ctx context.Context) error) *Confirmation {
	return &Confirmation{Section: section, Key: key, confirm: confirm}
}

// Confirm performs the delete. A failed delete leaves the confirmation resolved; the
// caller has to ask again.
func (c *Confirmation) Confirm(ctx context.Context) error {
	c.mu.Lock()
	if c.resolved {
		c.mu.Unlock()
		return ErrConfirmationResolved
	}
	c.resolved = true
	c.mu.Unlock()
	return c.confirm(ctx)
}

func (c *Confirmation) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolved = true
}

func (c *Confirmation) Resolved() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}
