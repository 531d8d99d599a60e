// Package section exposes the editing actions for one list-valued profile section:
// open a form, save it, remove an item behind a confirmation and page through the list.
package section

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/internal/application/collection"
	"github.com/khoahotran/profile-editor/internal/application/pagination"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/internal/domain/user"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

// Validator checks a submitted form. editKey is the key of the item being edited, or
// empty for a new item; items are the committed items.
type Validator[T any] func(form T, editKey string, items []T) error

// Page is one page of a section as shown to the user.
type Page[T any] struct {
	Section    profile.Field `json:"section"`
	State      string        `json:"state"`
	Items      []T           `json:"items"`
	Page       int           `json:"page"`
	TotalPages int           `json:"totalPages"`
	PageSize   int           `json:"pageSize"`
	Total      int           `json:"total"`
}

// Editor is the state of the edit surface.
type Editor[T any] struct {
	Open    bool   `json:"open"`
	EditKey string `json:"editKey,omitempty"`
	Form    T      `json:"form"`
}

type Controller[T any] struct {
	sync     *collection.Sync[T]
	validate Validator[T]
	logger   logger.Logger

	mu          sync.Mutex
	pager       *pagination.Pager
	editor      Editor[T]
	pending     *Confirmation
	unsubscribe func()
}

func NewController[T any](s *collection.Sync[T], validate Validator[T], pageSize int, log logger.Logger) *Controller[T] {
	if validate == nil {
		validate = func(T, string, []T) error { return nil }
	}
	return &Controller[T]{
		sync:     s,
		validate: validate,
		logger:   log.With(zap.String("section", string(s.Field()))),
		pager:    pagination.NewPager(pageSize),
	}
}

func (c *Controller[T]) Field() profile.Field { return c.sync.Field() }

func (c *Controller[T]) State() collection.State { return c.sync.State() }

// Load binds the section to ownerID and fetches it. The page returns to 1.
func (c *Controller[T]) Load(ctx context.Context, ownerID string) error {
	c.closeEditor()
	c.cancelPending()
	_, err := c.sync.Load(ctx, ownerID)
	c.mu.Lock()
	c.pager.Reset()
	c.mu.Unlock()
	return err
}

// OpenCreate opens an empty form for a new item.
func (c *Controller[T]) OpenCreate() Editor[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor = Editor[T]{Open: true}
	return c.editor
}

// OpenEdit opens the form pre-filled with the item stored under key.
func (c *Controller[T]) OpenEdit(key string) (Editor[T], error) {
	item, ok := c.sync.Find(key)
	if !ok {
		return Editor[T]{}, apperror.NewNotFound(string(c.Field()), key)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editor = Editor[T]{Open: true, EditKey: key, Form: item}
	return c.editor, nil
}

func (c *Controller[T]) Editor() Editor[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editor
}

// Save submits form. It updates the item selected with OpenEdit, or creates a new
// one. The edit surface is closed and the form reset whatever the outcome.
func (c *Controller[T]) Save(ctx context.Context, form T) (T, error) {
	return c.SaveAs(ctx, c.closeEditor(), form)
}

// SaveAs submits form against an explicit key: the item stored under editKey is
// updated, or a new item is created when editKey is empty. The edit surface is not
// consulted.
func (c *Controller[T]) SaveAs(ctx context.Context, editKey string, form T) (T, error) {
	var zero T
	if editKey != "" {
		if _, ok := c.sync.Find(editKey); !ok {
			return zero, apperror.NewNotFound(string(c.Field()), editKey)
		}
	}
	if err := c.validate(form, editKey, c.sync.Items()); err != nil {
		c.logger.Debug("Rejected form", zap.String("reason", err.Error()))
		return zero, apperror.NewValidation(err.Error())
	}

	if editKey != "" {
		saved, err := c.sync.Update(ctx, editKey, form)
		if err != nil {
			return zero, err
		}
		c.mu.Lock()
		c.pager.Sync(c.sync.Len())
		c.mu.Unlock()
		return saved, nil
	}

	saved, err := c.sync.Create(ctx, form)
	if err != nil {
		return zero, err
	}
	c.mu.Lock()
	c.pager.AfterInsert(c.sync.Len())
	c.mu.Unlock()
	return saved, nil
}

// Remove asks for confirmation before deleting the item stored under key. A
// previously pending confirmation is cancelled.
func (c *Controller[T]) Remove(key string) (*Confirmation, error) {
	if c.sync.OwnerID() == "" {
		return nil, apperror.NewNotAuthenticated("remove " + string(c.Field()))
	}
	if _, ok := c.sync.Find(key); !ok {
		return nil, apperror.NewNotFound(string(c.Field()), key)
	}

	conf := newConfirmation(c.Field(), key, func(ctx context.Context) error {
		if err := c.sync.Delete(ctx, key); err != nil {
			return err
		}
		c.mu.Lock()
		c.pager.AfterDelete(c.sync.Len())
		c.mu.Unlock()
		return nil
	})

	c.mu.Lock()
	prev := c.pending
	c.pending = conf
	c.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}
	return conf, nil
}

// Pending returns the unresolved delete confirmation, if any.
func (c *Controller[T]) Pending() *Confirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil && c.pending.Resolved() {
		c.pending = nil
	}
	return c.pending
}

// ChangePage moves to page n, clamped to the available pages.
func (c *Controller[T]) ChangePage(n int) Page[T] {
	c.mu.Lock()
	c.pager.Go(n, c.sync.Len())
	c.mu.Unlock()
	return c.View()
}

func (c *Controller[T]) View() Page[T] {
	items := c.sync.Items()
	c.mu.Lock()
	c.pager.Sync(len(items))
	page, size := c.pager.Current(), c.pager.PageSize()
	c.mu.Unlock()

	visible := pagination.VisibleSlice(items, page, size)
	if visible == nil {
		visible = []T{}
	}
	return Page[T]{
		Section:    c.Field(),
		State:      c.sync.State().String(),
		Items:      visible,
		Page:       page,
		TotalPages: pagination.TotalPages(len(items), size),
		PageSize:   size,
		Total:      len(items),
	}
}

// ReplaceAll overwrites the whole section with items. Each item is validated against
// the ones before it.
func (c *Controller[T]) ReplaceAll(ctx context.Context, items []T) ([]T, error) {
	c.closeEditor()
	for i, item := range items {
		if err := c.validate(item, "", items[:i]); err != nil {
			return nil, apperror.NewValidation(err.Error())
		}
	}
	saved, err := c.sync.Replace(ctx, items)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.pager.Sync(len(saved))
	c.mu.Unlock()
	return saved, nil
}

// Attach subscribes the section to identity changes and loads the current identity.
func (c *Controller[T]) Attach(ctx context.Context, src user.IdentitySource) error {
	unsubscribe, err := src.Subscribe(ctx, c.onIdentity)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()
	return err
}

// Detach stops listening for identity changes and tears the section down.
// Writes still in flight are not applied.
func (c *Controller[T]) Detach() {
	c.mu.Lock()
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	c.reset()
	c.sync.Reset()
}

func (c *Controller[T]) onIdentity(ctx context.Context, id *user.Identity) error {
	if id == nil {
		c.reset()
		c.sync.Clear()
		return nil
	}
	return c.Load(ctx, id.UserID)
}

func (c *Controller[T]) reset() {
	c.closeEditor()
	c.cancelPending()
	c.mu.Lock()
	c.pager.Reset()
	c.mu.Unlock()
}

// closeEditor closes the edit surface and returns the key it was editing.
func (c *Controller[T]) closeEditor() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := c.editor.EditKey
	c.editor = Editor[T]{}
	return key
}

func (c *Controller[T]) cancelPending() {
	c.mu.Lock()
	prev := c.pending
	c.pending = nil
	c.mu.Unlock()
	if prev != nil {
		prev.Cancel()
	}
}
