package service

import (
	"context"
	"time"
)

const (
	ChangeCreated  = "created"
	ChangeUpdated  = "updated"
	ChangeDeleted  = "deleted"
	ChangeReplaced = "replaced"
	ChangeMerged   = "merged"
)

// ProfileChange describes a committed write to a user's document.
type ProfileChange struct {
	OwnerID    string    `json:"owner_id"`
	Field      string    `json:"field"`
	ChangeType string    `json:"change_type"`
	ItemKey    string    `json:"item_key,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type EventPublisher interface {
	PublishProfileChange(ctx context.Context, change ProfileChange) error
}

// NopPublisher discards every change.
type NopPublisher struct{}

func (NopPublisher) PublishProfileChange(context.Context, ProfileChange) error { return nil }
