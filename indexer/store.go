package indexer

import (
	"context"

	"dareme-cli/storage"
)

// Store is everything the reconciler and the HTTP API need from persistence.
type Store interface {
	GetDare(ctx context.Context, pda string) (*storage.DareRecord, error)
	PutDare(ctx context.Context, rec *storage.DareRecord) error
	ListDares(ctx context.Context, filter storage.DareFilter) ([]storage.DareRecord, error)

	Seen(ctx context.Context, key string) (bool, error)
	MarkSeen(ctx context.Context, key string) error

	AddPending(ctx context.Context, pe storage.PendingEvent) error
	PendingFor(ctx context.Context, dare string) ([]storage.PendingEvent, error)
	DeletePending(ctx context.Context, dare, eventKey string) error
	ListPending(ctx context.Context) ([]storage.PendingEvent, error)

	AddNotification(ctx context.Context, n storage.Notification) error
	NotificationsFor(ctx context.Context, wallet string) ([]storage.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
}

var _ Store = (*storage.ProjectionStore)(nil)
