package repository

import (
	"context"

	"gitgauge/internal/domain"
)

// NotificationRepository stores analysis-completion notifications delivered
// over the notification channel. This store is independent of the analysis
// cache: receiving a notification never mutates cached analyses.
type NotificationRepository interface {
	// Save stores a notification, replacing any record with the same id.
	Save(ctx context.Context, notification *domain.Notification) error

	// List returns all notifications, newest first.
	List(ctx context.Context) ([]domain.Notification, error)

	// Unread returns unread notifications, newest first.
	Unread(ctx context.Context) ([]domain.Notification, error)

	// UnreadCount returns the number of unread notifications.
	UnreadCount(ctx context.Context) (int, error)

	// MarkRead marks a notification as read. Unknown ids are a no-op.
	MarkRead(ctx context.Context, id string) error

	// Delete removes a single notification.
	Delete(ctx context.Context, id string) error

	// DeleteAll removes every notification.
	DeleteAll(ctx context.Context) error
}
