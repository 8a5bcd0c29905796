package repository

import (
	"context"

	"github.com/pocketbase/dbx"

	"gitgauge/internal/domain"
)

type notificationRow struct {
	ID           string `db:"id"`
	RepoName     string `db:"repo_name"`
	RepoOwner    string `db:"repo_owner"`
	Message      string `db:"message"`
	AnalysisType string `db:"analysis_type"`
	Timestamp    int64  `db:"timestamp"`
	IsRead       int    `db:"is_read"`
}

func (r *notificationRow) toNotification() domain.Notification {
	return domain.Notification{
		ID:           r.ID,
		RepoName:     r.RepoName,
		RepoOwner:    r.RepoOwner,
		Message:      r.Message,
		AnalysisType: r.AnalysisType,
		Timestamp:    r.Timestamp,
		Read:         r.IsRead == 1,
	}
}

// sqliteNotificationRepository implements NotificationRepository over the
// notifications table.
type sqliteNotificationRepository struct {
	db *dbx.DB
}

// NewSQLiteNotificationRepository creates the notification store.
func NewSQLiteNotificationRepository(db *dbx.DB) NotificationRepository {
	return &sqliteNotificationRepository{db: db}
}

// Save stores a notification, replacing any record with the same id.
func (r *sqliteNotificationRepository) Save(ctx context.Context, notification *domain.Notification) error {
	if notification == nil {
		return domain.NewValidationError("NIL_NOTIFICATION", "Notification cannot be nil", nil)
	}
	if err := notification.Validate(); err != nil {
		return err
	}

	read := 0
	if notification.Read {
		read = 1
	}

	_, err := r.db.NewQuery(
		`INSERT OR REPLACE INTO notifications
			(id, repo_name, repo_owner, message, analysis_type, timestamp, is_read)
		 VALUES ({:id}, {:repo}, {:owner}, {:message}, {:type}, {:ts}, {:read})`,
	).Bind(dbx.Params{
		"id":      notification.ID,
		"repo":    notification.RepoName,
		"owner":   notification.RepoOwner,
		"message": notification.Message,
		"type":    notification.AnalysisType,
		"ts":      notification.Timestamp,
		"read":    read,
	}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("NOTIFICATION_SAVE_FAILED", "Failed to save notification", err)
	}
	return nil
}

// List returns all notifications, newest first.
func (r *sqliteNotificationRepository) List(ctx context.Context) ([]domain.Notification, error) {
	return r.query(ctx,
		`SELECT id, repo_name, repo_owner, message, analysis_type, timestamp, is_read
		 FROM notifications ORDER BY timestamp DESC`)
}

// Unread returns unread notifications, newest first.
func (r *sqliteNotificationRepository) Unread(ctx context.Context) ([]domain.Notification, error) {
	return r.query(ctx,
		`SELECT id, repo_name, repo_owner, message, analysis_type, timestamp, is_read
		 FROM notifications WHERE is_read = 0 ORDER BY timestamp DESC`)
}

func (r *sqliteNotificationRepository) query(ctx context.Context, sql string) ([]domain.Notification, error) {
	var rows []notificationRow
	if err := r.db.NewQuery(sql).WithContext(ctx).All(&rows); err != nil {
		return nil, domain.NewInternalError("NOTIFICATION_QUERY_FAILED", "Failed to read notifications", err)
	}

	notifications := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, row.toNotification())
	}
	return notifications, nil
}

// UnreadCount returns the number of unread notifications.
func (r *sqliteNotificationRepository) UnreadCount(ctx context.Context) (int, error) {
	var row struct {
		Count int `db:"count"`
	}
	err := r.db.NewQuery(
		`SELECT COUNT(*) AS count FROM notifications WHERE is_read = 0`,
	).WithContext(ctx).One(&row)
	if err != nil {
		return 0, domain.NewInternalError("NOTIFICATION_QUERY_FAILED", "Failed to count unread notifications", err)
	}
	return row.Count, nil
}

// MarkRead marks a notification as read.
func (r *sqliteNotificationRepository) MarkRead(ctx context.Context, id string) error {
	_, err := r.db.NewQuery(
		`UPDATE notifications SET is_read = 1 WHERE id = {:id}`,
	).Bind(dbx.Params{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("NOTIFICATION_UPDATE_FAILED", "Failed to mark notification read", err)
	}
	return nil
}

// Delete removes a single notification.
func (r *sqliteNotificationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.NewQuery(
		`DELETE FROM notifications WHERE id = {:id}`,
	).Bind(dbx.Params{"id": id}).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("NOTIFICATION_DELETE_FAILED", "Failed to delete notification", err)
	}
	return nil
}

// DeleteAll removes every notification.
func (r *sqliteNotificationRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.NewQuery(`DELETE FROM notifications`).WithContext(ctx).Execute()
	if err != nil {
		return domain.NewInternalError("NOTIFICATION_DELETE_FAILED", "Failed to delete notifications", err)
	}
	return nil
}
