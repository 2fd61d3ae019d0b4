package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"magasin/internal/domain"
	apperrors "magasin/internal/errors"
)

type MySQLNotificationRepository struct {
	db *sql.DB
}

func NewMySQLNotificationRepository(db *sql.DB) *MySQLNotificationRepository {
	return &MySQLNotificationRepository{db: db}
}

func (r *MySQLNotificationRepository) Insert(ctx context.Context, n domain.Notification) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, message, lu, date_envoi)
		 VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.Message, n.Lu, n.DateEnvoi,
	)
	if err != nil {
		return apperrors.NewPersistenceError("inserting notification", err)
	}
	return nil
}

// ExistsSince reports whether the same message was already sent to the user
// after the given instant. Notifications are never deleted, so a time-bounded
// lookup is enough to suppress repeats.
func (r *MySQLNotificationRepository) ExistsSince(ctx context.Context, userID, message string, since time.Time) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications
		 WHERE user_id = ? AND message = ? AND date_envoi >= ?`,
		userID, message, since,
	).Scan(&count)
	if err != nil {
		return false, apperrors.NewPersistenceError("checking recent notification", err)
	}
	return count > 0, nil
}

func (r *MySQLNotificationRepository) ListByUser(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, message, lu, date_envoi
		 FROM notifications WHERE user_id = ? ORDER BY date_envoi DESC`,
		userID,
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying notifications", err)
	}
	defer rows.Close()

	var notifications []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Lu, &n.DateEnvoi); err != nil {
			return nil, apperrors.NewPersistenceError("scanning notification row", err)
		}
		notifications = append(notifications, n)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating notification rows", err)
	}

	return notifications, nil
}

func (r *MySQLNotificationRepository) CountUnreadByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = ? AND lu = FALSE`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.NewPersistenceError("counting unread notifications", err)
	}
	return count, nil
}

// MarkRead flips the flag only when the notification belongs to the caller,
// so a user cannot acknowledge someone else's notifications.
func (r *MySQLNotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET lu = TRUE WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return apperrors.NewPersistenceError("marking notification read", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewPersistenceError("getting rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("notification %s not found", id))
	}

	return nil
}

func (r *MySQLNotificationRepository) AdminIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM users WHERE role = ?`, string(domain.RoleAdmin),
	)
	if err != nil {
		return nil, apperrors.NewPersistenceError("querying admin users", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewPersistenceError("scanning user row", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewPersistenceError("iterating user rows", err)
	}

	return ids, nil
}
