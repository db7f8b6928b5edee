package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hirelane/internal/database"
	"hirelane/internal/domain/notification"
)

type NotificationRepository interface {
	Insert(ctx context.Context, n notification.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]notification.Notification, error)
	// MarkRead only ever sets read_at; a second call keeps the first timestamp.
	MarkRead(ctx context.Context, id uuid.UUID, recipientID uuid.UUID, at time.Time) (notification.Notification, error)
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
}

const notificationColumns = `id, recipient_id, kind, title, message, data, read_at, created_at`

type PostgresNotificationRepository struct {
	db database.DB
}

func NewPostgresNotificationRepository(db database.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) Insert(ctx context.Context, n notification.Notification) error {
	data := n.Data
	if data == nil {
		data = map[string]string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO notifications (id, recipient_id, kind, title, message, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.RecipientID, n.Kind, n.Title, n.Message, data, n.CreatedAt,
	)
	return translate(err, "notifications: insert")
}

func (r *PostgresNotificationRepository) ListByRecipient(ctx context.Context, recipientID uuid.UUID, unreadOnly bool, limit, offset int) ([]notification.Notification, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := r.db.Query(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE recipient_id = $1 AND ($2 = false OR read_at IS NULL)
		 ORDER BY created_at DESC
		 LIMIT $3 OFFSET $4`,
		recipientID, unreadOnly, limit, offset,
	)
	if err != nil {
		return nil, translate(err, "notifications: list")
	}
	defer rows.Close()

	out := make([]notification.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, translate(err, "notifications: scan")
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "notifications: rows")
	}
	return out, nil
}

func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id uuid.UUID, recipientID uuid.UUID, at time.Time) (notification.Notification, error) {
	row := r.db.QueryRow(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, $3)
		 WHERE id = $1 AND recipient_id = $2
		 RETURNING `+notificationColumns,
		id, recipientID, at,
	)
	n, err := scanNotification(row)
	if err != nil {
		return notification.Notification{}, translate(err, "notifications: mark read")
	}
	return n, nil
}

func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error) {
	var c int
	row := r.db.QueryRow(ctx, `SELECT COUNT(1) FROM notifications WHERE recipient_id = $1 AND read_at IS NULL`, recipientID)
	if err := row.Scan(&c); err != nil {
		return 0, translate(err, "notifications: count unread")
	}
	return c, nil
}

func scanNotification(row database.Row) (notification.Notification, error) {
	var n notification.Notification
	if err := row.Scan(&n.ID, &n.RecipientID, &n.Kind, &n.Title, &n.Message, &n.Data, &n.ReadAt, &n.CreatedAt); err != nil {
		return notification.Notification{}, err
	}
	return n, nil
}
