package postgres

import (
	"context"
	"database/sql"
	"time"

	"client-docs-portal/internal/domain/messages"
	"client-docs-portal/internal/domain/notifications"
)

// MessagesRepo implementa messages.Repository y notifications.Repository.
type MessagesRepo struct {
	db *sql.DB
}

var (
	_ messages.Repository      = (*MessagesRepo)(nil)
	_ notifications.Repository = (*MessagesRepo)(nil)
)

func NewMessagesRepo(db *sql.DB) *MessagesRepo {
	return &MessagesRepo{db: db}
}

func (r *MessagesRepo) Append(ctx context.Context, m messages.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO client_messages (id, client_id, user_id, is_client, message, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, m.ID, m.ClientID, nullString(m.UserID), m.IsClient, m.Text, m.CreatedAt)
	return err
}

func (r *MessagesRepo) ListByClient(ctx context.Context, clientID string) ([]messages.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, client_id, user_id, is_client, message, created_at
		FROM client_messages
		WHERE client_id = $1
		ORDER BY created_at ASC, id ASC
	`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]messages.Message, 0)
	for rows.Next() {
		var m messages.Message
		var uid sql.NullString
		if err := rows.Scan(&m.ID, &m.ClientID, &uid, &m.IsClient, &m.Text, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.UserID = uid.String
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessagesRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM client_messages WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// MarkRead: GREATEST evita que el marcador retroceda.
func (r *MessagesRepo) MarkRead(ctx context.Context, viewer, clientID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO message_read_markers (viewer, client_id, seen_at)
		VALUES ($1,$2,$3)
		ON CONFLICT (viewer, client_id)
		DO UPDATE SET seen_at = GREATEST(message_read_markers.seen_at, EXCLUDED.seen_at)
	`, viewer, clientID, at)
	return err
}

func (r *MessagesRepo) UnreadCounts(ctx context.Context, viewer string, fromClient bool, clientIDs []string) (map[string]int, error) {
	out := make(map[string]int)
	if len(clientIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT m.client_id, COUNT(*)
		FROM client_messages m
		LEFT JOIN message_read_markers k
			ON k.viewer = $1 AND k.client_id = m.client_id
		WHERE m.client_id = ANY($2::text[])
			AND m.is_client = $3
			AND (k.seen_at IS NULL OR m.created_at > k.seen_at)
		GROUP BY m.client_id
	`, viewer, clientIDs, fromClient)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}
