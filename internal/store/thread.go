package store

import (
	"context"

	"github.com/jackc/pgx/v5"

	"booking-api/internal/model"
)

const threadSelect = `SELECT t.id, t.client_id, u.username, t.subject, t.created_at, t.updated_at
	FROM threads t JOIN users u ON u.id = t.client_id`

func scanThread(row pgx.Row, t *model.Thread) error {
	return row.Scan(&t.ID, &t.ClientID, &t.ClientName, &t.Subject, &t.CreatedAt, &t.UpdatedAt)
}

func (s *Store) CreateThread(ctx context.Context, t *model.Thread) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO threads (id, client_id, subject, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		t.ID, t.ClientID, t.Subject, t.CreatedAt, t.UpdatedAt,
	)
	return wrap(err)
}

// ListThreads returns threads most recently active first, without messages.
// An empty clientID lists every client's threads.
func (s *Store) ListThreads(ctx context.Context, clientID string) ([]model.Thread, error) {
	q := threadSelect
	var args []any
	if clientID != "" {
		q += ` WHERE t.client_id = $1`
		args = append(args, clientID)
	}
	q += ` ORDER BY t.updated_at DESC, t.id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Thread{}
	for rows.Next() {
		var t model.Thread
		if err := scanThread(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetThread(ctx context.Context, id string) (*model.Thread, error) {
	t := &model.Thread{}
	if err := scanThread(s.pool.QueryRow(ctx, threadSelect+` WHERE t.id = $1`, id), t); err != nil {
		return nil, wrap(err)
	}
	return t, nil
}

// ListMessages returns a thread's messages in insertion order.
func (s *Store) ListMessages(ctx context.Context, threadID string) ([]model.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT m.id, m.thread_id, m.sender_id, u.username, m.content, m.timestamp
		 FROM messages m JOIN users u ON u.id = m.sender_id
		 WHERE m.thread_id = $1
		 ORDER BY m.seq`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ThreadID, &m.SenderID, &m.SenderName, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateThread writes the subject and reads back updated_at, which only
// ever moves forward.
func (s *Store) UpdateThread(ctx context.Context, t *model.Thread) error {
	err := s.pool.QueryRow(ctx,
		`UPDATE threads SET subject=$1, updated_at=GREATEST(updated_at, $2)
		 WHERE id=$3
		 RETURNING updated_at`,
		t.Subject, t.UpdatedAt, t.ID,
	).Scan(&t.UpdatedAt)
	return wrap(err)
}

// DeleteThread removes the thread's messages and then the thread itself in
// one transaction.
func (s *Store) DeleteThread(ctx context.Context, id string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE thread_id=$1`, id); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM threads WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

// AppendMessage inserts m and moves the thread's updated_at up to
// m.Timestamp; it never moves backwards.
// Both writes commit together so readers never see the message without the
// new thread ordering.
func (s *Store) AppendMessage(ctx context.Context, m *model.Message) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO messages (id, thread_id, sender_id, content, timestamp)
		 VALUES ($1,$2,$3,$4,$5)`,
		m.ID, m.ThreadID, m.SenderID, m.Content, m.Timestamp,
	)
	if err != nil {
		return wrap(err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE threads SET updated_at=GREATEST(updated_at, $1) WHERE id=$2`, m.Timestamp, m.ThreadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if err := tx.QueryRow(ctx,
		`SELECT username FROM users WHERE id=$1`, m.SenderID,
	).Scan(&m.SenderName); err != nil {
		return wrap(err)
	}

	return tx.Commit(ctx)
}
