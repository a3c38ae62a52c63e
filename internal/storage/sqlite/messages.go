package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/tiger/internal/domain"
)

const messageColumns = "m.id, m.room_id, r.name, m.user_id, u.username, m.content, m.timestamp"

// SaveMessage commits the message only if the sender is a member of the room
// at insert time; otherwise it returns domain.ErrAccessDenied.
func (db *DB) SaveMessage(ctx context.Context, roomID domain.RoomID, userID domain.UserID, content string) (domain.Message, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (room_id, user_id, content, timestamp)
		 SELECT ?, ?, ?, ?
		 WHERE EXISTS (SELECT 1 FROM room_members WHERE room_id = ? AND user_id = ?)`,
		roomID, userID, content, now.Format(timeLayout), roomID, userID,
	)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if n == 0 {
		return domain.Message{}, domain.ErrAccessDenied
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	row := tx.QueryRowContext(ctx,
		"SELECT "+messageColumns+` FROM messages m
		 JOIN rooms r ON r.id = m.room_id
		 JOIN users u ON u.id = m.user_id
		 WHERE m.id = ?`, id)
	msg, err := scanMessage(row)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.Message{}, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return msg, nil
}

// FetchHistory returns the newest limit messages across the user's rooms,
// ordered oldest first. A non-positive limit means no limit.
func (db *DB) FetchHistory(ctx context.Context, userID domain.UserID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT * FROM (
			SELECT ` + messageColumns + `
			FROM messages m
			JOIN rooms r ON r.id = m.room_id
			JOIN users u ON u.id = m.user_id
			JOIN room_members rm ON rm.room_id = m.room_id AND rm.user_id = ?
			ORDER BY m.id DESC
			LIMIT ?
		) ORDER BY id ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func scanMessage(s scanner) (domain.Message, error) {
	var (
		m  domain.Message
		ts string
	)
	if err := s.Scan(&m.ID, &m.RoomID, &m.Room, &m.SenderID, &m.Sender, &m.Content, &ts); err != nil {
		return domain.Message{}, err
	}
	m.Timestamp = parseTime(ts)
	return m, nil
}
