package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dkeye/tiger/internal/domain"
	"github.com/rs/zerolog/log"
)

const roomColumns = "r.id, r.name, r.is_group, r.creator_id, r.created_at"

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(s scanner) (domain.Room, error) {
	var (
		r       domain.Room
		created string
	)
	if err := s.Scan(&r.ID, &r.Name, &r.IsGroup, &r.CreatorID, &created); err != nil {
		return domain.Room{}, err
	}
	r.CreatedAt = parseTime(created)
	return r, nil
}

// CreateRoom inserts the room and its members in one transaction.
func (db *DB) CreateRoom(ctx context.Context, room domain.Room, members []domain.UserID) (domain.Room, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return domain.Room{}, err
	}
	defer tx.Rollback()

	room.CreatedAt = time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		"INSERT INTO rooms (name, is_group, creator_id, created_at) VALUES (?, ?, ?, ?)",
		room.Name, room.IsGroup, room.CreatorID, room.CreatedAt.Format(timeLayout),
	)
	if isUniqueViolation(err) {
		return domain.Room{}, fmt.Errorf("room %q: %w", room.Name, domain.ErrAlreadyExists)
	}
	if err != nil {
		return domain.Room{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Room{}, err
	}
	room.ID = domain.RoomID(id)

	for _, uid := range members {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO room_members (room_id, user_id) VALUES (?, ?)", room.ID, uid,
		); err != nil {
			return domain.Room{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return domain.Room{}, err
	}
	log.Info().Str("module", "storage.sqlite").Str("room", string(room.Name)).Bool("group", room.IsGroup).Int("members", len(members)).Msg("room created")
	return room, nil
}

func (db *DB) ResolveRoom(ctx context.Context, name domain.RoomName) (domain.Room, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+roomColumns+" FROM rooms r WHERE r.name = ?", name)
	room, err := scanRoom(row)
	if err != nil {
		return domain.Room{}, notFound(err, "room "+string(name))
	}
	return room, nil
}

func (db *DB) ListRooms(ctx context.Context) ([]domain.Room, error) {
	return db.queryRooms(ctx, "SELECT "+roomColumns+" FROM rooms r ORDER BY r.id")
}

func (db *DB) ListRoomsForUser(ctx context.Context, userID domain.UserID) ([]domain.Room, error) {
	return db.queryRooms(ctx,
		"SELECT "+roomColumns+" FROM rooms r JOIN room_members m ON m.room_id = r.id WHERE m.user_id = ? ORDER BY r.id",
		userID,
	)
}

func (db *DB) queryRooms(ctx context.Context, query string, args ...any) ([]domain.Room, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, r)
	}
	return rooms, rows.Err()
}

func (db *DB) Members(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT user_id FROM room_members WHERE room_id = ? ORDER BY user_id", roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []domain.UserID
	for rows.Next() {
		var id domain.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *DB) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR IGNORE INTO room_members (room_id, user_id) VALUES (?, ?)", roomID, userID,
	)
	return err
}

func (db *DB) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	result, err := db.conn.ExecContext(ctx,
		"DELETE FROM room_members WHERE room_id = ? AND user_id = ?", roomID, userID,
	)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFound(sql.ErrNoRows, "membership")
	}
	return nil
}

// DeleteRoom relies on ON DELETE CASCADE for memberships and messages.
func (db *DB) DeleteRoom(ctx context.Context, roomID domain.RoomID) error {
	result, err := db.conn.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", roomID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return notFound(sql.ErrNoRows, "room")
	}
	log.Info().Str("module", "storage.sqlite").Int64("room_id", int64(roomID)).Msg("room deleted")
	return nil
}
