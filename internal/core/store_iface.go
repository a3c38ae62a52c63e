//go:generate go run go.uber.org/mock/mockgen -source=store_iface.go -destination=../mocks/mock_store.go -package=mocks
package core

import (
	"context"

	"github.com/dkeye/tiger/internal/domain"
)

// MessageStore is the part of the persistence gateway the router writes through.
// SaveMessage is atomic: on error nothing was committed.
type MessageStore interface {
	SaveMessage(ctx context.Context, roomID domain.RoomID, userID domain.UserID, content string) (domain.Message, error)
	// FetchHistory returns messages of every room the user belongs to, oldest first.
	FetchHistory(ctx context.Context, userID domain.UserID, limit int) ([]domain.Message, error)
}

// RoomStore persists rooms and their member sets.
type RoomStore interface {
	CreateRoom(ctx context.Context, room domain.Room, members []domain.UserID) (domain.Room, error)
	ResolveRoom(ctx context.Context, name domain.RoomName) (domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	ListRoomsForUser(ctx context.Context, userID domain.UserID) ([]domain.Room, error)
	Members(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error)
	AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error
	// DeleteRoom cascades to memberships and messages.
	DeleteRoom(ctx context.Context, roomID domain.RoomID) error
}

// UserDirectory resolves usernames to registered users.
type UserDirectory interface {
	UserByName(ctx context.Context, username string) (domain.User, error)
}

// Authenticator is the credential collaborator; the core never sees hashes.
type Authenticator interface {
	UserDirectory
	Register(ctx context.Context, username, password string) (domain.Identity, error)
	Authenticate(ctx context.Context, username, password string) (domain.Identity, error)
}
