package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

type roomEntry struct {
	room    domain.Room
	members map[domain.UserID]struct{}
}

func newRoomEntry(room domain.Room, members []domain.UserID) *roomEntry {
	return &roomEntry{
		room: room,
		members: lo.SliceToMap(members, func(id domain.UserID) (domain.UserID, struct{}) {
			return id, struct{}{}
		}),
	}
}

func (e *roomEntry) memberList() []domain.UserID {
	ids := lo.Keys(e.members)
	slices.Sort(ids)
	return ids
}

// MembershipIndex is a write-through cache of rooms and their member sets.
// The store is written first; the cache changes only after the store commits.
// One RWMutex serializes membership changes against readers, so a member
// removed while a message is in flight is either still in that message's
// audience or in none of the later ones.
type MembershipIndex struct {
	store core.RoomStore

	mu     sync.RWMutex
	byID   map[domain.RoomID]*roomEntry
	byName map[domain.RoomName]domain.RoomID
}

func NewMembershipIndex(store core.RoomStore) *MembershipIndex {
	return &MembershipIndex{
		store:  store,
		byID:   make(map[domain.RoomID]*roomEntry),
		byName: make(map[domain.RoomName]domain.RoomID),
	}
}

// Load warms the cache with every stored room.
func (x *MembershipIndex) Load(ctx context.Context) error {
	rooms, err := x.store.ListRooms(ctx)
	if err != nil {
		return fmt.Errorf("list rooms: %w", err)
	}
	entries := make([]*roomEntry, 0, len(rooms))
	for _, r := range rooms {
		members, err := x.store.Members(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("members of %s: %w", r.Name, err)
		}
		entries = append(entries, newRoomEntry(r, members))
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	for _, e := range entries {
		x.putLocked(e)
	}
	log.Info().Str("module", "app.index").Int("rooms", len(entries)).Msg("membership index loaded")
	return nil
}

func (x *MembershipIndex) putLocked(e *roomEntry) {
	x.byID[e.room.ID] = e
	x.byName[e.room.Name] = e.room.ID
}

func (x *MembershipIndex) dropLocked(id domain.RoomID) {
	if e, ok := x.byID[id]; ok {
		delete(x.byName, e.room.Name)
		delete(x.byID, id)
	}
}

func (x *MembershipIndex) IsMember(userID domain.UserID, roomID domain.RoomID) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.byID[roomID]
	if !ok {
		return false
	}
	_, ok = e.members[userID]
	return ok
}

func (x *MembershipIndex) Get(roomID domain.RoomID) (domain.Room, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	e, ok := x.byID[roomID]
	if !ok {
		return domain.Room{}, false
	}
	return e.room, true
}

func (x *MembershipIndex) Members(roomID domain.RoomID) []domain.UserID {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if e, ok := x.byID[roomID]; ok {
		return e.memberList()
	}
	return nil
}

// MembersByName reports the cached member set of the room called name and
// whether such a room exists durably. Every room is created through the
// index, so a cache miss means there is no durable room.
func (x *MembershipIndex) MembersByName(name domain.RoomName) ([]domain.UserID, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.byName[name]
	if !ok {
		return nil, false
	}
	return x.byID[id].memberList(), true
}

// RoomsOf lists the rooms userID belongs to, ordered by id.
func (x *MembershipIndex) RoomsOf(userID domain.UserID) []domain.Room {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var out []domain.Room
	for _, e := range x.byID {
		if _, ok := e.members[userID]; ok {
			out = append(out, e.room)
		}
	}
	slices.SortFunc(out, func(a, b domain.Room) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// ResolveByName looks the room up in the cache and falls back to the store
// for rooms this process has not seen yet.
func (x *MembershipIndex) ResolveByName(ctx context.Context, name domain.RoomName) (domain.Room, error) {
	x.mu.RLock()
	id, ok := x.byName[name]
	var room domain.Room
	if ok {
		room = x.byID[id].room
	}
	x.mu.RUnlock()
	if ok {
		return room, nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	e, err := x.fillLocked(ctx, name)
	if err != nil {
		return domain.Room{}, err
	}
	return e.room, nil
}

// fillLocked resolves name through the store and caches the result.
func (x *MembershipIndex) fillLocked(ctx context.Context, name domain.RoomName) (*roomEntry, error) {
	if id, ok := x.byName[name]; ok {
		return x.byID[id], nil
	}
	room, err := x.store.ResolveRoom(ctx, name)
	if err != nil {
		return nil, err
	}
	members, err := x.store.Members(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	e := newRoomEntry(room, members)
	x.putLocked(e)
	return e, nil
}

// WithMember runs fn while holding the index read lock, after checking that
// userID belongs to the room called name. fn receives the member set as of
// that check; no membership change can commit until fn returns.
func (x *MembershipIndex) WithMember(
	ctx context.Context,
	name domain.RoomName,
	userID domain.UserID,
	fn func(room domain.Room, members []domain.UserID) error,
) error {
	if _, err := x.ResolveByName(ctx, name); err != nil {
		return err
	}

	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.byName[name]
	if !ok {
		return fmt.Errorf("room %s: %w", name, domain.ErrNotFound)
	}
	e := x.byID[id]
	if _, member := e.members[userID]; !member {
		return domain.ErrAccessDenied
	}
	return fn(e.room, e.memberList())
}

func (x *MembershipIndex) AddMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.byID[roomID]
	if !ok {
		return fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
	}
	if err := x.store.AddMember(ctx, roomID, userID); err != nil {
		return err
	}
	e.members[userID] = struct{}{}
	log.Info().Str("module", "app.index").Str("room", string(e.room.Name)).Str("user", userID.String()).Msg("member added")
	return nil
}

func (x *MembershipIndex) RemoveMember(ctx context.Context, roomID domain.RoomID, userID domain.UserID) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.byID[roomID]
	if !ok {
		return fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
	}
	if err := x.store.RemoveMember(ctx, roomID, userID); err != nil {
		return err
	}
	delete(e.members, userID)
	log.Info().Str("module", "app.index").Str("room", string(e.room.Name)).Str("user", userID.String()).Msg("member removed")
	return nil
}

// CreatePrivate returns the 1:1 room of a and b, creating it on first use.
// Either user may initiate; both resolve to the same room.
func (x *MembershipIndex) CreatePrivate(ctx context.Context, a, b domain.Identity) (domain.Room, error) {
	if a.UserID == b.UserID {
		return domain.Room{}, fmt.Errorf("%w: private chat needs two users", domain.ErrBadPayload)
	}
	name := domain.PrivateRoomName(a.Username, b.Username)
	pair := []domain.UserID{a.UserID, b.UserID}
	slices.Sort(pair)

	x.mu.Lock()
	defer x.mu.Unlock()

	e, err := x.fillLocked(ctx, name)
	switch {
	case err == nil:
		if e.room.IsGroup {
			return domain.Room{}, fmt.Errorf("room %s: %w", name, domain.ErrAlreadyExists)
		}
		return e.room, nil
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Room{}, err
	}

	room, err := x.store.CreateRoom(ctx, domain.Room{Name: name, CreatorID: a.UserID}, pair)
	if err != nil {
		return domain.Room{}, err
	}
	x.putLocked(newRoomEntry(room, pair))
	log.Info().Str("module", "app.index").Str("room", string(name)).Msg("private room created")
	return room, nil
}

// CreateGroup creates a group room; the creator is always a member.
func (x *MembershipIndex) CreateGroup(ctx context.Context, name domain.RoomName, creatorID domain.UserID, initialMembers []domain.UserID) (domain.Room, error) {
	if name == "" || strings.HasPrefix(string(name), "private_") {
		return domain.Room{}, fmt.Errorf("%w: invalid group name %q", domain.ErrBadPayload, name)
	}
	members := lo.Uniq(append([]domain.UserID{creatorID}, initialMembers...))

	x.mu.Lock()
	defer x.mu.Unlock()

	if _, err := x.fillLocked(ctx, name); err == nil {
		return domain.Room{}, fmt.Errorf("room %s: %w", name, domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.Room{}, err
	}

	room, err := x.store.CreateRoom(ctx, domain.Room{Name: name, IsGroup: true, CreatorID: creatorID}, members)
	if err != nil {
		return domain.Room{}, err
	}
	x.putLocked(newRoomEntry(room, members))
	log.Info().Str("module", "app.index").Str("room", string(name)).Int("members", len(members)).Msg("group room created")
	return room, nil
}

// Delete removes the room with its messages and memberships. Group rooms can
// only be deleted by their creator, private rooms by either participant.
func (x *MembershipIndex) Delete(ctx context.Context, roomID domain.RoomID, caller domain.UserID) (domain.Room, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	e, ok := x.byID[roomID]
	if !ok {
		return domain.Room{}, fmt.Errorf("room %d: %w", roomID, domain.ErrNotFound)
	}
	if _, member := e.members[caller]; !e.room.CanDelete(caller) || (!e.room.IsGroup && !member) {
		return domain.Room{}, domain.ErrForbidden
	}
	if err := x.store.DeleteRoom(ctx, roomID); err != nil {
		return domain.Room{}, err
	}
	x.dropLocked(roomID)
	log.Info().Str("module", "app.index").Str("room", string(e.room.Name)).Str("by", caller.String()).Msg("room deleted")
	return e.room, nil
}
