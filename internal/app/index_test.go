package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dkeye/tiger/internal/domain"
	"github.com/dkeye/tiger/internal/mocks"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var (
	alice = domain.Identity{UserID: 1, Username: "alice"}
	bob   = domain.Identity{UserID: 2, Username: "bob"}
	carol = domain.Identity{UserID: 3, Username: "carol"}
)

func notFoundErr(name domain.RoomName) error {
	return fmt.Errorf("room %s: %w", name, domain.ErrNotFound)
}

func loadedIndex(t *testing.T, store *mocks.MockRoomStore, rooms map[domain.Room][]domain.UserID) *MembershipIndex {
	t.Helper()
	list := make([]domain.Room, 0, len(rooms))
	for r, members := range rooms {
		list = append(list, r)
		store.EXPECT().Members(gomock.Any(), r.ID).Return(members, nil)
	}
	store.EXPECT().ListRooms(gomock.Any()).Return(list, nil)
	x := NewMembershipIndex(store)
	require.NoError(t, x.Load(context.Background()))
	return x
}

func TestMembershipIndex_Load(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	g := domain.Room{ID: 7, Name: "devs", IsGroup: true, CreatorID: 1}

	x := loadedIndex(t, store, map[domain.Room][]domain.UserID{g: {1, 2}})

	req.True(x.IsMember(1, 7))
	req.True(x.IsMember(2, 7))
	req.False(x.IsMember(3, 7))
	req.Equal([]domain.UserID{1, 2}, x.Members(7))
	req.Equal([]domain.Room{g}, x.RoomsOf(2))

	room, err := x.ResolveByName(context.Background(), "devs")
	req.NoError(err)
	req.Equal(g, room)
}

func TestMembershipIndex_MembersByName_Reads_Cache_Only(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	g := domain.Room{ID: 7, Name: "devs", IsGroup: true, CreatorID: 1}
	x := loadedIndex(t, store, map[domain.Room][]domain.UserID{g: {2, 1}})

	members, ok := x.MembersByName("devs")
	req.True(ok)
	req.Equal([]domain.UserID{1, 2}, members)

	// a miss does not touch the store
	members, ok = x.MembersByName("ghost")
	req.False(ok)
	req.Nil(members)
}

func TestMembershipIndex_ResolveByName_Falls_Back_To_Store(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	x := NewMembershipIndex(store)
	late := domain.Room{ID: 9, Name: "late", IsGroup: true, CreatorID: 2}

	store.EXPECT().ResolveRoom(gomock.Any(), domain.RoomName("late")).Return(late, nil).Times(1)
	store.EXPECT().Members(gomock.Any(), domain.RoomID(9)).Return([]domain.UserID{2}, nil).Times(1)
	store.EXPECT().ResolveRoom(gomock.Any(), domain.RoomName("ghost")).Return(domain.Room{}, notFoundErr("ghost"))

	// The second lookup hits the cache
	for i := 0; i < 2; i++ {
		room, err := x.ResolveByName(context.Background(), "late")
		req.NoError(err)
		req.Equal(late, room)
	}
	_, err := x.ResolveByName(context.Background(), "ghost")
	req.ErrorIs(err, domain.ErrNotFound)
}

func TestMembershipIndex_CreatePrivate_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	x := NewMembershipIndex(store)
	ctx := context.Background()

	store.EXPECT().ResolveRoom(gomock.Any(), domain.RoomName("private_alice_bob")).
		Return(domain.Room{}, notFoundErr("private_alice_bob")).Times(1)
	store.EXPECT().CreateRoom(gomock.Any(), gomock.Any(), []domain.UserID{1, 2}).
		DoAndReturn(func(_ context.Context, r domain.Room, _ []domain.UserID) (domain.Room, error) {
			r.ID = 42
			return r, nil
		}).Times(1)

	// When alice starts it and then bob does
	first, err := x.CreatePrivate(ctx, alice, bob)
	req.NoError(err)
	second, err := x.CreatePrivate(ctx, bob, alice)
	req.NoError(err)

	// Then both resolve to the same room
	req.Equal(domain.RoomID(42), first.ID)
	req.Equal(first.ID, second.ID)
	req.Equal(domain.RoomName("private_alice_bob"), first.Name)
	req.False(first.IsGroup)
	req.True(x.IsMember(1, 42))
	req.True(x.IsMember(2, 42))
}

func TestMembershipIndex_CreatePrivate_With_Self(t *testing.T) {
	ctrl := gomock.NewController(t)
	x := NewMembershipIndex(mocks.NewMockRoomStore(ctrl))

	_, err := x.CreatePrivate(context.Background(), alice, alice)

	require.ErrorIs(t, err, domain.ErrBadPayload)
}

func TestMembershipIndex_CreateGroup(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	x := NewMembershipIndex(store)
	ctx := context.Background()

	store.EXPECT().ResolveRoom(gomock.Any(), domain.RoomName("devs")).Return(domain.Room{}, notFoundErr("devs"))
	store.EXPECT().CreateRoom(gomock.Any(), gomock.Any(), []domain.UserID{1, 2}).
		DoAndReturn(func(_ context.Context, r domain.Room, _ []domain.UserID) (domain.Room, error) {
			r.ID = 5
			return r, nil
		})

	// Given a group created by alice, bob listed twice
	room, err := x.CreateGroup(ctx, "devs", alice.UserID, []domain.UserID{bob.UserID, bob.UserID})
	req.NoError(err)
	req.True(room.IsGroup)
	req.Equal(alice.UserID, room.CreatorID)

	// When creating it again
	_, err = x.CreateGroup(ctx, "devs", carol.UserID, nil)

	// Then it already exists
	req.ErrorIs(err, domain.ErrAlreadyExists)

	// And reserved names are refused without touching the store
	_, err = x.CreateGroup(ctx, "private_alice_bob", alice.UserID, nil)
	req.ErrorIs(err, domain.ErrBadPayload)
	_, err = x.CreateGroup(ctx, "", alice.UserID, nil)
	req.ErrorIs(err, domain.ErrBadPayload)
}

func TestMembershipIndex_Delete_Permissions(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	group := domain.Room{ID: 1, Name: "devs", IsGroup: true, CreatorID: 1}
	private := domain.Room{ID: 2, Name: "private_alice_bob", CreatorID: 1}
	x := loadedIndex(t, store, map[domain.Room][]domain.UserID{
		group:   {1, 2},
		private: {1, 2},
	})
	ctx := context.Background()

	// A group member who is not the creator cannot delete
	_, err := x.Delete(ctx, group.ID, bob.UserID)
	req.ErrorIs(err, domain.ErrForbidden)

	// An outsider cannot delete a private room
	_, err = x.Delete(ctx, private.ID, carol.UserID)
	req.ErrorIs(err, domain.ErrForbidden)

	// Either participant can
	store.EXPECT().DeleteRoom(gomock.Any(), private.ID).Return(nil)
	deleted, err := x.Delete(ctx, private.ID, bob.UserID)
	req.NoError(err)
	req.Equal(private.Name, deleted.Name)
	req.False(x.IsMember(1, private.ID))

	// The creator deletes the group
	store.EXPECT().DeleteRoom(gomock.Any(), group.ID).Return(nil)
	_, err = x.Delete(ctx, group.ID, alice.UserID)
	req.NoError(err)
	req.Empty(x.RoomsOf(alice.UserID))

	_, err = x.Delete(ctx, group.ID, alice.UserID)
	req.ErrorIs(err, domain.ErrNotFound)
}

func TestMembershipIndex_Store_Failure_Leaves_Cache(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	group := domain.Room{ID: 1, Name: "devs", IsGroup: true, CreatorID: 1}
	x := loadedIndex(t, store, map[domain.Room][]domain.UserID{group: {1, 2}})

	store.EXPECT().RemoveMember(gomock.Any(), group.ID, bob.UserID).Return(domain.ErrPersistence)

	err := x.RemoveMember(context.Background(), group.ID, bob.UserID)

	req.ErrorIs(err, domain.ErrPersistence)
	req.True(x.IsMember(bob.UserID, group.ID))
}

func TestMembershipIndex_WithMember(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	group := domain.Room{ID: 1, Name: "devs", IsGroup: true, CreatorID: 1}
	x := loadedIndex(t, store, map[domain.Room][]domain.UserID{group: {1, 2}})
	ctx := context.Background()

	called := false
	err := x.WithMember(ctx, "devs", carol.UserID, func(domain.Room, []domain.UserID) error {
		called = true
		return nil
	})
	req.ErrorIs(err, domain.ErrAccessDenied)
	req.False(called)

	var got []domain.UserID
	err = x.WithMember(ctx, "devs", alice.UserID, func(_ domain.Room, members []domain.UserID) error {
		got = members
		return nil
	})
	req.NoError(err)
	req.Equal([]domain.UserID{1, 2}, got)
}

func TestMembershipIndex_RemoveMember_Waits_For_In_Flight_Send(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	store := mocks.NewMockRoomStore(ctrl)
	group := domain.Room{ID: 1, Name: "devs", IsGroup: true, CreatorID: 1}
	x := loadedIndex(t, store, map[domain.Room][]domain.UserID{group: {1, 2}})
	ctx := context.Background()
	store.EXPECT().RemoveMember(gomock.Any(), group.ID, bob.UserID).Return(nil)

	removed := make(chan struct{})
	err := x.WithMember(ctx, "devs", alice.UserID, func(_ domain.Room, members []domain.UserID) error {
		// Given a send in flight with bob in its audience
		req.Contains(members, bob.UserID)

		// When bob is removed concurrently
		go func() {
			_ = x.RemoveMember(ctx, group.ID, bob.UserID)
			close(removed)
		}()

		// Then the removal cannot commit before the send finishes
		select {
		case <-removed:
			t.Fatal("removal committed during an in-flight send")
		case <-time.After(50 * time.Millisecond):
		}
		return nil
	})
	req.NoError(err)

	<-removed
	req.False(x.IsMember(bob.UserID, group.ID))

	// And later sends exclude bob
	err = x.WithMember(ctx, "devs", alice.UserID, func(_ domain.Room, members []domain.UserID) error {
		req.NotContains(members, bob.UserID)
		return nil
	})
	req.NoError(err)
}
