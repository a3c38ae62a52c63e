package orch

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dkeye/tiger/internal/app"
	"github.com/dkeye/tiger/internal/core"
	"github.com/dkeye/tiger/internal/domain"
	"github.com/dkeye/tiger/internal/protocol"
	"github.com/dkeye/tiger/internal/storage/sqlite"
	"github.com/stretchr/testify/require"
)

type recordingConn struct {
	mu     sync.Mutex
	frames []protocol.Envelope
	full   bool
}

func (c *recordingConn) TrySend(f core.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return core.ErrBackpressure
	}
	var env protocol.Envelope
	if err := json.Unmarshal(f, &env); err != nil {
		return err
	}
	c.frames = append(c.frames, env)
	return nil
}

func (c *recordingConn) Close() {}

func (c *recordingConn) of(kind protocol.EventKind) []json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []json.RawMessage
	for _, env := range c.frames {
		if env.Event == kind {
			out = append(out, env.Data)
		}
	}
	return out
}

func (c *recordingConn) kinds() []protocol.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.EventKind, 0, len(c.frames))
	for _, env := range c.frames {
		out = append(out, env.Event)
	}
	return out
}

func (c *recordingConn) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

type client struct {
	sess   core.MemberSession
	conn   *recordingConn
	ctx    context.Context
	cancel context.CancelFunc
}

type harness struct {
	t       *testing.T
	db      *sqlite.DB
	o       *Orchestrator
	clients map[string]*client
}

var fixedNow = time.Date(2024, 5, 6, 14, 7, 0, 0, time.UTC)

func newHarness(t *testing.T, messages core.MessageStore) *harness {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "tiger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	index := app.NewMembershipIndex(db)
	require.NoError(t, index.Load(context.Background()))
	if messages == nil {
		messages = db
	}
	reg := app.NewRegistry()
	return &harness{
		t:  t,
		db: db,
		o: &Orchestrator{
			Registry: reg,
			Rooms:    app.NewRoomManager(),
			Index:    index,
			Messages: messages,
			Users:    db,
			Relay:    app.NewSignalRelay(reg),
			Policy:   app.SimplePolicy{},
			Now:      func() time.Time { return fixedNow },
		},
		clients: make(map[string]*client),
	}
}

func (h *harness) user(name string) domain.Identity {
	h.t.Helper()
	id, err := h.db.Register(context.Background(), name, "secret-pass")
	require.NoError(h.t, err)
	return id
}

// connect opens a session; a nil identity connects anonymously.
func (h *harness) connect(sid string, id *domain.Identity) *recordingConn {
	h.t.Helper()
	conn := &recordingConn{}
	ctx, cancel := context.WithCancel(context.Background())
	sess := core.NewMemberSession(core.SessionID(sid), id, conn)
	h.clients[sid] = &client{sess: sess, conn: conn, ctx: ctx, cancel: cancel}
	h.o.OnConnect(ctx, sess, cancel)
	return conn
}

func (h *harness) send(sid string, kind protocol.EventKind, data any) {
	h.t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(h.t, err)
	c := h.clients[sid]
	h.o.Dispatch(c.ctx, c.sess, protocol.Envelope{Event: kind, Data: raw})
}

func (h *harness) resetAll() {
	for _, c := range h.clients {
		c.conn.reset()
	}
}

func (h *harness) privateRoom(a, b domain.Identity) domain.Room {
	h.t.Helper()
	room, err := h.o.Index.CreatePrivate(context.Background(), a, b)
	require.NoError(h.t, err)
	return room
}

func (h *harness) groupRoom(name string, creator domain.Identity, members ...domain.Identity) domain.Room {
	h.t.Helper()
	ids := make([]domain.UserID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	room, err := h.o.Index.CreateGroup(context.Background(), domain.RoomName(name), creator.UserID, ids)
	require.NoError(h.t, err)
	return room
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func errorMessages(t *testing.T, c *recordingConn) []string {
	var out []string
	for _, raw := range c.of(protocol.Error) {
		out = append(out, decode[protocol.ErrorEvent](t, raw).Message)
	}
	return out
}
