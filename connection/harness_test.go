package connection

import (
	"context"
	"fmt"
	"log/slog"
	"messenger/auth"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/ids"
	"messenger/protocol"
	"messenger/protocol/control"
	"messenger/repositories"
	"messenger/runtime"
	"messenger/services"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type discardPublisher struct{}

func (discardPublisher) Publish(event.DomainEvent) {}

type fakePeer struct {
	mu       sync.Mutex
	answers  []string
	closed   bool
	closedCh chan struct{}
}

func newFakePeer() *fakePeer {
	return &fakePeer{closedCh: make(chan struct{})}
}

func (p *fakePeer) Accept(sdp string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers = append(p.answers, sdp)
	return nil
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.closedCh)
	}
}

func (p *fakePeer) Answers() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.answers...)
}

// fakePeerStarter stands in for WebRTC: it sends a canned offer through the owner.
type fakePeerStarter struct {
	fail    bool
	started chan *fakePeer
}

func (s *fakePeerStarter) StartPeer(_ context.Context, owner Owner, connectionID domain.ID, _ services.Membership) (PeerHandle, error) {
	if s.fail {
		return nil, fmt.Errorf("no ICE for you")
	}
	p := newFakePeer()
	_ = owner.Send(control.Message{
		ID:      protocol.UnsolicitedID,
		Opcode:  control.Response,
		Payload: control.ResponseRoomRtcOffer{ConnectionID: connectionID.String(), SDP: "offer-sdp"},
	})
	s.started <- p
	return p, nil
}

type harness struct {
	t        *testing.T
	url      string
	codec    protocol.Codec
	rooms    *repositories.RoomRepository
	controls *runtime.Registry[control.Message]
	starter  *fakePeerStarter
}

func defaultControlConfig() ControlConfig {
	return ControlConfig{
		HeartbeatInterval: time.Minute,
		ClientTimeout:     time.Minute,
		ReadLimit:         65536,
		MailboxSize:       16,
	}
}

func newHarness(t *testing.T, config ControlConfig, options ...func(*ControlDependencies)) *harness {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	db, err := repositories.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	generator, err := ids.NewGenerator(1)
	require.NoError(t, err)
	issuer, err := auth.NewTokenIssuer("test-secret")
	require.NoError(t, err)
	codec, err := protocol.NewCodec(protocol.MessagePack)
	require.NoError(t, err)

	rooms := repositories.NewRoomRepository(db)
	h := &harness{
		t:        t,
		codec:    codec,
		rooms:    rooms,
		controls: runtime.NewRegistry[control.Message]("control", log),
		starter:  &fakePeerStarter{started: make(chan *fakePeer, 4)},
	}
	roomService := services.NewRoomService(rooms, repositories.NewUserRepository(db),
		repositories.NewMessageRepository(db, log, nil), repositories.NewPresenceRepository(db),
		discardPublisher{}, generator, log)
	deps := ControlDependencies{
		Log:       log,
		Codec:     codec,
		Sessions:  services.NewSessionService(repositories.NewSessionRepository(db), issuer, generator, log),
		Rooms:     roomService,
		Generator: generator,
		Controls:  h.controls,
		Peers:     h.starter,
	}
	for _, option := range options {
		option(&deps)
	}
	// Connections must be gone before the store closes.
	var running sync.WaitGroup
	t.Cleanup(running.Wait)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		running.Add(1)
		defer running.Done()
		NewControlConnection(conn, config, deps).Run(r.Context())
	}))
	t.Cleanup(server.Close)
	h.url = "ws" + strings.TrimPrefix(server.URL, "http")
	return h
}

type client struct {
	t     *testing.T
	conn  *websocket.Conn
	codec protocol.Codec
}

func (h *harness) dial() *client {
	h.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, h.url, nil)
	require.NoError(h.t, err)
	h.t.Cleanup(func() { _ = conn.CloseNow() })
	return &client{t: h.t, conn: conn, codec: h.codec}
}

func (c *client) send(msg control.Message) {
	c.t.Helper()
	data, err := protocol.Encode(c.codec, control.Union, msg)
	require.NoError(c.t, err)
	c.sendRaw(websocket.MessageBinary, data)
}

func (c *client) sendRaw(typ websocket.MessageType, data []byte) {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(c.t, c.conn.Write(ctx, typ, data))
}

func (c *client) receive() control.Message {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	typ, data, err := c.conn.Read(ctx)
	require.NoError(c.t, err)
	require.Equal(c.t, websocket.MessageBinary, typ)
	msg, err := protocol.Decode[control.Opcode](c.codec, control.Union, data, 0)
	require.NoError(c.t, err)
	return msg
}

// closeStatus reads until the server closes and returns the close code.
func (c *client) closeStatus() websocket.StatusCode {
	c.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			return websocket.CloseStatus(err)
		}
	}
}

func (c *client) authorize(token string) string {
	c.t.Helper()
	c.send(control.Message{ID: 1, Opcode: control.Authorize, Payload: control.AuthorizePayload{Token: token}})
	reply := c.receive()
	require.Equal(c.t, int64(1), reply.ID)
	require.Equal(c.t, control.Response, reply.Opcode)
	session, ok := reply.Payload.(control.ResponseSession)
	require.True(c.t, ok)
	return session.Token
}

func (c *client) requestOffer(id int64, roomName, username string) {
	c.send(control.Message{
		ID:      id,
		Opcode:  control.Request,
		Payload: control.RequestGetRoomRtcOffer{RoomName: roomName, Username: username},
	})
}
