package connection

import (
	"context"
	stderrors "errors"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"messenger/ids"
	"messenger/protocol"
	"messenger/protocol/control"
	"messenger/runtime"
	"messenger/services"
	"sync"
	"time"

	"github.com/coder/websocket"
)

type ControlDependencies struct {
	Log       *slog.Logger
	Codec     protocol.Codec
	Sessions  services.ISessionService
	Rooms     services.IRoomService
	Generator ids.IGenerator
	Controls  *runtime.Registry[control.Message]
	Peers     PeerStarter
}

// Mailbox commands of the control connection.
type (
	controlOutbound struct{ msg control.Message }
	peerStarted     struct {
		generation uint64
		peer       PeerHandle
		err        error
	}
	peerDetached struct{ peer PeerHandle }
	controlFrame struct {
		msg control.Message
		err error
	}
)

// ControlConnection is the actor behind one WebSocket.
// It starts unauthenticated; an Authorize message binds it to a session for good.
type ControlConnection struct {
	id     domain.ID
	conn   *websocket.Conn
	config ControlConfig
	deps   ControlDependencies
	log    *slog.Logger

	mailbox        *mailbox[any]
	inbound        chan controlFrame
	closeRequested chan struct{}
	closeOnce      sync.Once

	// Owned by the actor goroutine.
	session       *domain.Session
	membership    *services.Membership
	peer          PeerHandle
	generation    uint64
	lastHeartbeat time.Time
}

func NewControlConnection(conn *websocket.Conn, config ControlConfig, deps ControlDependencies) *ControlConnection {
	id := deps.Generator.Next()
	conn.SetReadLimit(config.ReadLimit)
	return &ControlConnection{
		id:             id,
		conn:           conn,
		config:         config,
		deps:           deps,
		log:            deps.Log.With("connection_id", id, "channel", "control"),
		mailbox:        newMailbox[any](config.MailboxSize),
		inbound:        make(chan controlFrame),
		closeRequested: make(chan struct{}),
		lastHeartbeat:  time.Now(),
	}
}

func (c *ControlConnection) ID() domain.ID { return c.id }

// Send queues msg for writing. It never blocks.
func (c *ControlConnection) Send(msg control.Message) error {
	if err := c.mailbox.post(controlOutbound{msg: msg}); err != nil {
		c.log.Warn("Control message dropped", "opcode", msg.Opcode, "error", err)
		return err
	}
	return nil
}

func (c *ControlConnection) Close() {
	c.closeOnce.Do(func() { close(c.closeRequested) })
}

func (c *ControlConnection) Detach(peer PeerHandle) {
	_ = c.mailbox.post(peerDetached{peer: peer})
}

// Run serves the connection until the remote leaves, breaks the protocol,
// times out or ctx ends.
func (c *ControlConnection) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer c.stop()

	c.log.Debug("Control connection opened")
	go c.readLoop(ctx)

	ticker := time.NewTicker(c.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.closeWith(websocket.StatusGoingAway, "Server shutting down")
			return
		case <-c.closeRequested:
			c.closeWith(websocket.StatusNormalClosure, "")
			return
		case now := <-ticker.C:
			if now.Sub(c.lastHeartbeat) > c.config.ClientTimeout {
				c.log.Info("Control connection timed out")
				c.closeWith(websocket.StatusNormalClosure, "")
				return
			}
		case frame := <-c.inbound:
			if frame.err != nil {
				c.fail(frame.err)
				return
			}
			if err := c.handle(ctx, frame.msg); err != nil {
				c.fail(err)
				return
			}
		case cmd := <-c.mailbox.receive():
			if err := c.apply(ctx, cmd); err != nil {
				c.fail(err)
				return
			}
		}
	}
}

func (c *ControlConnection) readLoop(ctx context.Context) {
	for {
		var frame controlFrame
		typ, data, err := c.conn.Read(ctx)
		switch {
		case err != nil:
			frame.err = err
		case typ != websocket.MessageBinary:
			frame.err = errors.Violation{Code: errors.CloseInvalidMessage}
		default:
			frame.msg, err = protocol.Decode[control.Opcode](c.deps.Codec, control.Union, data, c.id)
			if err != nil {
				c.log.Debug("Undecodable control frame", "error", err)
				frame.err = errors.Violation{Code: errors.CloseInvalidMessage}
			}
		}
		select {
		case c.inbound <- frame:
		case <-ctx.Done():
			return
		}
		if frame.err != nil {
			return
		}
	}
}

func (c *ControlConnection) apply(ctx context.Context, cmd any) error {
	switch cmd := cmd.(type) {
	case controlOutbound:
		return c.write(ctx, cmd.msg)
	case peerStarted:
		c.attach(cmd)
	case peerDetached:
		if c.peer == cmd.peer {
			c.peer = nil
		}
	}
	return nil
}

// attach keeps the peer only if no newer join superseded it.
func (c *ControlConnection) attach(started peerStarted) {
	if started.generation != c.generation {
		if started.peer != nil {
			started.peer.Close()
		}
		return
	}
	if started.err != nil {
		c.log.Error("Cannot start peer connection", "error", started.err)
		c.Close()
		return
	}
	c.peer = started.peer
}

func (c *ControlConnection) write(ctx context.Context, msg control.Message) error {
	data, err := protocol.Encode(c.deps.Codec, control.Union, msg)
	if err != nil {
		c.log.Error("Cannot encode control message", "opcode", msg.Opcode, "error", err)
		return nil
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return c.conn.Write(writeCtx, websocket.MessageBinary, data)
}

// reply answers a request with the same correlation id.
func (c *ControlConnection) reply(ctx context.Context, request control.Message, opcode control.Opcode, payload protocol.Payload) error {
	return c.write(ctx, control.Message{
		ID:           request.ID,
		ConnectionID: c.id,
		Opcode:       opcode,
		Payload:      payload,
	})
}

func (c *ControlConnection) replyError(ctx context.Context, request control.Message, err error) error {
	appErr := errors.From(err)
	return c.reply(ctx, request, control.Error, control.ResponsePayload{
		Code:    appErr.Code,
		Message: appErr.SafeMessage(c.log),
	})
}

// fail ends the connection: protocol violations carry their close code,
// transport errors just drop it.
func (c *ControlConnection) fail(err error) {
	var violation errors.Violation
	if stderrors.As(err, &violation) {
		c.log.Info("Closing control connection", "code", violation.Code, "reason", violation.Code.Reason())
		c.closeWith(websocket.StatusCode(violation.Code), violation.Code.Reason())
		return
	}
	if status := websocket.CloseStatus(err); status != -1 {
		c.log.Debug("Remote closed control connection", "status", status)
		return
	}
	c.log.Debug("Control connection failed", "error", err)
	c.closeWith(websocket.StatusInternalError, "")
}

func (c *ControlConnection) closeWith(code websocket.StatusCode, reason string) {
	if err := c.conn.Close(code, reason); err != nil {
		c.log.Debug("Close handshake incomplete", "error", err)
	}
}

func (c *ControlConnection) stop() {
	for _, cmd := range c.mailbox.close() {
		if started, ok := cmd.(peerStarted); ok && started.peer != nil {
			started.peer.Close()
		}
	}
	if c.peer != nil {
		c.peer.Close()
		c.peer = nil
	}
	if c.membership != nil {
		if err := c.deps.Rooms.Leave(c.id, *c.membership); err != nil {
			c.log.Error("Cannot leave room", "room_id", c.membership.RoomID, "error", err)
		}
		c.membership = nil
	}
	if c.session != nil {
		c.deps.Controls.UnregisterIf(c.id, c)
	}
	c.log.Debug("Control connection closed")
}
