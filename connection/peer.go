package connection

import (
	"context"
	"io"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"messenger/protocol"
	"messenger/protocol/control"
	"messenger/protocol/peer"
	"messenger/rtc"
	"messenger/runtime"
	"messenger/services"
	"sync"
	"time"
)

type PeerDependencies struct {
	Log      *slog.Logger
	Codec    protocol.Codec
	Rooms    services.IRoomService
	Messages services.IMessageService
	Peers    *runtime.Registry[peer.Message]
}

// Mailbox commands of the peer connection.
type (
	peerOutbound  struct{ msg peer.Message }
	answerPosted  struct{ sdp string }
	answerApplied struct{ err error }
	channelOpened struct{ channel io.ReadWriteCloser }
	helloTrigger  struct{}
	peerFrame     struct {
		msg peer.Message
		err error
	}
)

// PeerConnection is the actor behind one WebRTC session and its single data
// channel. It shares its id with the control connection that spawned it.
type PeerConnection struct {
	id         domain.ID
	config     PeerConfig
	deps       PeerDependencies
	log        *slog.Logger
	session    rtc.Session
	owner      Owner
	membership services.Membership

	mailbox        *mailbox[any]
	inbound        chan peerFrame
	closeRequested chan struct{}
	closeOnce      sync.Once

	// Owned by the actor goroutine.
	channel        io.ReadWriteCloser
	heartbeatArmed bool
	lastHeartbeat  time.Time
}

func NewPeerConnection(id domain.ID, session rtc.Session, owner Owner, membership services.Membership,
	config PeerConfig, deps PeerDependencies) *PeerConnection {
	return &PeerConnection{
		id:             id,
		config:         config,
		deps:           deps,
		log:            deps.Log.With("connection_id", id, "channel", "peer"),
		session:        session,
		owner:          owner,
		membership:     membership,
		mailbox:        newMailbox[any](config.MailboxSize),
		inbound:        make(chan peerFrame),
		closeRequested: make(chan struct{}),
	}
}

// Send queues msg for the data channel. It never blocks.
func (p *PeerConnection) Send(msg peer.Message) error {
	return p.mailbox.post(peerOutbound{msg: msg})
}

func (p *PeerConnection) Accept(sdp string) error {
	return p.mailbox.post(answerPosted{sdp: sdp})
}

func (p *PeerConnection) Close() {
	p.closeOnce.Do(func() { close(p.closeRequested) })
}

func (p *PeerConnection) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.deps.Peers.Register(p.id, p)
	defer p.stop()

	go p.negotiate(ctx)

	ticker := time.NewTicker(p.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.closeRequested:
			return
		case now := <-ticker.C:
			if p.heartbeatArmed && now.Sub(p.lastHeartbeat) > p.config.ClientTimeout {
				p.log.Info("Peer connection timed out")
				return
			}
		case frame := <-p.inbound:
			if frame.err != nil {
				p.log.Debug("Data channel closed", "error", frame.err)
				return
			}
			p.handle(frame.msg)
		case cmd := <-p.mailbox.receive():
			if !p.apply(ctx, cmd) {
				return
			}
		}
	}
}

// negotiate produces the offer and hands it to the owner, which forwards it
// to the client as an unsolicited response.
func (p *PeerConnection) negotiate(ctx context.Context) {
	sdp, err := p.session.Offer(ctx, func(channel io.ReadWriteCloser) {
		if err := p.mailbox.post(channelOpened{channel: channel}); err != nil {
			_ = channel.Close()
		}
	})
	if err != nil {
		if ctx.Err() == nil {
			p.log.Error("Cannot create offer", "error", err)
			p.owner.Close()
		}
		return
	}
	if err := p.owner.Send(control.Message{
		ID:           protocol.UnsolicitedID,
		ConnectionID: p.id,
		Opcode:       control.Response,
		Payload:      control.ResponseRoomRtcOffer{ConnectionID: p.id.String(), SDP: sdp},
	}); err != nil {
		p.log.Warn("Offer not delivered to control connection", "error", err)
	}
}

// apply reports false when the connection must stop.
func (p *PeerConnection) apply(ctx context.Context, cmd any) bool {
	switch cmd := cmd.(type) {
	case peerOutbound:
		return p.write(cmd.msg)
	case answerPosted:
		go func() {
			if err := p.mailbox.post(answerApplied{err: p.session.Accept(cmd.sdp)}); err != nil {
				p.log.Debug("Answer result dropped", "error", err)
			}
		}()
	case answerApplied:
		if cmd.err != nil {
			p.log.Error("Cannot apply answer", "error", cmd.err)
			p.owner.Close()
			return false
		}
		p.heartbeatArmed = true
		p.lastHeartbeat = time.Now()
	case channelOpened:
		if p.channel != nil {
			_ = cmd.channel.Close()
			return true
		}
		p.channel = cmd.channel
		go p.readLoop(ctx, cmd.channel)
		if err := p.mailbox.post(helloTrigger{}); err != nil {
			p.log.Warn("Hello trigger dropped", "error", err)
		}
	case helloTrigger:
		return p.hello()
	}
	return true
}

func (p *PeerConnection) hello() bool {
	snapshot, err := p.deps.Rooms.Snapshot(p.membership)
	if err != nil {
		p.log.Error("Cannot build room snapshot", "room_id", p.membership.RoomID, "error", err)
		return false
	}
	return p.write(peer.Message{
		ID:           protocol.UnsolicitedID,
		ConnectionID: p.id,
		Opcode:       peer.Hello,
		Payload: peer.HelloPayload{
			UserID:   snapshot.UserID.String(),
			Users:    snapshot.Users,
			Messages: snapshot.Messages,
		},
	})
}

func (p *PeerConnection) readLoop(ctx context.Context, channel io.ReadWriteCloser) {
	buffer := make([]byte, p.config.BufferSize)
	for {
		var frame peerFrame
		n, err := channel.Read(buffer)
		switch {
		case err != nil:
			frame.err = err
		case n == 0:
			frame.err = io.ErrUnexpectedEOF
		default:
			frame.msg, frame.err = protocol.Decode[peer.Opcode](p.deps.Codec, peer.Union, buffer[:n], p.id)
		}
		select {
		case p.inbound <- frame:
		case <-ctx.Done():
			return
		}
		if frame.err != nil {
			return
		}
	}
}

// handle never stops the connection: bad requests get an Error reply.
func (p *PeerConnection) handle(msg peer.Message) {
	switch msg.Opcode {
	case peer.HeartBeat:
		p.lastHeartbeat = time.Now()
		p.reply(msg, peer.Response, peer.None{})
	case peer.Request:
		switch payload := msg.Payload.(type) {
		case peer.RequestPostMessage:
			if _, err := p.deps.Messages.Post(p.membership.UserID, p.membership.RoomID, payload.Content); err != nil {
				p.replyError(msg, err)
			}
		default:
			p.replyError(msg, errors.BadRequest)
		}
	default:
		// Response, Error, Dispatch and Hello only flow server to client.
	}
}

func (p *PeerConnection) reply(request peer.Message, opcode peer.Opcode, payload protocol.Payload) {
	p.write(peer.Message{ID: request.ID, ConnectionID: p.id, Opcode: opcode, Payload: payload})
}

func (p *PeerConnection) replyError(request peer.Message, err error) {
	appErr := errors.From(err)
	p.reply(request, peer.Error, peer.ResponsePayload{Code: appErr.Code, Message: appErr.SafeMessage(p.log)})
}

// write drops messages sent before the channel opens. A write failure stops the connection.
func (p *PeerConnection) write(msg peer.Message) bool {
	if p.channel == nil {
		p.log.Debug("Data channel not open, message dropped", "opcode", msg.Opcode)
		return true
	}
	data, err := protocol.Encode(p.deps.Codec, peer.Union, msg)
	if err != nil {
		p.log.Error("Cannot encode peer message", "opcode", msg.Opcode, "error", err)
		return true
	}
	if _, err := p.channel.Write(data); err != nil {
		p.log.Debug("Cannot write to data channel", "error", err)
		p.Close()
		return false
	}
	return true
}

func (p *PeerConnection) stop() {
	for _, cmd := range p.mailbox.close() {
		if opened, ok := cmd.(channelOpened); ok {
			_ = opened.channel.Close()
		}
	}
	if err := p.session.Close(); err != nil {
		p.log.Debug("Cannot close peer session", "error", err)
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	p.deps.Peers.UnregisterIf(p.id, p)
	p.owner.Detach(p)
	p.log.Debug("Peer connection closed")
}
