package connection

import (
	"context"
	"messenger/errors"
	"messenger/protocol/control"
	"time"
)

type controlHandler func(c *ControlConnection, ctx context.Context, msg control.Message) error

// Request payload tag to handler.
var controlRequests = map[int]controlHandler{
	control.RequestGetRoomRtcOffer{}.Tag():   (*ControlConnection).requestRoomRtcOffer,
	control.RequestPostRoomRtcAnswer{}.Tag(): (*ControlConnection).postRoomRtcAnswer,
}

// handle returns an error only when the connection must close.
func (c *ControlConnection) handle(ctx context.Context, msg control.Message) error {
	if c.session == nil {
		if msg.Opcode != control.Authorize {
			return errors.Violation{Code: errors.CloseNotAuthenticated}
		}
		return c.authorize(ctx, msg)
	}

	switch msg.Opcode {
	case control.HeartBeat:
		c.lastHeartbeat = time.Now()
		return c.reply(ctx, msg, control.Response, control.None{})
	case control.Request:
		handler, ok := controlRequests[msg.Payload.Tag()]
		if !ok {
			return c.replyError(ctx, msg, errors.BadRequest)
		}
		if err := handler(c, ctx, msg); err != nil {
			return c.replyError(ctx, msg, err)
		}
		return nil
	case control.Authorize:
		return errors.Violation{Code: errors.CloseAlreadyAuthenticated}
	case control.Error:
		return errors.Violation{Code: errors.CloseOpcode}
	default:
		return nil
	}
}

func (c *ControlConnection) authorize(ctx context.Context, msg control.Message) error {
	payload, ok := msg.Payload.(control.AuthorizePayload)
	if !ok {
		return c.replyError(ctx, msg, errors.BadRequest)
	}
	session, err := c.deps.Sessions.Authorize(payload.Token)
	if err != nil {
		return c.replyError(ctx, msg, err)
	}
	c.session = &session
	c.lastHeartbeat = time.Now()
	c.deps.Controls.Register(c.id, c)
	c.log.Info("Control connection authorized", "session_id", session.ID)

	if err := c.deps.Controls.Route(c.id, control.Message{
		ID:           msg.ID,
		ConnectionID: c.id,
		Opcode:       control.Response,
		Payload:      control.ResponseSession{Token: session.Token},
	}); err != nil {
		c.log.Warn("Session response not delivered", "error", err)
	}
	return nil
}

// requestRoomRtcOffer joins the room then spawns a peer connection whose offer
// reaches the client later as an unsolicited response.
func (c *ControlConnection) requestRoomRtcOffer(ctx context.Context, msg control.Message) error {
	payload := msg.Payload.(control.RequestGetRoomRtcOffer)
	if err := c.deps.Rooms.ValidateJoin(payload.RoomName, payload.Username); err != nil {
		return err
	}
	if c.membership != nil {
		if err := c.deps.Rooms.Leave(c.id, *c.membership); err != nil {
			return err
		}
		c.membership = nil
		// The old peer must not outlive its membership, even if the new join fails.
		c.closePeer()
	}
	if c.session == nil {
		return errors.Unauthorized
	}

	membership, err := c.deps.Rooms.Join(c.id, c.session.ID, payload.RoomName, payload.Username)
	if err != nil {
		return err
	}
	c.membership = &membership
	c.log.Info("Joined room", "room_id", membership.RoomID, "user_id", membership.UserID)

	c.closePeer()
	generation := c.generation
	go func() {
		peer, err := c.deps.Peers.StartPeer(ctx, c, c.id, membership)
		started := peerStarted{generation: generation, peer: peer, err: err}
		if postErr := c.mailbox.post(started); postErr != nil && peer != nil {
			peer.Close()
		}
	}()
	return nil
}

// closePeer also invalidates a peer still starting: its late attach is discarded.
func (c *ControlConnection) closePeer() {
	if c.peer != nil {
		c.peer.Close()
		c.peer = nil
	}
	c.generation++
}

func (c *ControlConnection) postRoomRtcAnswer(_ context.Context, msg control.Message) error {
	payload := msg.Payload.(control.RequestPostRoomRtcAnswer)
	if c.peer == nil {
		return errors.WebRtcOfferNotRequested
	}
	if err := c.peer.Accept(payload.SDP); err != nil {
		return errors.Internal(errors.KindMailbox, err)
	}
	return nil
}
