package connection

import (
	"fmt"
	"messenger/domain"
	"messenger/errors"
	"messenger/protocol/control"
	"messenger/services"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"
)

func TestControl_Authorize_Then_Reauthorize_With_Same_Token(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())

	// Given a first connection authorizing without token
	first := h.dial()
	token := first.authorize("")
	req.NotEmpty(token)
	req.Eventually(func() bool { return h.controls.Len() == 1 }, time.Second, 10*time.Millisecond)

	// When a second connection presents that token
	second := h.dial()
	again := second.authorize(token)

	// Then the session is the same
	req.Equal(token, again)

	// And authorizing twice closes the connection
	second.send(control.Message{ID: 2, Opcode: control.Authorize, Payload: control.AuthorizePayload{Token: token}})
	req.Equal(websocket.StatusCode(errors.CloseAlreadyAuthenticated), second.closeStatus())
}

func TestControl_Forged_Token_Gets_A_New_Session(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())

	token := h.dial().authorize("forged.token.value")

	req.NotEqual("forged.token.value", token)
	req.NotEmpty(token)
}

func TestControl_Closes_When_Not_Authenticated(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()

	c.send(control.Message{ID: 1, Opcode: control.HeartBeat, Payload: control.None{}})

	req.Equal(websocket.StatusCode(errors.CloseNotAuthenticated), c.closeStatus())
}

func TestControl_Authorize_Without_Token_Is_Bad_Request(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()

	c.send(control.Message{ID: 4, Opcode: control.Authorize, Payload: control.None{}})
	reply := c.receive()

	req.Equal(int64(4), reply.ID)
	req.Equal(control.Error, reply.Opcode)
	req.Equal(control.ResponsePayload{Code: 400, Message: "Bad request"}, reply.Payload)
}

func TestControl_Closes_On_Invalid_Frames(t *testing.T) {
	tests := []struct {
		name string
		typ  websocket.MessageType
		data []byte
	}{
		{"text frame", websocket.MessageText, []byte(`{"i":1}`)},
		{"undecodable binary", websocket.MessageBinary, []byte{0xc1, 0x00}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			h := newHarness(t, defaultControlConfig())
			c := h.dial()

			c.sendRaw(tt.typ, tt.data)

			req.Equal(websocket.StatusCode(errors.CloseInvalidMessage), c.closeStatus())
		})
	}
}

func TestControl_HeartBeat_Gets_A_Response(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()
	c.authorize("")

	c.send(control.Message{ID: 9, Opcode: control.HeartBeat, Payload: control.None{}})
	reply := c.receive()

	req.Equal(int64(9), reply.ID)
	req.Equal(control.Response, reply.Opcode)
	req.Equal(control.None{}, reply.Payload)
}

func TestControl_Error_Opcode_Closes(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()
	c.authorize("")

	c.send(control.Message{ID: 2, Opcode: control.Error, Payload: control.None{}})

	req.Equal(websocket.StatusCode(errors.CloseOpcode), c.closeStatus())
}

func TestControl_Unknown_Request_Is_Bad_Request(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()
	c.authorize("")

	c.send(control.Message{ID: 3, Opcode: control.Request, Payload: control.None{}})
	reply := c.receive()

	req.Equal(control.Error, reply.Opcode)
	req.Equal(control.ResponsePayload{Code: 400, Message: "Bad request"}, reply.Payload)

	// Responses from the client are ignored
	c.send(control.Message{ID: 4, Opcode: control.Response, Payload: control.None{}})
	c.send(control.Message{ID: 5, Opcode: control.HeartBeat, Payload: control.None{}})
	req.Equal(int64(5), c.receive().ID)
}

func TestControl_Offer_Is_Delivered_And_Answer_Forwarded(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()
	c.authorize("")

	// When asking to join a room
	c.requestOffer(2, "lobby", "alice")

	// Then the offer arrives as an unsolicited response
	offer := c.receive()
	req.Equal(int64(-1), offer.ID)
	req.Equal(control.Response, offer.Opcode)
	payload, ok := offer.Payload.(control.ResponseRoomRtcOffer)
	req.True(ok)
	req.Equal("offer-sdp", payload.SDP)
	req.NotEmpty(payload.ConnectionID)

	// And the room exists
	_, err := h.rooms.GetRoomByName("lobby")
	req.NoError(err)

	// When the answer comes back it reaches the peer
	// The peer attaches right after the offer is queued; retry until it has.
	peer := <-h.starter.started
	deadline := time.Now().Add(2 * time.Second)
	for len(peer.Answers()) == 0 && time.Now().Before(deadline) {
		c.send(control.Message{ID: 3, Opcode: control.Request, Payload: control.RequestPostRoomRtcAnswer{SDP: "answer-sdp"}})
		time.Sleep(50 * time.Millisecond)
	}
	req.NotEmpty(peer.Answers())
	req.Equal("answer-sdp", peer.Answers()[0])
}

func TestControl_Answer_Without_Offer(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()
	c.authorize("")

	c.send(control.Message{ID: 6, Opcode: control.Request, Payload: control.RequestPostRoomRtcAnswer{SDP: "answer-sdp"}})
	reply := c.receive()

	req.Equal(int64(6), reply.ID)
	req.Equal(control.Error, reply.Opcode)
	req.Equal(control.ResponsePayload{Code: 4002, Message: "WebRTC offer wasn't requested"}, reply.Payload)
}

func TestControl_Invalid_Room_Name_Creates_Nothing(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()
	c.authorize("")

	c.requestOffer(2, "ab", "alice")
	reply := c.receive()

	req.Equal(control.Error, reply.Opcode)
	req.Equal(uint32(3001), reply.Payload.(control.ResponsePayload).Code)
	_, err := h.rooms.GetRoomByName("ab")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestControl_Username_Taken_By_Another_Session(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())

	alice := h.dial()
	alice.authorize("")
	alice.requestOffer(2, "lobby", "alice")
	req.Equal(int64(-1), alice.receive().ID)

	impostor := h.dial()
	impostor.authorize("")
	impostor.requestOffer(2, "lobby", "alice")
	reply := impostor.receive()

	req.Equal(int64(2), reply.ID)
	req.Equal(control.Error, reply.Opcode)
	req.Equal(control.ResponsePayload{Code: 4001, Message: "The username is taken"}, reply.Payload)
}

func TestControl_Close_Leaves_And_Deletes_Empty_Room(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()
	c.authorize("")
	c.requestOffer(2, "lobby", "alice")
	c.receive()
	peer := <-h.starter.started

	// When the client goes away
	req.NoError(c.conn.Close(websocket.StatusNormalClosure, ""))

	// Then its peer is closed, the room is deleted and the registry forgets it
	select {
	case <-peer.closedCh:
	case <-time.After(2 * time.Second):
		req.Fail("Peer was not closed")
	}
	req.Eventually(func() bool {
		_, err := h.rooms.GetRoomByName("lobby")
		return err != nil && h.controls.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestControl_Rejoin_Closes_Previous_Peer(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	c := h.dial()
	c.authorize("")

	c.requestOffer(2, "lobby", "alice")
	c.receive()
	first := <-h.starter.started

	c.requestOffer(3, "garden", "alice")
	c.receive()
	<-h.starter.started

	select {
	case <-first.closedCh:
	case <-time.After(2 * time.Second):
		req.Fail("Previous peer was not closed")
	}
	// The first room lost its only connection
	req.Eventually(func() bool {
		_, err := h.rooms.GetRoomByName("lobby")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestControl_Peer_Start_Failure_Closes(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())
	h.starter.fail = true
	c := h.dial()
	c.authorize("")

	c.requestOffer(2, "lobby", "alice")

	req.Equal(websocket.StatusNormalClosure, c.closeStatus())
}

func TestControl_Heartbeat_Timeout_Closes(t *testing.T) {
	req := require.New(t)
	config := defaultControlConfig()
	config.HeartbeatInterval = 20 * time.Millisecond
	config.ClientTimeout = 60 * time.Millisecond
	h := newHarness(t, config)
	c := h.dial()
	c.authorize("")

	// When the client stays silent past the timeout
	start := time.Now()
	status := c.closeStatus()

	// Then the server closes normally
	req.Equal(websocket.StatusNormalClosure, status)
	req.GreaterOrEqual(time.Since(start), 40*time.Millisecond)
}

func TestControl_Failed_Rejoin_Closes_Previous_Peer(t *testing.T) {
	req := require.New(t)
	h := newHarness(t, defaultControlConfig())

	// Given bob owns his name in garden
	bob := h.dial()
	bob.authorize("")
	bob.requestOffer(2, "garden", "bob")
	bob.receive()
	<-h.starter.started

	// And alice is in lobby with a peer
	alice := h.dial()
	alice.authorize("")
	alice.requestOffer(2, "lobby", "alice")
	alice.receive()
	previous := <-h.starter.started

	// When alice tries to join garden as bob
	alice.requestOffer(3, "garden", "bob")
	reply := alice.receive()
	req.Equal(control.ResponsePayload{Code: 4001, Message: "The username is taken"}, reply.Payload)

	// Then her lobby peer is closed and no answer can reach it
	select {
	case <-previous.closedCh:
	case <-time.After(2 * time.Second):
		req.Fail("Previous peer was not closed")
	}
	alice.send(control.Message{ID: 4, Opcode: control.Request, Payload: control.RequestPostRoomRtcAnswer{SDP: "answer-sdp"}})
	req.Equal(control.ResponsePayload{Code: 4002, Message: "WebRTC offer wasn't requested"}, alice.receive().Payload)
	req.Empty(previous.Answers())
}

// flakyRooms fails the next Leave once armed.
type flakyRooms struct {
	services.IRoomService
	failLeave atomic.Bool
}

func (r *flakyRooms) Leave(connectionID domain.ID, membership services.Membership) error {
	if r.failLeave.CompareAndSwap(true, false) {
		return fmt.Errorf("store unavailable")
	}
	return r.IRoomService.Leave(connectionID, membership)
}

func TestControl_Failed_Leave_Keeps_Membership_For_Teardown(t *testing.T) {
	req := require.New(t)
	rooms := &flakyRooms{}
	h := newHarness(t, defaultControlConfig(), func(deps *ControlDependencies) {
		rooms.IRoomService = deps.Rooms
		deps.Rooms = rooms
	})
	c := h.dial()
	c.authorize("")
	c.requestOffer(2, "lobby", "alice")
	c.receive()
	<-h.starter.started

	// Given leaving lobby fails during a rejoin
	rooms.failLeave.Store(true)
	c.requestOffer(3, "garden", "alice")
	reply := c.receive()
	req.Equal(int64(3), reply.ID)
	req.Equal(control.Error, reply.Opcode)
	_, err := h.rooms.GetRoomByName("garden")
	req.ErrorIs(err, errors.ErrNotFound)

	// When the client goes away
	req.NoError(c.conn.Close(websocket.StatusNormalClosure, ""))

	// Then teardown still leaves lobby, which is deleted
	req.Eventually(func() bool {
		_, err := h.rooms.GetRoomByName("lobby")
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}
