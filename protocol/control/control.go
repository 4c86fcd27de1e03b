// Package control defines the opcodes and payloads of the WebSocket control channel.
package control

import "messenger/protocol"

type Opcode uint8

const (
	HeartBeat Opcode = iota
	Request
	Response
	Error
	Authorize
)

func (o Opcode) Valid() bool { return o <= Authorize }

func (o Opcode) String() string {
	switch o {
	case HeartBeat:
		return "HeartBeat"
	case Request:
		return "Request"
	case Response:
		return "Response"
	case Error:
		return "Error"
	case Authorize:
		return "Authorize"
	default:
		return "Unknown"
	}
}

type Message = protocol.Envelope[Opcode]

type None struct{}

// RequestGetRoomRtcOffer asks to join a room and receive a WebRTC offer.
type RequestGetRoomRtcOffer struct {
	RoomName string `msgpack:"room_name" cbor:"room_name"`
	Username string `msgpack:"username" cbor:"username"`
}

type RequestPostRoomRtcAnswer struct {
	SDP string `msgpack:"sdp" cbor:"sdp"`
}

// RequestPostRoomRtcCandidate is reserved: candidates are not trickled.
type RequestPostRoomRtcCandidate struct{}

type ResponsePayload struct {
	Code    uint32 `msgpack:"code" cbor:"code"`
	Message string `msgpack:"message" cbor:"message"`
}

type ResponseSession struct {
	Token string `msgpack:"token" cbor:"token"`
}

type ResponseRoomRtcOffer struct {
	ConnectionID string `msgpack:"connection_id" cbor:"connection_id"`
	SDP          string `msgpack:"sdp" cbor:"sdp"`
}

type AuthorizePayload struct {
	Token string `msgpack:"token" cbor:"token"`
}

func (None) Tag() int                        { return 0 }
func (RequestGetRoomRtcOffer) Tag() int      { return 10 }
func (RequestPostRoomRtcAnswer) Tag() int    { return 11 }
func (RequestPostRoomRtcCandidate) Tag() int { return 12 }
func (ResponsePayload) Tag() int             { return 20 }
func (ResponseSession) Tag() int             { return 21 }
func (ResponseRoomRtcOffer) Tag() int        { return 22 }
func (AuthorizePayload) Tag() int            { return 30 }

// Union does not list RequestPostRoomRtcCandidate, so tag 12 decodes to None.
var Union = protocol.NewUnion(None{},
	RequestGetRoomRtcOffer{},
	RequestPostRoomRtcAnswer{},
	ResponsePayload{},
	ResponseSession{},
	ResponseRoomRtcOffer{},
	AuthorizePayload{},
)
