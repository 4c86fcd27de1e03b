// Package peer defines the opcodes and payloads of the WebRTC data channel.
package peer

import (
	"messenger/domain"
	"messenger/protocol"
)

type Opcode uint8

const (
	HeartBeat Opcode = iota
	Request
	Response
	Error
	Dispatch
	Hello
)

func (o Opcode) Valid() bool { return o <= Hello }

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
	case Dispatch:
		return "Dispatch"
	case Hello:
		return "Hello"
	default:
		return "Unknown"
	}
}

type Message = protocol.Envelope[Opcode]

type None struct{}

type RequestPostMessage struct {
	Content string `msgpack:"content" cbor:"content"`
}

type ResponsePayload struct {
	Code    uint32 `msgpack:"code" cbor:"code"`
	Message string `msgpack:"message" cbor:"message"`
}

type DispatchUserUpdate struct {
	User domain.UserPublic `msgpack:"user" cbor:"user"`
}

type DispatchMessageUpdate struct {
	Message domain.MessagePublic `msgpack:"message" cbor:"message"`
}

// HelloPayload is the snapshot sent once the data channel opens.
type HelloPayload struct {
	UserID   string                 `msgpack:"user_id" cbor:"user_id"`
	Users    []domain.UserPublic    `msgpack:"users" cbor:"users"`
	Messages []domain.MessagePublic `msgpack:"messages" cbor:"messages"`
}

func (None) Tag() int                  { return 0 }
func (RequestPostMessage) Tag() int    { return 10 }
func (ResponsePayload) Tag() int       { return 20 }
func (DispatchUserUpdate) Tag() int    { return 40 }
func (DispatchMessageUpdate) Tag() int { return 41 }
func (HelloPayload) Tag() int          { return 50 }

var Union = protocol.NewUnion(None{},
	RequestPostMessage{},
	ResponsePayload{},
	DispatchUserUpdate{},
	DispatchMessageUpdate{},
	HelloPayload{},
)
