package protocol

import (
	"fmt"
	"messenger/domain"
	"messenger/errors"
)

const (
	// UnsolicitedID marks messages the server sends without a request.
	UnsolicitedID int64 = -1
	// DefaultOpcode applies when "o" is absent; Response on both channels.
	DefaultOpcode uint8 = 2
)

// Opcode is implemented by the opcode enum of each channel.
type Opcode interface {
	~uint8
	Valid() bool
}

// Envelope is the unit exchanged on both channels.
// ConnectionID is never serialized: the receiver fills it from the transport.
type Envelope[O Opcode] struct {
	ID           int64
	ConnectionID domain.ID
	Opcode       O
	Payload      Payload
}

func Encode[O Opcode](codec Codec, union Union, env Envelope[O]) ([]byte, error) {
	var payload []byte
	if !union.IsNone(env.Payload) {
		var err error
		if payload, err = EncodePayload(codec, env.Payload); err != nil {
			return nil, err
		}
	}
	return codec.MarshalEnvelope(env.ID, uint8(env.Opcode), payload)
}

func Decode[O Opcode](codec Codec, union Union, data []byte, connectionID domain.ID) (Envelope[O], error) {
	id, rawOpcode, rawPayload, err := codec.UnmarshalEnvelope(data)
	if err != nil {
		return Envelope[O]{}, fmt.Errorf("%w: %v", errors.ErrInvalidEnvelope, err)
	}

	opcode := O(DefaultOpcode)
	if rawOpcode != nil {
		opcode = O(*rawOpcode)
	}
	if !opcode.Valid() {
		return Envelope[O]{}, fmt.Errorf("%w: unknown opcode %d", errors.ErrInvalidEnvelope, opcode)
	}

	env := Envelope[O]{ID: id, ConnectionID: connectionID, Opcode: opcode, Payload: union.None()}
	if len(rawPayload) == 0 {
		return env, nil
	}
	if env.Payload, err = union.DecodePayload(codec, rawPayload); err != nil {
		return Envelope[O]{}, err
	}
	return env, nil
}
