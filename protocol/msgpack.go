package protocol

import (
	"bytes"
	"fmt"
	"messenger/errors"

	"github.com/vmihailenco/msgpack/v5"
)

type msgpackEnvelope struct {
	I *int64             `msgpack:"i"`
	O *uint8             `msgpack:"o"`
	P msgpack.RawMessage `msgpack:"p,omitempty"`
}

// msgpackCodec speaks the format produced by browser msgpackr clients:
// string-keyed maps and the smallest integer representation.
type msgpackCodec struct{}

func (msgpackCodec) Encoding() Encoding { return MessagePack }

func (c msgpackCodec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (msgpackCodec) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}

func (c msgpackCodec) MarshalEnvelope(id int64, opcode uint8, payload []byte) ([]byte, error) {
	return c.Marshal(msgpackEnvelope{I: &id, O: &opcode, P: payload})
}

func (c msgpackCodec) UnmarshalEnvelope(data []byte) (int64, *uint8, []byte, error) {
	var env msgpackEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return 0, nil, nil, err
	}
	if env.I == nil {
		return 0, nil, nil, fmt.Errorf("%w: missing id", errors.ErrInvalidEnvelope)
	}
	return *env.I, env.O, env.P, nil
}

func (c msgpackCodec) MarshalEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.EncodeMapLen(len(entries)); err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if err := enc.EncodeString(entry.Key); err != nil {
			return nil, err
		}
		if err := enc.Encode(entry.Value); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func (c msgpackCodec) UnmarshalEntries(data []byte) ([]Entry, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	n, err := dec.DecodeMapLen()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrInvalidPayload, err)
	}
	if n <= 0 {
		return nil, errors.ErrInvalidPayload
	}
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		key, err := dec.DecodeInterface()
		if err != nil {
			return nil, err
		}
		value, err := dec.DecodeInterface()
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: fmt.Sprint(key), Value: value})
	}
	return entries, nil
}
