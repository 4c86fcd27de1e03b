package protocol

import (
	"encoding/binary"
	"fmt"
	"messenger/errors"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

var (
	cborEncMode cbor.EncMode
	cborDecMode cbor.DecMode
)

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("protocol: CBOR encoder initialization failed: " + err.Error())
	}
	cborDecMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("protocol: CBOR decoder initialization failed: " + err.Error())
	}
}

const cborMajorMap = 5

type cborEnvelope struct {
	I *int64          `cbor:"i"`
	O *uint8          `cbor:"o"`
	P cbor.RawMessage `cbor:"p,omitempty"`
}

type cborCodec struct{}

func (cborCodec) Encoding() Encoding { return CBOR }

func (cborCodec) Marshal(v any) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

func (cborCodec) Unmarshal(data []byte, v any) error {
	return cborDecMode.Unmarshal(data, v)
}

func (c cborCodec) MarshalEnvelope(id int64, opcode uint8, payload []byte) ([]byte, error) {
	return c.Marshal(cborEnvelope{I: &id, O: &opcode, P: payload})
}

func (c cborCodec) UnmarshalEnvelope(data []byte) (int64, *uint8, []byte, error) {
	var env cborEnvelope
	if err := c.Unmarshal(data, &env); err != nil {
		return 0, nil, nil, err
	}
	if env.I == nil {
		return 0, nil, nil, fmt.Errorf("%w: missing id", errors.ErrInvalidEnvelope)
	}
	return *env.I, env.O, env.P, nil
}

// MarshalEntries writes the map header by hand: the deterministic encoder would sort keys.
func (c cborCodec) MarshalEntries(entries []Entry) ([]byte, error) {
	out := cborMapHeader(len(entries))
	for _, entry := range entries {
		key, err := cborEncMode.Marshal(entry.Key)
		if err != nil {
			return nil, err
		}
		value, err := cborEncMode.Marshal(entry.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, key...)
		out = append(out, value...)
	}
	return out, nil
}

func (c cborCodec) UnmarshalEntries(data []byte) ([]Entry, error) {
	n, rest, err := readCborMapHeader(data)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, errors.ErrInvalidPayload
	}
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		var key, value any
		if rest, err = cborDecMode.UnmarshalFirst(rest, &key); err != nil {
			return nil, err
		}
		if rest, err = cborDecMode.UnmarshalFirst(rest, &value); err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Key: fmt.Sprint(key), Value: value})
	}
	return entries, nil
}

func cborMapHeader(n int) []byte {
	const major = cborMajorMap << 5
	switch {
	case n < 24:
		return []byte{byte(major | n)}
	case n <= 0xff:
		return []byte{major | 24, byte(n)}
	case n <= 0xffff:
		return binary.BigEndian.AppendUint16([]byte{major | 25}, uint16(n))
	default:
		return binary.BigEndian.AppendUint32([]byte{major | 26}, uint32(n))
	}
}

func readCborMapHeader(data []byte) (int, []byte, error) {
	if len(data) == 0 || data[0]>>5 != cborMajorMap {
		return 0, nil, errors.ErrInvalidPayload
	}
	info := data[0] & 0x1f
	switch {
	case info < 24:
		return int(info), data[1:], nil
	case info == 24 && len(data) >= 2:
		return int(data[1]), data[2:], nil
	case info == 25 && len(data) >= 3:
		return int(binary.BigEndian.Uint16(data[1:3])), data[3:], nil
	case info == 26 && len(data) >= 5:
		return int(binary.BigEndian.Uint32(data[1:5])), data[5:], nil
	default:
		return 0, nil, fmt.Errorf("%w: unsupported map header 0x%x", errors.ErrInvalidPayload, data[0])
	}
}
