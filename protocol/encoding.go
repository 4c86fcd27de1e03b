// Package protocol implements the binary envelope shared by the control and peer channels.
package protocol

import (
	"fmt"
	"messenger/errors"
)

// Encoding is chosen by the client through the "encoding" query parameter.
type Encoding string

const (
	MessagePack Encoding = "messagePack"
	CBOR        Encoding = "cbor"
)

// ParseEncoding defaults to MessagePack when the parameter is missing.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", MessagePack:
		return MessagePack, nil
	case CBOR:
		return CBOR, nil
	default:
		return "", fmt.Errorf("%w: %q", errors.ErrUnknownEncoding, s)
	}
}

// NewCodec returns the wire codec for an encoding.
func NewCodec(encoding Encoding) (Codec, error) {
	switch encoding {
	case MessagePack:
		return msgpackCodec{}, nil
	case CBOR:
		return cborCodec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEncoding, encoding)
	}
}
