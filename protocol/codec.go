package protocol

// Entry is one key/value pair of an ordered map.
type Entry struct {
	Key   string
	Value any
}

// Codec is the encoding-specific half of the protocol.
// Envelope layout and tagged-union rules are shared and live in envelope.go and union.go.
type Codec interface {
	Encoding() Encoding
	// MarshalEnvelope writes {i, o, p}; p is omitted when payload is empty.
	MarshalEnvelope(id int64, opcode uint8, payload []byte) ([]byte, error)
	// UnmarshalEnvelope returns a nil opcode when "o" is absent and a nil payload when "p" is absent.
	UnmarshalEnvelope(data []byte) (id int64, opcode *uint8, payload []byte, err error)
	// MarshalEntries writes a map keeping the order of entries.
	MarshalEntries(entries []Entry) ([]byte, error)
	// UnmarshalEntries reads a map keeping the wire order of its entries.
	UnmarshalEntries(data []byte) ([]Entry, error)
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}
