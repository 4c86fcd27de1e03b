package domain

// Message is immutable once stored.
type Message struct {
	ID       ID     `cbor:"id"`
	AuthorID ID     `cbor:"author_id"`
	RoomID   ID     `cbor:"room_id"`
	Content  string `cbor:"content"`
}

type MessagePublic struct {
	ID       string `msgpack:"id" cbor:"id"`
	AuthorID string `msgpack:"author_id" cbor:"author_id"`
	Content  string `msgpack:"content" cbor:"content"`
}

func (m Message) Public() MessagePublic {
	return MessagePublic{ID: m.ID.String(), AuthorID: m.AuthorID.String(), Content: m.Content}
}
