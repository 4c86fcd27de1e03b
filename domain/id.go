// Package domain contains core concepts of the messenger.
// Entities are plain values; persistence and transport live elsewhere.
package domain

import "strconv"

// ID is a snowflake identifier shared by every entity and connection.
type ID int64

func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

func ParseID(s string) (ID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return ID(v), nil
}

// Session identifies a browser across reconnects.
type Session struct {
	ID    ID     `cbor:"id"`
	Token string `cbor:"token"`
}
