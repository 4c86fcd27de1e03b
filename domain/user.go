package domain

import "slices"

type UserStatus uint8

const (
	Offline UserStatus = iota
	Online
)

// User is unique per (Username, RoomID) and owned by one Session.
// Status is derived: a user is Online while at least one connection is attached.
type User struct {
	ID                  ID     `cbor:"id"`
	Username            string `cbor:"username"`
	RoomID              ID     `cbor:"room_id"`
	SessionID           ID     `cbor:"session_id"`
	ActiveConnectionIDs []ID   `cbor:"active_connection_ids"`
}

func (u User) Status() UserStatus {
	if len(u.ActiveConnectionIDs) > 0 {
		return Online
	}
	return Offline
}

func (u *User) AddConnection(connectionID ID) {
	if !slices.Contains(u.ActiveConnectionIDs, connectionID) {
		u.ActiveConnectionIDs = append(u.ActiveConnectionIDs, connectionID)
	}
}

func (u *User) RemoveConnection(connectionID ID) {
	u.ActiveConnectionIDs = slices.DeleteFunc(u.ActiveConnectionIDs, func(id ID) bool {
		return id == connectionID
	})
}

// UserPublic is the view of a user sent to peers.
type UserPublic struct {
	ID       string     `msgpack:"id" cbor:"id"`
	Username string     `msgpack:"username" cbor:"username"`
	Status   UserStatus `msgpack:"status" cbor:"status"`
}

func (u User) Public() UserPublic {
	return UserPublic{ID: u.ID.String(), Username: u.Username, Status: u.Status()}
}
