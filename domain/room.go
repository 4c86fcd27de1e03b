package domain

import "slices"

// Room is created on first join and removed when its last connection leaves.
type Room struct {
	ID                  ID     `cbor:"id"`
	Name                string `cbor:"name"`
	ActiveConnectionIDs []ID   `cbor:"active_connection_ids"`
}

func (r *Room) AddConnection(connectionID ID) {
	if !slices.Contains(r.ActiveConnectionIDs, connectionID) {
		r.ActiveConnectionIDs = append(r.ActiveConnectionIDs, connectionID)
	}
}

func (r *Room) RemoveConnection(connectionID ID) {
	r.ActiveConnectionIDs = slices.DeleteFunc(r.ActiveConnectionIDs, func(id ID) bool {
		return id == connectionID
	})
}

func (r *Room) IsEmpty() bool {
	return len(r.ActiveConnectionIDs) == 0
}
