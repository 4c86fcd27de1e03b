//go:generate go run go.uber.org/mock/mockgen -source=presence.go -destination=../mocks/mock_presence_repository.go -package=mocks
package repositories

import (
	"messenger/domain"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

// PresenceChange is the result of attaching or detaching a connection.
type PresenceChange struct {
	User domain.User
	// StatusChanged is true when the user went 0->1 or 1->0 connections.
	StatusChanged bool
	// RoomDeleted is true when the last connection left and the room and its users are gone.
	RoomDeleted bool
}

type IPresenceRepository interface {
	RegisterConnection(connectionID, roomID, userID domain.ID) (PresenceChange, error)
	UnregisterConnection(connectionID, roomID, userID domain.ID) (PresenceChange, error)
}

// PresenceRepository updates room and user connection lists in a single transaction.
type PresenceRepository struct {
	db *badger.DB
}

func NewPresenceRepository(db *badger.DB) *PresenceRepository {
	return &PresenceRepository{db: db}
}

func (r *PresenceRepository) RegisterConnection(connectionID, roomID, userID domain.ID) (PresenceChange, error) {
	var change PresenceChange
	err := update(r.db, func(txn *badger.Txn) error {
		room, err := get[domain.Room](txn, roomKey(roomID))
		if err != nil {
			return err
		}
		user, err := get[domain.User](txn, userKey(userID))
		if err != nil {
			return err
		}
		wasOffline := user.Status() == domain.Offline

		room.AddConnection(connectionID)
		user.AddConnection(connectionID)
		if err := set(txn, roomKey(room.ID), room); err != nil {
			return err
		}
		if err := set(txn, userKey(user.ID), user); err != nil {
			return err
		}
		change = PresenceChange{User: user, StatusChanged: wasOffline}
		return nil
	})
	return change, err
}

// UnregisterConnection detaches the connection. When the room has no connection
// left, the room and all of its users are deleted in the same transaction.
func (r *PresenceRepository) UnregisterConnection(connectionID, roomID, userID domain.ID) (PresenceChange, error) {
	var change PresenceChange
	err := update(r.db, func(txn *badger.Txn) error {
		room, err := get[domain.Room](txn, roomKey(roomID))
		if err != nil {
			return err
		}
		user, err := get[domain.User](txn, userKey(userID))
		if err != nil {
			return err
		}
		wasAttached := slices.Contains(user.ActiveConnectionIDs, connectionID)

		user.RemoveConnection(connectionID)
		room.RemoveConnection(connectionID)
		change = PresenceChange{
			User:          user,
			StatusChanged: wasAttached && user.Status() == domain.Offline,
		}

		if !room.IsEmpty() {
			if err := set(txn, userKey(user.ID), user); err != nil {
				return err
			}
			return set(txn, roomKey(room.ID), room)
		}

		change.RoomDeleted = true
		users, err := usersOfRoom(txn, room.ID)
		if err != nil {
			return err
		}
		for _, u := range users {
			if err := remove(txn, userKey(u.ID), userOfRoomKey(room.ID, u.ID), usernameKey(room.ID, u.Username)); err != nil {
				return err
			}
		}
		return remove(txn, roomKey(room.ID), roomNameKey(room.Name))
	})
	return change, err
}
