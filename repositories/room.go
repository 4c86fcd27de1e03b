//go:generate go run go.uber.org/mock/mockgen -source=room.go -destination=../mocks/mock_room_repository.go -package=mocks
package repositories

import (
	"messenger/domain"

	"github.com/dgraph-io/badger/v4"
)

type IRoomRepository interface {
	CreateRoom(room domain.Room) error
	GetRoom(id domain.ID) (domain.Room, error)
	GetRoomByName(name string) (domain.Room, error)
}

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// CreateRoom fails with ErrDuplicateKey when another room already owns the name.
func (r *RoomRepository) CreateRoom(room domain.Room) error {
	return update(r.db, func(txn *badger.Txn) error {
		if err := insertUnique(txn, roomNameKey(room.Name), room.ID); err != nil {
			return err
		}
		return insertUnique(txn, roomKey(room.ID), room)
	})
}

func (r *RoomRepository) GetRoom(id domain.ID) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) (err error) {
		room, err = get[domain.Room](txn, roomKey(id))
		return err
	})
	return room, err
}

func (r *RoomRepository) GetRoomByName(name string) (domain.Room, error) {
	var room domain.Room
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := get[domain.ID](txn, roomNameKey(name))
		if err != nil {
			return err
		}
		room, err = get[domain.Room](txn, roomKey(id))
		return err
	})
	return room, err
}
