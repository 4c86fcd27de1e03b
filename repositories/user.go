//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"messenger/domain"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	CreateUser(user domain.User) error
	GetUser(id domain.ID) (domain.User, error)
	GetUserByUsername(roomID domain.ID, username string) (domain.User, error)
	GetUsersByRoom(roomID domain.ID) ([]domain.User, error)
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// CreateUser fails with ErrDuplicateKey when the username is taken in the room.
func (r *UserRepository) CreateUser(user domain.User) error {
	return update(r.db, func(txn *badger.Txn) error {
		if err := insertUnique(txn, usernameKey(user.RoomID, user.Username), user.ID); err != nil {
			return err
		}
		if err := set(txn, userOfRoomKey(user.RoomID, user.ID), user.ID); err != nil {
			return err
		}
		return insertUnique(txn, userKey(user.ID), user)
	})
}

func (r *UserRepository) GetUser(id domain.ID) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) (err error) {
		user, err = get[domain.User](txn, userKey(id))
		return err
	})
	return user, err
}

func (r *UserRepository) GetUserByUsername(roomID domain.ID, username string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := get[domain.ID](txn, usernameKey(roomID, username))
		if err != nil {
			return err
		}
		user, err = get[domain.User](txn, userKey(id))
		return err
	})
	return user, err
}

func (r *UserRepository) GetUsersByRoom(roomID domain.ID) ([]domain.User, error) {
	var users []domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		users, err = usersOfRoom(txn, roomID)
		return err
	})
	return users, err
}

func usersOfRoom(txn *badger.Txn, roomID domain.ID) ([]domain.User, error) {
	ids, err := scan[domain.ID](txn, usersOfRoomPrefix(roomID))
	if err != nil {
		return nil, err
	}
	users := make([]domain.User, 0, len(ids))
	for _, id := range ids {
		user, err := get[domain.User](txn, userKey(id))
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}
