//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	"messenger/domain"

	"github.com/dgraph-io/badger/v4"
)

type ISessionRepository interface {
	CreateSession(session domain.Session) error
	GetSessionByToken(token string) (domain.Session, error)
}

type SessionRepository struct {
	db *badger.DB
}

func NewSessionRepository(db *badger.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession fails with ErrDuplicateKey when the token is already known.
func (r *SessionRepository) CreateSession(session domain.Session) error {
	return update(r.db, func(txn *badger.Txn) error {
		if err := insertUnique(txn, sessionTokenKey(session.Token), session.ID); err != nil {
			return err
		}
		return insertUnique(txn, sessionKey(session.ID), session)
	})
}

func (r *SessionRepository) GetSessionByToken(token string) (domain.Session, error) {
	var session domain.Session
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := get[domain.ID](txn, sessionTokenKey(token))
		if err != nil {
			return err
		}
		session, err = get[domain.Session](txn, sessionKey(id))
		return err
	})
	return session, err
}
