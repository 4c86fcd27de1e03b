//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"fmt"
	"log/slog"
	"messenger/domain"

	"github.com/dgraph-io/badger/v4"
)

type IMessageRepository interface {
	CreateMessage(message domain.Message) error
	GetMessagesByRoom(roomID domain.ID) ([]domain.Message, error)
}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

// NewMessageRepository keeps every message of a room in history unless limitMessages is set.
func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

// CreateMessage stores the message under "message:room:{room}:{id}".
// Ids are snowflakes, so the key order is the posting order.
func (r *MessageRepository) CreateMessage(message domain.Message) error {
	return update(r.db, func(txn *badger.Txn) error {
		if err := insertUnique(txn, messageKey(message.ID), message.RoomID); err != nil {
			return err
		}
		return set(txn, messageOfRoomKey(message.RoomID, message.ID), message)
	})
}

// GetMessagesByRoom returns the history oldest first.
// With a limit, only the most recent messages are kept.
func (r *MessageRepository) GetMessagesByRoom(roomID domain.ID) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		messages, err = scan[domain.Message](txn, messagesOfRoomPrefix(roomID))
		return err
	})
	if err != nil {
		return nil, err
	}
	if r.limitMessages != nil && len(messages) > *r.limitMessages {
		r.log.Debug(fmt.Sprintf("Maximum of %d message reached", *r.limitMessages))
		messages = messages[len(messages)-*r.limitMessages:]
	}
	return messages, nil
}
