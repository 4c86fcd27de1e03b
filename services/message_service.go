package services

import (
	"log/slog"
	"messenger/contract"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/errors"
	"messenger/ids"
	"messenger/repositories"
)

type IMessageService interface {
	Post(authorID, roomID domain.ID, content string) (domain.Message, error)
}

// ICensor rewrites forbidden words before a message is stored.
type ICensor interface {
	Censor(content string) (string, []string)
}

type MessageService struct {
	repository repositories.IMessageRepository
	censor     ICensor
	publisher  contract.IEventPublisher
	ids        ids.IGenerator
	log        *slog.Logger
}

// NewMessageService accepts a nil censor when moderation is disabled.
func NewMessageService(repository repositories.IMessageRepository, censor ICensor,
	publisher contract.IEventPublisher, generator ids.IGenerator, log *slog.Logger) *MessageService {
	return &MessageService{repository: repository, censor: censor, publisher: publisher, ids: generator, log: log}
}

func (s *MessageService) Post(authorID, roomID domain.ID, content string) (domain.Message, error) {
	if err := domain.ValidateMessageContent(content); err != nil {
		return domain.Message{}, err
	}

	if s.censor != nil {
		var words []string
		if content, words = s.censor.Censor(content); len(words) > 0 {
			s.log.Info("Message censored", "author", authorID, "room", roomID, "count", len(words))
		}
	}

	message := domain.Message{ID: s.ids.Next(), AuthorID: authorID, RoomID: roomID, Content: content}
	if err := s.repository.CreateMessage(message); err != nil {
		return domain.Message{}, errors.Internal(errors.KindStore, err)
	}
	s.publisher.Publish(event.MessagePosted{Message: message})
	return message, nil
}
