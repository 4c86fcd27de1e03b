package services

import (
	stderrors "errors"
	"log/slog"
	"messenger/contract"
	"messenger/domain"
	"messenger/domain/event"
	"messenger/errors"
	"messenger/ids"
	"messenger/repositories"

	"github.com/samber/lo"
)

// A join can lose against the last leaver deleting the room; it is then replayed.
const maxJoinAttempts = 3

// Membership is what a control connection remembers about the room it joined.
type Membership struct {
	RoomID domain.ID
	UserID domain.ID
}

// Snapshot is the room state sent in Hello.
type Snapshot struct {
	UserID   domain.ID
	Users    []domain.UserPublic
	Messages []domain.MessagePublic
}

type IRoomService interface {
	ValidateJoin(roomName, username string) error
	Join(connectionID, sessionID domain.ID, roomName, username string) (Membership, error)
	Leave(connectionID domain.ID, membership Membership) error
	Snapshot(membership Membership) (Snapshot, error)
}

type RoomService struct {
	rooms     repositories.IRoomRepository
	users     repositories.IUserRepository
	messages  repositories.IMessageRepository
	presence  repositories.IPresenceRepository
	publisher contract.IEventPublisher
	ids       ids.IGenerator
	log       *slog.Logger
}

func NewRoomService(rooms repositories.IRoomRepository, users repositories.IUserRepository,
	messages repositories.IMessageRepository, presence repositories.IPresenceRepository,
	publisher contract.IEventPublisher, generator ids.IGenerator, log *slog.Logger) *RoomService {
	return &RoomService{
		rooms: rooms, users: users, messages: messages, presence: presence,
		publisher: publisher, ids: generator, log: log,
	}
}

func (s *RoomService) ValidateJoin(roomName, username string) error {
	if err := domain.ValidateRoomName(roomName); err != nil {
		return err
	}
	return domain.ValidateUsername(username)
}

// Join finds or creates the room and the user, then attaches the connection to both.
// A username held by another session is refused; the same session reclaims it.
func (s *RoomService) Join(connectionID, sessionID domain.ID, roomName, username string) (Membership, error) {
	if err := s.ValidateJoin(roomName, username); err != nil {
		return Membership{}, err
	}

	var err error
	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		var membership Membership
		membership, err = s.join(connectionID, sessionID, roomName, username)
		if !stderrors.Is(err, errors.ErrNotFound) {
			return membership, err
		}
		s.log.Debug("Room vanished while joining, retrying", "room", roomName, "attempt", attempt)
	}
	return Membership{}, errors.From(err)
}

func (s *RoomService) join(connectionID, sessionID domain.ID, roomName, username string) (Membership, error) {
	room, err := s.findOrCreateRoom(roomName)
	if err != nil {
		return Membership{}, err
	}
	user, err := s.findOrCreateUser(room.ID, sessionID, username)
	if err != nil {
		return Membership{}, err
	}
	change, err := s.presence.RegisterConnection(connectionID, room.ID, user.ID)
	if err != nil {
		return Membership{}, err
	}
	if change.StatusChanged {
		s.publisher.Publish(event.UserUpdated{User: change.User})
	}
	return Membership{RoomID: room.ID, UserID: user.ID}, nil
}

func (s *RoomService) findOrCreateRoom(name string) (domain.Room, error) {
	room, err := s.rooms.GetRoomByName(name)
	if err == nil {
		return room, nil
	}
	if !stderrors.Is(err, errors.ErrNotFound) {
		return domain.Room{}, errors.Internal(errors.KindStore, err)
	}

	room = domain.Room{ID: s.ids.Next(), Name: name}
	err = s.rooms.CreateRoom(room)
	switch {
	case err == nil:
		return room, nil
	case stderrors.Is(err, errors.ErrDuplicateKey):
		// Created concurrently by someone else
		return s.rooms.GetRoomByName(name)
	default:
		return domain.Room{}, errors.Internal(errors.KindStore, err)
	}
}

func (s *RoomService) findOrCreateUser(roomID, sessionID domain.ID, username string) (domain.User, error) {
	user := domain.User{ID: s.ids.Next(), Username: username, RoomID: roomID, SessionID: sessionID}
	err := s.users.CreateUser(user)
	if err == nil {
		return user, nil
	}
	if !stderrors.Is(err, errors.ErrDuplicateKey) {
		return domain.User{}, errors.Internal(errors.KindStore, err)
	}

	existing, err := s.users.GetUserByUsername(roomID, username)
	if err != nil {
		return domain.User{}, err
	}
	if existing.SessionID != sessionID {
		return domain.User{}, errors.UsernameTaken
	}
	return existing, nil
}

// Leave detaches the connection. The last connection of a room deletes it with its users.
func (s *RoomService) Leave(connectionID domain.ID, membership Membership) error {
	change, err := s.presence.UnregisterConnection(connectionID, membership.RoomID, membership.UserID)
	if err != nil {
		return errors.From(err)
	}
	if change.StatusChanged && !change.RoomDeleted {
		s.publisher.Publish(event.UserUpdated{User: change.User})
	}
	return nil
}

func (s *RoomService) Snapshot(membership Membership) (Snapshot, error) {
	users, err := s.users.GetUsersByRoom(membership.RoomID)
	if err != nil {
		return Snapshot{}, errors.Internal(errors.KindStore, err)
	}
	messages, err := s.messages.GetMessagesByRoom(membership.RoomID)
	if err != nil {
		return Snapshot{}, errors.Internal(errors.KindStore, err)
	}
	return Snapshot{
		UserID:   membership.UserID,
		Users:    lo.Map(users, func(u domain.User, _ int) domain.UserPublic { return u.Public() }),
		Messages: lo.Map(messages, func(m domain.Message, _ int) domain.MessagePublic { return m.Public() }),
	}, nil
}
