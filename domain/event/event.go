package event

import "messenger/domain"

// DomainEvent is fanned out to every peer connection of a room.
type DomainEvent interface {
	RoomID() domain.ID
}

// UserUpdated is published when a user goes online or offline.
type UserUpdated struct {
	User domain.User
}

func (u UserUpdated) RoomID() domain.ID {
	return u.User.RoomID
}

type MessagePosted struct {
	Message domain.Message
}

func (m MessagePosted) RoomID() domain.ID {
	return m.Message.RoomID
}
