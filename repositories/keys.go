package repositories

import (
	"fmt"
	"messenger/domain"
)

func sessionKey(id domain.ID) string          { return fmt.Sprintf("session:id:%d", id) }
func sessionTokenKey(token string) string     { return "session:token:" + token }
func roomKey(id domain.ID) string             { return fmt.Sprintf("room:id:%d", id) }
func roomNameKey(name string) string          { return "room:name:" + name }
func userKey(id domain.ID) string             { return fmt.Sprintf("user:id:%d", id) }
func usersOfRoomPrefix(room domain.ID) string { return fmt.Sprintf("user:room:%d:", room) }
func messageKey(id domain.ID) string          { return fmt.Sprintf("message:id:%d", id) }

func userOfRoomKey(room, user domain.ID) string {
	return fmt.Sprintf("%s%d", usersOfRoomPrefix(room), user)
}

// (room, username) is unique, so the pair is the index key.
func usernameKey(room domain.ID, username string) string {
	return fmt.Sprintf("user:name:%d:%s", room, username)
}

func messagesOfRoomPrefix(room domain.ID) string {
	return fmt.Sprintf("message:room:%d:", room)
}

// Snowflakes are time ordered; zero padding keeps lexicographic order equal to id order.
func messageOfRoomKey(room, message domain.ID) string {
	return fmt.Sprintf("%s%019d", messagesOfRoomPrefix(room), message)
}
