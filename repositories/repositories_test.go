package repositories

import (
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *badger.DB {
	db, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessionRepository_Token_Is_Unique(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openDB(t))

	// Given a stored session
	req.NoError(repository.CreateSession(domain.Session{ID: 1, Token: "abc"}))

	// When looking it up by token
	session, err := repository.GetSessionByToken("abc")

	// Then it is found
	req.NoError(err)
	req.Equal(domain.ID(1), session.ID)

	// And the token cannot be reused
	req.ErrorIs(repository.CreateSession(domain.Session{ID: 2, Token: "abc"}), errors.ErrDuplicateKey)

	// And an unknown token is not found
	_, err = repository.GetSessionByToken("unknown")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestRoomRepository_Name_Is_Unique(t *testing.T) {
	req := require.New(t)
	repository := NewRoomRepository(openDB(t))

	req.NoError(repository.CreateRoom(domain.Room{ID: 10, Name: "lobby"}))
	req.ErrorIs(repository.CreateRoom(domain.Room{ID: 11, Name: "lobby"}), errors.ErrDuplicateKey)

	room, err := repository.GetRoomByName("lobby")
	req.NoError(err)
	req.Equal(domain.ID(10), room.ID)

	_, err = repository.GetRoom(11)
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestUserRepository_Username_Is_Unique_Per_Room(t *testing.T) {
	req := require.New(t)
	repository := NewUserRepository(openDB(t))

	// Given alice in room 1
	req.NoError(repository.CreateUser(domain.User{ID: 100, Username: "alice", RoomID: 1, SessionID: 7}))

	// Then another alice can join room 2
	req.NoError(repository.CreateUser(domain.User{ID: 101, Username: "alice", RoomID: 2, SessionID: 8}))

	// But not room 1
	req.ErrorIs(repository.CreateUser(domain.User{ID: 102, Username: "alice", RoomID: 1, SessionID: 8}), errors.ErrDuplicateKey)

	user, err := repository.GetUserByUsername(1, "alice")
	req.NoError(err)
	req.Equal(domain.ID(7), user.SessionID)

	users, err := repository.GetUsersByRoom(1)
	req.NoError(err)
	req.Len(users, 1)
}

func TestMessageRepository_History_Is_Ordered_And_Limited(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	messages := []domain.Message{
		{ID: 1000, AuthorID: 1, RoomID: 5, Content: "first"},
		{ID: 999_999, AuthorID: 2, RoomID: 5, Content: "second"},
		{ID: 1_000_000_000, AuthorID: 1, RoomID: 5, Content: "third"},
		{ID: 1_000_000_001, AuthorID: 1, RoomID: 6, Content: "elsewhere"},
	}

	repository := NewMessageRepository(db, log, nil)
	for _, m := range messages {
		req.NoError(repository.CreateMessage(m))
	}
	req.ErrorIs(repository.CreateMessage(messages[0]), errors.ErrDuplicateKey)

	// Without limit the full history is returned in posting order
	history, err := repository.GetMessagesByRoom(5)
	req.NoError(err)
	req.Equal(messages[:3], history)

	// With a limit only the latest messages remain
	limit := 2
	history, err = NewMessageRepository(db, log, &limit).GetMessagesByRoom(5)
	req.NoError(err)
	req.Equal(messages[1:3], history)
}

func TestPresenceRepository_Status_Follows_Connections(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	rooms, users, presence := NewRoomRepository(db), NewUserRepository(db), NewPresenceRepository(db)
	req.NoError(rooms.CreateRoom(domain.Room{ID: 1, Name: "lobby"}))
	req.NoError(users.CreateUser(domain.User{ID: 2, Username: "alice", RoomID: 1, SessionID: 3}))

	// When the first connection attaches the user comes online
	change, err := presence.RegisterConnection(50, 1, 2)
	req.NoError(err)
	req.True(change.StatusChanged)
	req.Equal(domain.Online, change.User.Status())

	// When a second connection attaches nothing changes
	change, err = presence.RegisterConnection(51, 1, 2)
	req.NoError(err)
	req.False(change.StatusChanged)

	// When one of them leaves the user stays online
	change, err = presence.UnregisterConnection(50, 1, 2)
	req.NoError(err)
	req.False(change.StatusChanged)
	req.False(change.RoomDeleted)
	req.Equal(domain.Online, change.User.Status())

	room, err := rooms.GetRoom(1)
	req.NoError(err)
	req.Equal([]domain.ID{51}, room.ActiveConnectionIDs)
}

func TestPresenceRepository_Last_Unregister_Deletes_Room_And_Users(t *testing.T) {
	req := require.New(t)
	db := openDB(t)
	rooms, users, presence := NewRoomRepository(db), NewUserRepository(db), NewPresenceRepository(db)

	// Given a room with an online alice and an offline bob
	req.NoError(rooms.CreateRoom(domain.Room{ID: 1, Name: "lobby"}))
	req.NoError(users.CreateUser(domain.User{ID: 2, Username: "alice", RoomID: 1, SessionID: 3}))
	req.NoError(users.CreateUser(domain.User{ID: 4, Username: "bob", RoomID: 1, SessionID: 5}))
	_, err := presence.RegisterConnection(50, 1, 2)
	req.NoError(err)

	// When alice's only connection leaves
	change, err := presence.UnregisterConnection(50, 1, 2)

	// Then alice went offline and the room is gone with all its users
	req.NoError(err)
	req.True(change.StatusChanged)
	req.True(change.RoomDeleted)

	_, err = rooms.GetRoomByName("lobby")
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = users.GetUser(2)
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = users.GetUserByUsername(1, "bob")
	req.ErrorIs(err, errors.ErrNotFound)
	remaining, err := users.GetUsersByRoom(1)
	req.NoError(err)
	req.Empty(remaining)

	// And the name can be used again
	req.NoError(rooms.CreateRoom(domain.Room{ID: 9, Name: "lobby"}))
}

func TestPresenceRepository_Unknown_Room(t *testing.T) {
	req := require.New(t)
	presence := NewPresenceRepository(openDB(t))

	_, err := presence.RegisterConnection(1, 2, 3)
	req.ErrorIs(err, errors.ErrNotFound)
	_, err = presence.UnregisterConnection(1, 2, 3)
	req.ErrorIs(err, errors.ErrNotFound)
}
