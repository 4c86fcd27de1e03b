package runtime

import (
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type inbox struct {
	mu       sync.Mutex
	received []string
	full     bool
}

func (i *inbox) Send(msg string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.full {
		return errors.ErrMailboxFull
	}
	i.received = append(i.received, msg)
	return nil
}

func newTestRegistry() *Registry[string] {
	return NewRegistry[string]("test", logs.GetLoggerFromLevel(slog.LevelDebug))
}

func TestRegistry_Register_And_Route(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	conn := &inbox{}

	// Given no connection is registered
	req.Zero(registry.Len())

	// When a connection registers
	registry.Register(1, conn)

	// Then messages routed to its id reach it
	req.NoError(registry.Route(1, "hello"))
	req.Equal([]string{"hello"}, conn.received)
	req.Equal(1, registry.Len())
}

func TestRegistry_Register_Overwrites(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	oldConn, newConn := &inbox{}, &inbox{}

	registry.Register(1, oldConn)
	registry.Register(1, newConn)
	req.NoError(registry.Route(1, "hello"))

	req.Empty(oldConn.received)
	req.Equal([]string{"hello"}, newConn.received)
	req.Equal(1, registry.Len())
}

func TestRegistry_Route_Unknown_Connection_Is_Internal(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()

	err := registry.Route(42, "hello")

	req.ErrorIs(err, errors.InternalServerError)
	req.ErrorIs(err, errors.ErrConnectionNotFound)
}

func TestRegistry_Unregister(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	oldConn, newConn := &inbox{}, &inbox{}
	registry.Register(1, oldConn)

	// Unknown ids are ignored
	registry.Unregister(2)
	req.Equal(1, registry.Len())

	// A stale connection does not evict its replacement
	registry.Register(1, newConn)
	registry.UnregisterIf(1, oldConn)
	_, ok := registry.Get(1)
	req.True(ok)

	registry.UnregisterIf(1, newConn)
	_, ok = registry.Get(1)
	req.False(ok)
}

func TestRegistry_Broadcast_Skips_Missing_And_Full(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	alice, bob, carol := &inbox{}, &inbox{}, &inbox{full: true}
	registry.Register(1, alice)
	registry.Register(2, bob)
	registry.Register(3, carol)

	delivered := registry.Broadcast([]domain.ID{1, 2, 3, 4}, "update")

	req.Equal(2, delivered)
	req.Equal([]string{"update"}, alice.received)
	req.Equal([]string{"update"}, bob.received)
	req.Empty(carol.received)
}

func TestRegistry_Close_Forgets_Everything(t *testing.T) {
	req := require.New(t)
	registry := newTestRegistry()
	registry.Register(1, &inbox{})

	registry.Close()

	req.Zero(registry.Len())
}
