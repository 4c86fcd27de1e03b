package runtime

import (
	"fmt"
	"log/slog"
	"messenger/domain"
	"messenger/errors"
	"sync"
)

// Handle is a live connection as seen from the outside: something that
// accepts messages into its mailbox without blocking.
type Handle[M any] interface {
	Send(msg M) error
}

// Registry maps connection ids to live connections.
// The process owns two of them, one per channel, built once and injected
// into every connection. Connection ids are snowflakes, and a peer connection
// reuses the id of the control connection that created it.
type Registry[M any] struct {
	mu          sync.RWMutex
	name        string
	log         *slog.Logger
	connections map[domain.ID]Handle[M]
}

func NewRegistry[M any](name string, log *slog.Logger) *Registry[M] {
	return &Registry[M]{
		name:        name,
		log:         log.With("registry", name),
		connections: make(map[domain.ID]Handle[M]),
	}
}

// Register stores the handle, replacing any previous one under the same id.
func (r *Registry[M]) Register(id domain.ID, handle Handle[M]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connections[id] = handle
}

// Unregister drops id whatever handle it points to, a no-op when id is unknown.
// Connections tearing themselves down use UnregisterIf instead.
func (r *Registry[M]) Unregister(id domain.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, id)
}

// UnregisterIf removes id only while it still points to handle, so a stale
// connection cannot evict the one that replaced it.
func (r *Registry[M]) UnregisterIf(id domain.ID, handle Handle[M]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.connections[id]; ok && current == handle {
		delete(r.connections, id)
	}
}

func (r *Registry[M]) Get(id domain.ID) (Handle[M], bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.connections[id]
	return handle, ok
}

// Route delivers msg to one connection. A missing connection is a server
// defect: it is logged and reported as an internal error, never sent to a client.
func (r *Registry[M]) Route(id domain.ID, msg M) error {
	handle, ok := r.Get(id)
	if !ok {
		err := fmt.Errorf("%w: %d", errors.ErrConnectionNotFound, id)
		r.log.Error("Cannot route message", "connection_id", id, "error", err)
		return errors.Internal(errors.KindOther, err)
	}
	return handle.Send(msg)
}

// Broadcast is best effort: unknown ids and full mailboxes are skipped.
// It returns how many connections accepted the message.
func (r *Registry[M]) Broadcast(ids []domain.ID, msg M) int {
	r.mu.RLock()
	handles := make([]Handle[M], 0, len(ids))
	for _, id := range ids {
		if handle, ok := r.connections[id]; ok {
			handles = append(handles, handle)
		}
	}
	r.mu.RUnlock()

	delivered := 0
	for _, handle := range handles {
		if err := handle.Send(msg); err != nil {
			r.log.Debug("Broadcast skipped a connection", "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Registry[M]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// Close forgets every connection. Connections still registered at shutdown are reported.
func (r *Registry[M]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.connections) > 0 {
		r.log.Warn("Registry closed with live connections", "count", len(r.connections))
	}
	clear(r.connections)
}
