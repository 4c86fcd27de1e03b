package connection

import (
	"messenger/errors"
	"sync"
)

// mailbox is the non-blocking inbox of a connection actor.
// Once closed, every post fails so that late senders can release what they carry.
type mailbox[T any] struct {
	mu     sync.Mutex
	closed bool
	ch     chan T
}

func newMailbox[T any](size int) *mailbox[T] {
	return &mailbox[T]{ch: make(chan T, size)}
}

func (m *mailbox[T]) post(v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.ErrConnectionClosed
	}
	select {
	case m.ch <- v:
		return nil
	default:
		return errors.ErrMailboxFull
	}
}

func (m *mailbox[T]) receive() <-chan T {
	return m.ch
}

// close returns whatever was still queued.
func (m *mailbox[T]) close() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	var pending []T
	for {
		select {
		case v := <-m.ch:
			pending = append(pending, v)
		default:
			return pending
		}
	}
}
