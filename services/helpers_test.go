package services

import (
	"messenger/domain"
	"sync"
)

// sequence hands out predictable ids.
type sequence struct {
	mu   sync.Mutex
	next domain.ID
}

func newSequence(start domain.ID) *sequence {
	return &sequence{next: start}
}

func (s *sequence) Next() domain.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return s.next
}
