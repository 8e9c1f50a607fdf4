package service

import "sync"

// NotifiedSet tracks which accounts have already received a suspension
// notification within one sweep. It exists to collapse fan-out when a
// single account owns several servers suspended in the same pass; it is
// created fresh per sweep and passed explicitly, never held as process
// state, so dedup cannot leak across unrelated sweeps.
type NotifiedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewNotifiedSet() *NotifiedSet {
	return &NotifiedSet{seen: make(map[string]struct{})}
}

// MarkNotified records accountID and reports whether this was the first
// time. The check and the insert happen under one lock, so concurrent
// sweep workers cannot both see "not yet notified" for the same account.
func (s *NotifiedSet) MarkNotified(accountID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[accountID]; ok {
		return false
	}
	s.seen[accountID] = struct{}{}
	return true
}

// Len returns the number of accounts notified so far.
func (s *NotifiedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}
