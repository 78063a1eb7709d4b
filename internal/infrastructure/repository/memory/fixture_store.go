package memory

import (
	"sync"

	"github.com/riskibarqy/livescore-board/internal/domain/match"
)

// FixtureStore holds the reconciled board. Replace swaps the whole list.
type FixtureStore struct {
	mu    sync.RWMutex
	items []match.Record
	byID  map[int64]int
}

func NewFixtureStore() *FixtureStore {
	return &FixtureStore{
		items: make([]match.Record, 0),
		byID:  make(map[int64]int),
	}
}

func (s *FixtureStore) Replace(items []match.Record) {
	next := make([]match.Record, 0, len(items))
	next = append(next, items...)
	index := make(map[int64]int, len(next))
	for i, item := range next {
		index[item.FixtureID] = i
	}

	s.mu.Lock()
	s.items = next
	s.byID = index
	s.mu.Unlock()
}

func (s *FixtureStore) List() []match.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]match.Record, 0, len(s.items))
	out = append(out, s.items...)
	return out
}

func (s *FixtureStore) Get(fixtureID int64) (match.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, ok := s.byID[fixtureID]
	if !ok {
		return match.Record{}, false
	}
	return s.items[idx], true
}

func (s *FixtureStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
