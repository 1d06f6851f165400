package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	userID    uint
	expiresAt time.Time
}

// MemoryStore is the single-process fallback used when Redis is not
// configured. Sessions do not survive a restart.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	byUser   map[uint]map[string]struct{}
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		byUser:   make(map[uint]map[string]struct{}),
		now:      time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, sid string, userID uint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sid] = memoryEntry{userID: userID, expiresAt: s.now().Add(ttl)}
	if s.byUser[userID] == nil {
		s.byUser[userID] = make(map[string]struct{})
	}
	s.byUser[userID][sid] = struct{}{}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, sid string) (uint, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sid]
	if !ok {
		return 0, false, nil
	}
	if !s.now().Before(e.expiresAt) {
		s.removeLocked(sid, e.userID)
		return 0, false, nil
	}
	return e.userID, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[sid]; ok {
		s.removeLocked(sid, e.userID)
	}
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context, userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sid := range s.byUser[userID] {
		delete(s.sessions, sid)
	}
	delete(s.byUser, userID)
	return nil
}

func (s *MemoryStore) removeLocked(sid string, userID uint) {
	delete(s.sessions, sid)
	if set := s.byUser[userID]; set != nil {
		delete(set, sid)
		if len(set) == 0 {
			delete(s.byUser, userID)
		}
	}
}
