package chat

import "sync"

// sequencer hands out one mutex per room. Entries are reference counted and
// dropped once no goroutine holds or waits for them.
type sequencer struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newSequencer() *sequencer {
	return &sequencer{rooms: make(map[string]*roomLock)}
}

// lock blocks until the caller owns roomID and returns the matching unlock.
func (s *sequencer) lock(roomID string) (unlock func()) {
	s.mu.Lock()
	l, ok := s.rooms[roomID]
	if !ok {
		l = &roomLock{}
		s.rooms[roomID] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.rooms, roomID)
		}
		s.mu.Unlock()
	}
}

func (s *sequencer) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
