package messages

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// idSource hands out strictly increasing ULIDs with non-decreasing timestamps.
// A clock step backwards is absorbed by reusing the last timestamp.
type idSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	last    time.Time
	now     func() time.Time
}

func newIDSource(now func() time.Time) *idSource {
	return &idSource{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     now,
	}
}

func (s *idSource) next() (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.now().UTC()
	if t.Before(s.last) {
		t = s.last
	}
	s.last = t
	return ulid.MustNew(ulid.Timestamp(t), s.entropy).String(), t
}
