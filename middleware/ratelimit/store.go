package ratelimit

import (
	"sync"
	"time"
)

// Store tracks how many counted requests each key made in its current
// window.
type Store interface {
	Get(key string) (count int, resetAt time.Time, ok bool)
	Increment(key string, window time.Duration) (count int, resetAt time.Time)
	Reset(key string)
}

type window struct {
	count   int
	resetAt time.Time
}

type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *MemoryStore) live(key string) *window {
	w, ok := s.windows[key]
	if !ok || !s.now().Before(w.resetAt) {
		return nil
	}
	return w
}

func (s *MemoryStore) Get(key string) (int, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w := s.live(key); w != nil {
		return w.count, w.resetAt, true
	}
	return 0, time.Time{}, false
}

// Increment counts one request against key, opening a new window of the
// given length when none is live.
func (s *MemoryStore) Increment(key string, length time.Duration) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w := s.live(key)
	if w == nil {
		w = &window{resetAt: s.now().Add(length)}
		s.windows[key] = w
	}
	w.count++
	return w.count, w.resetAt
}

func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
}

// Sweep drops windows that have closed and reports how many it removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, w := range s.windows {
		if !now.Before(w.resetAt) {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}
