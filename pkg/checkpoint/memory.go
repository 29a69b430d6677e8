package checkpoint

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps checkpoints for the life of the process
type MemoryStore struct {
	mu      sync.Mutex
	offsets map[string]map[string]int
	locks   map[string]*memoryLock
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		offsets: make(map[string]map[string]int),
		locks:   make(map[string]*memoryLock),
		now:     time.Now,
	}
}

func (s *MemoryStore) Offset(ctx context.Context, runID, state string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offsets[runID][state], nil
}

func (s *MemoryStore) Save(ctx context.Context, runID, state string, offset int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offsets[runID] == nil {
		s.offsets[runID] = make(map[string]int)
	}
	s.offsets[runID][state] = offset
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.offsets, runID)
	return nil
}

func (s *MemoryStore) Lock(ctx context.Context, state string, ttl time.Duration) (Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.locks[state]; ok && s.now().Before(held.expires) {
		return nil, ErrLockNotAcquired
	}
	lock := &memoryLock{store: s, state: state, expires: s.now().Add(ttl)}
	s.locks[state] = lock
	return lock, nil
}

type memoryLock struct {
	store   *MemoryStore
	state   string
	expires time.Time
}

func (l *memoryLock) Release(ctx context.Context) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if l.store.locks[l.state] != l {
		return ErrLockNotHeld
	}
	delete(l.store.locks, l.state)
	return nil
}

func (l *memoryLock) Extend(ctx context.Context, ttl time.Duration) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	if l.store.locks[l.state] != l {
		return ErrLockNotHeld
	}
	l.expires = l.store.now().Add(ttl)
	return nil
}
