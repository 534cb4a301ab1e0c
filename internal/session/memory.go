package session

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/courier-ops/internal/domain"
)

// MemoryStore keeps sessions in process memory. It suits tests and
// single-instance development only.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[string]*memEntry
}

type memEntry struct {
	s         Session
	expiresAt time.Time
}

// NewMemoryStore creates an in-process store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: make(map[string]*memEntry)}
}

func memKey(ds domain.Dataset, token string) string { return string(ds) + ":" + token }

func (m *MemoryStore) Create(_ context.Context, ds domain.Dataset) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	s := Session{Token: NewToken(), Dataset: ds, CreatedAt: now.UTC()}
	m.sessions[memKey(ds, s.Token)] = &memEntry{s: s, expiresAt: now.Add(m.ttl)}
	out := s
	return &out, nil
}

// live returns the entry, dropping it when expired. Caller holds mu.
func (m *MemoryStore) live(ds domain.Dataset, token string) (*memEntry, error) {
	k := memKey(ds, token)
	e, ok := m.sessions[k]
	if !ok {
		return nil, ErrNotFound
	}
	if m.now().After(e.expiresAt) {
		delete(m.sessions, k)
		return nil, ErrNotFound
	}
	return e, nil
}

func (m *MemoryStore) Get(_ context.Context, ds domain.Dataset, token string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.live(ds, token)
	if err != nil {
		return nil, err
	}
	out := e.s
	return &out, nil
}

func (m *MemoryStore) MarkInitialized(_ context.Context, ds domain.Dataset, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.live(ds, token)
	if err != nil {
		return err
	}
	e.s.Initialized = true
	return nil
}

func (m *MemoryStore) AddProcessed(_ context.Context, ds domain.Dataset, token string, n int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.live(ds, token)
	if err != nil {
		return 0, err
	}
	e.s.TotalProcessed += n
	return e.s.TotalProcessed, nil
}

func (m *MemoryStore) Reset(_ context.Context, ds domain.Dataset, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.live(ds, token)
	if err != nil {
		return err
	}
	e.s.Initialized = false
	e.s.TotalProcessed = 0
	return nil
}

func (m *MemoryStore) ResetAll(_ context.Context, ds domain.Dataset) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.sessions {
		if e.s.Dataset == ds {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}
