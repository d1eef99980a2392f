package state

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const defaultShardCount = 32

// Store owns every live session. Get and Create hand out copies; the only way to change
// a stored session is Update.
//
// Get/Create/Update/Delete are atomic with respect to each other. Lock serializes whole
// turns on one session id: the router holds it from load to save so that a turn's
// read-modify-write sequence cannot interleave with a concurrent turn on the same id.
type Store interface {
	Get(sessionID string) (*Session, bool)
	Create(sessionID string, initial *Session) *Session
	Update(sessionID string, fn func(*Session)) bool
	Delete(sessionID string)
	Lock(sessionID string) (unlock func())
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

func WithShards(n int) StoreOption {
	return func(s *MemoryStore) {
		if n > 0 {
			s.shardCount = n
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps sessions in process memory, sharded by xxhash of the id so that
// distinct sessions rarely contend on the same mutex.
type MemoryStore struct {
	shards     []*shard
	shardCount int
	now        func() time.Time
}

type shard struct {
	mu       sync.Mutex
	sessions map[string]*Session
	turns    map[string]*sync.Mutex
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		shardCount: defaultShardCount,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{
			sessions: make(map[string]*Session),
			turns:    make(map[string]*sync.Mutex),
		}
	}
	return s
}

func (s *MemoryStore) shardFor(sessionID string) *shard {
	return s.shards[xxhash.Sum64String(sessionID)%uint64(len(s.shards))]
}

func (s *MemoryStore) Get(sessionID string) (*Session, bool) {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// Create stores initial under sessionID, replacing any previous record, and returns a copy.
// A nil initial creates a fresh greeting session.
func (s *MemoryStore) Create(sessionID string, initial *Session) *Session {
	if initial == nil {
		initial = NewSession(sessionID, s.now())
	}
	initial.ID = sessionID

	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.sessions[sessionID] = initial
	return initial.Clone()
}

// Update applies fn to the stored session under the shard lock. Returns false,
// without calling fn, when the id is unknown.
func (s *MemoryStore) Update(sessionID string, fn func(*Session)) bool {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sessions[sessionID]
	if !ok {
		return false
	}
	if fn != nil {
		fn(st)
	}
	st.Touch(s.now())
	return true
}

func (s *MemoryStore) Delete(sessionID string) {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	delete(sh.sessions, sessionID)
	delete(sh.turns, sessionID)
}

// Lock blocks until the caller owns the turn for sessionID. The id does not need to exist yet.
func (s *MemoryStore) Lock(sessionID string) func() {
	sh := s.shardFor(sessionID)
	sh.mu.Lock()
	m, ok := sh.turns[sessionID]
	if !ok {
		m = &sync.Mutex{}
		sh.turns[sessionID] = m
	}
	sh.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Len reports the number of live sessions.
func (s *MemoryStore) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		n += len(sh.sessions)
		sh.mu.Unlock()
	}
	return n
}
