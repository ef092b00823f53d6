// Package session issues the identifier that partitions ledger entries by
// process run.
package session

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Key is the session-store key holding the current session id.
const Key = "quota_session_id"

const (
	idPrefix     = "session_"
	suffixLength = 9
	base36       = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Store is session-scoped storage: values live exactly as long as the session.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// MemoryStore is a Store that lives for the process lifetime, so one process
// run is one session.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *MemoryStore) Set(key, value string) {
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
}

var createMu sync.Mutex

// GetOrCreate returns the session id held in s, generating and storing a new
// one on first use. It is not a security identifier.
func GetOrCreate(s Store) string {
	return getOrCreate(s, time.Now)
}

func getOrCreate(s Store, now func() time.Time) string {
	createMu.Lock()
	defer createMu.Unlock()

	if id, ok := s.Get(Key); ok && id != "" {
		return id
	}
	id := NewID(now())
	s.Set(Key, id)
	return id
}

// NewID formats session_<unix-ms>_<9 base36 chars>.
func NewID(at time.Time) string {
	var b strings.Builder
	b.Grow(len(idPrefix) + 14 + 1 + suffixLength)
	b.WriteString(idPrefix)
	b.WriteString(strconv.FormatInt(at.UnixMilli(), 10))
	b.WriteByte('_')
	for i := 0; i < suffixLength; i++ {
		b.WriteByte(base36[rand.IntN(len(base36))])
	}
	return b.String()
}
