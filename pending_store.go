package babbage

import (
	"strings"
	"sync"
	"time"

	"github.com/lightningnetwork/lnd/clock"
)

// DefaultPendingTTL bounds how long a fee output may wait for its signature
const DefaultPendingTTL = 24 * time.Hour

// PendingEntry records a fee output created by a deferred action
type PendingEntry struct {
	Recipient FeeRecipient
	Nonce     DerivationNonce
	Satoshis  uint64

	// Reference is the signable transaction reference the entry belongs to
	Reference string
}

// PendingStore tracks fee outputs awaiting signature, keyed by the hex of
// their locking script.
type PendingStore interface {
	// Put records an entry. It fails with ErrScriptCollision if a live
	// entry already uses the same locking script.
	Put(lockingScript string, entry PendingEntry) error

	// Has reports whether a live entry uses the locking script
	Has(lockingScript string) bool

	// Take returns and removes the entry for a locking script
	Take(lockingScript string) (PendingEntry, bool)

	// DropReference removes every entry of a signable reference and
	// returns how many were removed
	DropReference(reference string) int

	// Len returns the number of live entries
	Len() int
}

// MemoryPendingStore is an in-process PendingStore whose entries expire after
// a TTL. Expired entries are swept lazily on access.
type MemoryPendingStore struct {
	mu      sync.Mutex
	entries map[string]PendingEntry
	expiry  map[string]time.Time
	ttl     time.Duration
	clock   clock.Clock
}

// NewMemoryPendingStore creates a store with the given TTL. A nil clock uses
// the system clock.
func NewMemoryPendingStore(ttl time.Duration, clk clock.Clock) *MemoryPendingStore {
	if ttl <= 0 {
		ttl = DefaultPendingTTL
	}
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &MemoryPendingStore{
		entries: make(map[string]PendingEntry),
		expiry:  make(map[string]time.Time),
		ttl:     ttl,
		clock:   clk,
	}
}

func (s *MemoryPendingStore) Put(lockingScript string, entry PendingEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked()

	key := strings.ToLower(lockingScript)
	if _, exists := s.entries[key]; exists {
		return ErrScriptCollision
	}

	s.entries[key] = entry
	s.expiry[key] = s.clock.Now().Add(s.ttl)
	return nil
}

func (s *MemoryPendingStore) Has(lockingScript string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(lockingScript)
	expiry, exists := s.expiry[key]
	return exists && !s.clock.Now().After(expiry)
}

func (s *MemoryPendingStore) Take(lockingScript string) (PendingEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(lockingScript)
	entry, exists := s.entries[key]
	if !exists {
		return PendingEntry{}, false
	}

	expired := s.clock.Now().After(s.expiry[key])
	delete(s.entries, key)
	delete(s.expiry, key)
	if expired {
		return PendingEntry{}, false
	}
	return entry, true
}

func (s *MemoryPendingStore) DropReference(reference string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	for key, entry := range s.entries {
		if entry.Reference == reference {
			delete(s.entries, key)
			delete(s.expiry, key)
			dropped++
		}
	}
	return dropped
}

func (s *MemoryPendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cleanupExpiredLocked()
	return len(s.entries)
}

// cleanupExpiredLocked removes expired entries. Must be called with lock held.
func (s *MemoryPendingStore) cleanupExpiredLocked() {
	now := s.clock.Now()
	for key, expiry := range s.expiry {
		if now.After(expiry) {
			log.Debugf("Dropping expired pending fee output %s", key)
			delete(s.entries, key)
			delete(s.expiry, key)
		}
	}
}

var _ PendingStore = (*MemoryPendingStore)(nil)
