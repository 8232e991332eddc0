package datagram

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moffa90/go-bflb/secure"
)

// pending is a completed handshake waiting for its payload.
type pending struct {
	id      uuid.UUID
	session *secure.Session
	created time.Time
}

// registry holds at most one pending handshake per client address. Entries
// are removed exactly once: by take, by replacement or by expiry.
type registry struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]*pending
}

func newRegistry(ttl time.Duration) *registry {
	return &registry{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*pending),
	}
}

// put stores p for addr and reports whether an older entry was replaced.
func (r *registry) put(addr string, p *pending) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.entries[addr]
	r.entries[addr] = p
	return replaced
}

// take removes and returns the entry for addr. Expired entries are removed
// but not returned.
func (r *registry) take(addr string) (*pending, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.entries[addr]
	if !ok {
		return nil, false
	}
	delete(r.entries, addr)
	if r.expired(p) {
		return nil, false
	}
	return p, true
}

// sweep removes expired entries and returns how many it removed.
func (r *registry) sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for addr, p := range r.entries {
		if r.expired(p) {
			delete(r.entries, addr)
			n++
		}
	}
	return n
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *registry) expired(p *pending) bool {
	return r.now().Sub(p.created) > r.ttl
}
