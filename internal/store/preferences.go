package store

import (
	"sync"
)

// DefaultCoverIfDrizzle is the startup value: drizzle is treated as safe to cover.
const DefaultCoverIfDrizzle = true

// Preferences is a concurrency-safe in-memory holder for the user's drizzle
// preference. It has a single value for the whole process and is not persisted.
type Preferences struct {
	// notifyMu serializes changes together with their delivery, so
	// subscribers observe changes in the order they were stored.
	notifyMu sync.Mutex
	mu       sync.RWMutex

	coverIfDrizzle bool

	// subscribers notified after a change, keyed by subscription id
	subs   map[uint64]func(bool)
	nextID uint64
}

// NewPreferences creates a holder initialised to DefaultCoverIfDrizzle.
func NewPreferences() *Preferences {
	return &Preferences{
		coverIfDrizzle: DefaultCoverIfDrizzle,
		subs:           make(map[uint64]func(bool)),
	}
}

// CoverIfDrizzle reports whether the car should still be covered on drizzle days.
func (p *Preferences) CoverIfDrizzle() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.coverIfDrizzle
}

// SetCoverIfDrizzle updates the preference. Subscribers are called only when
// the value actually changes, and a concurrent SetCoverIfDrizzle waits until
// they have returned. It reports whether the value changed.
// Subscribers may read the value but must not call SetCoverIfDrizzle.
func (p *Preferences) SetCoverIfDrizzle(v bool) bool {
	p.notifyMu.Lock()
	defer p.notifyMu.Unlock()

	p.mu.Lock()
	if p.coverIfDrizzle == v {
		p.mu.Unlock()
		return false
	}
	p.coverIfDrizzle = v

	notify := make([]func(bool), 0, len(p.subs))
	for _, fn := range p.subs {
		notify = append(notify, fn)
	}
	p.mu.Unlock()

	for _, fn := range notify {
		fn(v)
	}
	return true
}

// Subscribe registers fn to be called with the new value after each change.
// The returned function removes the subscription; calling it twice is safe.
func (p *Preferences) Subscribe(fn func(bool)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subs[id] = fn
	p.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subs, id)
			p.mu.Unlock()
		})
	}
}
