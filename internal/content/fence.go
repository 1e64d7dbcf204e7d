package content

import "sync"

// fence orders downloads of the same cache key so that a slow, older
// download cannot overwrite the result of a newer one. Tickets come from a
// single counter, so a key can be forgotten once its newest download ends.
type fence struct {
	mu      sync.Mutex
	next    uint64
	tickets map[string]uint64
}

func newFence() *fence {
	return &fence{tickets: make(map[string]uint64)}
}

// begin issues the next ticket for key
func (f *fence) begin(key string) uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.tickets[key] = f.next
	return f.next
}

// latest reports whether ticket is the newest issued for key
func (f *fence) latest(key string, ticket uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tickets[key] == ticket
}

// done releases key when ticket is still its newest
func (f *fence) done(key string, ticket uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tickets[key] == ticket {
		delete(f.tickets, key)
	}
}

// len returns the number of keys with a download in flight
func (f *fence) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickets)
}
