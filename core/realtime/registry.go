package realtime

import (
	"sync"

	"github.com/google/uuid"
)

// sendBuffer is the per-subscriber delivery buffer. Deliveries into a full
// buffer are dropped: the fabric is best-effort and a slow consumer must
// not hold up the rest of its group.
const sendBuffer = 32

// Subscriber is one live connection's handle on the registry. It belongs
// to the connection session that created it; the session closes it after
// leaving all groups.
type Subscriber struct {
	id        string
	events    chan Event
	closeOnce sync.Once
}

func NewSubscriber() *Subscriber {
	return &Subscriber{
		id:     uuid.New().String(),
		events: make(chan Event, sendBuffer),
	}
}

func (s *Subscriber) ID() string { return s.id }

// Events is the subscriber's delivery channel. It is closed by Close.
func (s *Subscriber) Events() <-chan Event { return s.events }

// Close closes the delivery channel. Safe to call more than once.
// Callers must Leave all groups first; the registry never delivers to a
// subscriber after Leave has returned.
func (s *Subscriber) Close() {
	s.closeOnce.Do(func() { close(s.events) })
}

// Registry is the pub/sub fabric: named groups of live subscribers.
// Groups have no standalone lifecycle; they exist implicitly by having
// members and are pruned when the last member leaves.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]map[*Subscriber]struct{}
}

func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]map[*Subscriber]struct{})}
}

// Join idempotently adds sub to the named group, creating it if absent.
func (r *Registry) Join(group string, sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		members = make(map[*Subscriber]struct{})
		r.groups[group] = members
	}
	members[sub] = struct{}{}
}

// Leave removes sub from the named group; no error if not a member or if
// the group does not exist. Once Leave returns, no in-flight Publish can
// still deliver to sub.
func (r *Registry) Leave(group string, sub *Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		return
	}
	delete(members, sub)
	if len(members) == 0 {
		delete(r.groups, group)
	}
}

// Publish delivers e to every current member of the group. Delivery into
// each member's buffer is non-blocking; members with a full buffer are
// skipped. Successive publishes from a single caller reach each member
// in order.
func (r *Registry) Publish(group string, e Event) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for sub := range r.groups[group] {
		select {
		case sub.events <- e:
		default: // slow consumer, drop
		}
	}
}

// Members reports the current size of the group.
func (r *Registry) Members(group string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group])
}

// Shutdown detaches and closes every subscriber. Sessions observe the
// closed delivery channel and run their own teardown.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[*Subscriber]struct{})
	for name, members := range r.groups {
		for sub := range members {
			seen[sub] = struct{}{}
		}
		delete(r.groups, name)
	}
	for sub := range seen {
		sub.Close()
	}
}
