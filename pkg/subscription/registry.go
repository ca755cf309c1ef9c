package subscription

import (
	"cmp"
	"slices"
	"sync"

	"github.com/waqiti/realtime-go/pkg/model"
)

// Registry holds the set of desired topics. It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	topics map[model.Topic]struct{}

	// Callbacks
	onChange func(count int)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		topics: make(map[model.Topic]struct{}),
	}
}

// OnChange sets a callback invoked with the new count after every change.
func (r *Registry) OnChange(fn func(count int)) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Add registers topic. It returns false if the topic was already present.
func (r *Registry) Add(topic model.Topic) bool {
	r.mu.Lock()
	if _, exists := r.topics[topic]; exists {
		r.mu.Unlock()
		return false
	}
	r.topics[topic] = struct{}{}
	count, cb := len(r.topics), r.onChange
	r.mu.Unlock()

	if cb != nil {
		cb(count)
	}
	return true
}

// Remove unregisters topic. It returns false if the topic was not present.
func (r *Registry) Remove(topic model.Topic) bool {
	r.mu.Lock()
	if _, exists := r.topics[topic]; !exists {
		r.mu.Unlock()
		return false
	}
	delete(r.topics, topic)
	count, cb := len(r.topics), r.onChange
	r.mu.Unlock()

	if cb != nil {
		cb(count)
	}
	return true
}

// Contains reports whether topic is registered.
func (r *Registry) Contains(topic model.Topic) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.topics[topic]
	return ok
}

// Snapshot returns all registered topics ordered by class, then id.
// The result is a copy and can be iterated without holding any lock.
func (r *Registry) Snapshot() []model.Topic {
	r.mu.RLock()
	out := make([]model.Topic, 0, len(r.topics))
	for t := range r.topics {
		out = append(out, t)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Topic) int {
		if c := cmp.Compare(a.Class, b.Class); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// Count returns the number of registered topics.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics)
}

// Clear removes all topics.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.topics = make(map[model.Topic]struct{})
	cb := r.onChange
	r.mu.Unlock()

	if cb != nil {
		cb(0)
	}
}
