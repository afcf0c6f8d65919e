package desk

import (
	"sync"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/globalpulse/newsdesk/filter"
)

// FilterStore owns the current FilterState. The view layer mutates it
// through Mutate, every other component only ever sees read-only snapshots.
// One Mutate call publishes exactly one refresh request, so a reset that
// clears five fields still fires a single fetch.
type FilterStore struct {
	mu    sync.Mutex
	state filter.State

	bus *gochannel.GoChannel
}

func NewFilterStore(initial filter.State, bus *gochannel.GoChannel) *FilterStore {
	return &FilterStore{state: initial, bus: bus}
}

// Snapshot returns the current immutable state value.
func (s *FilterStore) Snapshot() filter.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mutate applies fn to the current state as one atomic update and publishes
// one refresh request for it. Returns the new state.
func (s *FilterStore) Mutate(trigger string, fn func(filter.State) filter.State) (filter.State, error) {
	s.mu.Lock()
	s.state = fn(s.state)
	next := s.state
	s.mu.Unlock()

	if err := PublishEvent(s.bus, TopicRefreshRequest, RefreshRequest{Trigger: trigger}); err != nil {
		return next, err
	}
	return next, nil
}

// Refresh publishes a refresh request without touching the state. Used for
// the initial load and the manual refresh command.
func (s *FilterStore) Refresh(trigger string) error {
	return PublishEvent(s.bus, TopicRefreshRequest, RefreshRequest{Trigger: trigger})
}
