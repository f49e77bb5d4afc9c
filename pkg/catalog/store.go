package catalog

import (
	"sync"
	"sync/atomic"
)

type box struct {
	state State
}

// Store owns the current State. Reads never wait on writers; writes are
// serialized by the Store's mutex.
type Store struct {
	mu      sync.Mutex
	current atomic.Value // *box

	watchers map[int]chan State
	nextID   int
}

// NewStore creates a Store in the Loading state.
func NewStore() *Store {
	s := &Store{watchers: map[int]chan State{}}
	s.current.Store(&box{state: Loading{}})
	return s
}

// Get returns the current State.
func (s *Store) Get() State {
	return s.current.Load().(*box).state
}

// Set replaces the current State. A nil State is stored as Loading.
func (s *Store) Set(state State) {
	s.Mutate(func(State) State { return state })
}

// Mutate applies fn to the current State and stores its result. Mutate calls
// never interleave; fn runs with the Store locked and must not call back into
// the Store.
func (s *Store) Mutate(fn Transform) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.current.Load().(*box).state
	next := fn(prev)
	if next == nil {
		next = Loading{}
	}
	s.current.Store(&box{state: next})
	s.publish(next)
	return next
}

// Watch returns a channel delivering the latest State after each change. A
// slow reader only sees the most recent value. The returned func stops the
// watch and closes the channel.
func (s *Store) Watch() (<-chan State, func()) {
	ch := make(chan State, 1)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	ch <- s.current.Load().(*box).state
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			close(ch)
			s.mu.Unlock()
		})
	}
}

// publish must be called with mu held; it is the only sender on watcher
// channels.
func (s *Store) publish(state State) {
	for _, ch := range s.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- state
	}
}
