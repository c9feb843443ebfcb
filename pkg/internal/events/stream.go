// Package events carries typed publish/subscribe streams between the core
// components, replacing process-wide string-keyed notification topics.
package events

import "sync"

type CancelFunc func()

// Stream fans one value type out to its subscribers, in subscription order.
// Callbacks run synchronously on the publisher's goroutine.
type Stream[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscription[T]
}

type subscription[T any] struct {
	id       int
	callback func(T)
}

func (s *Stream[T]) Subscribe(callback func(T)) CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs = append(s.subs, subscription[T]{id: id, callback: callback})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for idx, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:idx], s.subs[idx+1:]...)
				return
			}
		}
	}
}

func (s *Stream[T]) Publish(value T) {
	s.mu.Lock()
	callbacks := make([]func(T), 0, len(s.subs))
	for _, sub := range s.subs {
		callbacks = append(callbacks, sub.callback)
	}
	s.mu.Unlock()

	for _, callback := range callbacks {
		callback(value)
	}
}
