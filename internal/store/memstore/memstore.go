// Package memstore is an in-process store.Store. Mutations are announced to
// listeners from a separate goroutine, the way a real store's notifier
// thread would deliver them.
package memstore

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/store"
)

const listenerBuffer = 1024

// Store holds lists and opaque values in memory
type Store struct {
	lists     map[string][]model.Value
	blobs     map[string][]byte
	listeners map[int]chan model.StoreEvent
	nextID    int
	dropped   uint64
	logger    *slog.Logger
	mutex     sync.RWMutex
}

// New creates an empty store
func New() *Store {
	return &Store{
		lists:     make(map[string][]model.Value),
		blobs:     make(map[string][]byte),
		listeners: make(map[int]chan model.StoreEvent),
		logger:    slog.Default().With("component", "memstore"),
	}
}

// Range implements store.Reader
func (s *Store) Range(ctx context.Context, key string) ([]model.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if _, ok := s.blobs[key]; ok {
		return nil, store.ErrWrongType
	}
	values, ok := s.lists[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return append([]model.Value(nil), values...), nil
}

// Get returns the opaque value stored at key
func (s *Store) Get(key string) ([]byte, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	v, ok := s.blobs[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), v...), true
}

// Set implements store.Writer
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.Lock()
	delete(s.lists, key)
	s.blobs[key] = append([]byte(nil), value...)
	s.announceLocked("set", key)
	s.mutex.Unlock()
	return nil
}

// Append implements store.Writer
func (s *Store) Append(ctx context.Context, key string, values ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.RPush(key, model.Strings(values...)...)
}

// RPush appends values to the tail of the list at key
func (s *Store) RPush(key string, values ...model.Value) error {
	return s.push("rpush", key, values, false)
}

// LPush prepends values to the head of the list at key, one at a time
func (s *Store) LPush(key string, values ...model.Value) error {
	return s.push("lpush", key, values, true)
}

func (s *Store) push(kind, key string, values []model.Value, head bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.blobs[key]; ok {
		return store.ErrWrongType
	}

	list := s.lists[key]
	if head {
		for _, v := range values {
			list = append([]model.Value{v}, list...)
		}
	} else {
		list = append(list, values...)
	}
	s.lists[key] = list
	s.announceLocked(kind, key)
	return nil
}

// Delete removes key
func (s *Store) Delete(key string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, isList := s.lists[key]
	_, isBlob := s.blobs[key]
	if !isList && !isBlob {
		return
	}
	delete(s.lists, key)
	delete(s.blobs, key)
	s.announceLocked("del", key)
}

// announceLocked queues an event for every listener. Slow listeners lose
// events rather than stalling writers.
func (s *Store) announceLocked(kind, key string) {
	event := model.StoreEvent{Kind: kind, Key: key, Timestamp: time.Now()}
	for _, ch := range s.listeners {
		select {
		case ch <- event:
		default:
			s.dropped++
			s.logger.Warn("listener buffer full, dropping event", "kind", kind, "key", key)
		}
	}
}

// Listen implements store.Notifier. It blocks, invoking handler on the
// calling goroutine, until ctx is cancelled or the store is closed.
func (s *Store) Listen(ctx context.Context, handler store.Handler) error {
	ch := make(chan model.StoreEvent, listenerBuffer)

	s.mutex.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = ch
	s.mutex.Unlock()

	defer func() {
		s.mutex.Lock()
		if _, ok := s.listeners[id]; ok {
			delete(s.listeners, id)
			close(ch)
		}
		s.mutex.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-ch:
			if !ok {
				return nil
			}
			handler(event.Kind, event.Key)
		}
	}
}

// Listeners returns how many Listen calls are active
func (s *Store) Listeners() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.listeners)
}

// Close detaches every listener
func (s *Store) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for id, ch := range s.listeners {
		close(ch)
		delete(s.listeners, id)
	}
	return nil
}
