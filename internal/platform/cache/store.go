package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Backend stores opaque byte values with a per-store TTL.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

type entry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

// Store is an in-process Backend bounded by entry count; the least recently
// used entry is evicted first.
type Store struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	order      *list.List
	entries    map[string]*list.Element
	now        func() time.Time
}

var _ Backend = (*Store)(nil)

func NewStore(ttl time.Duration, maxEntries int) *Store {
	return &Store{
		ttl:        ttl,
		maxEntries: maxEntries,
		order:      list.New(),
		entries:    make(map[string]*list.Element),
		now:        time.Now,
	}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*entry)
	if !e.expiresAt.IsZero() && !e.expiresAt.After(s.now()) {
		s.removeElement(el)
		return nil, false, nil
	}
	s.order.MoveToFront(el)
	return e.value, true, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	if key == "" {
		return nil
	}
	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		e := el.Value.(*entry)
		e.value = value
		e.expiresAt = expiresAt
		s.order.MoveToFront(el)
		return nil
	}
	s.entries[key] = s.order.PushFront(&entry{key: key, value: value, expiresAt: expiresAt})
	for s.maxEntries > 0 && s.order.Len() > s.maxEntries {
		s.removeElement(s.order.Back())
	}
	return nil
}

func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		if el, ok := s.entries[key]; ok {
			s.removeElement(el)
		}
	}
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *Store) removeElement(el *list.Element) {
	if el == nil {
		return
	}
	s.order.Remove(el)
	delete(s.entries, el.Value.(*entry).key)
}
