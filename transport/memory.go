package transport

import (
	"strings"
	"sync"
)

// Memory is an in-process PubSub used by tests and by the simulated device
// rig. Handlers run synchronously on the publisher's goroutine.
type Memory struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]memorySub
	closed bool
}

type memorySub struct {
	pattern string
	handler func(subject string, data []byte)
}

func NewMemory() *Memory {
	return &Memory{subs: make(map[int]memorySub)}
}

func (m *Memory) Publish(subject string, data []byte) error {
	m.mu.Lock()
	var handlers []func(string, []byte)
	if !m.closed {
		for _, s := range m.subs {
			if subjectMatches(s.pattern, subject) {
				handlers = append(handlers, s.handler)
			}
		}
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(subject, data)
	}
	return nil
}

func (m *Memory) Subscribe(pattern string, handler func(subject string, data []byte)) (Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = memorySub{pattern: pattern, handler: handler}
	return &memorySubscription{m: m, id: id}, nil
}

func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.subs = make(map[int]memorySub)
}

type memorySubscription struct {
	m  *Memory
	id int
}

func (s *memorySubscription) Unsubscribe() error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	delete(s.m.subs, s.id)
	return nil
}

// subjectMatches supports the "*" single-token wildcard used by the status
// family subscription. Full NATS matching is not needed here.
func subjectMatches(pattern, subject string) bool {
	if pattern == subject {
		return true
	}
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	if len(pt) != len(st) {
		return false
	}
	for i := range pt {
		if pt[i] != "*" && pt[i] != st[i] {
			return false
		}
	}
	return true
}
