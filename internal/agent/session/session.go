// Package session serializes turns per conversation.
package session

import (
	"context"
	"sync"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// Locker is a cross-process lock keyed by conversation.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}

type entry struct {
	ch   chan struct{}
	refs int
}

// Manager holds one mutex per active conversation. Entries are reference
// counted and dropped when the last holder or waiter leaves.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry

	locker  Locker
	lockTTL time.Duration
}

// Option configures a Manager.
type Option func(*Manager)

// WithLocker adds a distributed lock taken after the local one.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(m *Manager) {
		m.locker = l
		m.lockTTL = ttl
	}
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{entries: make(map[string]*entry), lockTTL: 2 * time.Minute}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// WithLock runs fn while holding the conversation's lock. Waiting honours
// ctx cancellation.
func (m *Manager) WithLock(ctx context.Context, conversationID string, fn func(ctx context.Context) error) error {
	e := m.acquire(conversationID)
	defer m.release(conversationID, e)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.ch }()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, conversationID, m.lockTTL)
		if err != nil {
			return err
		}
		defer unlock(context.WithoutCancel(ctx))
	}
	return fn(ctx)
}

func (m *Manager) acquire(id string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		m.entries[id] = e
	}
	e.refs++
	return e
}

func (m *Manager) release(id string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.entries, id)
	}
}

// Active returns the number of conversations holding or waiting for a lock.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
