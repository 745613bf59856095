package session

import (
	"container/list"
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/eduassist/portal/internal/ports"
)

// ManagerOptions groups constructor options (<=3 params rule).
type ManagerOptions struct {
	Storage        ports.DurableStorage
	Capacity       int
	HydrateTimeout time.Duration
	Logger         *slog.Logger
}

// Manager keeps one Store per browser client in a bounded LRU.
// An evicted store is rebuilt on next use and re-hydrates from durable storage.
// Concurrency: methods are safe for concurrent use.
type Manager struct {
	storage        ports.DurableStorage
	hydrateTimeout time.Duration
	logger         *slog.Logger

	mu    sync.Mutex
	cap   int
	ll    *list.List               // front = most-recently used
	items map[string]*list.Element // client id -> element

	wg sync.WaitGroup
}

type managerEntry struct {
	clientID string
	store    *Store
}

// NewManager creates a Manager. Capacity defaults to 10000 and the hydration
// timeout to 5s.
func NewManager(opts ManagerOptions) *Manager {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = 10000
	}
	timeout := opts.HydrateTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		storage:        opts.Storage,
		hydrateTimeout: timeout,
		logger:         logger,
		cap:            capacity,
		ll:             list.New(),
		items:          make(map[string]*list.Element),
	}
}

// Store returns the store for clientID, creating it on first use.
// A new store starts hydrating in the background; callers wait on Ready.
func (m *Manager) Store(clientID string) *Store {
	m.mu.Lock()
	if el, ok := m.items[clientID]; ok {
		m.ll.MoveToFront(el)
		st := el.Value.(*managerEntry).store
		m.mu.Unlock()
		return st
	}

	st := NewStore(StoreOptions{
		Storage: Scope(m.storage, clientID),
		Logger:  m.logger.With("client_id", clientID),
	})
	m.items[clientID] = m.ll.PushFront(&managerEntry{clientID: clientID, store: st})
	m.evictLocked()
	m.wg.Add(1)
	m.mu.Unlock()

	go m.hydrate(st)
	return st
}

func (m *Manager) hydrate(st *Store) {
	defer m.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), m.hydrateTimeout)
	defer cancel()
	if err := st.Hydrate(ctx); err != nil {
		st.logger.Warn("session hydration failed", "error", err)
	}
}

func (m *Manager) evictLocked() {
	for m.ll.Len() > m.cap {
		el := m.ll.Back()
		if el == nil {
			return
		}
		m.ll.Remove(el)
		delete(m.items, el.Value.(*managerEntry).clientID)
	}
}

// Len returns the number of live stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ll.Len()
}

// Wait blocks until all in-flight hydrations have finished.
func (m *Manager) Wait() { m.wg.Wait() }
