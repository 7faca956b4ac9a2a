package hook

import "sync"

// Manager is a registry of callbacks keyed by Key.
//
// The zero value is not usable; create managers with NewManager.
// Thread-safe: registration may happen while events are dispatched.
type Manager struct {
	mu    sync.RWMutex
	next  int
	hooks map[Key][]entry
}

type entry struct {
	id int
	cb Callback
}

// Handle identifies a registration so it can be removed later.
type Handle struct {
	m   *Manager
	key Key
	id  int
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{hooks: make(map[Key][]entry)}
}

// Register adds cb for key. Callbacks for the same key run in registration order.
func (m *Manager) Register(key Key, cb Callback) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.next++
	m.hooks[key] = append(m.hooks[key], entry{id: m.next, cb: cb})
	return Handle{m: m, key: key, id: m.next}
}

// Remove unregisters the callback identified by h. Removing twice is a no-op.
func (h Handle) Remove() {
	if h.m == nil {
		return
	}
	h.m.mu.Lock()
	defer h.m.mu.Unlock()

	entries := h.m.hooks[h.key]
	for i, e := range entries {
		if e.id == h.id {
			h.m.hooks[h.key] = append(entries[:i:i], entries[i+1:]...)
			return
		}
	}
}

// Dispatch delivers ev to every callback registered for ev.Key.
func (m *Manager) Dispatch(ev Event) {
	m.mu.RLock()
	entries := m.hooks[ev.Key]
	cbs := make([]Callback, len(entries))
	for i, e := range entries {
		cbs[i] = e.cb
	}
	m.mu.RUnlock()

	for _, cb := range cbs {
		cb(ev)
	}
}

// Len returns the number of callbacks registered for key.
func (m *Manager) Len(key Key) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.hooks[key])
}

// Empty reports whether no callbacks are registered at all.
func (m *Manager) Empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entries := range m.hooks {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}
