package status

import (
	"context"
	"sync"
)

// Model is the single shared telemetry cell. Only the inbound message handler
// calls Set; everything else reads.
type Model struct {
	mu      sync.RWMutex
	current Snapshot
	gen     int
	changed chan struct{}

	subMu  sync.Mutex
	nextID int
	subs   map[int]func(Snapshot)
}

func NewModel() *Model {
	return &Model{
		current: Snapshot{},
		changed: make(chan struct{}),
		subs:    make(map[int]func(Snapshot)),
	}
}

// Current returns the latest snapshot, or an empty one before the first
// message arrives.
func (m *Model) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Set replaces the whole snapshot and notifies subscribers in call order.
func (m *Model) Set(s Snapshot) {
	if s == nil {
		s = Snapshot{}
	}
	m.mu.Lock()
	m.current = s
	m.gen++
	close(m.changed)
	m.changed = make(chan struct{})
	m.mu.Unlock()

	m.subMu.Lock()
	defer m.subMu.Unlock()
	for id := 0; id < m.nextID; id++ {
		if fn, ok := m.subs[id]; ok {
			fn(s)
		}
	}
}

// Subscribe registers fn to be called with every new snapshot. The returned
// function removes the subscription.
func (m *Model) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()
	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

type Watcher struct {
	m   *Model
	gen int
}

// Watch returns a Watcher positioned at the current snapshot.
func (m *Model) Watch() *Watcher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Watcher{m: m, gen: m.gen}
}

// Next waits for a snapshot newer than the last one returned. Intermediate
// snapshots are skipped if the caller falls behind.
func (w *Watcher) Next(ctx context.Context) (Snapshot, error) {
	for {
		w.m.mu.RLock()
		gen, cur, changed := w.m.gen, w.m.current, w.m.changed
		w.m.mu.RUnlock()
		if gen > w.gen {
			w.gen = gen
			return cur, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-changed:
		}
	}
}
