package limiter

import (
	"context"
	"sync"
	"time"
)

type attempts struct {
	fails        int
	last         time.Time
	blockedUntil time.Time
}

// stale reports whether a has neither live failures nor an active block.
func (a *attempts) stale(now time.Time, window time.Duration) bool {
	return now.Sub(a.last) > window && !now.Before(a.blockedUntil)
}

// Memory is an in-process Limiter for single-node and dev deployments.
type Memory struct {
	mu    sync.Mutex
	p     Params
	byKey map[string]*attempts
	now   func() time.Time
	// nextSweep is when stale pairs are next dropped from byKey.
	nextSweep time.Time
}

// NewMemory constructs an in-process limiter.
func NewMemory(p Params) *Memory {
	return &Memory{p: p, byKey: map[string]*attempts{}, now: time.Now}
}

func key(handle string, client []byte) string { return handle + "\x00" + string(client) }

// Allow implements Limiter.
func (m *Memory) Allow(_ context.Context, handle string, client []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	k := key(handle, client)
	a, ok := m.byKey[k]
	if !ok {
		return true, 0, nil
	}
	if wait := a.blockedUntil.Sub(now); wait > 0 {
		return false, wait, nil
	}
	if a.stale(now, m.p.Window) {
		delete(m.byKey, k)
	}
	return true, 0, nil
}

// Success implements Limiter.
func (m *Memory) Success(_ context.Context, handle string, client []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byKey, key(handle, client))
	return nil
}

// Failure implements Limiter.
func (m *Memory) Failure(_ context.Context, handle string, client []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	k := key(handle, client)
	a, ok := m.byKey[k]
	if !ok || now.Sub(a.last) > m.p.Window {
		a = &attempts{}
		m.byKey[k] = a
	}
	a.fails++
	a.last = now
	if a.fails < m.p.MaxFails {
		return false, 0, nil
	}
	a.blockedUntil = now.Add(m.p.BlockFor)
	return true, m.p.BlockFor, nil
}

// sweep drops stale pairs, at most once per window. Callers hold mu.
func (m *Memory) sweep(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for k, a := range m.byKey {
		if a.stale(now, m.p.Window) {
			delete(m.byKey, k)
		}
	}
	m.nextSweep = now.Add(m.p.Window)
}
