package dispatcher

import "sync"

// agentLocks is a sharded mapping of agent id to a process-local advisory
// mutex, per the spec's design note. They are NOT a distributed lock: the
// agent's Idle status transition, written through the store, is what
// provides cross-process exclusion. These locks only prevent two concurrent
// dispatcher cycles in the same process from both entering the drain
// critical section for the same agent.
type agentLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newAgentLocks() *agentLocks {
	return &agentLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *agentLocks) lockFor(agentID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[agentID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[agentID] = m
	}
	return m
}

// tryAcquire attempts a non-blocking lock for agentID. It returns a release
// function and true on success, or a nil function and false if contended.
func (l *agentLocks) tryAcquire(agentID string) (release func(), ok bool) {
	m := l.lockFor(agentID)
	if !m.TryLock() {
		return nil, false
	}
	return m.Unlock, true
}
