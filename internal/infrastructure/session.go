package infrastructure

import "sync"

// sessionLock serialises work on one DM thread.
type sessionLock struct {
	mu      sync.Mutex
	waiters int
}

// SessionLocker hands out per-session locks so that appends to one thread
// never interleave. Locks for idle sessions are dropped.
type SessionLocker struct {
	sessions map[string]*sessionLock
	mu       sync.Mutex
}

func NewSessionLocker() *SessionLocker {
	return &SessionLocker{
		sessions: make(map[string]*sessionLock),
	}
}

// Lock blocks until the session is free and returns the matching unlock.
func (sl *SessionLocker) Lock(sessionID string) (unlock func()) {
	sl.mu.Lock()
	lock, exists := sl.sessions[sessionID]
	if !exists {
		lock = &sessionLock{}
		sl.sessions[sessionID] = lock
	}
	lock.waiters++
	sl.mu.Unlock()

	lock.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			lock.mu.Unlock()

			sl.mu.Lock()
			defer sl.mu.Unlock()
			lock.waiters--
			if lock.waiters == 0 {
				delete(sl.sessions, sessionID)
			}
		})
	}
}

// Active returns how many sessions currently hold or wait for a lock.
func (sl *SessionLocker) Active() int {
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return len(sl.sessions)
}
