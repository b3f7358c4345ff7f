package progress

import (
	"sync"

	"github.com/google/uuid"
)

// learnerLocks hands out one mutex per learner. Entries are dropped once no
// goroutine holds or waits for them.
type learnerLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*learnerLock
}

type learnerLock struct {
	mu   sync.Mutex
	refs int
}

func newLearnerLocks() *learnerLocks {
	return &learnerLocks{locks: make(map[uuid.UUID]*learnerLock)}
}

// lock blocks until the learner's mutex is held and returns its release.
func (l *learnerLocks) lock(learnerID uuid.UUID) func() {
	l.mu.Lock()
	entry, ok := l.locks[learnerID]
	if !ok {
		entry = &learnerLock{}
		l.locks[learnerID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, learnerID)
		}
		l.mu.Unlock()
	}
}

func (l *learnerLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
