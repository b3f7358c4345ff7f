package progress

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLearnerLocksSerializeSameLearner(t *testing.T) {
	t.Parallel()

	locks := newLearnerLocks()
	learner := uuid.New()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.lock(learner)
			defer release()
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			inside.Add(-1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
	assert.Equal(t, 0, locks.size())
}

func TestLearnerLocksIndependentLearners(t *testing.T) {
	t.Parallel()

	locks := newLearnerLocks()
	releaseA := locks.lock(uuid.New())
	done := make(chan struct{})
	go func() {
		release := locks.lock(uuid.New())
		release()
		close(done)
	}()
	<-done
	releaseA()
	assert.Equal(t, 0, locks.size())
}
