package portfolio

import (
	"sync"

	"github.com/google/uuid"
)

// Lanes is a keyed mutex: one lock per participant ID, created on first use
// and kept for the process lifetime. No library in this stack's dependency
// surface offers a keyed mutex (golang.org/x/sync's semaphore and
// singleflight solve adjacent but different problems), so this is built
// directly on sync.Mutex/sync.Map.
//
// The decision state machine holds a participant's lane for the
// build/parse/execute/record steps and releases it only during the
// invocation's network round trip, so two decision rounds for the same
// participant never interleave their portfolio writes.
type Lanes struct {
	locks sync.Map // uuid.UUID -> *sync.Mutex
}

func NewLanes() *Lanes {
	return &Lanes{}
}

// Acquire blocks until the participant's lane is free, then returns an
// unlock function the caller must invoke exactly once.
func (l *Lanes) Acquire(participantID uuid.UUID) func() {
	actual, _ := l.locks.LoadOrStore(participantID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
