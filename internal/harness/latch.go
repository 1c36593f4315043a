package harness

import (
	"context"
	"sync"
)

// latch is a rendezvous point for the contending workers: the first n
// arrivals release every waiter. Unlike sync.WaitGroup it tolerates
// extra arrivals, which happen on every retry attempt.
type latch struct {
	mu        sync.Mutex
	remaining int
	released  chan struct{}
}

func newLatch(n int) *latch {
	return &latch{remaining: n, released: make(chan struct{})}
}

func (l *latch) arrive() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.remaining > 0 {
		l.remaining--
		if l.remaining == 0 {
			close(l.released)
		}
	}
}

func (l *latch) wait(ctx context.Context) error {
	select {
	case <-l.released:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
