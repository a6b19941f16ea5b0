package dispatch

import (
	"context"
	"sync"
)

// gameLocks hands out one mutex per game id. Entries are refcounted and
// removed when the last holder or waiter lets go.
type gameLocks struct {
	mu    sync.Mutex
	locks map[int]*gameLock
}

type gameLock struct {
	sem  chan struct{}
	refs int
}

func newGameLocks() *gameLocks {
	return &gameLocks{locks: make(map[int]*gameLock)}
}

// lock blocks until id is free or ctx is done. The returned func releases it.
func (l *gameLocks) lock(ctx context.Context, id int) (func(), error) {
	l.mu.Lock()
	gl, ok := l.locks[id]
	if !ok {
		gl = &gameLock{sem: make(chan struct{}, 1)}
		l.locks[id] = gl
	}
	gl.refs++
	l.mu.Unlock()

	select {
	case gl.sem <- struct{}{}:
		return func() {
			<-gl.sem
			l.release(id, gl)
		}, nil
	case <-ctx.Done():
		l.release(id, gl)
		return nil, ctx.Err()
	}
}

func (l *gameLocks) release(id int, gl *gameLock) {
	l.mu.Lock()
	gl.refs--
	if gl.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}

func (l *gameLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
