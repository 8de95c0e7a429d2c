package engine

import (
	"context"
	"sync"
)

// fifoLock is a mutex that admits waiters strictly in the order they
// called Lock. Each holder owns a channel that it closes on release; the
// next caller waits on it.
type fifoLock struct {
	mu   sync.Mutex
	tail chan struct{}
}

// Lock blocks until every earlier caller has released and returns the
// release function. If ctx ends first, Lock returns ctx.Err() and the
// caller's place in line is handed on once its predecessor releases.
func (l *fifoLock) Lock(ctx context.Context) (func(), error) {
	next := make(chan struct{})

	l.mu.Lock()
	prev := l.tail
	l.tail = next
	l.mu.Unlock()

	var once sync.Once
	release := func() { once.Do(func() { close(next) }) }

	if prev == nil {
		return release, nil
	}
	select {
	case <-prev:
		return release, nil
	case <-ctx.Done():
		go func() {
			<-prev
			release()
		}()
		return nil, ctx.Err()
	}
}

// lockTable hands out one fifoLock per key.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*fifoLock
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*fifoLock)}
}

func (t *lockTable) get(key string) *fifoLock {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[key]
	if !ok {
		l = &fifoLock{}
		t.locks[key] = l
	}
	return l
}
