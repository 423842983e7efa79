package memory

import "sync"

// feed delivers values to one subscriber on its own goroutine.
// Undelivered values are coalesced so a slow subscriber only sees the latest one.
type feed[T any] struct {
	deliver func(T)

	mu      sync.Mutex
	pending *T

	signal chan struct{}
	done   chan struct{}

	deliverMu sync.Mutex
	closed    bool
	once      sync.Once
}

func newFeed[T any](deliver func(T)) *feed[T] {
	f := &feed[T]{
		deliver: deliver,
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *feed[T]) push(v T) {
	f.mu.Lock()
	f.pending = &v
	f.mu.Unlock()

	select {
	case f.signal <- struct{}{}:
	default:
	}
}

func (f *feed[T]) run() {
	for {
		select {
		case <-f.done:
			return
		case <-f.signal:
		}

		f.mu.Lock()
		v := f.pending
		f.pending = nil
		f.mu.Unlock()
		if v == nil {
			continue
		}

		f.deliverMu.Lock()
		if !f.closed {
			f.deliver(*v)
		}
		f.deliverMu.Unlock()
	}
}

// close waits for an in-flight delivery; it must not be called from deliver.
func (f *feed[T]) close() {
	f.once.Do(func() {
		f.deliverMu.Lock()
		f.closed = true
		f.deliverMu.Unlock()
		close(f.done)
	})
}
