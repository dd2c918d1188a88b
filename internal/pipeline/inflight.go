package pipeline

import (
	"context"
	"sync"
)

// inflight serializes work per key so two concurrent uploads of the same
// bytes cannot both pass the duplicate check
type inflight struct {
	mu   sync.Mutex
	busy map[string]chan struct{}
}

func newInflight() *inflight {
	return &inflight{busy: make(map[string]chan struct{})}
}

func (f *inflight) acquire(ctx context.Context, key string) (func(), error) {
	for {
		f.mu.Lock()
		wait, taken := f.busy[key]
		if !taken {
			done := make(chan struct{})
			f.busy[key] = done
			f.mu.Unlock()

			return func() {
				f.mu.Lock()
				delete(f.busy, key)
				f.mu.Unlock()
				close(done)
			}, nil
		}
		f.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
