package cache

import "context"

// QueueCache holds the serialized kitchen-queue snapshot between polls.
// Lifecycle writes invalidate it, so staleness is bounded by the TTL.
type QueueCache interface {
	// Get returns the cached snapshot, or ok=false on a miss.
	Get(ctx context.Context) (data []byte, ok bool)

	// Set stores a snapshot until the TTL elapses.
	Set(ctx context.Context, data []byte)

	// Invalidate drops the snapshot after a lifecycle write.
	Invalidate(ctx context.Context)
}

// Noop disables caching; every poll recomputes the queue.
type Noop struct{}

func (Noop) Get(ctx context.Context) ([]byte, bool) { return nil, false }
func (Noop) Set(ctx context.Context, data []byte)   {}
func (Noop) Invalidate(ctx context.Context)         {}
